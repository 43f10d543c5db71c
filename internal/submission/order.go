package submission

import (
	"context"
	"strings"
	"time"

	"tux-order-services/internal/cart"
	"tux-order-services/internal/checkout"
	"tux-order-services/internal/menu"
	"tux-order-services/internal/money"
)

const (
	idempotencyPrefix = "website-order-"

	OrderStatusPending = "pending"
	POSStatusNew       = "new"
	POSOrderNoPending  = "PENDING"
	SourceWeb          = "web"
)

type OrderLine struct {
	ItemID    string       `json:"itemId"`
	Name      string       `json:"name"`
	Quantity  int          `json:"quantity"`
	Price     float64      `json:"price"`
	Extras    []menu.Extra `json:"extras"`
	LineTotal float64      `json:"lineTotal"`
}

// OrderRecord is the immutable snapshot written for a placed order.
type OrderRecord struct {
	UserID           string      `json:"userId"`
	CustomerName     string      `json:"customerName"`
	Phone            string      `json:"phone"`
	Email            string      `json:"email"`
	Items            string      `json:"items"`
	Cart             []OrderLine `json:"cart"`
	Fulfillment      string      `json:"fulfillment"`
	Address          string      `json:"address,omitempty"`
	DeliveryZone     string      `json:"deliveryZone,omitempty"`
	DeliveryZoneID   string      `json:"deliveryZoneId,omitempty"`
	DeliveryFee      float64     `json:"deliveryFee"`
	Subtotal         float64     `json:"subtotal"`
	Total            float64     `json:"total"`
	PaymentMethod    string      `json:"paymentMethod"`
	PaymentBreakdown money.Split `json:"paymentBreakdown"`
	Instructions     string      `json:"instructions,omitempty"`
	RestaurantID     string      `json:"restaurantId,omitempty"`
	Status           string      `json:"status"`
	IdempotencyKey   string      `json:"idemKey,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// POSOrder is the point-of-sale feed entry, keyed by the idempotency key.
// OrderNo stays PENDING until the numbering worker assigns one.
type POSOrder struct {
	IdempotencyKey string      `json:"idemKey"`
	OrderID        string      `json:"orderId"`
	UserID         string      `json:"userId"`
	OrderNo        string      `json:"orderNo"`
	Status         string      `json:"status"`
	Source         string      `json:"source"`
	IsNumbered     bool        `json:"isNumbered"`
	Order          OrderRecord `json:"order"`
}

// Placed describes an order after its primary write succeeded.
type Placed struct {
	OrderID        string
	IdempotencyKey string
	Record         OrderRecord
}

// OrderStore receives the three writes of a submission. Only
// CreateProfileOrder is allowed to fail the submission.
type OrderStore interface {
	CreateProfileOrder(ctx context.Context, rec OrderRecord) (string, error)
	MirrorGlobalOrder(ctx context.Context, orderID string, rec OrderRecord) error
	MirrorPOSOrder(ctx context.Context, order POSOrder) error
}

func IdempotencyKey(orderID string) string {
	return idempotencyPrefix + orderID
}

// OrderIDFromKey reverses IdempotencyKey.
func OrderIDFromKey(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, idempotencyPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func NewPOSOrder(p Placed) POSOrder {
	return POSOrder{
		IdempotencyKey: p.IdempotencyKey,
		OrderID:        p.OrderID,
		UserID:         p.Record.UserID,
		OrderNo:        POSOrderNoPending,
		Status:         POSStatusNew,
		Source:         SourceWeb,
		Order:          p.Record,
	}
}

// BuildRecord assembles the order snapshot from a validated checkout.
func BuildRecord(c *cart.Cart, v checkout.Validated, customer Customer, restaurantID string, now time.Time) OrderRecord {
	lines := c.Lines()
	orderLines := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		extras := l.Extras
		if extras == nil {
			extras = []menu.Extra{}
		}
		orderLines = append(orderLines, OrderLine{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
			Extras:    extras,
			LineTotal: l.Total(),
		})
	}

	email := strings.TrimSpace(customer.Email)
	if email == "" {
		email = v.State.Email
	}

	rec := OrderRecord{
		UserID:           customer.ID,
		CustomerName:     v.State.Name,
		Phone:            v.Phone,
		Email:            email,
		Items:            c.Summary(),
		Cart:             orderLines,
		Fulfillment:      string(v.State.Fulfillment),
		DeliveryFee:      v.Totals.DeliveryFee,
		Subtotal:         v.Totals.Subtotal,
		Total:            v.Totals.Total,
		PaymentMethod:    string(v.State.PaymentMethod),
		PaymentBreakdown: v.Payment,
		Instructions:     v.State.Notes,
		RestaurantID:     restaurantID,
		Status:           OrderStatusPending,
		CreatedAt:        now.UTC(),
	}
	if v.State.Fulfillment == checkout.FulfillmentDelivery {
		rec.Address = v.State.Address
		if v.Totals.Zone != nil {
			rec.DeliveryZone = v.Totals.Zone.Name
			rec.DeliveryZoneID = v.Totals.Zone.ID
		}
	}
	return rec
}
