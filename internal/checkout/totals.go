package checkout

import (
	"tux-order-services/internal/cart"
	"tux-order-services/internal/menu"
	"tux-order-services/internal/money"
)

type Totals struct {
	Subtotal    float64            `json:"subtotal"`
	DeliveryFee float64            `json:"deliveryFee"`
	Total       float64            `json:"total"`
	Zone        *menu.DeliveryZone `json:"zone,omitempty"`
}

// ComputeTotals prices the cart for the given form state. The delivery fee
// applies only to delivery orders with a known zone.
func ComputeTotals(c *cart.Cart, s State, zones menu.Zones) Totals {
	t := Totals{Subtotal: c.Subtotal()}
	if s.Fulfillment == FulfillmentDelivery {
		if zone, ok := zones.Find(s.DeliveryZoneID); ok {
			t.DeliveryFee = money.NormalizeCurrency(zone.Fee)
			t.Zone = &zone
		}
	}
	t.Total = money.NormalizeCurrency(t.Subtotal + t.DeliveryFee)
	return t
}
