// Package cartsync keeps every surface that shows a cart in step: it owns the
// stored payload format, the durable and hand-off stores, the debounced
// writer and the broadcast channel surfaces listen on.
package cartsync

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"tux-order-services/internal/money"
)

type CartEntry struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type ExtraDetail struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type LineDetail struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Price    float64       `json:"price"`
	Quantity int           `json:"quantity"`
	Extras   []ExtraDetail `json:"extras"`
}

type CheckoutSnapshot struct {
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email"`
	Notes          string  `json:"notes"`
	PaymentMethod  string  `json:"paymentMethod"`
	CashAmount     float64 `json:"cashAmount"`
	InstapayAmount float64 `json:"instapayAmount"`
	Address        string  `json:"address,omitempty"`
	Fulfillment    string  `json:"fulfillment,omitempty"`
	DeliveryZoneID string  `json:"deliveryZoneId,omitempty"`
}

type Metadata struct {
	UpdatedAt int64  `json:"updatedAt"`
	Reason    string `json:"reason,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Payload is the replica written to the durable store and carried by
// broadcasts.
type Payload struct {
	Cart     []CartEntry      `json:"cart"`
	Details  []LineDetail     `json:"details"`
	Checkout CheckoutSnapshot `json:"checkout"`
	Metadata Metadata         `json:"metadata"`
}

// Transfer is the single-use hand-off copy of a Payload.
type Transfer struct {
	Payload
	CreatedAt int64 `json:"createdAt"`
}

func (p Payload) IsEmpty() bool {
	return len(p.Cart) == 0 && len(p.Details) == 0
}

func (p Payload) Encode() ([]byte, error) {
	if p.Cart == nil {
		p.Cart = []CartEntry{}
	}
	if p.Details == nil {
		p.Details = []LineDetail{}
	}
	return json.Marshal(p)
}

func (t Transfer) Encode() ([]byte, error) {
	if t.Cart == nil {
		t.Cart = []CartEntry{}
	}
	if t.Details == nil {
		t.Details = []LineDetail{}
	}
	return json.Marshal(t)
}

// Decode reads a stored payload. It never fails: anything that is not a JSON
// object yields the empty payload, and malformed entries are dropped.
func Decode(raw []byte) Payload {
	p, _ := decode(raw)
	return p
}

func DecodeTransfer(raw []byte) Transfer {
	p, obj := decode(raw)
	t := Transfer{Payload: p}
	if obj != nil {
		t.CreatedAt = parseTimestamp(obj["createdAt"])
	}
	return t
}

func decode(raw []byte) (Payload, map[string]any) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return Payload{}, nil
	}
	return fromObject(obj), obj
}

// FromValue normalizes an already-decoded JSON value, as received from a
// broadcast frame.
func FromValue(value any) Payload {
	obj, ok := value.(map[string]any)
	if !ok {
		return Payload{}
	}
	return fromObject(obj)
}

func fromObject(obj map[string]any) Payload {
	p := Payload{
		Cart:     normalizeCartEntries(obj["cart"]),
		Details:  normalizeDetails(obj["details"]),
		Checkout: normalizeCheckout(obj["checkout"]),
	}
	if meta, ok := obj["metadata"].(map[string]any); ok {
		p.Metadata.UpdatedAt = parseTimestamp(meta["updatedAt"])
		p.Metadata.Reason = trimmedString(meta["reason"])
		p.Metadata.Source = trimmedString(meta["source"])
	}
	return p
}

func normalizeCartEntries(value any) []CartEntry {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]CartEntry, 0, len(list))
	for _, raw := range list {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, ok := entry["id"].(string)
		if !ok || id == "" {
			continue
		}
		out = append(out, CartEntry{ID: id, Quantity: lenientQuantity(entry["quantity"])})
	}
	return out
}

func normalizeDetails(value any) []LineDetail {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]LineDetail, 0, len(list))
	for _, raw := range list {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, ok := entry["id"].(string)
		if !ok || id == "" {
			continue
		}
		detail := LineDetail{
			ID:       id,
			Name:     stringValue(entry["name"]),
			Price:    money.NormalizeCurrency(entry["price"]),
			Quantity: lenientQuantity(entry["quantity"]),
			Extras:   []ExtraDetail{},
		}
		if extras, ok := entry["extras"].([]any); ok {
			for _, rawExtra := range extras {
				extra, ok := rawExtra.(map[string]any)
				if !ok {
					continue
				}
				extraID, _ := extra["id"].(string)
				detail.Extras = append(detail.Extras, ExtraDetail{
					ID:    extraID,
					Name:  stringValue(extra["name"]),
					Price: money.NormalizeCurrency(extra["price"]),
				})
			}
		}
		out = append(out, detail)
	}
	return out
}

func normalizeCheckout(value any) CheckoutSnapshot {
	obj, ok := value.(map[string]any)
	if !ok {
		return CheckoutSnapshot{}
	}
	return CheckoutSnapshot{
		Name:           trimmedString(obj["name"]),
		Phone:          trimmedString(obj["phone"]),
		Email:          trimmedString(obj["email"]),
		Notes:          trimmedString(obj["notes"]),
		PaymentMethod:  trimmedString(obj["paymentMethod"]),
		CashAmount:     money.NormalizeCurrency(obj["cashAmount"]),
		InstapayAmount: money.NormalizeCurrency(obj["instapayAmount"]),
		Address:        trimmedString(obj["address"]),
		Fulfillment:    trimmedString(obj["fulfillment"]),
		DeliveryZoneID: trimmedString(obj["deliveryZoneId"]),
	}
}

// lenientQuantity reads a quantity the forgiving way forms do: a leading
// integer is enough, anything unreadable counts as 1, and the floor is 1.
func lenientQuantity(value any) int {
	n := parseInt(value)
	if n < 1 {
		return 1
	}
	return n
}

// maxSafeInteger is the largest integer a JSON number carries exactly.
const maxSafeInteger = 1<<53 - 1

// parseInt reads small counts such as quantities.
func parseInt(value any) int {
	return int(parseInt64(value, math.MaxInt32))
}

// parseTimestamp reads epoch milliseconds.
func parseTimestamp(value any) int64 {
	return parseInt64(value, maxSafeInteger)
}

// parseInt64 truncates toward zero and yields 0 for anything unreadable or
// beyond ±limit.
func parseInt64(value any, limit int64) int64 {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > float64(limit) {
			return 0
		}
		return int64(v)
	case json.Number:
		return parseInt64(string(v), limit)
	case string:
		s := strings.TrimSpace(v)
		end := 0
		for end < len(s) && (s[end] >= '0' && s[end] <= '9' || (end == 0 && (s[end] == '-' || s[end] == '+'))) {
			end++
		}
		n, err := strconv.ParseInt(s[:end], 10, 64)
		if err != nil || n > limit || n < -limit {
			return 0
		}
		return n
	}
	return 0
}

func stringValue(value any) string {
	s, _ := value.(string)
	return s
}

func trimmedString(value any) string {
	return strings.TrimSpace(stringValue(value))
}
