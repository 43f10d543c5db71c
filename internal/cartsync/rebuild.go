package cartsync

import (
	"tux-order-services/internal/cart"
	"tux-order-services/internal/checkout"
	"tux-order-services/internal/menu"
	"tux-order-services/internal/money"
)

// Build captures a cart and checkout form as a replica payload.
func Build(lines []cart.Line, s checkout.State, meta Metadata) Payload {
	p := Payload{
		Cart:     make([]CartEntry, 0, len(lines)),
		Details:  make([]LineDetail, 0, len(lines)),
		Metadata: meta,
	}
	for _, l := range lines {
		p.Cart = append(p.Cart, CartEntry{ID: l.ItemID, Quantity: l.Quantity})
		detail := LineDetail{
			ID:       l.ItemID,
			Name:     l.Name,
			Price:    l.UnitPrice,
			Quantity: l.Quantity,
			Extras:   make([]ExtraDetail, 0, len(l.Extras)),
		}
		for _, e := range l.Extras {
			detail.Extras = append(detail.Extras, ExtraDetail{ID: e.ID, Name: e.Name, Price: e.Price})
		}
		p.Details = append(p.Details, detail)
	}

	s = s.Trimmed()
	p.Checkout = CheckoutSnapshot{
		Name:           s.Name,
		Phone:          s.Phone,
		Email:          s.Email,
		Notes:          s.Notes,
		PaymentMethod:  string(s.PaymentMethod),
		CashAmount:     s.CashAmount,
		InstapayAmount: s.InstapayAmount,
		Address:        s.Address,
		Fulfillment:    string(s.Fulfillment),
		DeliveryZoneID: s.DeliveryZoneID,
	}
	return p
}

// Rebuild turns a payload back into cart lines and checkout state. Line
// details win over bare cart entries; ids missing from the catalog are
// dropped, as are extras the item does not offer.
func Rebuild(p Payload, catalog *menu.Catalog) ([]cart.Line, checkout.State) {
	if catalog == nil {
		catalog = menu.Default()
	}

	var lines []cart.Line
	if len(p.Details) > 0 {
		lines = make([]cart.Line, 0, len(p.Details))
		for _, d := range p.Details {
			item, ok := catalog.Item(d.ID)
			if !ok {
				continue
			}
			line := cart.Line{
				ItemID:    item.ID,
				Name:      d.Name,
				UnitPrice: money.NormalizeCurrency(d.Price),
				Quantity:  cart.ClampQuantity(d.Quantity),
				Extras:    sanitizeExtras(item, d.Extras),
			}
			if line.Name == "" {
				line.Name = item.Name
			}
			if line.UnitPrice == 0 {
				line.UnitPrice = item.BasePrice
			}
			lines = append(lines, line)
		}
	} else {
		lines = make([]cart.Line, 0, len(p.Cart))
		for _, entry := range p.Cart {
			item, ok := catalog.Item(entry.ID)
			if !ok {
				continue
			}
			lines = append(lines, cart.Line{
				ItemID:    item.ID,
				Name:      item.Name,
				UnitPrice: item.BasePrice,
				Quantity:  cart.ClampQuantity(entry.Quantity),
			})
		}
	}

	return lines, checkoutFromSnapshot(p.Checkout)
}

func sanitizeExtras(item menu.Item, extras []ExtraDetail) []menu.Extra {
	out := make([]menu.Extra, 0, len(extras))
	seen := make(map[string]struct{}, len(extras))
	for _, e := range extras {
		known, ok := item.Extra(e.ID)
		if !ok {
			continue
		}
		if _, dup := seen[known.ID]; dup {
			continue
		}
		seen[known.ID] = struct{}{}
		if e.Name != "" {
			known.Name = e.Name
		}
		if price := money.NormalizeCurrency(e.Price); price > 0 {
			known.Price = price
		}
		out = append(out, known)
	}
	return out
}

func checkoutFromSnapshot(snap CheckoutSnapshot) checkout.State {
	s := checkout.Default()
	s.Name = snap.Name
	s.Phone = snap.Phone
	s.Email = snap.Email
	s.Notes = snap.Notes
	s.Address = snap.Address
	s.DeliveryZoneID = snap.DeliveryZoneID
	s.CashAmount = snap.CashAmount
	s.InstapayAmount = snap.InstapayAmount
	if m, ok := checkout.ParsePaymentMethod(snap.PaymentMethod); ok {
		s.PaymentMethod = m
	}
	if f, ok := checkout.ParseFulfillment(snap.Fulfillment); ok {
		s.Fulfillment = f
	}
	return s.Trimmed()
}
