package checkout

import (
	"errors"

	"tux-order-services/internal/cart"
	"tux-order-services/internal/menu"
	"tux-order-services/internal/money"
)

// Validated is the normalized result of a successful validation.
type Validated struct {
	State   State
	Phone   string
	Totals  Totals
	Payment money.Split
}

// Rules carries what validation depends on besides the cart and the form.
type Rules struct {
	Zones       menu.Zones
	CountryCode string
}

func DefaultRules() Rules {
	return Rules{Zones: menu.DefaultZones(), CountryCode: DefaultCountryCode}
}

func Validate(c *cart.Cart, s State) (Validated, error) {
	return DefaultRules().Validate(c, s)
}

// Validate checks, in order and stopping at the first failure: the cart has
// lines, delivery has an address and a known zone, the phone number is
// valid, an e-mail is present, and the payment legs add up to the total.
func (r Rules) Validate(c *cart.Cart, s State) (Validated, error) {
	if c == nil || c.IsEmpty() {
		return Validated{}, ValidationError(ErrEmptyCart, "Your cart is empty.", nil)
	}

	method := s.PaymentMethod
	s = s.Trimmed()
	if s.Fulfillment == FulfillmentDelivery {
		if s.Address == "" {
			return Validated{}, ValidationError(ErrAddressRequired, "Delivery orders need an address.", nil)
		}
		if _, ok := r.Zones.Find(s.DeliveryZoneID); !ok {
			return Validated{}, ValidationError(ErrZoneRequired, "Please select your delivery zone.", map[string]any{
				"deliveryZoneId": s.DeliveryZoneID,
			})
		}
	} else {
		s.Address = ""
		s.DeliveryZoneID = ""
	}

	phone, err := NormalizePhone(s.Phone, r.CountryCode)
	if err != nil {
		return Validated{}, ValidationError(ErrPhoneInvalid, "Enter a valid 10-digit phone number.", nil)
	}

	if s.Email == "" {
		return Validated{}, ValidationError(ErrEmailRequired, "Email is required.", nil)
	}

	totals := ComputeTotals(c, s, r.Zones)
	s.PaymentMethod = method
	payment, err := validatePayment(s, totals.Total)
	if err != nil {
		return Validated{}, err
	}
	s.PaymentMethod, _ = ParsePaymentMethod(string(method))
	s.CashAmount = payment.Cash
	s.InstapayAmount = payment.Instapay
	s.Phone = phone

	return Validated{State: s, Phone: phone, Totals: totals, Payment: payment}, nil
}

func validatePayment(s State, total float64) (money.Split, error) {
	method, ok := ParsePaymentMethod(string(s.PaymentMethod))
	if !ok {
		return money.Split{}, ValidationError(ErrPaymentMethodInvalid, "Choose cash, Instapay or split payment.", nil)
	}

	switch method {
	case PaymentCash:
		return money.Split{Cash: total}, nil
	case PaymentInstapay:
		return money.Split{Instapay: total}, nil
	}

	cash := money.NormalizeCurrency(s.CashAmount)
	instapay := money.NormalizeCurrency(s.InstapayAmount)
	if total <= 0 {
		return money.Split{Cash: cash, Instapay: instapay}, nil
	}
	if cash == 0 || instapay == 0 {
		return money.Split{}, ValidationError(ErrPaymentIncomplete, "Enter both cash and Instapay amounts.", nil)
	}
	if !money.Equal(cash+instapay, total) {
		return money.Split{}, ValidationError(ErrPaymentMismatch, "Split payments should add up to "+money.FormatCurrency(total)+".", map[string]any{
			"expected": total,
			"received": money.Round2(cash + instapay),
		})
	}
	return money.Split{Cash: cash, Instapay: instapay}, nil
}

// AsValidationError unwraps err to a checkout validation failure.
func AsValidationError(err error) (*Error, bool) {
	var ve *Error
	if !errors.As(err, &ve) || ve == nil {
		return nil, false
	}
	return ve, true
}
