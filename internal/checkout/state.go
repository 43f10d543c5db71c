// Package checkout holds the customer-entered checkout form, the payment
// breakdown rules and the ordered pre-submit validation.
package checkout

import (
	"strings"

	"tux-order-services/internal/money"
)

type Fulfillment string

const (
	FulfillmentPickup   Fulfillment = "pickup"
	FulfillmentDelivery Fulfillment = "delivery"
)

func ParseFulfillment(value string) (Fulfillment, bool) {
	switch Fulfillment(strings.ToLower(strings.TrimSpace(value))) {
	case FulfillmentPickup:
		return FulfillmentPickup, true
	case FulfillmentDelivery:
		return FulfillmentDelivery, true
	}
	return "", false
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentInstapay PaymentMethod = "instapay"
	PaymentSplit    PaymentMethod = "split"
)

func ParsePaymentMethod(value string) (PaymentMethod, bool) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(value))) {
	case PaymentCash:
		return PaymentCash, true
	case PaymentInstapay:
		return PaymentInstapay, true
	case PaymentSplit:
		return PaymentSplit, true
	}
	return "", false
}

// Label is the customer-facing payment wording used in receipts and e-mails.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentInstapay:
		return "Instapay"
	case PaymentSplit:
		return "Cash + Instapay"
	default:
		return "Cash"
	}
}

type State struct {
	Name           string        `json:"name"`
	Phone          string        `json:"phone"`
	Email          string        `json:"email"`
	Notes          string        `json:"notes"`
	Address        string        `json:"address"`
	Fulfillment    Fulfillment   `json:"fulfillment"`
	DeliveryZoneID string        `json:"deliveryZoneId"`
	PaymentMethod  PaymentMethod `json:"paymentMethod"`
	CashAmount     float64       `json:"cashAmount"`
	InstapayAmount float64       `json:"instapayAmount"`

	// address remembered while pickup is selected
	cachedAddress string
}

func Default() State {
	return State{
		Fulfillment:   FulfillmentPickup,
		PaymentMethod: PaymentCash,
	}
}

// SetFulfillment switches pickup/delivery. Switching to pickup stashes the
// address and clears the zone; switching back restores the stashed address.
func (s *State) SetFulfillment(f Fulfillment) {
	switch f {
	case FulfillmentDelivery:
		s.Fulfillment = FulfillmentDelivery
		if strings.TrimSpace(s.Address) == "" && s.cachedAddress != "" {
			s.Address = s.cachedAddress
		}
	default:
		s.Fulfillment = FulfillmentPickup
		if addr := strings.TrimSpace(s.Address); addr != "" {
			s.cachedAddress = addr
		}
		s.Address = ""
		s.DeliveryZoneID = ""
	}
}

func (s *State) SetPaymentMethod(m PaymentMethod, total float64) {
	s.PaymentMethod = m
	s.Reconcile(total)
}

func (s *State) SetSplitAmounts(cash, instapay any) {
	s.CashAmount = money.NormalizeCurrency(cash)
	s.InstapayAmount = money.NormalizeCurrency(instapay)
}

// Reconcile derives the payment legs from total. Cash and Instapay take the
// whole total; split keeps the entered legs and seeds each empty one with
// the even suggestion.
func (s *State) Reconcile(total float64) {
	total = money.NormalizeCurrency(total)
	switch s.PaymentMethod {
	case PaymentInstapay:
		s.CashAmount = 0
		s.InstapayAmount = total
	case PaymentSplit:
		cash := money.NormalizeCurrency(s.CashAmount)
		instapay := money.NormalizeCurrency(s.InstapayAmount)
		if total > 0 && (cash == 0 || instapay == 0) {
			split := money.SuggestSplit(total)
			// a leg holding the whole total is left over from a single-method payment
			if cash == 0 || cash >= total {
				cash = split.Cash
			}
			if instapay == 0 || instapay >= total {
				instapay = split.Instapay
			}
		}
		s.CashAmount = cash
		s.InstapayAmount = instapay
	default:
		s.PaymentMethod = PaymentCash
		s.CashAmount = total
		s.InstapayAmount = 0
	}
}

// ResetTransient clears fields that belong to a single order.
func (s *State) ResetTransient() {
	s.Notes = ""
}

// Trimmed returns a copy with surrounding whitespace removed from text fields
// and unknown enum values replaced by defaults.
func (s State) Trimmed() State {
	s.Name = strings.TrimSpace(s.Name)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Email = strings.TrimSpace(s.Email)
	s.Notes = strings.TrimSpace(s.Notes)
	s.Address = strings.TrimSpace(s.Address)
	s.DeliveryZoneID = strings.TrimSpace(s.DeliveryZoneID)
	if f, ok := ParseFulfillment(string(s.Fulfillment)); ok {
		s.Fulfillment = f
	} else {
		s.Fulfillment = FulfillmentPickup
	}
	if m, ok := ParsePaymentMethod(string(s.PaymentMethod)); ok {
		s.PaymentMethod = m
	} else {
		s.PaymentMethod = PaymentCash
	}
	s.CashAmount = money.NormalizeCurrency(s.CashAmount)
	s.InstapayAmount = money.NormalizeCurrency(s.InstapayAmount)
	return s
}
