package checkout

import (
	"fmt"
	"testing"

	"tux-order-services/internal/cart"
	"tux-order-services/internal/menu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledCart(t *testing.T) *cart.Cart {
	t.Helper()
	c := cart.New(menu.Default())
	_, ok := c.AddItem("single-smashed-patty", 2, []string{"bacon"})
	require.True(t, ok)
	return c
}

func validState() State {
	s := Default()
	s.Name = "Mona"
	s.Phone = "1012345678"
	s.Email = "mona@example.com"
	return s
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	ve, ok := AsValidationError(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Equal(t, code, ve.Code)
}

func TestDefaults(t *testing.T) {
	s := Default()
	assert.Equal(t, FulfillmentPickup, s.Fulfillment)
	assert.Equal(t, PaymentCash, s.PaymentMethod)
}

func TestValidateOrder(t *testing.T) {
	cases := []struct {
		name   string
		cart   func(t *testing.T) *cart.Cart
		mutate func(s *State)
		code   ErrorCode
	}{
		{
			name:   "empty cart wins over everything",
			cart:   func(t *testing.T) *cart.Cart { return cart.New(menu.Default()) },
			mutate: func(s *State) { s.Phone = "bad"; s.Email = "" },
			code:   ErrEmptyCart,
		},
		{
			name: "delivery without address",
			cart: filledCart,
			mutate: func(s *State) {
				s.Fulfillment = FulfillmentDelivery
				s.DeliveryZoneID = "zahraa-el-maadi"
				s.Phone = "bad"
			},
			code: ErrAddressRequired,
		},
		{
			name: "delivery with unknown zone",
			cart: filledCart,
			mutate: func(s *State) {
				s.Fulfillment = FulfillmentDelivery
				s.Address = "12 Street 9"
				s.DeliveryZoneID = "heliopolis"
			},
			code: ErrZoneRequired,
		},
		{
			name:   "short phone",
			cart:   filledCart,
			mutate: func(s *State) { s.Phone = "12345"; s.Email = "" },
			code:   ErrPhoneInvalid,
		},
		{
			name:   "missing email",
			cart:   filledCart,
			mutate: func(s *State) { s.Email = "   " },
			code:   ErrEmailRequired,
		},
		{
			name: "split with one leg",
			cart: filledCart,
			mutate: func(s *State) {
				s.PaymentMethod = PaymentSplit
				s.CashAmount = 230
			},
			code: ErrPaymentIncomplete,
		},
		{
			name: "split not adding up",
			cart: filledCart,
			mutate: func(s *State) {
				s.PaymentMethod = PaymentSplit
				s.CashAmount = 100
				s.InstapayAmount = 100
			},
			code: ErrPaymentMismatch,
		},
		{
			name:   "unknown method",
			cart:   filledCart,
			mutate: func(s *State) { s.PaymentMethod = "card" },
			code:   ErrPaymentMethodInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validState()
			tc.mutate(&s)
			_, err := Validate(tc.cart(t), s)
			requireCode(t, err, tc.code)
		})
	}
}

func TestValidatePickupScenario(t *testing.T) {
	v, err := Validate(filledCart(t), validState())
	require.NoError(t, err)
	assert.Equal(t, 230.0, v.Totals.Subtotal)
	assert.Equal(t, 230.0, v.Totals.Total)
	assert.Equal(t, "+201012345678", v.Phone)
	assert.Equal(t, 230.0, v.Payment.Cash)
	assert.Equal(t, 0.0, v.Payment.Instapay)
}

func TestValidateDeliveryScenario(t *testing.T) {
	s := validState()
	s.Fulfillment = FulfillmentDelivery
	s.Address = " 5 Kornish St "
	s.DeliveryZoneID = "kornish-el-maadi"

	v, err := Validate(filledCart(t), s)
	require.NoError(t, err)
	assert.Equal(t, 40.0, v.Totals.DeliveryFee)
	assert.Equal(t, 270.0, v.Totals.Total)
	assert.Equal(t, 270.0, v.Payment.Cash)
	assert.Equal(t, 0.0, v.Payment.Instapay)
	assert.Equal(t, "5 Kornish St", v.State.Address)
	require.NotNil(t, v.Totals.Zone)
	assert.Equal(t, "Kornish El Maadi", v.Totals.Zone.Name)
}

func TestValidateInstapay(t *testing.T) {
	s := validState()
	s.PaymentMethod = PaymentInstapay
	s.CashAmount = 999
	v, err := Validate(filledCart(t), s)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Payment.Cash)
	assert.Equal(t, 230.0, v.Payment.Instapay)
}

func TestSplitValidationIff(t *testing.T) {
	total := 230.0
	cases := []struct {
		cash, instapay float64
		ok             bool
	}{
		{cash: 115, instapay: 115, ok: true},
		{cash: 0.01, instapay: 229.99, ok: true},
		{cash: 100, instapay: 130.004, ok: true},
		{cash: 0, instapay: 230, ok: false},
		{cash: 230, instapay: 0, ok: false},
		{cash: 100, instapay: 100, ok: false},
		{cash: 200, instapay: 100, ok: false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%v+%v", tc.cash, tc.instapay), func(t *testing.T) {
			s := validState()
			s.PaymentMethod = PaymentSplit
			s.CashAmount = tc.cash
			s.InstapayAmount = tc.instapay
			_, err := validatePayment(s, total)
			assert.Equal(t, tc.ok, err == nil, "err: %v", err)
		})
	}
}

func TestReconcile(t *testing.T) {
	s := Default()
	s.Reconcile(230)
	assert.Equal(t, 230.0, s.CashAmount)
	assert.Equal(t, 0.0, s.InstapayAmount)

	s.SetPaymentMethod(PaymentInstapay, 230)
	assert.Equal(t, 0.0, s.CashAmount)
	assert.Equal(t, 230.0, s.InstapayAmount)

	s.CashAmount, s.InstapayAmount = 0, 0
	s.SetPaymentMethod(PaymentSplit, 101)
	assert.Equal(t, 50.5, s.CashAmount)
	assert.Equal(t, 50.5, s.InstapayAmount)

	s.SetSplitAmounts("60", 41)
	s.Reconcile(101)
	assert.Equal(t, 60.0, s.CashAmount)
	assert.Equal(t, 41.0, s.InstapayAmount)
}

func TestReconcileSeedsEmptySplitLeg(t *testing.T) {
	s := Default()
	s.Reconcile(230)
	s.SetPaymentMethod(PaymentSplit, 230)
	assert.Equal(t, 115.0, s.CashAmount)
	assert.Equal(t, 115.0, s.InstapayAmount)

	s.SetPaymentMethod(PaymentInstapay, 101)
	s.SetPaymentMethod(PaymentSplit, 101)
	assert.Equal(t, 50.5, s.CashAmount)
	assert.Equal(t, 50.5, s.InstapayAmount)

	s.SetSplitAmounts(60, 0)
	s.Reconcile(101)
	assert.Equal(t, 60.0, s.CashAmount)
	assert.Equal(t, 50.5, s.InstapayAmount)

	s = Default()
	s.PaymentMethod = PaymentSplit
	s.Reconcile(0)
	assert.Zero(t, s.CashAmount)
	assert.Zero(t, s.InstapayAmount)
}

func TestFulfillmentCachesAddress(t *testing.T) {
	s := Default()
	s.SetFulfillment(FulfillmentDelivery)
	s.Address = "9 Road 233"
	s.DeliveryZoneID = "zahraa-el-maadi"

	s.SetFulfillment(FulfillmentPickup)
	assert.Empty(t, s.Address)
	assert.Empty(t, s.DeliveryZoneID)

	s.SetFulfillment(FulfillmentDelivery)
	assert.Equal(t, "9 Road 233", s.Address)
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		raw      string
		expected string
		ok       bool
	}{
		{raw: "1012345678", expected: "+201012345678", ok: true},
		{raw: "101 234 5678", expected: "+201012345678", ok: true},
		{raw: "+20 101 234 5678", expected: "+201012345678", ok: true},
		{raw: "201012345678", expected: "+201012345678", ok: true},
		{raw: "01012345678", ok: false},
		{raw: "12345", ok: false},
		{raw: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := NormalizePhone(tc.raw, "")
			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
