package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tux-order-services/internal/cartsync"
	"tux-order-services/internal/checkout"
	"tux-order-services/internal/money"
	"tux-order-services/internal/utils"
	"tux-order-services/pkg/response"

	"github.com/google/uuid"
)

func readCartToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("X-Cart-Token")); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// cartSurface resolves the cart in the path and checks its token.
func (h *Handler) cartSurface(w http.ResponseWriter, r *http.Request) (*cartsync.Surface, bool) {
	cartID := readPathString(r, "cartId")
	if cartID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "cartId is required")
		return nil, false
	}
	if !utils.VerifyCartToken(h.Config.CartTokenSecret, readCartToken(r), cartID) {
		response.Error(w, http.StatusNotFound, "CART_NOT_FOUND", "Cart not found")
		return nil, false
	}
	return h.Carts.Get(r.Context(), cartID), true
}

func (h *Handler) CartCreate(w http.ResponseWriter, r *http.Request) {
	cartID := uuid.NewString()
	response.Created(w, map[string]any{
		"cartId": cartID,
		"token":  utils.CreateCartToken(h.Config.CartTokenSecret, cartID),
	})
}

func (h *Handler) CartGet(w http.ResponseWriter, r *http.Request) {
	surface, ok := h.cartSurface(w, r)
	if !ok {
		return
	}
	response.Success(w, surface.Snapshot())
}

// CartReplace loads a whole storage payload, e.g. one kept by a browser
// while it was offline.
func (h *Handler) CartReplace(w http.ResponseWriter, r *http.Request) {
	surface, ok := h.cartSurface(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	surface.Load(cartsync.Decode(body))
	response.Success(w, surface.Snapshot())
}

func (h *Handler) CartClear(w http.ResponseWriter, r *http.Request) {
	surface, ok := h.cartSurface(w, r)
	if !ok {
		return
	}
	surface.Clear()
	response.Success(w, surface.Snapshot())
}

type addItemRequest struct {
	ItemID   string          `json:"itemId"`
	Quantity json.RawMessage `json:"quantity"`
	Extras   []string        `json:"extras"`
}

func (h *Handler) CartAddItem(w http.ResponseWriter, r *http.Request) {
	surface, ok := h.cartSurface(w, r)
	if !ok {
		return
	}

	var body addItemRequest
	if err := decodeJSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	quantity := 1
	if len(body.Quantity) > 0 {
		n, err := strconv.Atoi(rawString(body.Quantity))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantity must be a whole number")
			return
		}
		quantity = n
	}
	line, added := surface.AddItem(strings.TrimSpace(body.ItemID), quantity, body.Extras)
	if !added {
		response.Error(w, http.StatusBadRequest, "INVALID_ITEM", "Item not available")
		return
	}
	response.Created(w, map[string]any{
		"line": line,
		"cart": surface.Snapshot(),
	})
}

type updateLineRequest struct {
	Quantity json.RawMessage `json:"quantity"`
	Action   string          `json:"action"`
}

func (h *Handler) CartUpdateLine(w http.ResponseWriter, r *http.Request) {
	surface, ok := h.cartSurface(w, r)
	if !ok {
		return
	}
	index, err := readPathInt(r, "index")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid line index")
		return
	}

	var body updateLineRequest
	if err := decodeJSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if index < 0 || index >= len(surface.Snapshot().Lines) {
		response.Error(w, http.StatusNotFound, "LINE_NOT_FOUND", "Cart line not found")
		return
	}

	var changed bool
	switch strings.ToLower(strings.TrimSpace(body.Action)) {
	case "increment":
		changed = surface.Increment(index)
	case "decrement":
		changed = surface.Decrement(index)
	case "", "set":
		if len(body.Quantity) == 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "quantity is required")
			return
		}
		_, changed = surface.SetQuantity(index, rawString(body.Quantity))
	default:
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown action")
		return
	}
	if !changed {
		response.Error(w, http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be a whole number of at least 1")
		return
	}
	response.Success(w, surface.Snapshot())
}

func (h *Handler) CartRemoveLine(w http.ResponseWriter, r *http.Request) {
	surface, ok := h.cartSurface(w, r)
	if !ok {
		return
	}
	index, err := readPathInt(r, "index")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid line index")
		return
	}
	if !surface.RemoveLine(index) {
		response.Error(w, http.StatusNotFound, "LINE_NOT_FOUND", "Cart line not found")
		return
	}
	response.Success(w, surface.Snapshot())
}

type checkoutRequest struct {
	Name           *string         `json:"name"`
	Phone          *string         `json:"phone"`
	Email          *string         `json:"email"`
	Notes          *string         `json:"notes"`
	Address        *string         `json:"address"`
	Fulfillment    *string         `json:"fulfillment"`
	DeliveryZoneID *string         `json:"deliveryZoneId"`
	PaymentMethod  *string         `json:"paymentMethod"`
	CashAmount     json.RawMessage `json:"cashAmount"`
	InstapayAmount json.RawMessage `json:"instapayAmount"`
}

// CartUpdateCheckout edits the checkout form. Omitted fields keep their
// current values; payment legs are re-derived after the edit.
func (h *Handler) CartUpdateCheckout(w http.ResponseWriter, r *http.Request) {
	surface, ok := h.cartSurface(w, r)
	if !ok {
		return
	}

	var body checkoutRequest
	if err := decodeJSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	var (
		fulfillment checkout.Fulfillment
		method      checkout.PaymentMethod
	)
	if body.Fulfillment != nil {
		f, valid := checkout.ParseFulfillment(*body.Fulfillment)
		if !valid {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "fulfillment must be pickup or delivery")
			return
		}
		fulfillment = f
	}
	if body.PaymentMethod != nil {
		m, valid := checkout.ParsePaymentMethod(*body.PaymentMethod)
		if !valid {
			response.Error(w, http.StatusBadRequest, string(checkout.ErrPaymentMethodInvalid), "Please choose a valid payment method.")
			return
		}
		method = m
	}

	surface.UpdateCheckout(func(st *checkout.State) {
		setString(&st.Name, body.Name)
		setString(&st.Phone, body.Phone)
		setString(&st.Email, body.Email)
		setString(&st.Notes, body.Notes)
		if fulfillment != "" {
			st.SetFulfillment(fulfillment)
		}
		setString(&st.Address, body.Address)
		setString(&st.DeliveryZoneID, body.DeliveryZoneID)
		if method != "" {
			st.PaymentMethod = method
		}
		if len(body.CashAmount) > 0 || len(body.InstapayAmount) > 0 {
			cash, instapay := any(st.CashAmount), any(st.InstapayAmount)
			if len(body.CashAmount) > 0 {
				cash = rawString(body.CashAmount)
			}
			if len(body.InstapayAmount) > 0 {
				instapay = rawString(body.InstapayAmount)
			}
			st.SetSplitAmounts(cash, instapay)
		}
	})
	response.Success(w, surface.Snapshot())
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}

func (h *Handler) CartTotals(w http.ResponseWriter, r *http.Request) {
	surface, ok := h.cartSurface(w, r)
	if !ok {
		return
	}
	snap := surface.Snapshot()
	response.Success(w, map[string]any{
		"totals":         snap.Totals,
		"itemCount":      snap.ItemCount,
		"summary":        snap.Summary,
		"formattedTotal": money.FormatCurrency(snap.Totals.Total),
	})
}

// CartTransferWrite stores the single-use hand-off copy before the browser
// navigates from the quick-order panel to the order page.
func (h *Handler) CartTransferWrite(w http.ResponseWriter, r *http.Request) {
	surface, ok := h.cartSurface(w, r)
	if !ok {
		return
	}
	if err := surface.WriteTransfer(r.Context()); err != nil {
		h.Logger.Warn("cart transfer write failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "TRANSFER_FAILED", "Could not prepare the cart hand-off")
		return
	}
	response.Success(w, map[string]any{"cartId": surface.CartID()})
}

// CartTransferRead consumes the hand-off copy; a second read finds nothing.
func (h *Handler) CartTransferRead(w http.ResponseWriter, r *http.Request) {
	cartID := readPathString(r, "cartId")
	if !utils.VerifyCartToken(h.Config.CartTokenSecret, readCartToken(r), cartID) {
		response.Error(w, http.StatusNotFound, "CART_NOT_FOUND", "Cart not found")
		return
	}
	if h.Transfer == nil {
		response.Error(w, http.StatusNotFound, "TRANSFER_NOT_FOUND", "No cart hand-off waiting")
		return
	}
	transfer, err := cartsync.TakeTransfer(r.Context(), h.Transfer, cartID)
	if errors.Is(err, cartsync.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "TRANSFER_NOT_FOUND", "No cart hand-off waiting")
		return
	}
	if err != nil {
		h.Logger.Warn("cart transfer read failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "TRANSFER_FAILED", "Could not read the cart hand-off")
		return
	}
	response.Success(w, transfer)
}
