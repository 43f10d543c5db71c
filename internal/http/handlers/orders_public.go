package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"tux-order-services/internal/checkout"
	"tux-order-services/internal/middleware"
	"tux-order-services/internal/orders"
	"tux-order-services/internal/receipt"
	"tux-order-services/internal/submission"
	"tux-order-services/internal/utils"
	"tux-order-services/pkg/response"

	"go.uber.org/zap"
)

// CartSubmit validates the cart and places the order for the signed-in
// customer. The cart is cleared only after the order is stored.
func (h *Handler) CartSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.")
		return
	}
	surface, ok := h.cartSurface(w, r)
	if !ok {
		return
	}

	customer := submission.Customer{ID: userID}
	if h.Users != nil {
		if user, err := h.Users.Me(ctx, userID); err == nil {
			customer.Email = user.Email
		}
	}

	result, err := h.Checkout.Submit(ctx, surface, customer)
	if err != nil {
		if verr, isValidation := checkout.AsValidationError(err); isValidation {
			writeValidationError(w, verr)
			return
		}
		switch {
		case errors.Is(err, submission.ErrInFlight):
			response.Error(w, http.StatusConflict, "SUBMISSION_IN_PROGRESS", "Your order is already being placed.")
		case errors.Is(err, submission.ErrOrderNotStored):
			h.Logger.Error("order submission failed", zap.String("cartId", surface.CartID()), zap.String("requestId", middleware.GetRequestID(ctx)), zapError(err))
			response.Error(w, http.StatusBadGateway, "ORDER_FAILED", "We could not place your order. Please try again.")
		default:
			h.Logger.Error("order submission failed", zap.String("cartId", surface.CartID()), zap.String("requestId", middleware.GetRequestID(ctx)), zapError(err))
			response.Error(w, http.StatusInternalServerError, "ORDER_FAILED", "We could not place your order. Please try again.")
		}
		return
	}

	response.Created(w, result)
}

func (h *Handler) PublicOrdersRecent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.")
		return
	}
	list, err := h.Orders.Recent(r.Context(), userID, orders.RecentLimit)
	if err != nil {
		h.Logger.Error("recent orders failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load orders")
		return
	}
	if list == nil {
		list = []orders.ProfileOrder{}
	}
	response.Success(w, list)
}

func (h *Handler) PublicOrderReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.")
		return
	}
	orderID := readPathString(r, "orderId")
	order, err := h.Orders.Get(r.Context(), userID, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}
	if err != nil {
		h.Logger.Error("receipt order lookup failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load order")
		return
	}

	data := receipt.FromRecord(order.ID, order.OrderNo, order.Order, utils.LoadLocation(h.Config.Timezone))
	pdf, err := receipt.Render(data)
	if err != nil {
		h.Logger.Error("receipt render failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, receipt.Filename(data.OrderNumber)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf.Bytes())
}
