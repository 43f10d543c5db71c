package handlers

import (
	"net/http"

	"tux-order-services/pkg/response"
)

func (h *Handler) PublicMenu(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]any{
		"categories": h.Catalog.Categories(),
		"currency":   h.Config.Currency,
	})
}

func (h *Handler) PublicDeliveryZones(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.Zones)
}
