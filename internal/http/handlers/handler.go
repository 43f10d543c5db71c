package handlers

import (
	"context"

	"tux-order-services/internal/cartsync"
	"tux-order-services/internal/config"
	"tux-order-services/internal/menu"
	"tux-order-services/internal/orders"
	"tux-order-services/internal/submission"
	"tux-order-services/internal/users"

	"go.uber.org/zap"
)

// OrderReader is the read side of the order history.
type OrderReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]orders.ProfileOrder, error)
	Get(ctx context.Context, userID, orderID string) (orders.ProfileOrder, error)
}

type Handler struct {
	Logger   *zap.Logger
	Config   config.Config
	Catalog  *menu.Catalog
	Zones    menu.Zones
	Carts    *cartsync.Registry
	Transfer cartsync.KV
	Orders   OrderReader
	Checkout *submission.Service
	Users    *users.Service
}
