package httpapi

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"tux-order-services/internal/config"
	"tux-order-services/internal/http/handlers"
	"tux-order-services/internal/middleware"
	"tux-order-services/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	Handler  *handlers.Handler
	WSServer *ws.Server
}

func NewRouter(logger *zap.Logger, cfg config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(requestLogger(logger))
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"X-Cart-Token",
				"X-Request-Id",
				"Cache-Control",
			},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	h := deps.Handler
	customerAuth := middleware.CustomerAuth(cfg.JWTSecret)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Use(setResponseHeader("Cache-Control", "no-store"))
		r.Get("/menu", h.PublicMenu)
		r.Get("/delivery-zones", h.PublicDeliveryZones)

		r.Post("/carts", h.CartCreate)
		r.Route("/carts/{cartId}", func(r chi.Router) {
			r.Get("/", h.CartGet)
			r.Put("/", h.CartReplace)
			r.Delete("/", h.CartClear)
			r.Post("/items", h.CartAddItem)
			r.Patch("/lines/{index}", h.CartUpdateLine)
			r.Delete("/lines/{index}", h.CartRemoveLine)
			r.Put("/checkout", h.CartUpdateCheckout)
			r.Get("/totals", h.CartTotals)
			r.Post("/transfer", h.CartTransferWrite)
			r.Get("/transfer", h.CartTransferRead)
			r.With(customerAuth).Post("/submit", h.CartSubmit)
		})

		r.Group(func(r chi.Router) {
			r.Use(customerAuth)
			r.Get("/orders", h.PublicOrdersRecent)
			r.Get("/orders/{orderId}/receipt", h.PublicOrderReceipt)
		})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.AuthRegister)
		r.Post("/login", h.AuthLogin)
		r.Post("/forgot-password", h.AuthForgotPassword)
		r.Post("/reset-password", h.AuthResetPassword)
		r.With(customerAuth).Get("/me", h.AuthMe)
		r.With(customerAuth).Put("/me", h.AuthUpdateMe)
	})

	if deps.WSServer != nil {
		r.Get("/ws/carts/{cartId}", deps.WSServer.CartWS)
	}

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestId", middleware.GetRequestID(r.Context())),
			)
		})
	}
}

func setResponseHeader(name string, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(name, value)
			next.ServeHTTP(w, r)
		})
	}
}
