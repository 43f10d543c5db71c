// Package ws serves live cart updates over WebSocket.
package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tux-order-services/internal/cartsync"
	"tux-order-services/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxFrameBytes = 64 << 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	Hub      *Hub
	Registry *cartsync.Registry
	Logger   *zap.Logger

	cartTokenSecret string
	heartbeat       time.Duration
}

func New(hub *Hub, registry *cartsync.Registry, logger *zap.Logger, cartTokenSecret string, heartbeat time.Duration) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Server{
		Hub:             hub,
		Registry:        registry,
		Logger:          logger,
		cartTokenSecret: cartTokenSecret,
		heartbeat:       heartbeat,
	}
}

type clientFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// CartWS streams cart-sync frames for one cart and applies the ones the
// browser sends back.
func (s *Server) CartWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	cartID := strings.TrimSpace(chi.URLParam(r, "cartId"))
	token := r.URL.Query().Get("token")
	if cartID == "" || token == "" {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "invalid request"})
		return
	}
	if !utils.VerifyCartToken(s.cartTokenSecret, token, cartID) {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "cart not found"})
		return
	}

	ctx := r.Context()
	surface, release := s.Registry.Acquire(ctx, cartID)
	defer release()

	c := newClient(conn)
	defer c.close()
	unsubscribe := s.Hub.subscribe(cartID, c)
	defer unsubscribe()

	// Initial snapshot so the browser can render without waiting for a change.
	_ = c.writeJSON(cartsync.Event{
		Type:    cartsync.EventName,
		CartID:  cartID,
		Origin:  surface.Origin(),
		Payload: surface.Payload(),
	})

	go func() {
		defer c.close()
		s.readLoop(conn, c, surface)
	}()

	c.writePump(ctx, s.heartbeat)
}

func (s *Server) readLoop(conn *websocket.Conn, c *client, surface *cartsync.Surface) {
	conn.SetReadLimit(maxFrameBytes)
	deadline := func() { _ = conn.SetReadDeadline(time.Now().Add(2 * s.heartbeat)) }
	deadline()
	conn.SetPongHandler(func(string) error {
		deadline()
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		deadline()

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case cartsync.EventName:
			if len(frame.Payload) == 0 {
				continue
			}
			surface.Load(cartsync.Decode(frame.Payload))
		case "ping":
			_ = c.writeJSON(map[string]any{"type": "pong"})
		default:
			s.Logger.Debug("ws frame ignored", zap.String("type", frame.Type), zap.String("cartId", surface.CartID()))
		}
	}
}
