package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"tux-order-services/internal/cartsync"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// client owns a buffered send queue drained by writePump, so a slow browser
// never blocks the surface publishing to it.
type client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue reports false when the queue is full or the client is gone.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) writeJSON(value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if !c.enqueue(data) {
		return errSlowClient
	}
	return nil
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump is the only writer on the connection once the session starts.
func (c *client) writePump(ctx context.Context, ping time.Duration) {
	ticker := time.NewTicker(ping)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

var errSlowClient = errors.New("ws client send queue full")

// Hub fans cart events out to the WebSocket clients watching each cart.
// It is a cartsync.Broadcaster, so surfaces publish to it directly.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*client]struct{})}
}

func (h *Hub) subscribe(cartID string, c *client) (unsubscribe func()) {
	key := strings.TrimSpace(cartID)
	if key == "" {
		return func() {}
	}

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*client]struct{})
	}
	h.subs[key][c] = struct{}{}
	h.mu.Unlock()

	return func() { h.remove(key, c) }
}

func (h *Hub) remove(key string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.subs[key]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.subs, key)
	}
}

// Clients reports how many connections watch cartID.
func (h *Hub) Clients(cartID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[strings.TrimSpace(cartID)])
}

func (h *Hub) Publish(_ context.Context, ev cartsync.Event) error {
	key := strings.TrimSpace(ev.CartID)
	if key == "" {
		return nil
	}

	h.mu.RLock()
	clientsMap := h.subs[key]
	clients := make([]*client, 0, len(clientsMap))
	for c := range clientsMap {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return nil
	}

	if ev.Type == "" {
		ev.Type = cartsync.EventName
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	for _, c := range clients {
		if !c.enqueue(data) {
			c.close()
			h.remove(key, c)
		}
	}
	return nil
}
