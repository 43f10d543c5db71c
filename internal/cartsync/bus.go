package cartsync

import (
	"context"
	"strings"
	"sync"
)

const EventName = "cart-sync"

type Event struct {
	Type    string  `json:"type"`
	CartID  string  `json:"cartId"`
	Origin  string  `json:"origin"`
	Payload Payload `json:"payload"`
}

// Broadcaster pushes events outward, e.g. to connected browsers.
type Broadcaster interface {
	Publish(ctx context.Context, ev Event) error
}

// Bus is a two-way channel: surfaces publish on it and listen to it.
type Bus interface {
	Broadcaster
	Subscribe(cartID string, fn func(Event)) (unsubscribe func())
}

// LocalBus delivers events synchronously to in-process subscribers of the
// same cart id.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(Event)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]func(Event))}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	key := strings.TrimSpace(ev.CartID)
	if key == "" {
		return nil
	}
	if ev.Type == "" {
		ev.Type = EventName
	}

	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subs[key]))
	for _, fn := range b.subs[key] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
	return nil
}

func (b *LocalBus) Subscribe(cartID string, fn func(Event)) (unsubscribe func()) {
	key := strings.TrimSpace(cartID)
	if key == "" || fn == nil {
		return func() {}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[key] == nil {
		b.subs[key] = make(map[int]func(Event))
	}
	b.subs[key][id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[key], id)
			if len(b.subs[key]) == 0 {
				delete(b.subs, key)
			}
			b.mu.Unlock()
		})
	}
}

// Subscribers reports how many handlers listen on cartID.
func (b *LocalBus) Subscribers(cartID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[strings.TrimSpace(cartID)])
}
