package cartsync

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("cart replica not found")

// KV is the minimal key/value surface the sync layer persists through.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Taker reads and removes a key in one step.
type Taker interface {
	Take(ctx context.Context, key string) ([]byte, error)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process KV with an optional time-to-live, used for
// the single-use transfer payload and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Take(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.entries, key)
	return entry.value, nil
}

// Sweep drops expired entries and reports how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for key, entry := range m.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) lookup(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// take consumes key from kv, atomically when the store supports it.
func take(ctx context.Context, kv KV, key string) ([]byte, error) {
	if t, ok := kv.(Taker); ok {
		return t.Take(ctx, key)
	}
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := kv.Delete(ctx, key); err != nil {
		return nil, err
	}
	return raw, nil
}

// TakeTransfer consumes the hand-off payload waiting for cartID.
func TakeTransfer(ctx context.Context, kv KV, cartID string) (Transfer, error) {
	raw, err := take(ctx, kv, cartID)
	if err != nil {
		return Transfer{}, err
	}
	return DecodeTransfer(raw), nil
}
