package cartsync

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type registryEntry struct {
	surface  *Surface
	lastUsed time.Time
	leases   int
}

// Registry hosts one server-side surface per cart id, created and hydrated
// on first use and closed after sitting idle with no leases.
type Registry struct {
	newSurface func(cartID string) *Surface
	idle       time.Duration
	logger     *zap.Logger
	now        func() time.Time
	onEvict    []func(cartID string)

	mu      sync.Mutex
	entries map[string]*registryEntry
}

func NewRegistry(newSurface func(cartID string) *Surface, idle time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idle <= 0 {
		idle = 15 * time.Minute
	}
	return &Registry{
		newSurface: newSurface,
		idle:       idle,
		logger:     logger,
		now:        time.Now,
		entries:    make(map[string]*registryEntry),
	}
}

// Get returns the surface for cartID, hydrating it on first access.
func (r *Registry) Get(ctx context.Context, cartID string) *Surface {
	entry := r.entry(cartID)
	entry.surface.Hydrate(ctx)
	return entry.surface
}

// Acquire pins the surface until release is called, e.g. for the lifetime
// of a WebSocket connection.
func (r *Registry) Acquire(ctx context.Context, cartID string) (surface *Surface, release func()) {
	entry := r.entry(cartID)
	r.mu.Lock()
	entry.leases++
	r.mu.Unlock()
	entry.surface.Hydrate(ctx)

	var once sync.Once
	return entry.surface, func() {
		once.Do(func() {
			r.mu.Lock()
			entry.leases--
			entry.lastUsed = r.now()
			r.mu.Unlock()
		})
	}
}

func (r *Registry) entry(cartID string) *registryEntry {
	key := strings.TrimSpace(cartID)
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok {
		entry = &registryEntry{surface: r.newSurface(key)}
		r.entries[key] = entry
	}
	entry.lastUsed = r.now()
	return entry
}

// OnEvict registers fn to run after a surface is swept.
func (r *Registry) OnEvict(fn func(cartID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = append(r.onEvict, fn)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes surfaces idle for longer than the configured timeout.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var evicted []*Surface
	for key, entry := range r.entries {
		if entry.leases > 0 || entry.lastUsed.After(cutoff) {
			continue
		}
		evicted = append(evicted, entry.surface)
		delete(r.entries, key)
	}
	hooks := append([]func(string){}, r.onEvict...)
	r.mu.Unlock()

	for _, s := range evicted {
		if err := s.Close(ctx); err != nil {
			r.logger.Warn("cart surface close failed", zap.String("cartId", s.CartID()), zap.Error(err))
		}
		for _, fn := range hooks {
			fn(s.CartID())
		}
	}
	return len(evicted)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(ctx); n > 0 {
				r.logger.Debug("cart surfaces evicted", zap.Int("count", n))
			}
		}
	}
}

// Shutdown flushes and closes every surface.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	surfaces := make([]*Surface, 0, len(r.entries))
	for key, entry := range r.entries {
		surfaces = append(surfaces, entry.surface)
		delete(r.entries, key)
	}
	r.mu.Unlock()

	for _, s := range surfaces {
		if err := s.Close(ctx); err != nil {
			r.logger.Warn("cart surface close failed", zap.String("cartId", s.CartID()), zap.Error(err))
		}
	}
}
