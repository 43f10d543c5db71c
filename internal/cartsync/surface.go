package cartsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"tux-order-services/internal/cart"
	"tux-order-services/internal/checkout"
	"tux-order-services/internal/menu"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ReasonAdd         = "add"
	ReasonRemove      = "remove"
	ReasonQuantity    = "quantity"
	ReasonClear       = "clear"
	ReasonCheckout    = "checkout"
	ReasonReplace     = "replace"
	ReasonOrderPlaced = "order-placed"
)

type SurfaceConfig struct {
	CartID string
	// Origin identifies this surface on the bus; generated when empty.
	Origin string
	// Source is recorded in replica metadata, e.g. "api" or "quick-order".
	Source string

	Catalog *menu.Catalog
	Zones   menu.Zones

	Durable  KV
	Transfer KV
	Buses    []Bus
	// Views receive every state change, including ones applied from a bus.
	Views []Broadcaster

	PersistDelay    time.Duration
	PersistMaxDelay time.Duration

	Logger *zap.Logger
	Now    func() time.Time
}

// Snapshot is a consistent read of a surface.
type Snapshot struct {
	CartID    string          `json:"cartId"`
	Lines     []cart.Line     `json:"lines"`
	Checkout  checkout.State  `json:"checkout"`
	Totals    checkout.Totals `json:"totals"`
	ItemCount int             `json:"itemCount"`
	Summary   string          `json:"summary"`
	UpdatedAt int64           `json:"updatedAt"`
}

// Surface is one view of a cart: it owns the cart and checkout form,
// persists them after every change and applies what other surfaces publish.
type Surface struct {
	cfg       SurfaceConfig
	logger    *zap.Logger
	persister *Persister

	mu        sync.Mutex
	cart      *cart.Cart
	checkout  checkout.State
	updatedAt int64
	reason    string

	hydrateOnce sync.Once

	unsubscribe []func()
	closeOnce   sync.Once
}

func NewSurface(cfg SurfaceConfig) *Surface {
	if cfg.Origin == "" {
		cfg.Origin = uuid.NewString()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = menu.Default()
	}
	if cfg.Zones == nil {
		cfg.Zones = menu.DefaultZones()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("cartId", cfg.CartID), zap.String("origin", cfg.Origin))

	s := &Surface{
		cfg:      cfg,
		logger:   logger,
		cart:     cart.New(cfg.Catalog),
		checkout: checkout.Default(),
	}
	s.persister = NewPersister(cfg.PersistDelay, cfg.PersistMaxDelay, s.write, logger)

	for _, bus := range cfg.Buses {
		if bus == nil {
			continue
		}
		s.unsubscribe = append(s.unsubscribe, bus.Subscribe(cfg.CartID, s.Apply))
	}
	return s
}

func (s *Surface) CartID() string { return s.cfg.CartID }
func (s *Surface) Origin() string { return s.cfg.Origin }

// Hydrate loads initial state once: the hand-off payload if one is waiting
// (it is consumed), otherwise the durable replica. Unreadable or missing
// data leaves the defaults in place. Concurrent callers block until the
// first load has finished.
func (s *Surface) Hydrate(ctx context.Context) {
	s.hydrateOnce.Do(func() { s.hydrate(ctx) })
}

func (s *Surface) hydrate(ctx context.Context) {
	payload, ok := s.readTransfer(ctx)
	if !ok {
		payload, ok = s.readDurable(ctx)
	}
	if !ok {
		return
	}

	lines, state := Rebuild(payload, s.cfg.Catalog)
	s.mu.Lock()
	defer s.mu.Unlock()
	// a broadcast applied while storage was being read is newer
	if s.updatedAt > payload.Metadata.UpdatedAt {
		return
	}
	s.cart.Replace(lines)
	s.checkout = state
	s.updatedAt = payload.Metadata.UpdatedAt
	s.reconcileLocked()
}

func (s *Surface) readTransfer(ctx context.Context) (Payload, bool) {
	if s.cfg.Transfer == nil {
		return Payload{}, false
	}
	raw, err := take(ctx, s.cfg.Transfer, s.cfg.CartID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("cart transfer read failed", zap.Error(err))
		}
		return Payload{}, false
	}
	t := DecodeTransfer(raw)
	return t.Payload, !t.IsEmpty()
}

func (s *Surface) readDurable(ctx context.Context) (Payload, bool) {
	if s.cfg.Durable == nil {
		return Payload{}, false
	}
	raw, err := s.cfg.Durable.Get(ctx, s.cfg.CartID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("cart replica read failed", zap.Error(err))
		}
		return Payload{}, false
	}
	return Decode(raw), true
}

func (s *Surface) AddItem(itemID string, quantity int, extraIDs []string) (cart.Line, bool) {
	var line cart.Line
	var ok bool
	s.mutate(ReasonAdd, func() bool {
		line, ok = s.cart.AddItem(itemID, quantity, extraIDs)
		return ok
	})
	return line, ok
}

func (s *Surface) RemoveLine(index int) bool {
	var ok bool
	s.mutate(ReasonRemove, func() bool {
		ok = s.cart.RemoveLine(index)
		return ok
	})
	return ok
}

// SetQuantity applies user input; see cart.Cart.SetQuantity.
func (s *Surface) SetQuantity(index int, raw string) (int, bool) {
	var qty int
	var ok bool
	s.mutate(ReasonQuantity, func() bool {
		qty, ok = s.cart.SetQuantity(index, raw)
		return ok
	})
	return qty, ok
}

func (s *Surface) Increment(index int) bool {
	var ok bool
	s.mutate(ReasonQuantity, func() bool {
		ok = s.cart.Increment(index)
		return ok
	})
	return ok
}

func (s *Surface) Decrement(index int) bool {
	var ok bool
	s.mutate(ReasonQuantity, func() bool {
		ok = s.cart.Decrement(index)
		return ok
	})
	return ok
}

func (s *Surface) Clear() {
	s.mutate(ReasonClear, func() bool {
		s.cart.Clear()
		return true
	})
}

// UpdateCheckout edits the form; payment legs are re-derived afterwards.
func (s *Surface) UpdateCheckout(fn func(st *checkout.State)) {
	s.mutate(ReasonCheckout, func() bool {
		fn(&s.checkout)
		return true
	})
}

// Load replaces the whole state with a payload written by another client and
// persists it as this surface's own write.
func (s *Surface) Load(p Payload) {
	lines, state := Rebuild(p, s.cfg.Catalog)
	s.mutate(ReasonReplace, func() bool {
		s.cart.Replace(lines)
		s.checkout = state
		return true
	})
}

// Apply handles a broadcast from another surface: last write wins and the
// state is replaced wholesale. Nothing is persisted or re-broadcast on the
// bus; views are refreshed.
func (s *Surface) Apply(ev Event) {
	if ev.Origin == s.cfg.Origin || ev.CartID != s.cfg.CartID {
		return
	}
	lines, state := Rebuild(ev.Payload, s.cfg.Catalog)

	s.mu.Lock()
	s.cart.Replace(lines)
	s.checkout = state
	s.updatedAt = ev.Payload.Metadata.UpdatedAt
	s.reason = ev.Payload.Metadata.Reason
	s.reconcileLocked()
	payload := s.payloadLocked()
	s.mu.Unlock()

	s.notifyViews(context.Background(), payload)
}

// Flush writes immediately, cancelling any pending debounced write. Call it
// before submitting an order and before tearing the surface down.
func (s *Surface) Flush(ctx context.Context) error {
	return s.persister.Flush(ctx)
}

// CompleteOrder empties the cart and clears per-order fields after a
// successful submission, then flushes.
func (s *Surface) CompleteOrder(ctx context.Context) error {
	s.mu.Lock()
	s.cart.Clear()
	s.checkout.ResetTransient()
	s.reconcileLocked()
	s.touchLocked(ReasonOrderPlaced)
	s.mu.Unlock()
	return s.persister.Flush(ctx)
}

// View returns a private copy of the cart and form for read-only work.
func (s *Surface) View() (*cart.Cart, checkout.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone(), s.checkout
}

func (s *Surface) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		CartID:    s.cfg.CartID,
		Lines:     s.cart.Lines(),
		Checkout:  s.checkout,
		Totals:    checkout.ComputeTotals(s.cart, s.checkout, s.cfg.Zones),
		ItemCount: s.cart.ItemCount(),
		Summary:   s.cart.Summary(),
		UpdatedAt: s.updatedAt,
	}
}

func (s *Surface) Payload() Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloadLocked()
}

// WriteTransfer stores the hand-off copy immediately, for navigation from
// the quick-order panel to the full order page.
func (s *Surface) WriteTransfer(ctx context.Context) error {
	if s.cfg.Transfer == nil {
		return nil
	}
	p := s.Payload()
	raw, err := Transfer{Payload: p, CreatedAt: p.Metadata.UpdatedAt}.Encode()
	if err != nil {
		return err
	}
	return s.cfg.Transfer.Set(ctx, s.cfg.CartID, raw)
}

// Close flushes pending work and detaches from the buses.
func (s *Surface) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if s.persister.Pending() {
			err = s.persister.Flush(ctx)
		}
		s.persister.Stop()
		for _, unsubscribe := range s.unsubscribe {
			unsubscribe()
		}
	})
	return err
}

func (s *Surface) mutate(reason string, fn func() bool) {
	s.mu.Lock()
	changed := fn()
	if changed {
		s.reconcileLocked()
		s.touchLocked(reason)
	}
	s.mu.Unlock()

	if changed {
		s.persister.Schedule()
	}
}

func (s *Surface) reconcileLocked() {
	totals := checkout.ComputeTotals(s.cart, s.checkout, s.cfg.Zones)
	s.checkout.Reconcile(totals.Total)
}

func (s *Surface) touchLocked(reason string) {
	now := s.cfg.Now().UnixMilli()
	if now <= s.updatedAt {
		now = s.updatedAt + 1
	}
	s.updatedAt = now
	s.reason = reason
}

func (s *Surface) payloadLocked() Payload {
	return Build(s.cart.Lines(), s.checkout, Metadata{
		UpdatedAt: s.updatedAt,
		Reason:    s.reason,
		Source:    s.cfg.Source,
	})
}

// write persists both replicas and then broadcasts. Storage failures are
// logged and do not stop the broadcast.
func (s *Surface) write(ctx context.Context) error {
	p := s.Payload()

	var errs []error
	if s.cfg.Durable != nil {
		raw, err := p.Encode()
		if err == nil {
			err = s.cfg.Durable.Set(ctx, s.cfg.CartID, raw)
		}
		if err != nil {
			s.logger.Warn("cart replica write failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if s.cfg.Transfer != nil {
		raw, err := Transfer{Payload: p, CreatedAt: p.Metadata.UpdatedAt}.Encode()
		if err == nil {
			err = s.cfg.Transfer.Set(ctx, s.cfg.CartID, raw)
		}
		if err != nil {
			s.logger.Warn("cart transfer write failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	ev := Event{Type: EventName, CartID: s.cfg.CartID, Origin: s.cfg.Origin, Payload: p}
	for _, bus := range s.cfg.Buses {
		if bus == nil {
			continue
		}
		if err := bus.Publish(ctx, ev); err != nil {
			s.logger.Warn("cart broadcast failed", zap.Error(err))
		}
	}
	s.notifyViews(ctx, p)

	return errors.Join(errs...)
}

func (s *Surface) notifyViews(ctx context.Context, p Payload) {
	ev := Event{Type: EventName, CartID: s.cfg.CartID, Origin: s.cfg.Origin, Payload: p}
	for _, view := range s.cfg.Views {
		if view == nil {
			continue
		}
		if err := view.Publish(ctx, ev); err != nil {
			s.logger.Debug("cart view refresh failed", zap.Error(err))
		}
	}
}
