// Package submission turns a validated cart into a placed order: one fatal
// profile write followed by best-effort mirrors and notifications, guarded by
// a small per-cart state machine.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tux-order-services/internal/cart"
	"tux-order-services/internal/checkout"

	"go.uber.org/zap"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

var (
	ErrInFlight       = errors.New("an order is already being submitted for this cart")
	ErrOrderNotStored = errors.New("could not create order")
)

// Session is the cart a submission reads from and clears afterwards.
type Session interface {
	CartID() string
	Flush(ctx context.Context) error
	View() (*cart.Cart, checkout.State)
	CompleteOrder(ctx context.Context) error
}

type Customer struct {
	ID    string
	Email string
}

// SideEffect runs after the order is stored. Failures are logged only.
type SideEffect struct {
	Name string
	Run  func(ctx context.Context, order Placed) error
}

type Options struct {
	Rules        checkout.Rules
	RestaurantID string
	TaskTimeout  time.Duration
	SideEffects  []SideEffect
	Logger       *zap.Logger
	Now          func() time.Time
}

type Result struct {
	OrderID        string      `json:"orderId"`
	IdempotencyKey string      `json:"idemKey"`
	Order          OrderRecord `json:"order"`
	SideEffects    Report      `json:"sideEffects"`
}

// Service owns one Machine per cart id.
type Service struct {
	store   OrderStore
	opts    Options
	runner  *BestEffort
	logger  *zap.Logger
	effects []SideEffect

	mu       sync.Mutex
	machines map[string]*Machine
}

func NewService(store OrderStore, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rules.Zones == nil {
		opts.Rules = checkout.DefaultRules()
	}
	return &Service{
		store:    store,
		opts:     opts,
		runner:   NewBestEffort(opts.TaskTimeout, opts.Logger),
		logger:   opts.Logger,
		effects:  opts.SideEffects,
		machines: make(map[string]*Machine),
	}
}

// Use appends side effects run after every stored order.
func (s *Service) Use(effects ...SideEffect) {
	s.mu.Lock()
	s.effects = append(s.effects, effects...)
	s.mu.Unlock()
}

func (s *Service) Machine(cartID string) *Machine {
	key := strings.TrimSpace(cartID)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[key]
	if !ok {
		m = &Machine{svc: s, status: StatusIdle}
		s.machines[key] = m
	}
	return m
}

// Forget drops the machine for cartID unless a submission is running.
func (s *Service) Forget(cartID string) {
	key := strings.TrimSpace(cartID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.machines[key]; ok && !m.inFlight() {
		delete(s.machines, key)
	}
}

func (s *Service) Submit(ctx context.Context, session Session, customer Customer) (*Result, error) {
	return s.Machine(session.CartID()).Submit(ctx, session, customer)
}

func (s *Service) sideEffects() []SideEffect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SideEffect(nil), s.effects...)
}

// Machine tracks Idle -> Validating -> Submitting -> Succeeded | Failed for
// one cart. Terminal states go back to Idle on Acknowledge or on the next
// Submit.
type Machine struct {
	svc *Service

	mu      sync.Mutex
	status  Status
	lastErr error
}

func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Err is the failure of the last submission, if it failed.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Machine) CanSubmit() bool {
	return !m.inFlight()
}

func (m *Machine) Acknowledge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusSucceeded || m.status == StatusFailed {
		m.status = StatusIdle
		m.lastErr = nil
	}
}

func (m *Machine) inFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusValidating || m.status == StatusSubmitting
}

func (m *Machine) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusValidating || m.status == StatusSubmitting {
		return ErrInFlight
	}
	m.status = StatusValidating
	m.lastErr = nil
	return nil
}

func (m *Machine) set(status Status) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func (m *Machine) finish(status Status, err error) {
	m.mu.Lock()
	m.status = status
	m.lastErr = err
	m.mu.Unlock()
}

// Submit validates the session and places the order. Validation failures
// are returned as *checkout.Error with nothing written; a failed profile
// write leaves the cart untouched for a retry.
func (m *Machine) Submit(ctx context.Context, session Session, customer Customer) (result *Result, err error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	status := StatusFailed
	defer func() { m.finish(status, err) }()

	svc := m.svc
	logger := svc.logger.With(zap.String("cartId", session.CartID()), zap.String("userId", customer.ID))

	if err := session.Flush(ctx); err != nil {
		logger.Warn("cart flush before submit failed", zap.Error(err))
	}

	c, state := session.View()
	validated, err := svc.opts.Rules.Validate(c, state)
	if err != nil {
		return nil, err
	}

	m.set(StatusSubmitting)
	rec := BuildRecord(c, validated, customer, svc.opts.RestaurantID, svc.opts.Now())

	orderID, err := svc.store.CreateProfileOrder(ctx, rec)
	if err != nil {
		logger.Error("profile order write failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrOrderNotStored, err)
	}
	if strings.TrimSpace(orderID) == "" {
		return nil, ErrOrderNotStored
	}

	key := IdempotencyKey(orderID)
	rec.IdempotencyKey = key
	placed := Placed{OrderID: orderID, IdempotencyKey: key, Record: rec}

	tasks := []Task{
		{Name: "global-mirror", Run: func(ctx context.Context) error {
			return svc.store.MirrorGlobalOrder(ctx, orderID, rec)
		}},
		{Name: "pos-mirror", Run: func(ctx context.Context) error {
			return svc.store.MirrorPOSOrder(ctx, NewPOSOrder(placed))
		}},
	}
	for _, effect := range svc.sideEffects() {
		tasks = append(tasks, Task{Name: effect.Name, Run: func(ctx context.Context) error {
			return effect.Run(ctx, placed)
		}})
	}
	report := svc.runner.Run(context.WithoutCancel(ctx), tasks...)

	if err := session.CompleteOrder(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("cart reset after order failed", zap.Error(err))
	}

	logger.Info("order placed",
		zap.String("orderId", orderID),
		zap.Float64("total", rec.Total),
		zap.Int("sideEffectsFailed", len(report.Failed)),
	)
	status = StatusSucceeded
	return &Result{OrderID: orderID, IdempotencyKey: key, Order: rec, SideEffects: report}, nil
}
