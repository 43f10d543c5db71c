package cartsync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Persister coalesces bursts of writes. Schedule arms a trailing timer of
// delay, re-armed on every call but never past maxDelay from the first
// pending call. Flush writes right away and cancels the pending timer.
type Persister struct {
	delay    time.Duration
	maxDelay time.Duration
	write    func(ctx context.Context) error
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	timer    *time.Timer
	deadline time.Time
	stopped  bool
}

func NewPersister(delay, maxDelay time.Duration, write func(ctx context.Context) error, logger *zap.Logger) *Persister {
	if delay <= 0 {
		delay = 120 * time.Millisecond
	}
	if maxDelay < delay {
		maxDelay = delay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{delay: delay, maxDelay: maxDelay, write: write, logger: logger, now: time.Now}
}

func (p *Persister) Schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}

	now := p.now()
	if p.timer == nil {
		p.deadline = now.Add(p.maxDelay)
		p.timer = time.AfterFunc(p.delay, p.fire)
		return
	}

	wait := p.delay
	if remaining := p.deadline.Sub(now); remaining < wait {
		wait = remaining
	}
	if wait < 0 {
		wait = 0
	}
	p.timer.Reset(wait)
}

func (p *Persister) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timer != nil
}

func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	p.cancelLocked()
	p.mu.Unlock()
	return p.write(ctx)
}

// Stop cancels any pending write without running it.
func (p *Persister) Stop() {
	p.mu.Lock()
	p.cancelLocked()
	p.stopped = true
	p.mu.Unlock()
}

func (p *Persister) fire() {
	p.mu.Lock()
	if p.timer == nil {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	p.mu.Unlock()

	if err := p.write(context.Background()); err != nil {
		p.logger.Warn("cart persist failed", zap.Error(err))
	}
}

func (p *Persister) cancelLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
