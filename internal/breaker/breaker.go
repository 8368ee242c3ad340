// Package breaker implements a circuit breaker that wraps external
// blocking calls (database writes, OCR binaries, a remote solver) with a
// CLOSED/OPEN/HALF_OPEN state machine and timed recovery.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/pokertool/core/internal/model"
)

// State is one of the three circuit breaker states.
type State string

const (
	Closed   State = "CLOSED"
	Open     State = "OPEN"
	HalfOpen State = "HALF_OPEN"
)

// Config configures a Breaker.
type Config struct {
	FailureThreshold int           // default 5 consecutive failures
	Timeout          time.Duration // default 60s
	HalfOpenMaxCalls int           // default 1
	Clock            quartz.Clock  // defaults to quartz.NewReal()
	OnStateChange    func(old, new State)
}

// DefaultConfig returns the documented breaker defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
		HalfOpenMaxCalls: 1,
		Clock:            quartz.NewReal(),
	}
}

// Metrics is the breaker's observable state.
type Metrics struct {
	State               State
	TotalCalls          uint64
	TotalFailures        uint64
	ConsecutiveFailures int
	FailureRate         float64
	LastFailureT        time.Time
	OpenedAt            time.Time
}

// Breaker guards a blocking external call with CLOSED/OPEN/HALF_OPEN
// states and timed recovery.
type Breaker struct {
	cfg Config

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	totalCalls          uint64
	totalFailures       uint64
	lastFailureT        time.Time
	openedAt            time.Time
	halfOpenInFlight    int
}

// New builds a Breaker. A zero Config.Clock defaults to quartz.NewReal().
func New(cfg Config) *Breaker {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	return &Breaker{cfg: cfg, state: Closed}
}

// Call wraps fn with the breaker's fail-fast and recovery policy. It
// returns model.KindCircuitOpen wrapped in *model.Error when the breaker
// is OPEN and the timeout has not elapsed.
func (b *Breaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.cfg.Clock.Now()
	switch b.state {
	case Open:
		if now.Sub(b.openedAt) >= b.cfg.Timeout {
			b.transition(HalfOpen)
			b.halfOpenInFlight = 1
			return nil
		}
		return model.NewError(model.KindCircuitOpen, "breaker.Call", "circuit open", nil)
	case HalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxCalls {
			return model.NewError(model.KindCircuitOpen, "breaker.Call", "half-open probe in flight", nil)
		}
		b.halfOpenInFlight++
		return nil
	default:
		return nil
	}
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++
	now := b.cfg.Clock.Now()

	if err != nil {
		b.totalFailures++
		b.consecutiveFailures++
		b.lastFailureT = now

		switch b.state {
		case HalfOpen:
			b.halfOpenInFlight = 0
			b.openedAt = now
			b.transition(Open)
		case Closed:
			if b.consecutiveFailures >= b.cfg.FailureThreshold {
				b.openedAt = now
				b.transition(Open)
			}
		}
		return
	}

	switch b.state {
	case HalfOpen:
		b.halfOpenInFlight = 0
		b.consecutiveFailures = 0
		b.transition(Closed)
	case Closed:
		b.consecutiveFailures = 0
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil && from != to {
		safeCall(b.cfg.OnStateChange, from, to)
	}
}

// safeCall recovers any panic from the state-change callback so it can
// never affect breaker state.
func safeCall(cb func(old, new State), from, to State) {
	defer func() { _ = recover() }()
	cb(from, to)
}

// Metrics returns a snapshot of the breaker's observable state.
func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	var rate float64
	if b.totalCalls > 0 {
		rate = float64(b.totalFailures) / float64(b.totalCalls)
	}
	return Metrics{
		State:               b.state,
		TotalCalls:          b.totalCalls,
		TotalFailures:       b.totalFailures,
		ConsecutiveFailures: b.consecutiveFailures,
		FailureRate:         rate,
		LastFailureT:        b.lastFailureT,
		OpenedAt:            b.openedAt,
	}
}

// Reset restores the breaker to CLOSED with all counters cleared.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.consecutiveFailures = 0
	b.totalCalls = 0
	b.totalFailures = 0
	b.halfOpenInFlight = 0
}
