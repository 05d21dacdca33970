// Package breaker implements the three-state circuit breaker that
// guards every database call: CLOSED (normal), OPEN (refusing all
// calls), HALF_OPEN (probing for recovery).
package breaker

import (
	"sync"
	"time"

	"oracleguard/gateway/pkg/clock"
	"oracleguard/gateway/pkg/gatewayerr"
)

// Phase is one of the three circuit states.
type Phase string

const (
	Closed   Phase = "CLOSED"
	Open     Phase = "OPEN"
	HalfOpen Phase = "HALF_OPEN"
)

// Config carries the breaker's tunables.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

// DefaultConfig opens after 5 consecutive failures, cools down for
// 60s, and requires 2 consecutive successes to close again.
func DefaultConfig() Config {
	return Config{FailureThreshold: 5, RecoveryTimeout: 60 * time.Second, SuccessThreshold: 2}
}

// State is a point-in-time snapshot of the breaker.
type State struct {
	Phase                Phase
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	OpenedAt             time.Time
}

// Breaker is the single process-wide state machine. Only the breaker
// itself mutates its phase.
type Breaker struct {
	mu    sync.Mutex
	cfg   Config
	clk   clock.Clock
	phase Phase
	cf    int
	cs    int
	openedAt time.Time
}

// New constructs a Breaker starting CLOSED.
func New(cfg Config, clk clock.Clock) *Breaker {
	return &Breaker{cfg: cfg, clk: clk, phase: Closed}
}

// Permit decides whether a database call may proceed. While OPEN, calls
// are refused without touching the pool and the remaining cool-down is
// returned as a retry-after hint; once the cool-down elapses the
// breaker transitions to HALF_OPEN and lets this call through as the
// probe. While HALF_OPEN, every Permit succeeds; the number of calls
// in flight during HALF_OPEN is not limited.
func (b *Breaker) Permit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clk.Now()

	switch b.phase {
	case Closed:
		return nil
	case Open:
		elapsed := now.Sub(b.openedAt)
		if elapsed >= b.cfg.RecoveryTimeout {
			b.phase = HalfOpen
			b.cs = 0
			return nil
		}
		remaining := b.cfg.RecoveryTimeout - elapsed
		return gatewayerr.NewWithRetry(gatewayerr.CircuitOpen, "circuit breaker is open", remaining)
	case HalfOpen:
		return nil
	}
	return nil
}

// RecordSuccess reports a successful database call outcome.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case Closed:
		b.cf = 0
	case HalfOpen:
		b.cs++
		if b.cs >= b.cfg.SuccessThreshold {
			b.phase = Closed
			b.cf = 0
			b.cs = 0
			b.openedAt = time.Time{}
		}
	}
}

// RecordFailure reports a failed database call outcome.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clk.Now()

	switch b.phase {
	case Closed:
		b.cf++
		if b.cf >= b.cfg.FailureThreshold {
			b.phase = Open
			b.openedAt = now
			b.cf = 0
		}
	case HalfOpen:
		b.phase = Open
		b.openedAt = now
		b.cs = 0
	}
}

// Snapshot returns the current state for audit/metrics reporting.
func (b *Breaker) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		Phase:                b.phase,
		ConsecutiveFailures:  b.cf,
		ConsecutiveSuccesses: b.cs,
		OpenedAt:             b.openedAt,
	}
}
