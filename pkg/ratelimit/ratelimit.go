// Package ratelimit implements the gateway's sliding-window admission
// cap: every request kind shares one limiter, which appends the current
// timestamp to an ordered buffer after expiring entries older than
// now-window, and rejects once the buffer would exceed max.
//
// The buffer holds individual timestamps rather than coarse bucket
// counts, so admission is exact per request rather than approximated
// by bucket boundaries.
package ratelimit

import (
	"sync"
	"time"

	"oracleguard/gateway/pkg/clock"
)

// Config carries the limiter's tunables.
type Config struct {
	Max    int
	Window time.Duration
}

// DefaultConfig allows 60 requests per 60 seconds.
func DefaultConfig() Config {
	return Config{Max: 60, Window: 60 * time.Second}
}

// Limiter is a single shared sliding-window admission cap.
type Limiter struct {
	mu     sync.Mutex
	cfg    Config
	clk    clock.Clock
	stamps []time.Time
}

// New constructs a Limiter using the given clock for timestamping.
func New(cfg Config, clk clock.Clock) *Limiter {
	return &Limiter{cfg: cfg, clk: clk}
}

// Allow expires entries older than now-window, then admits the current
// request if doing so would not push the buffer past Max. It reports
// whether the request was admitted and, if not, how long until the
// oldest entry falls out of the window.
func (l *Limiter) Allow() (admitted bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clk.Now()
	cutoff := now.Add(-l.cfg.Window)

	i := 0
	for i < len(l.stamps) && l.stamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = l.stamps[i:]
	}

	if len(l.stamps) >= l.cfg.Max {
		oldest := l.stamps[0]
		retryAfter = oldest.Add(l.cfg.Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter
	}

	l.stamps = append(l.stamps, now)
	return true, 0
}

// Len reports the current buffer length, for metrics/inspection.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.stamps)
}
