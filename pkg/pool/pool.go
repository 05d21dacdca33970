// Package pool owns N long-lived database sessions and multiplexes
// concurrent callers onto them, one statement per slot at a time.
// Slot selection rotates over whichever slots happen to be IDLE. A
// BROKEN slot is reconnected out of band and must pass a health probe
// before it returns to IDLE.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"oracleguard/gateway/pkg/clock"
	"oracleguard/gateway/pkg/gatewayerr"
	"oracleguard/gateway/pkg/session"
)

// SlotState is one of the three lifecycle states of a connection slot.
type SlotState string

const (
	Idle   SlotState = "IDLE"
	Busy   SlotState = "BUSY"
	Broken SlotState = "BROKEN"
)

// Slot is one long-lived database session plus its serial execution
// queue. Only the pool mutates slot state.
type Slot struct {
	Index      int
	State      SlotState
	LastOKAt   time.Time
	OwnerEpoch int64

	session session.Session
}

// Config carries the pool's tunables.
type Config struct {
	Size                int
	AcquireTimeout      time.Duration
	QueryTimeout        time.Duration
	FetchChunk          int
	HealthSweepInterval time.Duration
}

// DefaultConfig is a conservative starting point for local development.
func DefaultConfig() Config {
	return Config{
		Size:                2,
		AcquireTimeout:      30 * time.Second,
		QueryTimeout:        5 * time.Second,
		FetchChunk:          1000,
		HealthSweepInterval: 15 * time.Second,
	}
}

// Health is the pool's exposed health view.
type Health struct {
	Total       int
	Healthy     int
	Unhealthy   int
	AllHealthy  bool
}

// Pool owns the fixed-size slot array.
type Pool struct {
	cfg     Config
	clk     clock.Clock
	factory session.Factory

	mu      sync.Mutex
	slots   []*Slot
	counter atomic.Int64
	gen     chan struct{} // closed and replaced on every state change, for wakeups

	cron *cron.Cron
}

// New constructs a Pool and establishes all N sessions synchronously;
// a session that fails to establish at startup begins life BROKEN and
// is picked up by the first health sweep.
func New(ctx context.Context, cfg Config, clk clock.Clock, factory session.Factory) *Pool {
	p := &Pool{
		cfg:     cfg,
		clk:     clk,
		factory: factory,
		slots:   make([]*Slot, cfg.Size),
		gen:     make(chan struct{}),
	}

	for i := 0; i < cfg.Size; i++ {
		s := &Slot{Index: i, State: Broken}
		sess, err := factory(ctx)
		if err == nil {
			s.session = sess
			s.State = Idle
			s.LastOKAt = clk.Now()
		}
		p.slots[i] = s
	}

	return p
}

// StartHealthSweep schedules the supplementary background sweep that
// retries reconnecting any BROKEN slot on a fixed interval, on top of
// the immediate out-of-band reconnect triggered by Release. Correctness
// does not depend on this sweep running (the immediate reconnect
// already recovers a slot); it exists as a safety net for slots whose
// out-of-band reconnect itself failed.
func (p *Pool) StartHealthSweep(ctx context.Context) {
	if p.cfg.HealthSweepInterval <= 0 {
		return
	}
	p.cron = cron.New()
	interval := p.cfg.HealthSweepInterval
	p.cron.AddFunc(cronSpec(interval), func() {
		p.sweepBroken(ctx)
	})
	p.cron.Start()
}

// StopHealthSweep stops the background sweep, if running.
func (p *Pool) StopHealthSweep() {
	if p.cron != nil {
		p.cron.Stop()
	}
}

func cronSpec(d time.Duration) string {
	return "@every " + d.String()
}

func (p *Pool) sweepBroken(ctx context.Context) {
	p.mu.Lock()
	broken := make([]*Slot, 0)
	for _, s := range p.slots {
		if s.State == Broken {
			broken = append(broken, s)
		}
	}
	p.mu.Unlock()

	for _, s := range broken {
		p.reconnect(ctx, s)
	}
}

// Acquire waits for an IDLE slot in round-robin order among the IDLE
// set, returning pool_timeout if none becomes available within
// AcquireTimeout. A zero-healthy-slot pool behaves identically to any
// other saturated pool: the wait simply never finds an IDLE slot and
// times out, per the resolved Open Question.
func (p *Pool) Acquire(ctx context.Context) (*Slot, error) {
	deadline := p.clk.Now().Add(p.cfg.AcquireTimeout)

	for {
		if s := p.tryAcquire(); s != nil {
			return s, nil
		}

		remaining := deadline.Sub(p.clk.Now())
		if remaining <= 0 {
			return nil, gatewayerr.New(gatewayerr.PoolTimeout, "no session slot became available")
		}

		p.mu.Lock()
		wake := p.gen
		p.mu.Unlock()

		timer := time.NewTimer(remaining)
		select {
		case <-wake:
			timer.Stop()
		case <-timer.C:
			return nil, gatewayerr.New(gatewayerr.PoolTimeout, "no session slot became available")
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// tryAcquire scans IDLE slots starting from the round-robin cursor and
// claims the first one found, marking it BUSY.
func (p *Pool) tryAcquire() *Slot {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.slots)
	if n == 0 {
		return nil
	}
	start := int(p.counter.Add(1)-1) % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		s := p.slots[idx]
		if s.State == Idle {
			s.State = Busy
			s.OwnerEpoch++
			return s
		}
	}
	return nil
}

// Release returns a slot to IDLE on success, or marks it BROKEN and
// triggers an out-of-band reconnect on failure.
func (p *Pool) Release(ctx context.Context, s *Slot, ioErr error) {
	if ioErr == nil {
		p.mu.Lock()
		s.State = Idle
		s.LastOKAt = p.clk.Now()
		p.wakeLocked()
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	s.State = Broken
	p.wakeLocked()
	p.mu.Unlock()

	go p.reconnect(ctx, s)
}

// reconnect re-establishes a BROKEN slot's session out of band and
// requires a successful health probe before the slot returns to IDLE.
func (p *Pool) reconnect(ctx context.Context, s *Slot) {
	sess, err := p.factory(ctx)
	if err != nil {
		return
	}
	if err := sess.Probe(ctx); err != nil {
		sess.Close()
		return
	}

	p.mu.Lock()
	if s.session != nil {
		old := s.session
		go old.Close()
	}
	s.session = sess
	s.State = Idle
	s.LastOKAt = p.clk.Now()
	p.wakeLocked()
	p.mu.Unlock()
}

// wakeLocked broadcasts a state-change notification to any waiters.
// Caller must hold mu.
func (p *Pool) wakeLocked() {
	close(p.gen)
	p.gen = make(chan struct{})
}

// Run acquires a slot, executes sql against its session under the
// configured query timeout, and releases the slot, marking it BROKEN
// when the session returns any error.
func (p *Pool) Run(ctx context.Context, sql string) (session.Result, int, error) {
	s, err := p.Acquire(ctx)
	if err != nil {
		return session.Result{}, s2i(s), err
	}

	qctx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	defer cancel()

	result, runErr := s.session.Run(qctx, sql, p.cfg.FetchChunk)
	p.Release(ctx, s, runErr)
	return result, s.Index, runErr
}

func s2i(s *Slot) int {
	if s == nil {
		return -1
	}
	return s.Index
}

// Health reports the current slot health view.
func (p *Pool) Health() Health {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := Health{Total: len(p.slots)}
	for _, s := range p.slots {
		if s.State != Broken {
			h.Healthy++
		} else {
			h.Unhealthy++
		}
	}
	h.AllHealthy = h.Unhealthy == 0
	return h
}

// DescribeTable and ListTables acquire a slot for metadata operations,
// which require no approval token because no free-form SQL is accepted.
func (p *Pool) DescribeTable(ctx context.Context, schema, table string) ([]session.ColumnMeta, error) {
	s, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	defer cancel()
	cols, runErr := s.session.DescribeTable(qctx, schema, table)
	p.Release(ctx, s, runErr)
	return cols, runErr
}

func (p *Pool) ListTables(ctx context.Context, schema string) ([]string, error) {
	s, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	qctx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	defer cancel()
	names, runErr := s.session.ListTables(qctx, schema)
	p.Release(ctx, s, runErr)
	return names, runErr
}

// Close closes every slot's session and stops the health sweep.
func (p *Pool) Close() error {
	p.StopHealthSweep()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slots {
		if s.session != nil {
			s.session.Close()
		}
	}
	return nil
}
