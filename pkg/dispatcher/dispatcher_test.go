package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"oracleguard/gateway/pkg/approval"
	"oracleguard/gateway/pkg/audit"
	auditstorage "oracleguard/gateway/pkg/audit/storage"
	"oracleguard/gateway/pkg/breaker"
	"oracleguard/gateway/pkg/clock"
	"oracleguard/gateway/pkg/gatewayerr"
	"oracleguard/gateway/pkg/pool"
	"oracleguard/gateway/pkg/ratelimit"
	"oracleguard/gateway/pkg/session"
	"oracleguard/gateway/pkg/sqlguard/validator"
)

// memSession is an in-memory session.Session stand-in used to build
// dispatcher-level integration tests without a live database, per its
// own contract with the pool.
type memSession struct {
	mu     sync.Mutex
	runErr error
}

func (s *memSession) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runErr = err
}

func (s *memSession) Run(ctx context.Context, sqlText string, fetchChunk int) (session.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runErr != nil {
		return session.Result{}, s.runErr
	}
	return session.Result{Columns: []string{"ID"}, Rows: []session.Row{{Values: []any{1}}}}, nil
}

func (s *memSession) Probe(ctx context.Context) error { return nil }

func (s *memSession) DescribeTable(ctx context.Context, schema, table string) ([]session.ColumnMeta, error) {
	return []session.ColumnMeta{{Name: "ID", Type: "NUMBER", PK: true}}, nil
}

func (s *memSession) ListTables(ctx context.Context, schema string) ([]string, error) {
	return []string{"ACCOUNTS"}, nil
}

func (s *memSession) Close() error { return nil }

// harness bundles one fully-wired, in-memory Dispatcher, letting each
// test reach into its components (breaker, session) to drive scenarios.
type harness struct {
	disp    *Dispatcher
	sess    *memSession
	brk     *breaker.Breaker
	brkClk  *clock.Fixed
	reg     *approval.Registry
	storage *auditstorage.Memory
}

func newHarness(t *testing.T, brkCfg breaker.Config) *harness {
	t.Helper()

	sess := &memSession{}
	factory := func(ctx context.Context) (session.Session, error) { return sess, nil }
	p := pool.New(context.Background(), pool.Config{
		Size:           2,
		AcquireTimeout: 50 * time.Millisecond,
		QueryTimeout:   time.Second,
		FetchChunk:     1000,
	}, clock.System{}, factory)
	t.Cleanup(func() { p.Close() })

	brkClk := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	brk := breaker.New(brkCfg, brkClk)

	limiter := ratelimit.New(ratelimit.Config{Max: 10000, Window: time.Minute}, clock.System{})
	reg := approval.New(approval.Config{TTL: 5 * time.Minute}, clock.System{})
	v := validator.New(validator.Config{MaxComplexity: 50, MaxRows: 1000, AllowCrossJoins: false})

	storage := auditstorage.NewMemory()
	emitter := audit.New(audit.Config{BufferSize: 100}, storage, slog.Default())
	t.Cleanup(func() { emitter.Close() })

	disp := New(limiter, reg, brk, p, v, emitter, clock.System{}, nil)

	return &harness{disp: disp, sess: sess, brk: brk, brkClk: brkClk, reg: reg, storage: storage}
}

func defaultBreakerConfig() breaker.Config {
	return breaker.Config{FailureThreshold: 3, RecoveryTimeout: time.Minute, SuccessThreshold: 2}
}

// TestPreviewRejectsVerbSplitByBlockComment pins the comment-evasion
// boundary scenario: a forbidden verb split across a mid-token block
// comment must still be caught, because comments are stripped before
// the forbidden-verb check runs, rejoining "DR" and "OP" into "DROP".
func TestPreviewRejectsVerbSplitByBlockComment(t *testing.T) {
	h := newHarness(t, defaultBreakerConfig())
	_, err := h.disp.Preview(context.Background(), "SELECT * FROM accounts; DR/**/OP TABLE accounts")
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ValidationRejected {
		t.Fatalf("Preview() error = %v, want ValidationRejected", err)
	}
}

func TestPreviewRejectsVerbHiddenByCase(t *testing.T) {
	h := newHarness(t, defaultBreakerConfig())
	_, err := h.disp.Preview(context.Background(), "select * from accounts; drop table accounts")
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ValidationRejected {
		t.Fatalf("Preview() error = %v, want ValidationRejected", err)
	}
}

func TestPreviewAdmitsVerbSuffixFalsePositive(t *testing.T) {
	h := newHarness(t, defaultBreakerConfig())
	result, err := h.disp.Preview(context.Background(), "SELECT id, updated_at FROM accounts WHERE created_at > 0")
	if err != nil {
		t.Fatalf("Preview() error = %v, want admission (UPDATED_AT/CREATED_AT are not the UPDATE/CREATE verbs)", err)
	}
	if result.Token == nil {
		t.Fatal("Preview() admitted with no token")
	}
}

func TestPreviewRejectsCartesianProduct(t *testing.T) {
	h := newHarness(t, defaultBreakerConfig())
	_, err := h.disp.Preview(context.Background(), "SELECT a.id, b.id FROM accounts a, transactions b")
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ValidationRejected {
		t.Fatalf("Preview() error = %v, want ValidationRejected", err)
	}
}

func TestPreviewThenExecuteHappyPathThenDoubleConsumeFails(t *testing.T) {
	h := newHarness(t, defaultBreakerConfig())
	ctx := context.Background()
	sql := "SELECT id FROM accounts WHERE id = 1"

	preview, err := h.disp.Preview(ctx, sql)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	exec, err := h.disp.Execute(ctx, sql, preview.Token.ID)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if exec.RowCount != 1 {
		t.Errorf("RowCount = %d, want 1", exec.RowCount)
	}

	_, err = h.disp.Execute(ctx, sql, preview.Token.ID)
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ApprovalInvalid {
		t.Fatalf("second Execute() with the same token error = %v, want ApprovalInvalid", err)
	}
}

func TestExecuteRejectsTokenMismatch(t *testing.T) {
	h := newHarness(t, defaultBreakerConfig())
	ctx := context.Background()

	preview, err := h.disp.Preview(ctx, "SELECT id FROM accounts WHERE id = 1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	_, err = h.disp.Execute(ctx, "SELECT id FROM accounts WHERE id = 2", preview.Token.ID)
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ApprovalMismatch {
		t.Fatalf("Execute() with a different statement error = %v, want ApprovalMismatch", err)
	}
}

func TestExecuteRejectsMissingToken(t *testing.T) {
	h := newHarness(t, defaultBreakerConfig())
	_, err := h.disp.Execute(context.Background(), "SELECT id FROM accounts", "")
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ApprovalRequired {
		t.Fatalf("Execute() error = %v, want ApprovalRequired", err)
	}
}

// TestCircuitOpensThenRecovers pins the circuit-open/recovery boundary
// scenario: consecutive failing executes trip the breaker; execute
// while OPEN is refused before ever reaching the pool; once the
// recovery timeout elapses and probes succeed, the circuit closes
// again.
func TestCircuitOpensThenRecovers(t *testing.T) {
	h := newHarness(t, defaultBreakerConfig())
	ctx := context.Background()
	h.sess.setErr(gatewayerr.New(gatewayerr.DriverError, "connection reset"))

	for i := 0; i < 3; i++ {
		preview, err := h.disp.Preview(ctx, "SELECT id FROM accounts WHERE id = 1")
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		_, err = h.disp.Execute(ctx, "SELECT id FROM accounts WHERE id = 1", preview.Token.ID)
		ge, ok := gatewayerr.As(err)
		if !ok || ge.Kind != gatewayerr.DriverError {
			t.Fatalf("Execute() call %d error = %v, want DriverError", i, err)
		}
	}

	if got := h.brk.Snapshot().Phase; got != breaker.Open {
		t.Fatalf("breaker Phase = %v after %d consecutive failures, want Open", got, 3)
	}

	preview, err := h.disp.Preview(ctx, "SELECT id FROM accounts WHERE id = 1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	_, err = h.disp.Execute(ctx, "SELECT id FROM accounts WHERE id = 1", preview.Token.ID)
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.CircuitOpen {
		t.Fatalf("Execute() while OPEN error = %v, want CircuitOpen", err)
	}

	h.brkClk.Advance(61 * time.Second)
	h.sess.setErr(nil)

	for i := 0; i < 2; i++ {
		preview, err := h.disp.Preview(ctx, "SELECT id FROM accounts WHERE id = 1")
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		_, err = h.disp.Execute(ctx, "SELECT id FROM accounts WHERE id = 1", preview.Token.ID)
		if err != nil {
			t.Fatalf("recovery Execute() call %d error = %v", i, err)
		}
	}

	if got := h.brk.Snapshot().Phase; got != breaker.Closed {
		t.Fatalf("breaker Phase = %v after %d successful probes, want Closed", got, 2)
	}

	waitForAuditKind(t, h.storage, audit.CircuitHalfOpen)
	waitForAuditKind(t, h.storage, audit.CircuitClose)
}

// waitForAuditKind polls storage until an event of kind has landed,
// tolerating the emitter's background worker draining asynchronously.
func waitForAuditKind(t *testing.T, storage *auditstorage.Memory, kind audit.Kind) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		events, err := storage.Query(time.Time{}, 0)
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		for _, ev := range events {
			if ev.Kind == kind {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for an audit event of kind %s", kind)
}

// TestExecuteSurfacesPoolSaturation pins the pool-saturation boundary
// scenario at the dispatcher level: once every slot is held busy past
// AcquireTimeout, Execute must surface gatewayerr.PoolTimeout.
func TestExecuteSurfacesPoolSaturation(t *testing.T) {
	sess := &memSession{}
	gate := make(chan struct{})
	blockingFactory := func(ctx context.Context) (session.Session, error) {
		return &blockingSession{memSession: sess, gate: gate}, nil
	}
	p := pool.New(context.Background(), pool.Config{
		Size:           1,
		AcquireTimeout: 30 * time.Millisecond,
		QueryTimeout:   time.Second,
		FetchChunk:     1000,
	}, clock.System{}, blockingFactory)
	defer func() {
		close(gate)
		p.Close()
	}()

	brk := breaker.New(defaultBreakerConfig(), clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	limiter := ratelimit.New(ratelimit.Config{Max: 10000, Window: time.Minute}, clock.System{})
	reg := approval.New(approval.Config{TTL: 5 * time.Minute}, clock.System{})
	v := validator.New(validator.Config{MaxComplexity: 50, MaxRows: 1000})
	storage := auditstorage.NewMemory()
	emitter := audit.New(audit.Config{BufferSize: 100}, storage, slog.Default())
	defer emitter.Close()
	disp := New(limiter, reg, brk, p, v, emitter, clock.System{}, nil)

	ctx := context.Background()
	preview1, err := disp.Preview(ctx, "SELECT id FROM accounts WHERE id = 1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		disp.Execute(ctx, "SELECT id FROM accounts WHERE id = 1", preview1.Token.ID)
	}()
	time.Sleep(5 * time.Millisecond) // let the first Execute claim the only slot

	preview2, err := disp.Preview(ctx, "SELECT id FROM accounts WHERE id = 2")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	_, err = disp.Execute(ctx, "SELECT id FROM accounts WHERE id = 2", preview2.Token.ID)
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.PoolTimeout {
		t.Fatalf("Execute() error = %v, want PoolTimeout", err)
	}

	close(gate)
	gate = make(chan struct{})
	wg.Wait()
}

// blockingSession wraps memSession so Run blocks until gate is closed,
// letting a test saturate a pool slot on demand.
type blockingSession struct {
	*memSession
	gate chan struct{}
}

func (b *blockingSession) Run(ctx context.Context, sqlText string, fetchChunk int) (session.Result, error) {
	select {
	case <-b.gate:
	case <-ctx.Done():
		return session.Result{}, ctx.Err()
	}
	return b.memSession.Run(ctx, sqlText, fetchChunk)
}
