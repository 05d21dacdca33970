package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"oracleguard/gateway/pkg/clock"
	"oracleguard/gateway/pkg/gatewayerr"
	"oracleguard/gateway/pkg/session"
)

// fakeSession is an in-memory session.Session stand-in whose Run
// behavior is controlled per-test: it can block on a release gate,
// return a canned error, or echo back the SQL text it was asked to run.
type fakeSession struct {
	mu         sync.Mutex
	closed     bool
	runErr     error
	probeErr   error
	blockUntil chan struct{}
}

func (f *fakeSession) Run(ctx context.Context, sqlText string, fetchChunk int) (session.Result, error) {
	if f.blockUntil != nil {
		select {
		case <-f.blockUntil:
		case <-ctx.Done():
			return session.Result{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return session.Result{}, f.runErr
	}
	return session.Result{Columns: []string{"SQL"}, Rows: []session.Row{{Values: []any{sqlText}}}}, nil
}

func (f *fakeSession) Probe(ctx context.Context) error { return f.probeErr }

func (f *fakeSession) DescribeTable(ctx context.Context, schema, table string) ([]session.ColumnMeta, error) {
	return []session.ColumnMeta{{Name: "ID", Type: "NUMBER", PK: true}}, nil
}

func (f *fakeSession) ListTables(ctx context.Context, schema string) ([]string, error) {
	return []string{"ACCOUNTS"}, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func fakeFactory(sessions ...*fakeSession) session.Factory {
	i := 0
	var mu sync.Mutex
	return func(ctx context.Context) (session.Session, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(sessions) {
			return &fakeSession{}, nil
		}
		s := sessions[i]
		i++
		return s, nil
	}
}

func testConfig() Config {
	return Config{
		Size:           2,
		AcquireTimeout: 50 * time.Millisecond,
		QueryTimeout:   time.Second,
		FetchChunk:     1000,
	}
}

func TestRunReturnsSessionResult(t *testing.T) {
	p := New(context.Background(), testConfig(), clock.System{}, fakeFactory(&fakeSession{}, &fakeSession{}))
	defer p.Close()

	result, slot, err := p.Run(context.Background(), "SELECT 1 FROM DUAL")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if slot < 0 {
		t.Errorf("slot = %d, want a non-negative index", slot)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("Rows = %d, want 1", len(result.Rows))
	}
}

func TestRunMarksSlotBrokenOnFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Size = 1
	failing := &fakeSession{runErr: gatewayerr.New(gatewayerr.DriverError, "connection reset")}
	p := New(context.Background(), cfg, clock.System{}, fakeFactory(failing))
	defer p.Close()

	_, _, err := p.Run(context.Background(), "SELECT 1 FROM DUAL")
	if err == nil {
		t.Fatal("Run() expected to surface the session's driver error")
	}

	h := p.Health()
	if h.Healthy != 0 || h.Unhealthy != 1 {
		t.Errorf("Health() = %+v, want the one slot marked unhealthy", h)
	}
}

// TestAcquireTimesOutWhenPoolSaturated pins the pool-saturation boundary
// scenario: every slot held BUSY past AcquireTimeout must surface
// gatewayerr.PoolTimeout rather than blocking the caller forever.
func TestAcquireTimesOutWhenPoolSaturated(t *testing.T) {
	gate := make(chan struct{}) // never closed: Run blocks until the test closes it or ctx ends
	held := &fakeSession{blockUntil: gate}

	cfg := testConfig()
	cfg.Size = 1
	cfg.AcquireTimeout = 30 * time.Millisecond
	p := New(context.Background(), cfg, clock.System{}, fakeFactory(held))
	defer func() {
		close(gate)
		p.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(context.Background(), "SELECT 1 FROM DUAL")
	}()
	time.Sleep(5 * time.Millisecond) // let the first Run claim the only slot

	_, err := p.Acquire(context.Background())
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.PoolTimeout {
		t.Fatalf("Acquire() error = %v, want PoolTimeout", err)
	}

	close(gate)
	gate = make(chan struct{}) // avoid a double close in the deferred cleanup
	wg.Wait()
}

func TestHealthReportsAllHealthyWhenNoSlotsBroken(t *testing.T) {
	p := New(context.Background(), testConfig(), clock.System{}, fakeFactory(&fakeSession{}, &fakeSession{}))
	defer p.Close()

	h := p.Health()
	if !h.AllHealthy {
		t.Errorf("AllHealthy = false, want true for a freshly constructed pool")
	}
}

func TestDescribeTableReturnsColumns(t *testing.T) {
	p := New(context.Background(), testConfig(), clock.System{}, fakeFactory(&fakeSession{}))
	defer p.Close()

	cols, err := p.DescribeTable(context.Background(), "", "ACCOUNTS")
	if err != nil {
		t.Fatalf("DescribeTable() error = %v", err)
	}
	if len(cols) != 1 || cols[0].Name != "ID" {
		t.Errorf("DescribeTable() = %+v, want one ID column", cols)
	}
}
