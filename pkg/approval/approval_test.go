package approval

import (
	"testing"
	"time"

	"oracleguard/gateway/pkg/clock"
	"oracleguard/gateway/pkg/gatewayerr"
	"oracleguard/gateway/pkg/sqlguard/validator"
)

func newRegistry(ttl time.Duration) (*Registry, *clock.Fixed) {
	clk := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(Config{TTL: ttl}, clk), clk
}

func TestIssueThenConsumeHappyPath(t *testing.T) {
	r, _ := newRegistry(300 * time.Second)
	verdict := validator.Verdict{Admitted: true, Canonical: "SELECT * FROM ACCOUNTS"}

	tok, err := r.Issue(verdict, verdict.Canonical)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if tok.ID == "" {
		t.Fatal("Issue() returned an empty token id")
	}

	got, err := r.Consume(tok.ID, "select * from accounts")
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if got.Canonical != verdict.Canonical {
		t.Errorf("Consume() returned verdict for a different canonical form: %q", got.Canonical)
	}
}

func TestConsumeTwiceRejectsSecondAttempt(t *testing.T) {
	r, _ := newRegistry(300 * time.Second)
	verdict := validator.Verdict{Admitted: true, Canonical: "SELECT * FROM ACCOUNTS"}
	tok, _ := r.Issue(verdict, verdict.Canonical)

	if _, err := r.Consume(tok.ID, "select * from accounts"); err != nil {
		t.Fatalf("first Consume() error = %v", err)
	}

	_, err := r.Consume(tok.ID, "select * from accounts")
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ApprovalInvalid {
		t.Fatalf("second Consume() error = %v, want ApprovalInvalid", err)
	}
}

func TestConsumeUnknownTokenReturnsApprovalInvalid(t *testing.T) {
	r, _ := newRegistry(300 * time.Second)

	_, err := r.Consume("does-not-exist", "select * from accounts")
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ApprovalInvalid {
		t.Fatalf("Consume() error = %v, want ApprovalInvalid", err)
	}
}

func TestConsumeMismatchedStatementReturnsApprovalMismatch(t *testing.T) {
	r, _ := newRegistry(300 * time.Second)
	verdict := validator.Verdict{Admitted: true, Canonical: "SELECT * FROM ACCOUNTS"}
	tok, _ := r.Issue(verdict, verdict.Canonical)

	_, err := r.Consume(tok.ID, "select * from transactions")
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ApprovalMismatch {
		t.Fatalf("Consume() error = %v, want ApprovalMismatch", err)
	}
}

// TestConsumeExpiredTokenReturnsApprovalExpired pins the boundary
// between an unknown token and an expired one: the registry must
// distinguish the two, not let its internal purge sweep delete an
// expired entry before Consume gets a chance to classify it.
func TestConsumeExpiredTokenReturnsApprovalExpired(t *testing.T) {
	r, clk := newRegistry(10 * time.Second)
	verdict := validator.Verdict{Admitted: true, Canonical: "SELECT * FROM ACCOUNTS"}
	tok, _ := r.Issue(verdict, verdict.Canonical)

	clk.Advance(11 * time.Second)

	_, err := r.Consume(tok.ID, "select * from accounts")
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ApprovalExpired {
		t.Fatalf("Consume() error = %v, want ApprovalExpired", err)
	}
}

func TestExpiredTokenIsPurgedOnNextMutation(t *testing.T) {
	r, clk := newRegistry(10 * time.Second)
	verdict := validator.Verdict{Admitted: true, Canonical: "SELECT * FROM ACCOUNTS"}
	tok, _ := r.Issue(verdict, verdict.Canonical)

	clk.Advance(11 * time.Second)
	if _, err := r.Consume(tok.ID, "select * from accounts"); err == nil {
		t.Fatal("expected the expired token's own Consume to fail")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after the expired entry's own Consume handled it", r.Len())
	}
}

// TestSweepDuringAnotherConsumePurgesAStaleEntryOutright confirms the
// skip parameter only protects the entry Consume is actively deciding
// for itself; a different, already-expired entry swept during someone
// else's mutation is gone outright, and a later Consume against it sees
// an unknown token rather than a second expiry classification.
func TestSweepDuringAnotherConsumePurgesAStaleEntryOutright(t *testing.T) {
	r, clk := newRegistry(10 * time.Second)
	verdict := validator.Verdict{Admitted: true, Canonical: "SELECT * FROM ACCOUNTS"}

	stale, _ := r.Issue(verdict, verdict.Canonical)
	clk.Advance(5 * time.Second)
	fresh, _ := r.Issue(verdict, verdict.Canonical)
	clk.Advance(6 * time.Second)

	if _, err := r.Consume(fresh.ID, "select * from accounts"); err != nil {
		t.Fatalf("Consume(fresh) error = %v", err)
	}

	_, err := r.Consume(stale.ID, "select * from accounts")
	ge, ok := gatewayerr.As(err)
	if !ok || ge.Kind != gatewayerr.ApprovalInvalid {
		t.Fatalf("Consume(stale) error = %v, want ApprovalInvalid once the sweep from Consume(fresh) already purged it", err)
	}
}
