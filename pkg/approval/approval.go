// Package approval implements the one-shot preview-then-approve token
// workflow: issue binds a validated statement's canonical hash to a
// random token id; consume redeems it exactly once against a matching
// statement.
package approval

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"

	"oracleguard/gateway/pkg/clock"
	"oracleguard/gateway/pkg/gatewayerr"
	"oracleguard/gateway/pkg/sqlguard/normalize"
	"oracleguard/gateway/pkg/sqlguard/validator"
)

// TokenIDBytes is the width of the random token id, 256 bits.
const TokenIDBytes = 32

// entry is the registry's internal record; Token is the value handed to
// callers, entry adds the consumed flag and bound verdict the registry
// alone mutates.
type entry struct {
	canonicalHash [sha256.Size]byte
	issuedAt      time.Time
	expiresAt     time.Time
	consumed      bool
	verdict       validator.Verdict
}

// Token is the value-type credential returned by Issue. It carries no
// mutable state itself; the registry, not the token, owns consumption.
type Token struct {
	ID        string
	ExpiresAt time.Time
}

// Config carries the registry's tunables.
type Config struct {
	TTL time.Duration
}

// DefaultConfig uses a 300-second token TTL.
func DefaultConfig() Config {
	return Config{TTL: 300 * time.Second}
}

// Registry is the owned map of outstanding approval tokens, guarded by a
// single mutex. No global singleton: the dispatcher constructs and owns
// one instance.
type Registry struct {
	mu      sync.Mutex
	cfg     Config
	clk     clock.Clock
	entries map[string]*entry
}

// New constructs an empty Registry.
func New(cfg Config, clk clock.Clock) *Registry {
	return &Registry{cfg: cfg, clk: clk, entries: make(map[string]*entry)}
}

// Issue binds verdict to the canonical form of the previewed statement
// and returns a fresh one-shot token.
func (r *Registry) Issue(verdict validator.Verdict, canonical string) (Token, error) {
	id, err := randomID()
	if err != nil {
		return Token{}, err
	}

	now := r.clk.Now()
	hash := sha256.Sum256([]byte(canonical))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeExpiredLocked(now, "")

	r.entries[id] = &entry{
		canonicalHash: hash,
		issuedAt:      now,
		expiresAt:     now.Add(r.cfg.TTL),
		verdict:       verdict,
	}

	return Token{ID: id, ExpiresAt: now.Add(r.cfg.TTL)}, nil
}

// Consume redeems a token against raw_sql. It rejects if the token is
// absent, already consumed, expired, or bound to a different canonical
// form than raw produces; on success it atomically marks the token
// consumed and returns the verdict captured at issue time.
func (r *Registry) Consume(id string, raw string) (validator.Verdict, error) {
	now := r.clk.Now()
	canonical := normalize.Canonical(raw)
	hash := sha256.Sum256([]byte(canonical))

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return validator.Verdict{}, gatewayerr.New(gatewayerr.ApprovalInvalid, "unknown approval token")
	}
	if e.consumed {
		return validator.Verdict{}, gatewayerr.New(gatewayerr.ApprovalInvalid, "approval token already consumed")
	}
	if now.After(e.expiresAt) {
		delete(r.entries, id)
		r.purgeExpiredLocked(now, id)
		return validator.Verdict{}, gatewayerr.New(gatewayerr.ApprovalExpired, "approval token expired")
	}
	if subtle.ConstantTimeCompare(e.canonicalHash[:], hash[:]) != 1 {
		return validator.Verdict{}, gatewayerr.New(gatewayerr.ApprovalMismatch, "statement does not match the previewed statement")
	}

	e.consumed = true
	r.purgeExpiredLocked(now, id)
	return e.verdict, nil
}

// purgeExpiredLocked removes entries past expiry, other than skip (the
// entry Consume just looked up and handled itself — it must decide
// that entry's own invalid/expired/mismatch/success outcome before
// the sweep can delete it out from under it). Called on every
// mutation (issue and consume) so memory is bounded without a
// background sweep task. Caller must hold mu.
func (r *Registry) purgeExpiredLocked(now time.Time, skip string) {
	for id, e := range r.entries {
		if id != skip && now.After(e.expiresAt) {
			delete(r.entries, id)
		}
	}
}

// Len reports the number of outstanding (not-yet-purged) tokens, for
// metrics/inspection.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func randomID() (string, error) {
	buf := make([]byte, TokenIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", gatewayerr.New(gatewayerr.DriverError, "failed to generate approval token")
	}
	return hex.EncodeToString(buf), nil
}
