// Package dispatcher exposes the four operations callers invoke
// (preview, execute, describe, list), orders the admission pipeline in
// front of each, and emits audit events for every branch.
package dispatcher

import (
	"context"
	"time"

	"oracleguard/gateway/pkg/approval"
	"oracleguard/gateway/pkg/audit"
	"oracleguard/gateway/pkg/breaker"
	"oracleguard/gateway/pkg/clock"
	"oracleguard/gateway/pkg/gatewayerr"
	"oracleguard/gateway/pkg/pool"
	"oracleguard/gateway/pkg/ratelimit"
	"oracleguard/gateway/pkg/session"
	"oracleguard/gateway/pkg/sqlguard/identifier"
	"oracleguard/gateway/pkg/sqlguard/validator"
	"oracleguard/gateway/pkg/telemetry/metrics"
)

// Dispatcher owns the validator, rate limiter, approval registry, and
// circuit breaker exclusively; the pool owns its own slots.
type Dispatcher struct {
	limiter   *ratelimit.Limiter
	registry  *approval.Registry
	breaker   *breaker.Breaker
	pool      *pool.Pool
	validator *validator.Validator
	emitter   *audit.Emitter
	clk       clock.Clock
	metrics   *metrics.Collector
}

// New constructs a Dispatcher wiring together one instance of each
// pipeline component. No global singletons: callers own the returned
// value and may construct as many independent Dispatchers as needed
// (e.g. one per process). collector may be nil, in which case metrics
// recording is a no-op.
func New(
	limiter *ratelimit.Limiter,
	registry *approval.Registry,
	brk *breaker.Breaker,
	p *pool.Pool,
	v *validator.Validator,
	emitter *audit.Emitter,
	clk clock.Clock,
	collector *metrics.Collector,
) *Dispatcher {
	return &Dispatcher{
		limiter:   limiter,
		registry:  registry,
		breaker:   brk,
		pool:      p,
		validator: v,
		emitter:   emitter,
		clk:       clk,
		metrics:   collector,
	}
}

// PreviewResult is the response to a preview_query operation.
type PreviewResult struct {
	Verdict validator.Verdict
	Token   *approval.Token
}

// ExecuteResult is the response to a query_oracle operation.
type ExecuteResult struct {
	Rows     session.Result
	RowCount int
	Verdict  validator.Verdict
}

// DescribeResult is the response to a describe_table operation.
type DescribeResult struct {
	Columns []session.ColumnMeta
}

// ListResult is the response to a list_tables operation.
type ListResult struct {
	Tables []string
}

func (d *Dispatcher) emit(ctx context.Context, ev audit.Event) {
	ev.TS = d.clk.Now()
	// Audit emission must never fail the caller's actual request. An
	// Emit error (the caller's context ending before the event is
	// enqueued) is discarded here and is not logged.
	_ = d.emitter.Emit(ctx, ev)
}

func (d *Dispatcher) checkRateLimit(ctx context.Context, op string) error {
	ok, retryAfter := d.limiter.Allow()
	d.metrics.RecordRateLimit(ok)
	if !ok {
		d.emit(ctx, audit.Event{Kind: audit.RateLimit, Op: op, Reason: "rate limit exceeded"})
		return gatewayerr.NewWithRetry(gatewayerr.RateLimited, "rate limit exceeded", retryAfter)
	}
	return nil
}

// recordDispatch observes the duration and outcome of one dispatcher
// operation. outcome is the gatewayerr kind when err carries one, else
// "success" or "error".
func (d *Dispatcher) recordDispatch(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		if ge, ok := gatewayerr.As(err); ok {
			outcome = string(ge.Kind)
		} else {
			outcome = "error"
		}
	}
	d.metrics.RecordDispatch(op, outcome, d.clk.Now().Sub(start))
}

// recordBreakerPhase mirrors the breaker's current phase into the
// gauge, called wherever the dispatcher already observes a phase
// transition via Permit/RecordSuccess/RecordFailure. When the phase
// actually changed since before, it also emits the matching
// CIRCUIT_HALF_OPEN or CIRCUIT_CLOSE audit event. CIRCUIT_OPEN is
// emitted by the caller directly: every operation emits it on a
// rejected Permit, and Execute also emits it after a failure that
// leaves the breaker OPEN. Describe and List do not emit it when their
// own failure trips the breaker.
func (d *Dispatcher) recordBreakerPhase(ctx context.Context, op string, before breaker.Phase) {
	after := d.breaker.Snapshot().Phase
	switch after {
	case breaker.Closed:
		d.metrics.SetBreakerClosed()
	case breaker.HalfOpen:
		d.metrics.SetBreakerHalfOpen()
	case breaker.Open:
		d.metrics.SetBreakerOpen()
	}

	if after == before {
		return
	}
	switch after {
	case breaker.HalfOpen:
		d.emit(ctx, audit.Event{Kind: audit.CircuitHalfOpen, Op: op, Phase: string(after)})
	case breaker.Closed:
		d.emit(ctx, audit.Event{Kind: audit.CircuitClose, Op: op, Phase: string(after)})
	}
}

// Preview runs: rate-limit; normalize; validate; if admitted, issue
// token; emit AUDIT(ATTEMPT), AUDIT(BLOCK|APPROVAL_ISSUE).
func (d *Dispatcher) Preview(ctx context.Context, sql string) (result PreviewResult, err error) {
	const op = "preview_query"
	start := d.clk.Now()
	defer func() { d.recordDispatch(op, start, err) }()

	d.emit(ctx, audit.Event{Kind: audit.Attempt, Op: op})

	if err = d.checkRateLimit(ctx, op); err != nil {
		return PreviewResult{}, err
	}

	verdict := d.validator.Validate(sql)
	if !verdict.Admitted {
		d.metrics.RecordValidatorRejected(verdict.Reason)
		d.emit(ctx, audit.Event{Kind: audit.Block, Op: op, Reason: verdict.Reason, Complexity: verdict.Complexity})
		err = gatewayerr.New(gatewayerr.ValidationRejected, verdict.Reason)
		return PreviewResult{Verdict: verdict}, err
	}
	d.metrics.RecordComplexity(verdict.Complexity)

	token, issueErr := d.registry.Issue(verdict, verdict.Canonical)
	if issueErr != nil {
		err = issueErr
		return PreviewResult{}, err
	}
	d.metrics.RecordApprovalIssued()

	d.emit(ctx, audit.Event{Kind: audit.ApprovalIssue, Op: op, Complexity: verdict.Complexity, TokenID: truncateToken(token.ID)})
	return PreviewResult{Verdict: verdict, Token: &token}, nil
}

// Execute runs: rate-limit; consume(token, sql); re-validate; circuit
// permit; pool run; circuit record; emit AUDIT for every branch. A
// missing, wrong, expired, or mismatched token rejects before any
// database call.
func (d *Dispatcher) Execute(ctx context.Context, sql, tokenID string) (result ExecuteResult, err error) {
	const op = "query_oracle"
	start := d.clk.Now()
	defer func() { d.recordDispatch(op, start, err) }()

	d.emit(ctx, audit.Event{Kind: audit.Attempt, Op: op})

	if err = d.checkRateLimit(ctx, op); err != nil {
		return ExecuteResult{}, err
	}

	if tokenID == "" {
		d.metrics.RecordApprovalRejected("missing")
		d.emit(ctx, audit.Event{Kind: audit.ApprovalReject, Op: op, Reason: "missing approval token"})
		err = gatewayerr.New(gatewayerr.ApprovalRequired, "missing approval token")
		return ExecuteResult{}, err
	}

	verdict, consumeErr := d.registry.Consume(tokenID, sql)
	if consumeErr != nil {
		reason := "rejected"
		if ge, ok := gatewayerr.As(consumeErr); ok {
			reason = string(ge.Kind)
		}
		d.metrics.RecordApprovalRejected(reason)
		d.emit(ctx, audit.Event{Kind: audit.ApprovalReject, Op: op, Reason: consumeErr.Error(), TokenID: truncateToken(tokenID)})
		err = consumeErr
		return ExecuteResult{}, err
	}
	d.metrics.RecordApprovalConsumed()
	d.emit(ctx, audit.Event{Kind: audit.ApprovalConsume, Op: op, TokenID: truncateToken(tokenID), Complexity: verdict.Complexity})

	// Defense in depth: re-validate in case the statement was tampered
	// with between preview and execute. The registry's hash compare
	// already rejects a changed canonical form (approval_mismatch); this
	// re-validation additionally guards against a canonical form that
	// matches but whose effective_sql needs recomputing against the
	// caller's exact raw_sql, not the previewed one.
	reverdict := d.validator.Validate(sql)
	if !reverdict.Admitted {
		d.metrics.RecordValidatorRejected(reverdict.Reason)
		d.emit(ctx, audit.Event{Kind: audit.Block, Op: op, Reason: reverdict.Reason})
		err = gatewayerr.New(gatewayerr.ValidationRejected, reverdict.Reason)
		return ExecuteResult{}, err
	}

	beforePermit := d.breaker.Snapshot().Phase
	if permitErr := d.breaker.Permit(); permitErr != nil {
		d.recordBreakerPhase(ctx, op, beforePermit)
		d.emit(ctx, audit.Event{Kind: audit.CircuitOpen, Op: op, Phase: string(breaker.Open)})
		err = permitErr
		return ExecuteResult{}, err
	}
	d.recordBreakerPhase(ctx, op, beforePermit)

	beforeOutcome := d.breaker.Snapshot().Phase
	queryResult, slot, runErr := d.pool.Run(ctx, reverdict.EffectiveSQL)
	if runErr != nil {
		d.breaker.RecordFailure()
		d.recordBreakerPhase(ctx, op, beforeOutcome)
		d.metrics.SetPoolSlotBroken(slot)
		d.emit(ctx, audit.Event{Kind: audit.Failure, Op: op, Reason: runErr.Error(), Slot: slot})
		if snap := d.breaker.Snapshot(); snap.Phase == breaker.Open {
			d.emit(ctx, audit.Event{Kind: audit.CircuitOpen, Op: op, Phase: string(breaker.Open)})
		}
		err = runErr
		return ExecuteResult{}, err
	}

	d.breaker.RecordSuccess()
	d.recordBreakerPhase(ctx, op, beforeOutcome)
	d.metrics.SetPoolSlotIdle(slot)
	d.emit(ctx, audit.Event{Kind: audit.Success, Op: op, Rows: len(queryResult.Rows), Slot: slot, Complexity: reverdict.Complexity})

	return ExecuteResult{Rows: queryResult, RowCount: len(queryResult.Rows), Verdict: reverdict}, nil
}

// Describe runs: rate-limit; identifier check; circuit permit; pool
// metadata lookup. No token required because no free-form SQL is
// accepted.
func (d *Dispatcher) Describe(ctx context.Context, schema, table string) (result DescribeResult, err error) {
	const op = "describe_table"
	start := d.clk.Now()
	defer func() { d.recordDispatch(op, start, err) }()

	d.emit(ctx, audit.Event{Kind: audit.Attempt, Op: op})

	if err = d.checkRateLimit(ctx, op); err != nil {
		return DescribeResult{}, err
	}
	if !identifier.Valid(table) || (schema != "" && !identifier.Valid(schema)) {
		d.emit(ctx, audit.Event{Kind: audit.Block, Op: op, Reason: "bad identifier"})
		err = gatewayerr.New(gatewayerr.BadIdentifier, "invalid schema or table identifier")
		return DescribeResult{}, err
	}
	beforePermit := d.breaker.Snapshot().Phase
	if permitErr := d.breaker.Permit(); permitErr != nil {
		d.recordBreakerPhase(ctx, op, beforePermit)
		d.emit(ctx, audit.Event{Kind: audit.CircuitOpen, Op: op, Phase: string(breaker.Open)})
		err = permitErr
		return DescribeResult{}, err
	}
	d.recordBreakerPhase(ctx, op, beforePermit)

	beforeOutcome := d.breaker.Snapshot().Phase
	cols, descErr := d.pool.DescribeTable(ctx, schema, table)
	if descErr != nil {
		d.breaker.RecordFailure()
		d.recordBreakerPhase(ctx, op, beforeOutcome)
		d.emit(ctx, audit.Event{Kind: audit.Failure, Op: op, Reason: descErr.Error()})
		err = descErr
		return DescribeResult{}, err
	}
	d.breaker.RecordSuccess()
	d.recordBreakerPhase(ctx, op, beforeOutcome)
	d.emit(ctx, audit.Event{Kind: audit.Success, Op: op})
	return DescribeResult{Columns: cols}, nil
}

// List runs: rate-limit; identifier check on schema; circuit permit;
// pool metadata lookup.
func (d *Dispatcher) List(ctx context.Context, schema string) (result ListResult, err error) {
	const op = "list_tables"
	start := d.clk.Now()
	defer func() { d.recordDispatch(op, start, err) }()

	d.emit(ctx, audit.Event{Kind: audit.Attempt, Op: op})

	if err = d.checkRateLimit(ctx, op); err != nil {
		return ListResult{}, err
	}
	if schema != "" && !identifier.Valid(schema) {
		d.emit(ctx, audit.Event{Kind: audit.Block, Op: op, Reason: "bad identifier"})
		err = gatewayerr.New(gatewayerr.BadIdentifier, "invalid schema identifier")
		return ListResult{}, err
	}
	beforePermit := d.breaker.Snapshot().Phase
	if permitErr := d.breaker.Permit(); permitErr != nil {
		d.recordBreakerPhase(ctx, op, beforePermit)
		d.emit(ctx, audit.Event{Kind: audit.CircuitOpen, Op: op, Phase: string(breaker.Open)})
		err = permitErr
		return ListResult{}, err
	}
	d.recordBreakerPhase(ctx, op, beforePermit)

	beforeOutcome := d.breaker.Snapshot().Phase
	tables, listErr := d.pool.ListTables(ctx, schema)
	if listErr != nil {
		d.breaker.RecordFailure()
		d.recordBreakerPhase(ctx, op, beforeOutcome)
		d.emit(ctx, audit.Event{Kind: audit.Failure, Op: op, Reason: listErr.Error()})
		err = listErr
		return ListResult{}, err
	}
	d.breaker.RecordSuccess()
	d.recordBreakerPhase(ctx, op, beforeOutcome)
	d.emit(ctx, audit.Event{Kind: audit.Success, Op: op})
	return ListResult{Tables: tables}, nil
}

// truncateToken shortens a token id for audit records — the full
// token is never written to the audit trail.
func truncateToken(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
