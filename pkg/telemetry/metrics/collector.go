package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the gateway's single Prometheus registration point: one
// struct, one constructor, narrow Record*/Update* methods, and
// Registry()/Handler() for exposition. Its vocabulary is the admission
// pipeline's own: pool slots, breaker phase, rate-limiter
// admits/rejects, approval issue/consume, validator complexity,
// dispatcher outcomes.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	poolSlotState     *prometheus.GaugeVec
	breakerPhase      prometheus.Gauge
	rateLimitAdmitted prometheus.Counter
	rateLimitRejected prometheus.Counter
	approvalIssued    prometheus.Counter
	approvalConsumed  prometheus.Counter
	approvalRejected  *prometheus.CounterVec
	validatorRejected *prometheus.CounterVec
	complexityScore   prometheus.Histogram
	dispatchDuration  *prometheus.HistogramVec
	dispatchOutcome   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers all of its metrics
// against registry. If registry is nil, a fresh prometheus.Registry is
// created (callers embedding the gateway in a larger process should
// pass their own to avoid colliding with other registrations).
func NewCollector(enabled bool, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	const ns = "oracleguard"

	c := &Collector{
		enabled:  enabled,
		registry: registry,

		poolSlotState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "pool",
			Name:      "slot_state",
			Help:      "Connection pool slot state (1=idle, 2=busy, 3=broken) by slot index.",
		}, []string{"slot"}),

		breakerPhase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "breaker",
			Name:      "phase",
			Help:      "Circuit breaker phase (0=closed, 1=half_open, 2=open).",
		}),

		rateLimitAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "rate_limit",
			Name:      "admitted_total",
			Help:      "Total requests admitted by the rate limiter.",
		}),
		rateLimitRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "rate_limit",
			Name:      "rejected_total",
			Help:      "Total requests rejected by the rate limiter.",
		}),

		approvalIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "approval",
			Name:      "issued_total",
			Help:      "Total approval tokens issued by preview_query.",
		}),
		approvalConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "approval",
			Name:      "consumed_total",
			Help:      "Total approval tokens consumed by query_oracle.",
		}),
		approvalRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "approval",
			Name:      "rejected_total",
			Help:      "Total approval token rejections by reason.",
		}, []string{"reason"}),

		validatorRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "validator",
			Name:      "rejected_total",
			Help:      "Total statements rejected by the validator, by rule.",
		}, []string{"rule"}),
		complexityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "validator",
			Name:      "complexity_score",
			Help:      "Computed complexity score of admitted statements.",
			Buckets:   []float64{5, 10, 15, 20, 25, 30, 40, 50, 75, 100},
		}),

		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "dispatcher",
			Name:      "duration_seconds",
			Help:      "Duration of a dispatcher operation by op.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		dispatchOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "dispatcher",
			Name:      "outcome_total",
			Help:      "Total dispatcher operations by op and outcome.",
		}, []string{"op", "outcome"}),
	}

	registry.MustRegister(
		c.poolSlotState,
		c.breakerPhase,
		c.rateLimitAdmitted,
		c.rateLimitRejected,
		c.approvalIssued,
		c.approvalConsumed,
		c.approvalRejected,
		c.validatorRejected,
		c.complexityScore,
		c.dispatchDuration,
		c.dispatchOutcome,
	)

	return c
}

// Gauge values for pool.SlotState's Idle, Busy and Broken states.
// pool.SlotState is a string type, so the numbers are defined here,
// keeping metrics free of a dependency on pkg/pool.
const (
	slotStateIdle   = 1
	slotStateBusy   = 2
	slotStateBroken = 3
)

// SetPoolSlotIdle records slot as idle.
func (c *Collector) SetPoolSlotIdle(slot int) { c.setPoolSlot(slot, slotStateIdle) }

// SetPoolSlotBusy records slot as busy.
func (c *Collector) SetPoolSlotBusy(slot int) { c.setPoolSlot(slot, slotStateBusy) }

// SetPoolSlotBroken records slot as broken.
func (c *Collector) SetPoolSlotBroken(slot int) { c.setPoolSlot(slot, slotStateBroken) }

func (c *Collector) setPoolSlot(slot, state int) {
	if c == nil || !c.enabled {
		return
	}
	c.poolSlotState.WithLabelValues(strconv.Itoa(slot)).Set(float64(state))
}

// Gauge values for breaker.Phase's Closed, HalfOpen and Open phases;
// breaker.Phase is also a string type, so the numbers are defined here.
const (
	breakerPhaseClosed   = 0
	breakerPhaseHalfOpen = 1
	breakerPhaseOpen     = 2
)

// SetBreakerClosed records the breaker as closed.
func (c *Collector) SetBreakerClosed() { c.setBreakerPhase(breakerPhaseClosed) }

// SetBreakerHalfOpen records the breaker as half-open.
func (c *Collector) SetBreakerHalfOpen() { c.setBreakerPhase(breakerPhaseHalfOpen) }

// SetBreakerOpen records the breaker as open.
func (c *Collector) SetBreakerOpen() { c.setBreakerPhase(breakerPhaseOpen) }

func (c *Collector) setBreakerPhase(phase int) {
	if c == nil || !c.enabled {
		return
	}
	c.breakerPhase.Set(float64(phase))
}

// RecordRateLimit records a single rate limiter admission decision.
func (c *Collector) RecordRateLimit(admitted bool) {
	if c == nil || !c.enabled {
		return
	}
	if admitted {
		c.rateLimitAdmitted.Inc()
	} else {
		c.rateLimitRejected.Inc()
	}
}

// RecordApprovalIssued records a preview_query issuing a token.
func (c *Collector) RecordApprovalIssued() {
	if c == nil || !c.enabled {
		return
	}
	c.approvalIssued.Inc()
}

// RecordApprovalConsumed records a query_oracle successfully consuming
// a token.
func (c *Collector) RecordApprovalConsumed() {
	if c == nil || !c.enabled {
		return
	}
	c.approvalConsumed.Inc()
}

// RecordApprovalRejected records a token rejection by reason: "missing"
// for an absent token, otherwise the gatewayerr kind of the rejection
// (approval_invalid, approval_expired, approval_mismatch), or
// "rejected" when the error carries no kind.
func (c *Collector) RecordApprovalRejected(reason string) {
	if c == nil || !c.enabled {
		return
	}
	c.approvalRejected.WithLabelValues(reason).Inc()
}

// RecordValidatorRejected records a statement rejected by a named rule.
func (c *Collector) RecordValidatorRejected(rule string) {
	if c == nil || !c.enabled {
		return
	}
	c.validatorRejected.WithLabelValues(rule).Inc()
}

// RecordComplexity records the computed complexity score of an
// admitted statement.
func (c *Collector) RecordComplexity(score int) {
	if c == nil || !c.enabled {
		return
	}
	c.complexityScore.Observe(float64(score))
}

// RecordDispatch records the duration and outcome of one dispatcher
// operation (preview_query, query_oracle, describe_table, list_tables).
func (c *Collector) RecordDispatch(op, outcome string, duration time.Duration) {
	if c == nil || !c.enabled {
		return
	}
	c.dispatchDuration.WithLabelValues(op).Observe(duration.Seconds())
	c.dispatchOutcome.WithLabelValues(op, outcome).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
