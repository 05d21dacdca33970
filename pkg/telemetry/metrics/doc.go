// Package metrics provides Prometheus metrics for the gateway's
// admission pipeline.
//
// # Overview
//
// The collector exposes one metric per pipeline stage:
//
//   - oracleguard_pool_slot_state: connection pool slot state by index
//   - oracleguard_breaker_phase: circuit breaker phase
//   - oracleguard_rate_limit_{admitted,rejected}_total: rate limiter decisions
//   - oracleguard_approval_{issued,consumed,rejected}_total: token lifecycle
//   - oracleguard_validator_rejected_total: statements rejected, by rule
//   - oracleguard_validator_complexity_score: complexity score histogram
//   - oracleguard_dispatcher_duration_seconds / outcome_total: per-op latency
//     and outcome, labeled by operation name
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics.Enabled, nil)
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Every Record*/Set* method is a no-op when the collector was
// constructed with enabled=false, so call sites never need their own
// enabled checks.
package metrics
