// Package config is the gateway's single typed configuration surface:
// a root Config struct with yaml-tagged nested sections,
// ApplyDefaults/Validate/LoadConfig* free functions rather than
// methods, and ORACLEGUARD_SECTION_FIELD-style environment overrides.
package config

import "time"

// Config is the root configuration structure for the gateway.
type Config struct {
	// Server contains the ambient HTTP surface (metrics/health), not the
	// tool-invocation protocol itself.
	Server ServerConfig `yaml:"server"`

	// Database names where the reference session factory connects.
	// Credentials are never stored here; they are read from the
	// environment at startup (see env.go).
	Database DatabaseConfig `yaml:"database"`

	// Validator controls the admission validator and complexity scorer.
	Validator ValidatorConfig `yaml:"validator"`

	// RateLimit controls the shared sliding-window admission cap.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Approval controls the preview-token TTL.
	Approval ApprovalConfig `yaml:"approval"`

	// Pool controls the bounded connection pool.
	Pool PoolConfig `yaml:"pool"`

	// Breaker controls the circuit breaker thresholds.
	Breaker BreakerConfig `yaml:"circuit_breaker"`

	// Audit controls the durable audit backend.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry controls logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig controls the ambient HTTP surface (metrics/health).
type ServerConfig struct {
	// ListenAddress is the host:port the metrics/health HTTP server
	// binds to. Default "127.0.0.1:9090".
	ListenAddress string `yaml:"listen_address"`

	// ShutdownTimeout bounds graceful shutdown. Default 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig names the reference session's connection target.
type DatabaseConfig struct {
	// DriverDSN is the reference session's DSN (e.g. a sqlite file path
	// or "file::memory:?cache=shared"). The production Oracle DSN is
	// assembled from the environment, not this field.
	DriverDSN string `yaml:"driver_dsn"`
}

// ValidatorConfig mirrors spec §6's recognized validator options.
type ValidatorConfig struct {
	MaxComplexity   int  `yaml:"max_complexity"`
	MaxRows         int  `yaml:"max_rows"`
	AllowCrossJoins bool `yaml:"allow_cross_joins"`
}

// RateLimitConfig mirrors spec §6's rate_max/rate_window.
type RateLimitConfig struct {
	Max    int           `yaml:"rate_max"`
	Window time.Duration `yaml:"rate_window"`
}

// ApprovalConfig mirrors spec §6's approval_ttl_seconds.
type ApprovalConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// PoolConfig mirrors spec §6's pool_size/acquire_timeout_seconds/
// query_timeout_seconds/fetch_chunk, plus the ambient background
// health-sweep interval.
type PoolConfig struct {
	Size                int           `yaml:"size"`
	AcquireTimeout      time.Duration `yaml:"acquire_timeout"`
	QueryTimeout        time.Duration `yaml:"query_timeout"`
	FetchChunk          int           `yaml:"fetch_chunk"`
	HealthSweepInterval time.Duration `yaml:"health_sweep_interval"`
}

// BreakerConfig mirrors spec §6's failure_threshold/
// recovery_timeout_seconds/success_threshold.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`
	SuccessThreshold int           `yaml:"success_threshold"`
}

// AuditConfig controls the durable audit backend.
type AuditConfig struct {
	Backend       string `yaml:"backend"` // "memory" | "sqlite"
	SQLitePath    string `yaml:"sqlite_path"`
	BufferSize    int    `yaml:"buffer_size"`
	RetentionDays int    `yaml:"retention_days"`
}

// TelemetryConfig controls logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `yaml:"format"` // "json" | "text"
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
