package config

import "time"

// Default values for configuration fields.
const (
	DefaultListenAddress   = "127.0.0.1:9090"
	DefaultShutdownTimeout = 10 * time.Second

	DefaultDriverDSN = "file::memory:?cache=shared"

	DefaultMaxComplexity   = 50
	DefaultMaxRows         = 10000
	DefaultAllowCrossJoins = false

	DefaultRateMax    = 60
	DefaultRateWindow = 60 * time.Second

	DefaultApprovalTTL = 300 * time.Second

	DefaultPoolSize                = 2
	DefaultAcquireTimeout          = 30 * time.Second
	DefaultQueryTimeout            = 5 * time.Second
	DefaultFetchChunk              = 1000
	DefaultHealthSweepInterval     = 15 * time.Second

	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second
	DefaultSuccessThreshold = 2

	DefaultAuditBackend       = "memory"
	DefaultAuditSQLitePath    = "data/audit.db"
	DefaultAuditBufferSize    = 1000
	DefaultAuditRetentionDays = 90

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults fills any zero-valued field with its default. LoadConfig
// calls it once, after YAML unmarshal and before any env overrides are
// applied, so a partially specified file still yields a fully populated
// Config.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Database.DriverDSN == "" {
		cfg.Database.DriverDSN = DefaultDriverDSN
	}

	if cfg.Validator.MaxComplexity == 0 {
		cfg.Validator.MaxComplexity = DefaultMaxComplexity
	}
	if cfg.Validator.MaxRows == 0 {
		cfg.Validator.MaxRows = DefaultMaxRows
	}

	if cfg.RateLimit.Max == 0 {
		cfg.RateLimit.Max = DefaultRateMax
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateWindow
	}

	if cfg.Approval.TTL == 0 {
		cfg.Approval.TTL = DefaultApprovalTTL
	}

	if cfg.Pool.Size == 0 {
		cfg.Pool.Size = DefaultPoolSize
	}
	if cfg.Pool.AcquireTimeout == 0 {
		cfg.Pool.AcquireTimeout = DefaultAcquireTimeout
	}
	if cfg.Pool.QueryTimeout == 0 {
		cfg.Pool.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.Pool.FetchChunk == 0 {
		cfg.Pool.FetchChunk = DefaultFetchChunk
	}
	if cfg.Pool.HealthSweepInterval == 0 {
		cfg.Pool.HealthSweepInterval = DefaultHealthSweepInterval
	}

	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Breaker.RecoveryTimeout == 0 {
		cfg.Breaker.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if cfg.Breaker.SuccessThreshold == 0 {
		cfg.Breaker.SuccessThreshold = DefaultSuccessThreshold
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = DefaultAuditSQLitePath
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = DefaultAuditBufferSize
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = DefaultAuditRetentionDays
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
