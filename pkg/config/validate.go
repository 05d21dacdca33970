package config

import (
	"fmt"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "pool.size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateDatabase(&cfg.Database)...)
	errs = append(errs, validateValidator(&cfg.Validator)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateApproval(&cfg.Approval)...)
	errs = append(errs, validatePool(&cfg.Pool)...)
	errs = append(errs, validateBreaker(&cfg.Breaker)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates the ambient HTTP surface configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

// validateDatabase validates the reference session's connection target.
func validateDatabase(cfg *DatabaseConfig) []FieldError {
	var errs []FieldError

	if cfg.DriverDSN == "" {
		errs = append(errs, FieldError{
			Field:   "database.driver_dsn",
			Message: "driver DSN is required",
		})
	}

	return errs
}

// validateValidator validates the admission validator configuration.
func validateValidator(cfg *ValidatorConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxComplexity <= 0 {
		errs = append(errs, FieldError{
			Field:   "validator.max_complexity",
			Message: "max complexity must be positive",
		})
	}
	if cfg.MaxRows <= 0 {
		errs = append(errs, FieldError{
			Field:   "validator.max_rows",
			Message: "max rows must be positive",
		})
	}

	return errs
}

// validateRateLimit validates the admission rate limiter configuration.
func validateRateLimit(cfg *RateLimitConfig) []FieldError {
	var errs []FieldError

	if cfg.Max <= 0 {
		errs = append(errs, FieldError{
			Field:   "rate_limit.rate_max",
			Message: "rate max must be positive",
		})
	}
	if cfg.Window <= 0 {
		errs = append(errs, FieldError{
			Field:   "rate_limit.rate_window",
			Message: "rate window must be positive",
		})
	}

	return errs
}

// validateApproval validates the preview-token configuration.
func validateApproval(cfg *ApprovalConfig) []FieldError {
	var errs []FieldError

	if cfg.TTL <= 0 {
		errs = append(errs, FieldError{
			Field:   "approval.ttl",
			Message: "TTL must be positive",
		})
	}

	return errs
}

// validatePool validates the bounded connection pool configuration.
func validatePool(cfg *PoolConfig) []FieldError {
	var errs []FieldError

	if cfg.Size <= 0 {
		errs = append(errs, FieldError{
			Field:   "pool.size",
			Message: "size must be positive",
		})
	}
	if cfg.AcquireTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "pool.acquire_timeout",
			Message: "acquire timeout must be positive",
		})
	}
	if cfg.QueryTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "pool.query_timeout",
			Message: "query timeout must be positive",
		})
	}
	if cfg.FetchChunk <= 0 {
		errs = append(errs, FieldError{
			Field:   "pool.fetch_chunk",
			Message: "fetch chunk must be positive",
		})
	}
	if cfg.HealthSweepInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "pool.health_sweep_interval",
			Message: "health sweep interval must be positive",
		})
	}

	return errs
}

// validateBreaker validates the circuit breaker thresholds.
func validateBreaker(cfg *BreakerConfig) []FieldError {
	var errs []FieldError

	if cfg.FailureThreshold <= 0 {
		errs = append(errs, FieldError{
			Field:   "circuit_breaker.failure_threshold",
			Message: "failure threshold must be positive",
		})
	}
	if cfg.RecoveryTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "circuit_breaker.recovery_timeout",
			Message: "recovery timeout must be positive",
		})
	}
	if cfg.SuccessThreshold <= 0 {
		errs = append(errs, FieldError{
			Field:   "circuit_breaker.success_threshold",
			Message: "success threshold must be positive",
		})
	}

	return errs
}

// validateAudit validates the durable audit backend configuration.
func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if cfg.Backend == "" {
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: "backend is required",
		})
	} else if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "audit.sqlite_path",
			Message: "SQLite path is required when backend is 'sqlite'",
		})
	}
	if cfg.BufferSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.buffer_size",
			Message: "buffer size must be positive",
		})
	}
	if cfg.RetentionDays <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention_days",
			Message: "retention days must be positive",
		})
	}

	return errs
}

// validateTelemetry validates logging and metrics configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	}

	return errs
}
