package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults,
// validates, and returns any error encountered at each stage.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	// A bool's zero value cannot mark "unset", so this default is set
	// before unmarshal and an explicit value in the file replaces it.
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides named ORACLEGUARD_SECTION_FIELD.
// Environment variables always take precedence over file-based values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ORACLEGUARD_SERVER_LISTEN_ADDRESS"); v != "" {
		cfg.Server.ListenAddress = v
	}
	if v := os.Getenv("ORACLEGUARD_SERVER_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	if v := os.Getenv("ORACLEGUARD_DATABASE_DRIVER_DSN"); v != "" {
		cfg.Database.DriverDSN = v
	}

	if v := os.Getenv("ORACLEGUARD_VALIDATOR_MAX_COMPLEXITY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Validator.MaxComplexity = i
		}
	}
	if v := os.Getenv("ORACLEGUARD_VALIDATOR_MAX_ROWS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Validator.MaxRows = i
		}
	}
	if v := os.Getenv("ORACLEGUARD_VALIDATOR_ALLOW_CROSS_JOINS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Validator.AllowCrossJoins = b
		}
	}

	if v := os.Getenv("ORACLEGUARD_RATE_LIMIT_MAX"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Max = i
		}
	}
	if v := os.Getenv("ORACLEGUARD_RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RateLimit.Window = d
		}
	}

	if v := os.Getenv("ORACLEGUARD_APPROVAL_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Approval.TTL = d
		}
	}

	if v := os.Getenv("ORACLEGUARD_POOL_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Pool.Size = i
		}
	}
	if v := os.Getenv("ORACLEGUARD_POOL_ACQUIRE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pool.AcquireTimeout = d
		}
	}
	if v := os.Getenv("ORACLEGUARD_POOL_QUERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pool.QueryTimeout = d
		}
	}
	if v := os.Getenv("ORACLEGUARD_POOL_FETCH_CHUNK"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Pool.FetchChunk = i
		}
	}
	if v := os.Getenv("ORACLEGUARD_POOL_HEALTH_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pool.HealthSweepInterval = d
		}
	}

	if v := os.Getenv("ORACLEGUARD_CIRCUIT_BREAKER_FAILURE_THRESHOLD"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Breaker.FailureThreshold = i
		}
	}
	if v := os.Getenv("ORACLEGUARD_CIRCUIT_BREAKER_RECOVERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Breaker.RecoveryTimeout = d
		}
	}
	if v := os.Getenv("ORACLEGUARD_CIRCUIT_BREAKER_SUCCESS_THRESHOLD"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Breaker.SuccessThreshold = i
		}
	}

	if v := os.Getenv("ORACLEGUARD_AUDIT_BACKEND"); v != "" {
		cfg.Audit.Backend = v
	}
	if v := os.Getenv("ORACLEGUARD_AUDIT_SQLITE_PATH"); v != "" {
		cfg.Audit.SQLitePath = v
	}
	if v := os.Getenv("ORACLEGUARD_AUDIT_BUFFER_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Audit.BufferSize = i
		}
	}
	if v := os.Getenv("ORACLEGUARD_AUDIT_RETENTION_DAYS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Audit.RetentionDays = i
		}
	}

	if v := os.Getenv("ORACLEGUARD_TELEMETRY_LOGGING_LEVEL"); v != "" {
		cfg.Telemetry.Logging.Level = v
	}
	if v := os.Getenv("ORACLEGUARD_TELEMETRY_LOGGING_FORMAT"); v != "" {
		cfg.Telemetry.Logging.Format = v
	}
	if v := os.Getenv("ORACLEGUARD_TELEMETRY_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("ORACLEGUARD_TELEMETRY_METRICS_PATH"); v != "" {
		cfg.Telemetry.Metrics.Path = v
	}
}
