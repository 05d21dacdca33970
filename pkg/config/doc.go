// Package config provides configuration management for the gateway.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ORACLEGUARD_SECTION_FIELD.
// For example:
//
//   - ORACLEGUARD_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - ORACLEGUARD_VALIDATOR_MAX_COMPLEXITY overrides validator.max_complexity
//   - ORACLEGUARD_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
// Database credentials are a separate concern handled by env.go, never by
// this file-driven surface: see ORACLEGUARD_DB_DSN, ORACLEGUARD_DB_USER, and
// ORACLEGUARD_DB_PASSWORD.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton pattern:
//
//	// At application startup
//	if err := config.Initialize("config.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the application
//	cfg := config.GetConfig()
//	fmt.Println(cfg.Server.ListenAddress)
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., database DSN, audit backend)
//   - Range validation (e.g., pool size, thresholds must be positive)
//   - Format validation (e.g., recognized backend/level/format names)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - validator.max_complexity: max complexity must be positive
//	  - audit.sqlite_path: SQLite path is required when backend is 'sqlite'
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  listen_address: "127.0.0.1:9090"
//
//	database:
//	  driver_dsn: "file::memory:?cache=shared"
//
//	validator:
//	  max_complexity: 50
//	  max_rows: 10000
//
//	pool:
//	  size: 4
//
//	audit:
//	  backend: "sqlite"
//	  sqlite_path: "data/audit.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses read-write
// locks to allow concurrent reads while protecting against concurrent writes during
// reload operations.
package config
