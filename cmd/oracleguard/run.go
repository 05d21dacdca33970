package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"oracleguard/gateway/pkg/approval"
	"oracleguard/gateway/pkg/audit"
	auditstorage "oracleguard/gateway/pkg/audit/storage"
	"oracleguard/gateway/pkg/breaker"
	"oracleguard/gateway/pkg/cli"
	"oracleguard/gateway/pkg/clock"
	"oracleguard/gateway/pkg/config"
	"oracleguard/gateway/pkg/dispatcher"
	"oracleguard/gateway/pkg/pool"
	"oracleguard/gateway/pkg/ratelimit"
	"oracleguard/gateway/pkg/session"
	"oracleguard/gateway/pkg/sqlguard/validator"
	"oracleguard/gateway/pkg/telemetry/health"
	"oracleguard/gateway/pkg/telemetry/logging"
	"oracleguard/gateway/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway's admission pipeline and ambient HTTP surface",
	Long: `Start the gateway: load configuration, wire the admission pipeline
(normalizer, validator, rate limiter, approval registry, circuit
breaker, connection pool, audit emitter), and serve /metrics, /health,
/ready, and /version. The four dispatcher operations (preview_query, query_oracle,
describe_table, list_tables) are reserved for an external
tool-invocation framework to call; this command brings the core up and
keeps it running, it does not itself speak that protocol.

Examples:
  # Start with default config
  oracleguard run

  # Start with a custom config file
  oracleguard run --config /etc/oracleguard/config.yaml

  # Override listen address
  oracleguard run --listen 0.0.0.0:9090

  # Validate config without starting anything
  oracleguard run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting anything")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw, err := buildGateway(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer gw.Close()

	watcher, err := config.NewWatcher(cfgFile, logger.Slog())
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("starting config watcher: %w", err))
	}
	defer watcher.Close()

	collector := gw.metrics

	checker := health.New(5 * time.Second)
	checker.RegisterCheck("pool", poolHealthCheck(gw.pool))
	checker.RegisterCheck("circuit_breaker", breakerHealthCheck(gw.breaker))

	mux := http.NewServeMux()
	mux.Handle(metricsPath(cfg), collector.Handler())
	health.HTTPMiddleware(mux, checker, Version, GitCommit, BuildDate)

	srv := &http.Server{Addr: cfg.Server.ListenAddress, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting ambient HTTP surface", "address", cfg.Server.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	fmt.Println()
	fmt.Printf("✓ Admission pipeline ready (pool size %d)\n", cfg.Pool.Size)
	fmt.Printf("✓ Health endpoint: http://%s/health (also /ready, /version)\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, metricsPathString(cfg))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err.Error())
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

// gateway bundles one fully-wired instance of the admission pipeline,
// shared by the `run` server and the one-shot administrative commands
// (preview/query/describe/list) so both build it identically.
type gateway struct {
	dispatcher *dispatcher.Dispatcher
	pool       *pool.Pool
	breaker    *breaker.Breaker
	emitter    *audit.Emitter
	pruner     *audit.Pruner
	metrics    *metrics.Collector
}

func (g *gateway) Close() {
	g.pruner.Stop()
	g.pool.Close()
	g.emitter.Close()
}

// buildGateway wires one instance of every pipeline component the way
// `run` does, reused by the administrative one-shot commands so they
// exercise the exact same admission pipeline instead of a stand-in.
func buildGateway(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*gateway, error) {
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, fmt.Errorf("loading database credentials: %w", err)
	}

	clk := clock.System{}

	var storage audit.Storage
	switch cfg.Audit.Backend {
	case "sqlite":
		storage, err = auditstorage.NewSQLite(cfg.Audit.SQLitePath)
		if err != nil {
			return nil, err
		}
	default:
		storage = auditstorage.NewMemory()
	}
	emitter := audit.New(audit.Config{BufferSize: cfg.Audit.BufferSize}, storage, logger.Slog())

	pruner := audit.NewPruner(storage, logger.Slog(), cfg.Audit.RetentionDays)
	pruner.Start()

	factory := sessionFactory(cfg, creds)

	p := pool.New(ctx, pool.Config{
		Size:                cfg.Pool.Size,
		AcquireTimeout:      cfg.Pool.AcquireTimeout,
		QueryTimeout:        cfg.Pool.QueryTimeout,
		FetchChunk:          cfg.Pool.FetchChunk,
		HealthSweepInterval: cfg.Pool.HealthSweepInterval,
	}, clk, factory)
	p.StartHealthSweep(ctx)

	brk := breaker.New(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
	}, clk)

	limiter := ratelimit.New(ratelimit.Config{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	}, clk)

	registry := approval.New(approval.Config{TTL: cfg.Approval.TTL}, clk)

	v := validator.New(validator.Config{
		MaxComplexity:   cfg.Validator.MaxComplexity,
		MaxRows:         cfg.Validator.MaxRows,
		AllowCrossJoins: cfg.Validator.AllowCrossJoins,
	})

	collector := metrics.NewCollector(cfg.Telemetry.Metrics.Enabled, nil)

	disp := dispatcher.New(limiter, registry, brk, p, v, emitter, clk, collector)

	return &gateway{dispatcher: disp, pool: p, breaker: brk, emitter: emitter, pruner: pruner, metrics: collector}, nil
}

// sessionFactory returns the reference in-process SQLite session
// factory for cfg.Database.DriverDSN (a shared in-memory database when
// the DSN is empty). creds is not used: no Oracle driver is wired here.
func sessionFactory(cfg *config.Config, creds config.Credentials) session.Factory {
	dsn := cfg.Database.DriverDSN
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	return session.NewSQLiteFactory(dsn)
}

func metricsPath(cfg *config.Config) string {
	if !cfg.Telemetry.Metrics.Enabled {
		return "/metrics-disabled"
	}
	return metricsPathString(cfg)
}

func metricsPathString(cfg *config.Config) string {
	if cfg.Telemetry.Metrics.Path == "" {
		return "/metrics"
	}
	return cfg.Telemetry.Metrics.Path
}

// poolHealthCheck reports unhealthy once every slot is BROKEN — a
// partially degraded pool still serves traffic, so readiness only
// flags a pool with no usable slot (BUSY slots count as healthy).
func poolHealthCheck(p *pool.Pool) health.CheckFunc {
	return func(ctx context.Context) error {
		h := p.Health()
		if h.Total > 0 && h.Healthy == 0 {
			return fmt.Errorf("no healthy slots (%d/%d broken)", h.Unhealthy, h.Total)
		}
		return nil
	}
}

// breakerHealthCheck reports unhealthy while the circuit is OPEN,
// surfacing the same phase the dispatcher already refuses calls for.
func breakerHealthCheck(brk *breaker.Breaker) health.CheckFunc {
	return func(ctx context.Context) error {
		snap := brk.Snapshot()
		if snap.Phase == breaker.Open {
			return fmt.Errorf("circuit breaker open since %s", snap.OpenedAt.Format(time.RFC3339))
		}
		return nil
	}
}

func printBanner(cfg *config.Config) {
	fmt.Printf("oracleguard v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")
	fmt.Printf("✓ Pool size: %d, rate limit: %d/%s\n", cfg.Pool.Size, cfg.RateLimit.Max, cfg.RateLimit.Window)
	fmt.Printf("✓ Audit backend: %s\n", cfg.Audit.Backend)
}
