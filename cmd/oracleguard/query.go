package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"oracleguard/gateway/pkg/cli"
	"oracleguard/gateway/pkg/config"
	"oracleguard/gateway/pkg/telemetry/logging"
)

// These commands exercise the real admission pipeline directly from
// the CLI — a convenience for administration, not the tool-invocation
// protocol layer an external framework is expected to speak.

var previewFlags struct{ sql string }

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Validate a statement and issue a one-shot approval token",
	RunE:  runPreview,
}

var queryFlags struct {
	sql   string
	token string
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Execute a previously approved statement",
	RunE:  runQuery,
}

var describeFlags struct{ schema, table string }

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Describe a table's columns",
	RunE:  runDescribe,
}

var listTablesFlags struct{ schema string }

var listTablesCmd = &cobra.Command{
	Use:   "list-tables",
	Short: "List tables visible in a schema",
	RunE:  runListTables,
}

func init() {
	rootCmd.AddCommand(previewCmd, queryCmd, describeCmd, listTablesCmd)

	previewCmd.Flags().StringVar(&previewFlags.sql, "sql", "", "SQL statement to preview")

	queryCmd.Flags().StringVar(&queryFlags.sql, "sql", "", "SQL statement to execute")
	queryCmd.Flags().StringVar(&queryFlags.token, "token", "", "approval token returned by preview")

	describeCmd.Flags().StringVar(&describeFlags.schema, "schema", "", "schema (optional)")
	describeCmd.Flags().StringVar(&describeFlags.table, "table", "", "table name")

	listTablesCmd.Flags().StringVar(&listTablesFlags.schema, "schema", "", "schema (optional)")
}

func withGateway(fn func(ctx context.Context, gw *gateway) (any, error)) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	logger, err := logging.New(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw, err := buildGateway(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("gateway", err)
	}
	defer gw.Close()

	result, err := fn(ctx, gw)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func runPreview(cmd *cobra.Command, args []string) error {
	if previewFlags.sql == "" {
		return fmt.Errorf("--sql is required")
	}
	return withGateway(func(ctx context.Context, gw *gateway) (any, error) {
		result, err := gw.dispatcher.Preview(ctx, previewFlags.sql)
		if err != nil {
			return nil, cli.NewCommandError("preview", err)
		}
		return result, nil
	})
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryFlags.sql == "" || queryFlags.token == "" {
		return fmt.Errorf("--sql and --token are required")
	}
	return withGateway(func(ctx context.Context, gw *gateway) (any, error) {
		result, err := gw.dispatcher.Execute(ctx, queryFlags.sql, queryFlags.token)
		if err != nil {
			return nil, cli.NewCommandError("query", err)
		}
		return result, nil
	})
}

func runDescribe(cmd *cobra.Command, args []string) error {
	if describeFlags.table == "" {
		return fmt.Errorf("--table is required")
	}
	return withGateway(func(ctx context.Context, gw *gateway) (any, error) {
		result, err := gw.dispatcher.Describe(ctx, describeFlags.schema, describeFlags.table)
		if err != nil {
			return nil, cli.NewCommandError("describe", err)
		}
		return result, nil
	})
}

func runListTables(cmd *cobra.Command, args []string) error {
	return withGateway(func(ctx context.Context, gw *gateway) (any, error) {
		result, err := gw.dispatcher.List(ctx, listTablesFlags.schema)
		if err != nil {
			return nil, cli.NewCommandError("list-tables", err)
		}
		return result, nil
	})
}
