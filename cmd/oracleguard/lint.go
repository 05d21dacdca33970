package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"oracleguard/gateway/pkg/cli"
	"oracleguard/gateway/pkg/config"
	"oracleguard/gateway/pkg/sqlguard/validator"
)

var lintFlags struct {
	sql    string
	file   string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate a SQL statement without a live database",
	Long: `Run a SQL statement through the normalizer and validator only,
without touching the rate limiter, approval registry, circuit breaker,
or connection pool. Useful for checking whether a statement would be
admitted before wiring up a full gateway instance.

Examples:
  # Lint an inline statement
  oracleguard lint --sql "SELECT * FROM employees"

  # Lint a statement from a file
  oracleguard lint --file query.sql

  # JSON output for CI/CD
  oracleguard lint --sql "SELECT * FROM employees" --format json`,
	RunE: lintSQL,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVar(&lintFlags.sql, "sql", "", "SQL statement to validate")
	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "file containing a SQL statement to validate")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// lintResult mirrors the admitted/reason/complexity shape of
// validator.Verdict for stable JSON output independent of internal
// field names.
type lintResult struct {
	Admitted      bool     `json:"admitted"`
	Reason        string   `json:"reason,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Complexity    int      `json:"complexity"`
	AppliedRowCap int      `json:"applied_row_cap,omitempty"`
	EffectiveSQL  string   `json:"effective_sql,omitempty"`
}

func lintSQL(cmd *cobra.Command, args []string) error {
	sql := lintFlags.sql
	if lintFlags.file != "" {
		data, err := os.ReadFile(lintFlags.file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", lintFlags.file, err)
		}
		sql = string(data)
	}
	if sql == "" {
		return fmt.Errorf("either --sql or --file must be specified")
	}

	vcfg := validator.DefaultConfig()
	if cfg, err := config.LoadConfig(cfgFile); err == nil {
		vcfg = validator.Config{
			MaxComplexity:   cfg.Validator.MaxComplexity,
			MaxRows:         cfg.Validator.MaxRows,
			AllowCrossJoins: cfg.Validator.AllowCrossJoins,
		}
	}

	verdict := validator.New(vcfg).Validate(sql)
	result := lintResult{
		Admitted:      verdict.Admitted,
		Reason:        verdict.Reason,
		Warnings:      verdict.Warnings,
		Complexity:    verdict.Complexity,
		AppliedRowCap: verdict.AppliedRowCap,
		EffectiveSQL:  verdict.EffectiveSQL,
	}

	if lintFlags.format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}
	} else {
		printLintResult(result)
	}

	if !result.Admitted {
		return cli.NewCommandError("lint", fmt.Errorf("statement rejected: %s", result.Reason))
	}
	return nil
}

func printLintResult(r lintResult) {
	if r.Admitted {
		fmt.Println("✓ admitted")
		fmt.Printf("  complexity: %d\n", r.Complexity)
		if r.AppliedRowCap > 0 {
			fmt.Printf("  row cap applied: %d\n", r.AppliedRowCap)
		}
		for _, w := range r.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	} else {
		fmt.Println("✗ rejected")
		fmt.Printf("  reason: %s\n", r.Reason)
	}
}
