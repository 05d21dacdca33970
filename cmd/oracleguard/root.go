package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "oracleguard",
	Short: "oracleguard - guarded SQL query gateway for Oracle",
	Long: `oracleguard is a guarded SQL query gateway that sits between a tool
caller and an Oracle database behind an external proxy.

Every statement passes through an admission pipeline before it reaches
the database:
  - identifier and SQL normalization
  - a read-only validator with a complexity scorer
  - a shared rate limiter
  - a preview/approve token workflow
  - a circuit breaker
  - a bounded connection pool

For more information, run "oracleguard run --help".`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
