// Command oracleguard is a guarded SQL query gateway that sits between
// an MCP-style tool caller and an Oracle database, enforcing read-only
// admission through a normalizer, validator, rate limiter, approval
// token workflow, circuit breaker, and bounded connection pool before
// any statement reaches the database.
//
// Usage:
//
//	# Start the gateway with default configuration
//	oracleguard run
//
//	# Start with a custom configuration file
//	oracleguard run --config /path/to/config.yaml
//
//	# Show version information
//	oracleguard version
//
//	# Validate a SQL statement without a live database
//	oracleguard lint --sql "SELECT * FROM employees"
package main

func main() {
	Execute()
}
