// Package logging provides structured logging for the gateway.
//
// It wraps log/slog with two output formats (json, text) and a small
// set of context-carried fields (request_id, op, token_id) so every
// log line written while handling a call can be correlated with the
// audit trail in pkg/audit without threading those fields through
// every function signature by hand.
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	ctx = logging.WithRequestID(ctx, reqID)
//	logger.InfoContext(ctx, "admitted", "complexity", verdict.Complexity)
package logging
