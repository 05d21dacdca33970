package logging

import "context"

// Context keys for the gateway's log fields: operation-tracing
// identifiers threaded through context for structured logging.
type contextKey string

const (
	// RequestIDKey is the context key for the per-call request ID.
	RequestIDKey contextKey = "request_id"

	// OpKey is the context key for the operation name (preview_query,
	// query_oracle, describe_table, list_tables).
	OpKey contextKey = "op"

	// TokenIDKey is the context key for a truncated approval token ID.
	TokenIDKey contextKey = "token_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithOp adds an operation name to the context.
func WithOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, OpKey, op)
}

// GetOp retrieves the operation name from the context.
func GetOp(ctx context.Context) string {
	if v, ok := ctx.Value(OpKey).(string); ok {
		return v
	}
	return ""
}

// WithTokenID adds a truncated approval token ID to the context.
func WithTokenID(ctx context.Context, tokenID string) context.Context {
	return context.WithValue(ctx, TokenIDKey, tokenID)
}

// GetTokenID retrieves the approval token ID from the context.
func GetTokenID(ctx context.Context) string {
	if v, ok := ctx.Value(TokenIDKey).(string); ok {
		return v
	}
	return ""
}

func extractContextFields(ctx context.Context) []any {
	var fields []any
	if v := GetRequestID(ctx); v != "" {
		fields = append(fields, "request_id", v)
	}
	if v := GetOp(ctx); v != "" {
		fields = append(fields, "op", v)
	}
	if v := GetTokenID(ctx); v != "" {
		fields = append(fields, "token_id", v)
	}
	return fields
}
