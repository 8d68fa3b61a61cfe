package shared

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys defined by this
// package to avoid collisions.
type contextKey string

// TraceIDContextKey is the context key for the request trace ID.
const TraceIDContextKey = contextKey("trace_id")

// SetTraceID returns a context carrying a freshly generated trace ID,
// unless the context already has one.
func SetTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, TraceIDContextKey, uuid.New().String())
}

// GetTraceID returns the trace ID from the context, or an empty string
// if none was set.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDContextKey).(string); ok {
		return traceID
	}
	return ""
}
