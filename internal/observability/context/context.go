// Package context carries the per-request identifiers every log line, span
// and domain event is stamped with.
package context

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

type key int

const (
	requestIDKey key = iota
	terminalIDKey
	correlationIDKey
)

func with(ctx context.Context, k key, value string) context.Context {
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, k, value)
}

func get(ctx context.Context, k key) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(k).(string)
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return get(ctx, requestIDKey)
}

// WithTerminalID stores the point-of-sale terminal issuing the request.
func WithTerminalID(ctx context.Context, terminalID string) context.Context {
	return with(ctx, terminalIDKey, terminalID)
}

func TerminalIDFromContext(ctx context.Context) string {
	return get(ctx, terminalIDKey)
}

// WithCorrelationID ties together the request and every event it emits.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return with(ctx, correlationIDKey, id)
}

func CorrelationIDFromContext(ctx context.Context) string {
	return get(ctx, correlationIDKey)
}

// EnsureCorrelationID keeps an inbound correlation id or mints a ULID.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if cid := CorrelationIDFromContext(ctx); cid != "" {
		return ctx, cid
	}
	cid := ulid.Make().String()
	return WithCorrelationID(ctx, cid), cid
}
