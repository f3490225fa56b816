package services

import "context"

type contextKey string

const (
	sessionKey     contextKey = "session"
	listKindKey    contextKey = "list_kind"
	operationIDKey contextKey = "operation_id"
	requestIDKey   contextKey = "request_id"
)

// WithSession annotates context with the wizard session name.
func WithSession(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, name)
}

// SessionFromContext returns the session name if present.
func SessionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithListKind annotates context with the operation list kind (blueprint/plan).
func WithListKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, listKindKey, kind)
}

// ListKindFromContext returns the list kind if present.
func ListKindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(listKindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOperationID annotates context with the operation being executed.
func WithOperationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, operationIDKey, id)
}

// OperationIDFromContext returns the operation identifier if present.
func OperationIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(operationIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
