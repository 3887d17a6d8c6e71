package services

import "context"

type contextKey string

const (
	hashKey      contextKey = "hash"
	componentKey contextKey = "component"
	requestIDKey contextKey = "request_id"
)

// WithHash annotates context with the torrent content hash being processed.
func WithHash(ctx context.Context, hash string) context.Context {
	if hash == "" {
		return ctx
	}
	return context.WithValue(ctx, hashKey, hash)
}

// HashFromContext extracts the torrent content hash if present.
func HashFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(hashKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithComponent annotates context with the originating component (poller, api, feeds).
func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return context.WithValue(ctx, componentKey, component)
}

// ComponentFromContext returns the originating component if present.
func ComponentFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(componentKey).(string); ok && v != "" {
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
