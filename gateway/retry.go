package gateway

import "context"

type contextKey string

const retriedKey contextKey = "gateway_retried"

// withRetried marks the request carried by ctx as already retried once.
func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey, true)
}

// IsRetried reports whether the request has already been through a
// refresh-and-retry cycle.
func IsRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey).(bool)
	return retried
}

// WithoutRefresh marks a request whose 401 means "bad credentials" rather
// than "expired access token", such as login. The gateway returns its 401
// to the caller and leaves the stored credentials alone.
func WithoutRefresh(ctx context.Context) context.Context {
	return withRetried(ctx)
}
