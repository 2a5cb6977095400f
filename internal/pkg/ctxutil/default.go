package ctxutil

import "context"

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Detached keeps ctx values but drops its cancellation, for work that must
// finish after the caller's request has returned (post-commit publishes).
func Detached(ctx context.Context) context.Context {
	return context.WithoutCancel(Default(ctx))
}
