package ctxutil

import (
	"context"
	"time"
)

const (
	// DefaultAsyncTimeout is the default timeout for async operations
	DefaultAsyncTimeout = 5 * time.Second
)

// WithAsyncContext creates a context for work that must outlive the caller.
// Values such as the trace id are kept, cancellation is not.
func WithAsyncContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		timeout = DefaultAsyncTimeout
	}
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
