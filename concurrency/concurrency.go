package concurrency

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Limiter caps the number of handlers a consumer runs at once.
type Limiter struct {
	slots chan struct{}

	acquired atomic.Int64
	canceled atomic.Int64
}

// Stats is a snapshot of a Limiter.
type Stats struct {
	Limit    int   `json:"limit"`
	InUse    int   `json:"in_use"`
	Acquired int64 `json:"acquired"`
	Canceled int64 `json:"canceled"`
}

// NewLimiter returns a limiter with n slots.
func NewLimiter(n int) (*Limiter, error) {
	if n <= 0 {
		return nil, fmt.Errorf("limiter needs at least one slot, got %d", n)
	}
	return &Limiter{slots: make(chan struct{}, n)}, nil
}

// Acquire takes a slot, waiting until one is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.acquired.Add(1)
		return nil
	case <-ctx.Done():
		l.canceled.Add(1)
		return fmt.Errorf("acquire slot: %w", ctx.Err())
	}
}

// TryAcquire takes a slot if one is free.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.acquired.Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot. Releasing more than was acquired panics.
func (l *Limiter) Release() {
	select {
	case <-l.slots:
	default:
		panic("concurrency: release without acquire")
	}
}

// Stats returns the current usage.
func (l *Limiter) Stats() Stats {
	return Stats{
		Limit:    cap(l.slots),
		InUse:    len(l.slots),
		Acquired: l.acquired.Load(),
		Canceled: l.canceled.Load(),
	}
}
