package event

import (
	"context"
	"time"

	"github.com/ncobase/paybatch/logging/logger"
)

// Relay moves committed outbox events to a publisher.
type Relay struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	batchSize int
	wake      chan struct{}
}

// NewRelay creates a relay polling store every interval.
func NewRelay(store Store, publisher Publisher, interval time.Duration, batchSize int) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		wake:      make(chan struct{}, 1),
	}
}

// Notify asks the relay to flush without waiting for the next tick.
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run flushes until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.wake:
		}
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf(ctx, "outbox relay: %v", err)
		}
	}
}

// Flush publishes pending events in order and returns how many were published.
// It stops at the first publish failure so later events keep their order.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	published := 0
	for {
		events, err := r.store.Pending(ctx, r.batchSize)
		if err != nil {
			return published, err
		}
		if len(events) == 0 {
			return published, nil
		}
		for _, e := range events {
			if err := r.publisher.Publish(ctx, e); err != nil {
				if merr := r.store.MarkFailed(ctx, e.ID, err); merr != nil {
					logger.Errorf(ctx, "outbox relay: mark %s failed: %v", e.ID, merr)
				}
				return published, err
			}
			if err := r.store.MarkPublished(ctx, e.ID, time.Now()); err != nil {
				return published, err
			}
			published++
		}
		if len(events) < r.batchSize {
			return published, nil
		}
	}
}
