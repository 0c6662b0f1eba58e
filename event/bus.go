package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/ncobase/paybatch/concurrency/worker"
	"github.com/ncobase/paybatch/logging/logger"
)

// Handler handles one event.
type Handler func(ctx context.Context, e *Event) error

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

type delivery struct {
	ctx     context.Context
	event   *Event
	handler Handler
}

// Bus dispatches events to subscribed handlers on a worker pool.
type Bus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
	pool     *worker.Pool
}

// NewBus creates a bus whose handlers run on a pool of the given size.
func NewBus(workers, bufferSize int) *Bus {
	cfg := worker.DefaultConfig()
	if workers > 0 {
		cfg.MaxWorkers = workers
	}
	if bufferSize > 0 {
		cfg.QueueSize = bufferSize
	}
	b := &Bus{handlers: make(map[Type][]Handler)}
	b.pool = worker.NewPool(cfg, worker.ProcessorFunc(b.process))
	return b
}

// Start starts the bus workers.
func (b *Bus) Start() {
	b.pool.Start()
}

// Stop drains pending deliveries until ctx is done.
func (b *Bus) Stop(ctx context.Context) {
	b.pool.Stop(ctx)
}

// Subscribe registers handler for an event type, or for all types with Wildcard.
func (b *Bus) Subscribe(typ Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[typ] = append(b.handlers[typ], handler)
}

// Publish queues one delivery per matching handler. It waits for pool
// capacity until ctx is done.
func (b *Bus) Publish(ctx context.Context, e *Event) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[e.Type])+len(b.handlers[Wildcard]))
	handlers = append(handlers, b.handlers[e.Type]...)
	handlers = append(handlers, b.handlers[Wildcard]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Debugf(ctx, "no handlers for event %s", e.Type)
		return nil
	}

	hctx := context.WithoutCancel(ctx)
	for _, h := range handlers {
		if err := b.pool.SubmitWait(ctx, &delivery{ctx: hctx, event: e, handler: h}); err != nil {
			return fmt.Errorf("dispatch %s event %s: %w", e.Type, e.ID, err)
		}
	}
	return nil
}

func (b *Bus) process(task any) error {
	d, ok := task.(*delivery)
	if !ok {
		return fmt.Errorf("unsupported task type: %T", task)
	}
	if err := d.handler(d.ctx, d.event); err != nil {
		logger.Errorf(d.ctx, "event handler failed, type=%s id=%s: %v", d.event.Type, d.event.ID, err)
		return err
	}
	return nil
}

// GetStats returns the number of handlers per type and the pool metrics.
func (b *Bus) GetStats() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subscribers := make(map[string]int, len(b.handlers))
	for typ, hs := range b.handlers {
		subscribers[string(typ)] = len(hs)
	}
	return map[string]any{
		"subscribers": subscribers,
		"pool":        b.pool.GetMetrics(),
	}
}
