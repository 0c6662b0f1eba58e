package service

import (
	"context"
	"fmt"

	"github.com/ncobase/paybatch/queue"
)

// QueueMonitor reports job counts of the pipeline queues.
type QueueMonitor struct {
	queues []queue.Queue
}

func NewQueueMonitor(queues ...queue.Queue) *QueueMonitor {
	return &QueueMonitor{queues: queues}
}

// Counts returns the counts keyed by queue name.
func (m *QueueMonitor) Counts(ctx context.Context) (map[string]queue.Counts, error) {
	out := make(map[string]queue.Counts, len(m.queues))
	for _, q := range m.queues {
		c, err := q.Counts(ctx)
		if err != nil {
			return nil, fmt.Errorf("counts of %s: %w", q.Name(), err)
		}
		out[q.Name()] = c
	}
	return out, nil
}
