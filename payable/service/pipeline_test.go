package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ncobase/paybatch/event"
	"github.com/ncobase/paybatch/payable/structs"
	"github.com/ncobase/paybatch/queue"
)

// TestPipeline runs a two item batch through the memory queues: one payable
// is created, the other names an unknown assignor and ends in the
// dead-letter queue.
func TestPipeline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newTestEnv(t)

	work := queue.NewMemory("payable", 5*time.Millisecond)
	dead := queue.NewMemory("payable-dead-letter", 5*time.Millisecond)
	defer work.Close()
	defer dead.Close()

	opts := queue.JobOptions{
		Attempts:         2,
		Backoff:          queue.Backoff{Type: queue.BackoffExponential, Delay: time.Millisecond},
		RemoveOnComplete: 100,
		RemoveOnFail:     50,
	}

	bus := event.NewBus(1, 16)
	bus.Start()
	defer bus.Stop(ctx)
	completed := make(chan structs.BatchCompleted, 1)
	bus.Subscribe(structs.EventBatchCompleted, func(_ context.Context, ev *event.Event) error {
		var p structs.BatchCompleted
		if err := ev.Decode(&p); err != nil {
			return err
		}
		completed <- p
		return nil
	})
	relay := event.NewRelay(e.outbox, bus, 10*time.Millisecond, 10)
	go relay.Run(ctx)

	creator := newCreator(e, nil, 10)
	aggregator := NewAggregator(e.repo.Batch, e.d, e.outbox, dead, relay, AggregatorOptions{
		DeadLetter:      opts,
		ConflictBackoff: time.Millisecond,
	}, e.log)
	worker := NewItemWorker(creator, aggregator, e.log)
	submission := NewSubmissionService(e.repo.Batch, work, e.d, e.outbox, relay, SubmissionOptions{Job: opts}, e.log)

	go func() { _ = work.Process(ctx, 2, worker.Handle) }()

	known := e.assignor(t)
	summary, err := submission.Submit(ctx, &structs.CreatePayableBatchBody{
		Payables: []structs.PayableInput{payable(known), payable(uuid.NewString())},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case got := <-completed:
		if got.BatchID != summary.BatchID || got.SuccessCount != 1 || got.FailedCount != 1 {
			t.Errorf("BatchCompleted = %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("batch never completed: %+v", e.batch(t, summary.BatchID))
	}

	b := e.batch(t, summary.BatchID)
	if b.Status != structs.BatchStatusCompleted || b.SuccessCount != 1 || b.FailedCount != 1 {
		t.Errorf("batch = %+v", b)
	}
	if n, err := e.repo.Payable.CountByBatch(ctx, summary.BatchID); err != nil || n != 1 {
		t.Errorf("stored payables = %d, %v", n, err)
	}
	counts, err := dead.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Waiting != 1 {
		t.Errorf("dead-letter counts = %+v", counts)
	}
}
