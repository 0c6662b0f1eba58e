package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/paybatch/concurrency"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/logging/observes"
	"github.com/ncobase/paybatch/payable/data/repository"
	"github.com/ncobase/paybatch/payable/structs"
	"github.com/ncobase/paybatch/queue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Outcome is the result of one batch item. Failure is nil on success.
type Outcome struct {
	Failure *structs.FailedPayable
}

// Succeeded is the outcome of a created payable.
func Succeeded() Outcome { return Outcome{} }

// Failed is the outcome of a payable that exhausted its attempts.
func Failed(job structs.PayableJob, errorMessage string) Outcome {
	return Outcome{Failure: &structs.FailedPayable{
		PayableInput: job.PayableInput,
		BatchID:      job.BatchID,
		ErrorMessage: errorMessage,
	}}
}

// AggregatorOptions tunes Aggregator.
type AggregatorOptions struct {
	// DeadLetter are the options of failed-payable jobs.
	DeadLetter queue.JobOptions
	// ConflictBackoff is the base wait between reloads after a concurrent
	// update. The wait grows linearly up to MaxConflictBackoff.
	ConflictBackoff    time.Duration
	MaxConflictBackoff time.Duration
}

// Aggregator applies item outcomes to their batch. Updates of one batch are
// serialised in-process and guarded by the batch version across processes.
type Aggregator struct {
	batches    repository.BatchRepository
	tx         Transactor
	outbox     Outbox
	deadLetter Enqueuer
	waker      Waker
	locks      *concurrency.KeyedMutex
	opts       AggregatorOptions
	logger     *logger.Logger
}

// NewAggregator creates an Aggregator. waker may be nil.
func NewAggregator(
	batches repository.BatchRepository,
	tx Transactor,
	outbox Outbox,
	deadLetter Enqueuer,
	waker Waker,
	opts AggregatorOptions,
	l *logger.Logger,
) *Aggregator {
	if waker == nil {
		waker = nopWaker{}
	}
	if opts.ConflictBackoff <= 0 {
		opts.ConflictBackoff = 10 * time.Millisecond
	}
	if opts.MaxConflictBackoff < opts.ConflictBackoff {
		opts.MaxConflictBackoff = 50 * opts.ConflictBackoff
	}
	return &Aggregator{
		batches:    batches,
		tx:         tx,
		outbox:     outbox,
		deadLetter: deadLetter,
		waker:      waker,
		locks:      concurrency.NewKeyedMutex(),
		opts:       opts,
		logger:     l,
	}
}

// ReportOutcome counts one item outcome against the batch and completes it
// when every item is accounted for. Concurrent updates are retried until ctx
// is done. The dead-letter job and the outbox notification follow a
// successful commit.
func (a *Aggregator) ReportOutcome(ctx context.Context, batchID string, out Outcome) error {
	ctx, span := observes.Tracer().Start(ctx, "payable.aggregator.report_outcome",
		trace.WithAttributes(
			attribute.String("batch.id", batchID),
			attribute.Bool("outcome.failed", out.Failure != nil),
		))
	defer span.End()

	unlock := a.locks.Lock(batchID)
	defer unlock()

	var (
		events []structs.DomainEvent
		err    error
	)
	for attempt := 1; ; attempt++ {
		events, err = a.apply(ctx, batchID, out)
		if err == nil || !errors.Is(err, repository.ErrConcurrentUpdate) {
			break
		}
		if attempt%10 == 0 {
			a.logger.Warnf(ctx, "batch %s still contended after %d attempts", batchID, attempt)
		} else {
			a.logger.Debugf(ctx, "batch %s changed concurrently, reloading (retry %d)", batchID, attempt)
		}
		if werr := a.wait(ctx, attempt); werr != nil {
			err = fmt.Errorf("batch %s: %w after %d attempts: %w", batchID, werr, attempt, err)
			break
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if len(events) > 0 {
		a.waker.Notify()
	}
	for _, ev := range events {
		if c, ok := ev.(structs.BatchCompleted); ok {
			a.logger.Infof(ctx, "batch %s completed: %d succeeded, %d failed", c.BatchID, c.SuccessCount, c.FailedCount)
		}
	}

	if out.Failure != nil {
		opts := a.opts.DeadLetter
		if _, err := a.deadLetter.Add(ctx, structs.JobFailedPayable, *out.Failure, &opts); err != nil {
			span.RecordError(err)
			return fmt.Errorf("dead-letter payable of batch %s: %w", batchID, err)
		}
	}
	return nil
}

func (a *Aggregator) wait(ctx context.Context, attempt int) error {
	d := a.opts.ConflictBackoff * time.Duration(attempt)
	if d > a.opts.MaxConflictBackoff {
		d = a.opts.MaxConflictBackoff
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (a *Aggregator) apply(ctx context.Context, batchID string, out Outcome) ([]structs.DomainEvent, error) {
	var raised []structs.DomainEvent
	err := a.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := a.batches.FindByID(ctx, batchID)
		if err != nil {
			return err
		}

		if out.Failure == nil {
			if err := b.IncrementSuccess(); err != nil {
				return err
			}
		} else {
			ev, err := b.IncrementFailed(*out.Failure)
			if err != nil {
				return err
			}
			raised = append(raised, ev)
		}

		ev, err := b.UpdateProgress(b.SuccessCount, b.FailedCount)
		if err != nil {
			return fmt.Errorf("batch %s: %w", batchID, err)
		}
		if ev != nil {
			raised = append(raised, ev)
		}

		if err := a.batches.Save(ctx, b); err != nil {
			return err
		}
		events, err := structs.ToEvents(raised...)
		if err != nil {
			return err
		}
		return a.outbox.Append(ctx, events...)
	})
	if err != nil {
		return nil, err
	}
	return raised, nil
}
