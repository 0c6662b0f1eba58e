package service

import (
	"context"

	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/logging/observes"
	"github.com/ncobase/paybatch/payable/structs"
	"github.com/ncobase/paybatch/queue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PayableCreator creates one payable. *Creator satisfies it.
type PayableCreator interface {
	Create(ctx context.Context, in structs.PayableInput, batchID string) (*structs.Payable, error)
}

// OutcomeReporter records item outcomes. *Aggregator satisfies it.
type OutcomeReporter interface {
	ReportOutcome(ctx context.Context, batchID string, out Outcome) error
}

// ItemWorker consumes create-payable jobs.
type ItemWorker struct {
	creator  PayableCreator
	reporter OutcomeReporter
	logger   *logger.Logger
}

func NewItemWorker(creator PayableCreator, reporter OutcomeReporter, l *logger.Logger) *ItemWorker {
	return &ItemWorker{creator: creator, reporter: reporter, logger: l}
}

// Handle is a queue.Handler. Only the last attempt of a batch item reports a
// failure. The creation error is always returned so the queue keeps control
// of retries.
func (w *ItemWorker) Handle(ctx context.Context, job *queue.Job) error {
	var payload structs.PayableJob
	if err := job.Decode(&payload); err != nil {
		w.logger.Errorf(ctx, "job %s: %v", job.ID, err)
		return err
	}

	ctx, span := observes.Tracer().Start(ctx, "payable.worker.create",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("batch.id", payload.BatchID),
			attribute.Int("job.attempts_made", job.AttemptsMade),
		))
	defer span.End()

	if _, err := w.creator.Create(ctx, payload.PayableInput, payload.BatchID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		attempt, maxAttempts := job.AttemptsMade+1, job.Opts.Attempts
		w.logger.Warnf(ctx, "job %s: create payable failed on attempt %d of %d: %v", job.ID, attempt, maxAttempts, err)

		if payload.BatchID != "" && attempt >= maxAttempts {
			if rerr := w.reporter.ReportOutcome(ctx, payload.BatchID, Failed(payload, err.Error())); rerr != nil {
				w.logger.Errorf(ctx, "job %s: report failure to batch %s: %v", job.ID, payload.BatchID, rerr)
			}
		}
		return err
	}

	if payload.BatchID != "" {
		if err := w.reporter.ReportOutcome(ctx, payload.BatchID, Succeeded()); err != nil {
			w.logger.Errorf(ctx, "job %s: report success to batch %s: %v", job.ID, payload.BatchID, err)
		}
	}
	return nil
}
