package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/payable/data/repository"
	"github.com/ncobase/paybatch/payable/structs"
	"github.com/ncobase/paybatch/queue"
)

// SubmitError reports a batch that was persisted but only partly enqueued.
// Jobs already enqueued are not withdrawn.
type SubmitError struct {
	BatchID  string
	Enqueued int
	Total    int
	Err      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("batch %s: enqueued %d of %d payables: %v", e.BatchID, e.Enqueued, e.Total, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// SubmissionOptions tunes SubmissionService.
type SubmissionOptions struct {
	Job queue.JobOptions
	// CompleteEmpty completes a batch without items at submission.
	CompleteEmpty bool
}

// SubmissionService accepts payable batches and fans them out to the work queue.
type SubmissionService struct {
	batches repository.BatchRepository
	queue   Enqueuer
	tx      Transactor
	outbox  Outbox
	waker   Waker
	opts    SubmissionOptions
	logger  *logger.Logger
}

// NewSubmissionService creates a SubmissionService. waker may be nil.
func NewSubmissionService(
	batches repository.BatchRepository,
	q Enqueuer,
	tx Transactor,
	outbox Outbox,
	waker Waker,
	opts SubmissionOptions,
	l *logger.Logger,
) *SubmissionService {
	if waker == nil {
		waker = nopWaker{}
	}
	return &SubmissionService{
		batches: batches,
		queue:   q,
		tx:      tx,
		outbox:  outbox,
		waker:   waker,
		opts:    opts,
		logger:  l,
	}
}

// Submit persists a processing batch and enqueues one create-payable job per
// item. On a partial enqueue failure it returns the summary together with a
// *SubmitError.
func (s *SubmissionService) Submit(ctx context.Context, body *structs.CreatePayableBatchBody) (*structs.PayableBatchDto, error) {
	b := structs.NewBatch(body.Name, body.Description, len(body.Payables))
	if err := b.StartProcessing(); err != nil {
		return nil, err
	}

	var completed structs.DomainEvent
	if b.TotalItems == 0 && s.opts.CompleteEmpty {
		ev, err := b.UpdateProgress(0, 0)
		if err != nil {
			return nil, err
		}
		completed = ev
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.batches.Create(ctx, b); err != nil {
			return err
		}
		events, err := structs.ToEvents(completed)
		if err != nil {
			return err
		}
		return s.outbox.Append(ctx, events...)
	})
	if err != nil {
		return nil, fmt.Errorf("persist batch: %w", err)
	}
	if completed != nil {
		s.waker.Notify()
	}

	summary := &structs.PayableBatchDto{BatchID: b.ID, Total: b.TotalItems}
	opts := s.opts.Job
	for i, item := range body.Payables {
		job := structs.PayableJob{PayableInput: item, BatchID: b.ID}
		if _, err := s.queue.Add(ctx, structs.JobCreatePayable, job, &opts); err != nil {
			s.logger.Warnf(ctx, "batch %s: enqueue stopped after %d of %d payables: %v", b.ID, i, b.TotalItems, err)
			return summary, &SubmitError{BatchID: b.ID, Enqueued: i, Total: b.TotalItems, Err: err}
		}
	}

	s.logger.Infof(ctx, "batch %s submitted with %d payables", b.ID, b.TotalItems)
	return summary, nil
}

// GetBatch returns an active batch.
func (s *SubmissionService) GetBatch(ctx context.Context, id string) (*structs.BatchDto, error) {
	b, err := s.batches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get batch %s: %w", id, err)
	}
	return b.ToDto(), nil
}
