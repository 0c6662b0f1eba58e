// Package service implements batch submission, item processing and progress
// aggregation for payable batches.
package service

import (
	"context"

	"github.com/ncobase/paybatch/config"
	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/event"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/messaging/email"
	"github.com/ncobase/paybatch/payable/data/repository"
	"github.com/ncobase/paybatch/queue"
)

// Enqueuer adds jobs to a queue. queue.Queue satisfies it.
type Enqueuer interface {
	Add(ctx context.Context, name string, data any, opts *queue.JobOptions) (*queue.Job, error)
}

// Transactor runs fn in a transaction carried by ctx. *data.Data satisfies it.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Outbox records events in the caller's transaction.
type Outbox interface {
	Append(ctx context.Context, events ...*event.Event) error
}

// Waker is told that new outbox events were committed.
type Waker interface {
	Notify()
}

type nopWaker struct{}

func (nopWaker) Notify() {}

// Service aggregates the payable services.
type Service struct {
	Submission *SubmissionService
	Aggregator *Aggregator
	Creator    *Creator
	Worker     *ItemWorker
	Notifier   *Notifier
	Queues     *QueueMonitor
}

// New wires the payable services. work receives create-payable jobs and
// deadLetter receives failed-payable jobs.
func New(
	cfg *config.Config,
	d *data.Data,
	repo *repository.Repository,
	outbox event.Store,
	relay *event.Relay,
	work queue.Queue,
	deadLetter queue.Queue,
	sender email.Sender,
	l *logger.Logger,
) *Service {
	jobOpts := queue.OptionsFromConfig(cfg.Queue)

	var waker Waker = nopWaker{}
	if relay != nil {
		waker = relay
	}

	creator := NewCreator(repo.Payable, repo.Assignor, d, outbox, waker, cfg.Batch.Breaker, l)
	aggregator := NewAggregator(repo.Batch, d, outbox, deadLetter, waker, AggregatorOptions{
		DeadLetter:         jobOpts,
		ConflictBackoff:    cfg.Batch.ConflictBackoff,
		MaxConflictBackoff: cfg.Batch.MaxConflictBackoff,
	}, l)

	return &Service{
		Submission: NewSubmissionService(repo.Batch, work, d, outbox, waker, SubmissionOptions{
			Job:           jobOpts,
			CompleteEmpty: cfg.Batch.CompleteEmpty,
		}, l),
		Aggregator: aggregator,
		Creator:    creator,
		Worker:     NewItemWorker(creator, aggregator, l),
		Notifier:   NewNotifier(sender, cfg.Batch.NotifyRecipient, l),
		Queues:     NewQueueMonitor(work, deadLetter),
	}
}
