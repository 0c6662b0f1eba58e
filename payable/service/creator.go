package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ncobase/paybatch/config"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/payable/data/repository"
	"github.com/ncobase/paybatch/payable/structs"
	"github.com/ncobase/paybatch/validator"
	"github.com/sony/gobreaker"
)

// ErrAssignorNotFound is returned when a payable names an unknown assignor.
var ErrAssignorNotFound = errors.New("assignor not found")

// Creator stores single payables behind a circuit breaker.
type Creator struct {
	payables  repository.PayableRepository
	assignors repository.AssignorRepository
	tx        Transactor
	outbox    Outbox
	waker     Waker
	breaker   *gobreaker.CircuitBreaker
	logger    *logger.Logger
}

// NewCreator creates a Creator. A nil breaker config uses gobreaker defaults.
func NewCreator(
	payables repository.PayableRepository,
	assignors repository.AssignorRepository,
	tx Transactor,
	outbox Outbox,
	waker Waker,
	cfg *config.Breaker,
	l *logger.Logger,
) *Creator {
	if waker == nil {
		waker = nopWaker{}
	}
	settings := gobreaker.Settings{
		Name: "payable-creator",
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrAssignorNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warnf(context.Background(), "circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	if cfg != nil {
		settings.MaxRequests = cfg.MaxRequests
		settings.Interval = cfg.Interval
		settings.Timeout = cfg.Timeout
		if threshold := cfg.FailureThreshold; threshold > 0 {
			settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			}
		}
	}
	return &Creator{
		payables:  payables,
		assignors: assignors,
		tx:        tx,
		outbox:    outbox,
		waker:     waker,
		breaker:   gobreaker.NewCircuitBreaker(settings),
		logger:    l,
	}
}

// Create validates in and stores it as a payable of batchID, which may be empty.
func (c *Creator) Create(ctx context.Context, in structs.PayableInput, batchID string) (*structs.Payable, error) {
	if err := validator.Validate(&in); err != nil {
		return nil, err
	}
	emission, err := validator.ParseDate(in.EmissionDate)
	if err != nil {
		return nil, err
	}

	res, err := c.breaker.Execute(func() (any, error) {
		return c.create(ctx, in, emission, batchID)
	})
	if err != nil {
		return nil, err
	}
	return res.(*structs.Payable), nil
}

func (c *Creator) create(ctx context.Context, in structs.PayableInput, emission time.Time, batchID string) (*structs.Payable, error) {
	now := time.Now().UTC()
	p := &structs.Payable{
		ID:           uuid.NewString(),
		AssignorID:   in.Assignor,
		Value:        in.Value,
		EmissionDate: emission.UTC(),
		BatchID:      batchID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := c.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := c.assignors.FindByID(ctx, in.Assignor); err != nil {
			if errors.Is(err, repository.ErrAssignorNotFound) {
				return ErrAssignorNotFound
			}
			return err
		}
		if err := c.payables.Create(ctx, p); err != nil {
			return err
		}
		events, err := structs.ToEvents(structs.PayableCreated{
			PayableID:    p.ID,
			Value:        p.Value,
			EmissionDate: in.EmissionDate,
			AssignorID:   p.AssignorID,
			BatchID:      batchID,
		})
		if err != nil {
			return err
		}
		return c.outbox.Append(ctx, events...)
	})
	if err != nil {
		return nil, err
	}
	c.waker.Notify()
	return p, nil
}

// State returns the breaker state.
func (c *Creator) State() gobreaker.State {
	return c.breaker.State()
}
