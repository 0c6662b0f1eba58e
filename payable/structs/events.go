package structs

import (
	"github.com/ncobase/paybatch/event"
)

const (
	AggregateBatch   = "batch"
	AggregatePayable = "payable"

	EventBatchCompleted event.Type = "BatchCompleted"
	EventPayableError   event.Type = "PayableError"
	EventPayableCreated event.Type = "PayableCreated"
)

// DomainEvent is a fact returned by an aggregate method. It is persisted to
// the outbox together with the aggregate change.
type DomainEvent interface {
	EventType() event.Type
	AggregateName() string
	AggregateID() string
}

// BatchCompleted is raised once, when every item of a batch is accounted for.
type BatchCompleted struct {
	BatchID      string `json:"batchId"`
	SuccessCount int    `json:"successCount"`
	FailedCount  int    `json:"failedCount"`
}

func (e BatchCompleted) EventType() event.Type { return EventBatchCompleted }
func (e BatchCompleted) AggregateName() string { return AggregateBatch }
func (e BatchCompleted) AggregateID() string   { return e.BatchID }

// PayableError is raised when an item of a batch exhausted its attempts.
type PayableError struct {
	BatchID      string  `json:"batchId"`
	Value        float64 `json:"value"`
	EmissionDate string  `json:"emissionDate"`
	AssignorID   string  `json:"assignorId"`
	ErrorMessage string  `json:"errorMessage"`
}

func (e PayableError) EventType() event.Type { return EventPayableError }
func (e PayableError) AggregateName() string { return AggregateBatch }
func (e PayableError) AggregateID() string   { return e.BatchID }

// PayableCreated is raised when a payable is stored.
type PayableCreated struct {
	PayableID    string  `json:"payableId"`
	Value        float64 `json:"value"`
	EmissionDate string  `json:"emissionDate"`
	AssignorID   string  `json:"assignorId"`
	BatchID      string  `json:"batchId,omitempty"`
}

func (e PayableCreated) EventType() event.Type { return EventPayableCreated }
func (e PayableCreated) AggregateName() string { return AggregatePayable }
func (e PayableCreated) AggregateID() string   { return e.PayableID }

// ToEvents converts domain events to outbox events, skipping nils.
func ToEvents(des ...DomainEvent) ([]*event.Event, error) {
	out := make([]*event.Event, 0, len(des))
	for _, de := range des {
		if de == nil {
			continue
		}
		e, err := event.New(de.EventType(), de.AggregateName(), de.AggregateID(), de)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
