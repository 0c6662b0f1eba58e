// Package event carries domain events from the transactional outbox to
// in-process subscribers and external sinks.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ncobase/paybatch/utils/nanoid"
)

// Type identifies an event kind.
type Type string

// Wildcard subscribes a handler to every event type.
const Wildcard Type = "*"

// Event represents a domain event.
type Event struct {
	ID            string            `json:"id"`
	Type          Type              `json:"type"`
	AggregateID   string            `json:"aggregate_id,omitempty"`
	AggregateName string            `json:"aggregate_name,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Version       int               `json:"version"`
}

// New builds an event with a fresh id and the payload encoded as JSON.
func New(typ Type, aggregateName, aggregateID string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return &Event{
		ID:            nanoid.PrimaryKey(),
		Type:          typ,
		AggregateID:   aggregateID,
		AggregateName: aggregateName,
		Payload:       raw,
		Timestamp:     time.Now().UTC(),
		Version:       1,
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s event %s: %w", e.Type, e.ID, err)
	}
	return nil
}
