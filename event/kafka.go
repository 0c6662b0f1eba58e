package event

import (
	"context"
	"encoding/json"

	"github.com/ncobase/paybatch/data/kafka"
)

// KafkaSink forwards events to a Kafka topic keyed by aggregate id, so all
// events of one batch land on the same partition.
type KafkaSink struct {
	producer *kafka.Producer
}

// NewKafkaSink wraps producer.
func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

// Handle implements Handler.
func (s *KafkaSink) Handle(ctx context.Context, e *Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.producer.Publish(ctx, []byte(e.AggregateID), value)
}

// Close closes the producer.
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
