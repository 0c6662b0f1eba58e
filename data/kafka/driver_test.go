package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ncobase/paybatch/data/config"
	"github.com/segmentio/kafka-go"
)

type flakyWriter struct {
	failures int
	calls    int
	last     kafka.Message
}

func (w *flakyWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("leader not available")
	}
	w.last = msgs[0]
	return nil
}

func (w *flakyWriter) Close() error { return nil }

func newTestProducer(w MessageWriter, attempts int) *Producer {
	p := NewProducerWithWriter(w, &config.Kafka{Topic: "events", RetryAttempts: attempts, WriteTimeout: time.Second})
	p.backoffStart = time.Millisecond
	return p
}

func TestPublishRetries(t *testing.T) {
	w := &flakyWriter{failures: 2}
	p := newTestProducer(w, 3)

	if err := p.Publish(context.Background(), []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if w.calls != 3 {
		t.Errorf("calls = %d, want 3", w.calls)
	}
	if w.last.Topic != "events" || string(w.last.Key) != "k" {
		t.Errorf("unexpected message: %+v", w.last)
	}
}

func TestPublishGivesUp(t *testing.T) {
	w := &flakyWriter{failures: 10}
	p := newTestProducer(w, 1)

	if err := p.Publish(context.Background(), nil, []byte("v")); err == nil {
		t.Fatal("expected error")
	}
	if w.calls != 2 {
		t.Errorf("calls = %d, want 2", w.calls)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(&config.Kafka{}); err == nil {
		t.Fatal("expected error")
	}
}
