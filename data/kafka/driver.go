// Package kafka wraps a kafka-go writer with bounded retries.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/paybatch/data/config"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer used by the producer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes messages to a single topic.
type Producer struct {
	writer       MessageWriter
	topic        string
	timeout      time.Duration
	attempts     int
	backoffStart time.Duration
	backoffMax   time.Duration
}

// NewProducer creates a producer for cfg.Topic.
func NewProducer(cfg *config.Kafka) (*Producer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: brokers are empty")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	if cfg.ClientID != "" {
		w.Transport = &kafka.Transport{ClientID: cfg.ClientID}
	}
	return NewProducerWithWriter(w, cfg), nil
}

// NewProducerWithWriter builds a producer around an existing writer.
func NewProducerWithWriter(w MessageWriter, cfg *config.Kafka) *Producer {
	p := &Producer{
		writer:       w,
		topic:        cfg.Topic,
		timeout:      cfg.WriteTimeout,
		attempts:     cfg.RetryAttempts,
		backoffStart: 100 * time.Millisecond,
		backoffMax:   cfg.RetryBackoffMax,
	}
	if p.timeout <= 0 {
		p.timeout = 30 * time.Second
	}
	if p.backoffMax <= 0 {
		p.backoffMax = 30 * time.Second
	}
	return p
}

// Topic returns the destination topic.
func (p *Producer) Topic() string { return p.topic }

// Publish writes one message, retrying with doubling backoff.
func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Topic: p.topic,
		Key:   key,
		Value: value,
		Time:  time.Now(),
	}

	backoff := p.backoffStart
	var lastErr error
	for attempt := 0; attempt <= p.attempts; attempt++ {
		lastErr = p.writer.WriteMessages(timeoutCtx, msg)
		if lastErr == nil {
			return nil
		}
		if timeoutCtx.Err() != nil {
			return fmt.Errorf("publish context timeout: %w", timeoutCtx.Err())
		}
		if attempt < p.attempts {
			select {
			case <-time.After(backoff):
			case <-timeoutCtx.Done():
				return fmt.Errorf("publish context timeout: %w", timeoutCtx.Err())
			}
			backoff *= 2
			if backoff > p.backoffMax {
				backoff = p.backoffMax
			}
		}
	}

	return fmt.Errorf("failed to write message after %d attempts: %w", p.attempts+1, lastErr)
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return errors.New("kafka writer is not initialized")
	}
	return p.writer.Close()
}
