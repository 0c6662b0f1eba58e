package config

import (
	"time"

	"github.com/spf13/viper"
)

// Batch ingestion settings
type Batch struct {
	MaxItems           int           `json:"max_items" yaml:"max_items"`
	CompleteEmpty      bool          `json:"complete_empty" yaml:"complete_empty"`
	ConflictBackoff    time.Duration `json:"conflict_backoff" yaml:"conflict_backoff"`
	MaxConflictBackoff time.Duration `json:"max_conflict_backoff" yaml:"max_conflict_backoff"`
	NotifyRecipient    string        `json:"notify_recipient" yaml:"notify_recipient"`
	Breaker            *Breaker      `json:"breaker" yaml:"breaker"`
}

// Breaker circuit breaker settings for the item creator
type Breaker struct {
	MaxRequests      uint32        `json:"max_requests" yaml:"max_requests"`
	Interval         time.Duration `json:"interval" yaml:"interval"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
	FailureThreshold uint32        `json:"failure_threshold" yaml:"failure_threshold"`
}

// Events outbox relay settings
type Events struct {
	RelayInterval  time.Duration `json:"relay_interval" yaml:"relay_interval"`
	RelayBatchSize int           `json:"relay_batch_size" yaml:"relay_batch_size"`
	Workers        int           `json:"workers" yaml:"workers"`
}

func getBatchConfig(v *viper.Viper) *Batch {
	return &Batch{
		MaxItems:           getIntOrDefault(v, "batch.max_items", 10000),
		CompleteEmpty:      getBoolOrDefault(v, "batch.complete_empty", false),
		ConflictBackoff:    getDurationOrDefault(v, "batch.conflict_backoff", 10*time.Millisecond),
		MaxConflictBackoff: getDurationOrDefault(v, "batch.max_conflict_backoff", 500*time.Millisecond),
		NotifyRecipient:    v.GetString("batch.notify_recipient"),
		Breaker: &Breaker{
			MaxRequests:      getUint32OrDefault(v, "batch.breaker.max_requests", 5),
			Interval:         getDurationOrDefault(v, "batch.breaker.interval", time.Minute),
			Timeout:          getDurationOrDefault(v, "batch.breaker.timeout", 30*time.Second),
			FailureThreshold: getUint32OrDefault(v, "batch.breaker.failure_threshold", 10),
		},
	}
}

func getEventsConfig(v *viper.Viper) *Events {
	return &Events{
		RelayInterval:  getDurationOrDefault(v, "events.relay_interval", time.Second),
		RelayBatchSize: getIntOrDefault(v, "events.relay_batch_size", 100),
		Workers:        getIntOrDefault(v, "events.workers", 2),
	}
}
