package config

import (
	"time"

	"github.com/spf13/viper"
)

// Kafka kafka config struct
type Kafka struct {
	Brokers         []string      `json:"brokers" yaml:"brokers"`
	ClientID        string        `json:"client_id" yaml:"client_id"`
	Topic           string        `json:"topic" yaml:"topic"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	RetryAttempts   int           `json:"retry_attempts" yaml:"retry_attempts"`
	RetryBackoffMax time.Duration `json:"retry_backoff_max" yaml:"retry_backoff_max"`
}

// getKafkaConfigs reads Kafka configurations
func getKafkaConfigs(v *viper.Viper) *Kafka {
	topic := "paybatch.events"
	if v.IsSet("data.kafka.topic") {
		topic = v.GetString("data.kafka.topic")
	}
	attempts := 3
	if v.IsSet("data.kafka.retry_attempts") {
		attempts = v.GetInt("data.kafka.retry_attempts")
	}
	backoffMax := 30 * time.Second
	if v.IsSet("data.kafka.retry_backoff_max") {
		backoffMax = v.GetDuration("data.kafka.retry_backoff_max")
	}

	return &Kafka{
		Brokers:         v.GetStringSlice("data.kafka.brokers"),
		ClientID:        v.GetString("data.kafka.client_id"),
		Topic:           topic,
		WriteTimeout:    v.GetDuration("data.kafka.write_timeout"),
		RetryAttempts:   attempts,
		RetryBackoffMax: backoffMax,
	}
}
