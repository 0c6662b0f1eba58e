package config

import (
	"time"

	"github.com/spf13/viper"
)

// Queue drivers
const (
	QueueDriverMemory   = "memory"
	QueueDriverRedis    = "redis"
	QueueDriverRabbitMQ = "rabbitmq"
)

// Queue work queue and dead-letter queue config
type Queue struct {
	Driver           string        `json:"driver" yaml:"driver"`
	Prefix           string        `json:"prefix" yaml:"prefix"`
	Name             string        `json:"name" yaml:"name"`
	DeadLetterName   string        `json:"dead_letter_name" yaml:"dead_letter_name"`
	Concurrency      int           `json:"concurrency" yaml:"concurrency"`
	Attempts         int           `json:"attempts" yaml:"attempts"`
	BackoffDelay     time.Duration `json:"backoff_delay" yaml:"backoff_delay"`
	RemoveOnComplete int           `json:"remove_on_complete" yaml:"remove_on_complete"`
	RemoveOnFail     int           `json:"remove_on_fail" yaml:"remove_on_fail"`
	PollInterval     time.Duration `json:"poll_interval" yaml:"poll_interval"`
	Lease            time.Duration `json:"lease" yaml:"lease"`
}

func getQueueConfig(v *viper.Viper) *Queue {
	return &Queue{
		Driver:           getStringOrDefault(v, "queue.driver", QueueDriverMemory),
		Prefix:           getStringOrDefault(v, "queue.prefix", "paybatch"),
		Name:             getStringOrDefault(v, "queue.name", "payable"),
		DeadLetterName:   getStringOrDefault(v, "queue.dead_letter_name", "payable-dead-letter"),
		Concurrency:      getIntOrDefault(v, "queue.concurrency", 1),
		Attempts:         getIntOrDefault(v, "queue.attempts", 4),
		BackoffDelay:     getDurationOrDefault(v, "queue.backoff_delay", time.Second),
		RemoveOnComplete: getIntOrDefault(v, "queue.remove_on_complete", 100),
		RemoveOnFail:     getIntOrDefault(v, "queue.remove_on_fail", 50),
		PollInterval:     getDurationOrDefault(v, "queue.poll_interval", time.Second),
		Lease:            getDurationOrDefault(v, "queue.lease", 30*time.Second),
	}
}
