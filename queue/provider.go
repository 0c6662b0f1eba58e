package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/wire"
	"github.com/ncobase/paybatch/config"
	dc "github.com/ncobase/paybatch/data/config"
	"github.com/ncobase/paybatch/data/rabbitmq"
	rdb "github.com/ncobase/paybatch/data/redis"
	"github.com/ncobase/paybatch/logging/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is the queue providers.
var ProviderSet = wire.NewSet(NewFactory)

// OptionsFromConfig builds job options from the queue settings.
func OptionsFromConfig(cfg *config.Queue) JobOptions {
	opts := DefaultJobOptions()
	if cfg == nil {
		return opts
	}
	opts.Attempts = cfg.Attempts
	opts.Backoff.Delay = cfg.BackoffDelay
	opts.RemoveOnComplete = cfg.RemoveOnComplete
	opts.RemoveOnFail = cfg.RemoveOnFail
	return opts.normalize()
}

// Factory opens named queues on the configured driver and shares the
// underlying connection between them.
type Factory struct {
	cfg   *config.Queue
	redis *redis.Client
	amqp  *amqp.Connection

	mu     sync.Mutex
	queues map[string]Queue
}

// NewFactory connects to the backend selected by cfg.Driver.
func NewFactory(ctx context.Context, cfg *config.Queue, data *dc.Config) (*Factory, func(), error) {
	f := &Factory{cfg: cfg, queues: make(map[string]Queue)}

	switch cfg.Driver {
	case config.QueueDriverMemory, "":
	case config.QueueDriverRedis:
		client, err := rdb.Connect(ctx, data.Redis)
		if err != nil {
			return nil, nil, err
		}
		f.redis = client
	case config.QueueDriverRabbitMQ:
		conn, err := rabbitmq.Dial(data.RabbitMQ)
		if err != nil {
			return nil, nil, err
		}
		f.amqp = conn
	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}

	return f, func() { f.Close() }, nil
}

// Open returns the queue called name, creating it on first use.
func (f *Factory) Open(name string) (Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if q, ok := f.queues[name]; ok {
		return q, nil
	}

	var (
		q   Queue
		err error
	)
	switch {
	case f.redis != nil:
		q = NewRedis(f.redis, f.cfg.Prefix, name, f.cfg.PollInterval, WithLease(f.cfg.Lease))
	case f.amqp != nil:
		q, err = NewRabbitMQ(f.amqp, f.cfg.Prefix, name, f.cfg.RemoveOnFail)
	default:
		q = NewMemory(name, f.cfg.PollInterval)
	}
	if err != nil {
		return nil, err
	}
	f.queues[name] = q
	return q, nil
}

// Redis returns the shared redis client, or nil when the driver is not redis.
func (f *Factory) Redis() *redis.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.redis
}

// Close closes every opened queue and then the shared connection.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctx := context.Background()
	for name, q := range f.queues {
		if err := q.Close(); err != nil {
			logger.Errorf(ctx, "close queue %s: %v", name, err)
		}
	}
	f.queues = make(map[string]Queue)

	if f.redis != nil {
		if err := f.redis.Close(); err != nil {
			logger.Errorf(ctx, "close redis: %v", err)
		}
		f.redis = nil
	}
	if f.amqp != nil {
		if err := f.amqp.Close(); err != nil {
			logger.Errorf(ctx, "close rabbitmq: %v", err)
		}
		f.amqp = nil
	}
}
