package server

import (
	"context"
	"time"

	"github.com/google/wire"
	"github.com/ncobase/paybatch/cache"
	"github.com/ncobase/paybatch/config"
	"github.com/ncobase/paybatch/data"
	dc "github.com/ncobase/paybatch/data/config"
	"github.com/ncobase/paybatch/data/kafka"
	"github.com/ncobase/paybatch/event"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/messaging/email"
	"github.com/ncobase/paybatch/payable/data/repository"
	"github.com/ncobase/paybatch/payable/handler"
	"github.com/ncobase/paybatch/payable/service"
	"github.com/ncobase/paybatch/payable/structs"
	"github.com/ncobase/paybatch/queue"
)

// WorkQueue carries create-payable jobs.
type WorkQueue queue.Queue

// DeadLetterQueue carries failed-payable jobs.
type DeadLetterQueue queue.Queue

// ProviderSet is the wire provider set for the server package.
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	queue.ProviderSet,
	ProvideData,
	ProvideOutbox,
	ProvideWorkQueue,
	ProvideDeadLetterQueue,
	ProvideBus,
	ProvideRelay,
	ProvideSender,
	ProvideRepository,
	ProvideService,
	ProvideKafkaSink,
	ProvideHandler,
	newApp,
)

const assignorCacheTTL = 10 * time.Minute

// ProvideData opens the database and migrates it when configured to.
func ProvideData(ctx context.Context, cfg *dc.Config) (*data.Data, func(), error) {
	d, cleanup, err := data.New(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, d); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return d, cleanup, nil
}

// ProvideOutbox opens the event outbox on d.
func ProvideOutbox(ctx context.Context, d *data.Data) (event.Store, error) {
	return event.NewStore(ctx, d)
}

// ProvideWorkQueue opens the create-payable queue.
func ProvideWorkQueue(f *queue.Factory, cfg *config.Queue) (WorkQueue, error) {
	return f.Open(cfg.Name)
}

// ProvideDeadLetterQueue opens the failed-payable queue.
func ProvideDeadLetterQueue(f *queue.Factory, cfg *config.Queue) (DeadLetterQueue, error) {
	return f.Open(cfg.DeadLetterName)
}

// ProvideBus starts the in-process event bus.
func ProvideBus(cfg *config.Config) (*event.Bus, func()) {
	bus := event.NewBus(cfg.Events.Workers, 0)
	bus.Start()
	return bus, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		bus.Stop(ctx)
	}
}

// ProvideRelay creates the outbox relay publishing to bus.
func ProvideRelay(store event.Store, bus *event.Bus, cfg *config.Config) *event.Relay {
	return event.NewRelay(store, bus, cfg.Events.RelayInterval, cfg.Events.RelayBatchSize)
}

// ProvideSender returns the notification sender. A misconfigured provider
// disables notifications instead of failing startup.
func ProvideSender(ctx context.Context, cfg *email.Email, l *logger.Logger) email.Sender {
	sender, err := email.ProvideSender(cfg)
	if err != nil {
		l.Warnf(ctx, "email notifications disabled: %v", err)
		return nil
	}
	return sender
}

// ProvideRepository creates the payable repositories. Assignor lookups are
// cached in redis when the queue runs on redis.
func ProvideRepository(d *data.Data, f *queue.Factory, cfg *config.Queue) *repository.Repository {
	repo := repository.New(d)
	if rc := f.Redis(); rc != nil {
		assignors := cache.NewCache[structs.Assignor](rc, cfg.Prefix+":assignor", assignorCacheTTL)
		repo.Assignor = repository.NewCachedAssignorRepository(repo.Assignor, assignors)
	}
	return repo
}

// ProvideService wires the payable services and subscribes the notifier.
func ProvideService(
	cfg *config.Config,
	d *data.Data,
	repo *repository.Repository,
	outbox event.Store,
	relay *event.Relay,
	bus *event.Bus,
	work WorkQueue,
	deadLetter DeadLetterQueue,
	sender email.Sender,
	l *logger.Logger,
) *service.Service {
	svc := service.New(cfg, d, repo, outbox, relay, work, deadLetter, sender, l)
	svc.Notifier.Subscribe(bus)
	return svc
}

// ProvideKafkaSink forwards every bus event to kafka. It returns nil when no
// brokers are configured.
func ProvideKafkaSink(ctx context.Context, cfg *dc.Config, bus *event.Bus, l *logger.Logger) (*event.KafkaSink, func(), error) {
	k := cfg.Kafka
	if k == nil || len(k.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := kafka.NewProducer(k)
	if err != nil {
		return nil, nil, err
	}
	sink := event.NewKafkaSink(producer)
	bus.Subscribe(event.Wildcard, sink.Handle)
	l.Infof(ctx, "publishing events to kafka topic %s", producer.Topic())
	return sink, func() {
		if err := sink.Close(); err != nil {
			l.Errorf(context.Background(), "close kafka sink: %v", err)
		}
	}, nil
}

// ProvideHandler creates the HTTP handlers.
func ProvideHandler(cfg *config.Config, svc *service.Service, l *logger.Logger) *handler.Handler {
	return handler.New(svc.Submission, svc.Queues, cfg.Batch.MaxItems, l)
}
