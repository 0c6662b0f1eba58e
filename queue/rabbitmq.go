package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ncobase/paybatch/ctxutil"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/utils/nanoid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel is the part of *amqp.Channel used for publishing and
// topology.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Close() error
}

// RabbitMQ is a durable queue on AMQP 0-9-1.
//
// Ready jobs live in the durable queue {prefix}.{name}. A failed attempt is
// republished to {prefix}.{name}.retry.{ms}, a queue whose message TTL equals
// the backoff delay and which dead-letters back into the main queue.
// Exhausted jobs go to {prefix}.{name}.failed, capped at RemoveOnFail.
// Completed jobs are acknowledged and only counted.
type RabbitMQ struct {
	name      string
	queue     string
	failedQ   string
	failedMax int
	conn      *amqp.Connection

	pubMu sync.Mutex
	pubCh amqpChannel

	retryMu     sync.Mutex
	retryQueues map[int64]string

	ackMu sync.Mutex

	active    atomic.Int64
	completed atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup

	consumers consumers
}

// NewRabbitMQ declares the queue topology on conn. failedMax caps the
// failed queue length and should match JobOptions.RemoveOnFail.
func NewRabbitMQ(conn *amqp.Connection, prefix, name string, failedMax int) (*RabbitMQ, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	return newRabbitMQ(conn, ch, prefix, name, failedMax)
}

func newRabbitMQ(conn *amqp.Connection, ch amqpChannel, prefix, name string, failedMax int) (*RabbitMQ, error) {
	q := &RabbitMQ{
		name:        name,
		queue:       prefix + "." + name,
		failedQ:     prefix + "." + name + ".failed",
		failedMax:   failedMax,
		conn:        conn,
		pubCh:       ch,
		retryQueues: make(map[int64]string),
		done:        make(chan struct{}),
	}

	if _, err := ch.QueueDeclare(q.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", q.queue, err)
	}
	if failedMax > 0 {
		args := amqp.Table{"x-max-length": int64(failedMax), "x-overflow": "drop-head"}
		if _, err := ch.QueueDeclare(q.failedQ, true, false, false, false, args); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("declare %s: %w", q.failedQ, err)
		}
	}
	return q, nil
}

// Name returns the queue name.
func (q *RabbitMQ) Name() string { return q.name }

// Add publishes a persistent job message to the main queue.
func (q *RabbitMQ) Add(ctx context.Context, name string, data any, opts *JobOptions) (*Job, error) {
	select {
	case <-q.done:
		return nil, ErrQueueClosed
	default:
	}

	job, err := newJob(nanoid.PrimaryKey(), name, data, opts)
	if err != nil {
		return nil, err
	}
	if err := q.publish(ctx, q.queue, job); err != nil {
		return nil, fmt.Errorf("rabbitmq add %s: %w", q.name, err)
	}
	return job, nil
}

func (q *RabbitMQ) publish(ctx context.Context, routingKey string, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	return q.pubCh.PublishWithContext(ctx, "", routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Type:         job.Name,
		Timestamp:    job.Timestamp,
		Body:         body,
	})
}

// retryQueue returns the delay queue for d, declaring it on first use.
func (q *RabbitMQ) retryQueue(d time.Duration) (string, error) {
	ms := d.Milliseconds()
	if ms <= 0 {
		return q.queue, nil
	}

	q.retryMu.Lock()
	defer q.retryMu.Unlock()
	if name, ok := q.retryQueues[ms]; ok {
		return name, nil
	}

	name := fmt.Sprintf("%s.retry.%d", q.queue, ms)
	args := amqp.Table{
		"x-message-ttl":             ms,
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": q.queue,
	}
	q.pubMu.Lock()
	_, err := q.pubCh.QueueDeclare(name, true, false, false, false, args)
	q.pubMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("declare %s: %w", name, err)
	}
	q.retryQueues[ms] = name
	return name, nil
}

// Process consumes jobs with a prefetch equal to n.
func (q *RabbitMQ) Process(ctx context.Context, n int, handler Handler) error {
	if handler == nil {
		return ErrNoHandler
	}
	if n <= 0 {
		n = 1
	}
	sem, err := q.consumers.start(n)
	if err != nil {
		return err
	}

	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()
	if err := ch.Qos(n, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}

	tag := q.queue + "-" + nanoid.Must(8)
	deliveries, err := ch.Consume(q.queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume %s: %w", q.queue, err)
	}
	defer q.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(tag, false)
			return nil
		case <-q.done:
			_ = ch.Cancel(tag, false)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq %s: delivery channel closed", q.queue)
			}
			if err := sem.Acquire(ctx); err != nil {
				_ = d.Nack(false, true)
				return nil
			}
			q.wg.Add(1)
			q.active.Add(1)
			go func(d amqp.Delivery) {
				defer q.wg.Done()
				defer sem.Release()
				defer q.active.Add(-1)
				q.deliver(ctx, handler, d)
			}(d)
		}
	}
}

// deliver handles one delivery and settles it on the broker. Acks share the
// consuming channel, so they are serialized.
func (q *RabbitMQ) deliver(ctx context.Context, handler Handler, d amqp.Delivery) {
	err := q.handle(ctx, handler, d)
	q.ackMu.Lock()
	defer q.ackMu.Unlock()
	if err != nil {
		logger.Errorf(ctx, "queue %s: %v", q.name, err)
		if nerr := d.Nack(false, true); nerr != nil {
			logger.Errorf(ctx, "queue %s: nack %s: %v", q.name, d.MessageId, nerr)
		}
		return
	}
	if aerr := d.Ack(false); aerr != nil {
		logger.Errorf(ctx, "queue %s: ack %s: %v", q.name, d.MessageId, aerr)
	}
}

// handle runs the handler and republishes the job when it needs a retry or
// must be kept as failed. A non-nil return leaves the delivery for redelivery.
func (q *RabbitMQ) handle(ctx context.Context, handler Handler, d amqp.Delivery) error {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.Errorf(ctx, "queue %s: dropping undecodable message %s: %v", q.name, d.MessageId, err)
		return nil
	}

	herr := runHandler(ctx, handler, &job)
	s := settle(&job, herr)

	pctx, cancel := ctxutil.WithAsyncContext(ctx, 0)
	defer cancel()
	switch {
	case s.retry:
		name, err := q.retryQueue(s.delay)
		if err != nil {
			return err
		}
		return q.publish(pctx, name, &job)
	case herr == nil:
		q.completed.Add(1)
		return nil
	case q.failedMax > 0 && job.Opts.RemoveOnFail > 0:
		return q.publish(pctx, q.failedQ, &job)
	default:
		return nil
	}
}

// Counts inspects queue depths. Active and completed are tracked by this
// process only.
func (q *RabbitMQ) Counts(_ context.Context) (Counts, error) {
	q.retryMu.Lock()
	retryNames := make([]string, 0, len(q.retryQueues))
	for _, name := range q.retryQueues {
		retryNames = append(retryNames, name)
	}
	q.retryMu.Unlock()

	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	var c Counts
	main, err := q.pubCh.QueueDeclarePassive(q.queue, true, false, false, false, nil)
	if err != nil {
		return c, fmt.Errorf("inspect %s: %w", q.queue, err)
	}
	c.Waiting = int64(main.Messages)

	for _, name := range retryNames {
		if rq, err := q.pubCh.QueueDeclarePassive(name, true, false, false, false, nil); err == nil {
			c.Delayed += int64(rq.Messages)
		}
	}

	if q.failedMax > 0 {
		args := amqp.Table{"x-max-length": int64(q.failedMax), "x-overflow": "drop-head"}
		if fq, err := q.pubCh.QueueDeclarePassive(q.failedQ, true, false, false, false, args); err == nil {
			c.Failed = int64(fq.Messages)
		}
	}
	c.Active = q.active.Load()
	c.Completed = q.completed.Load()
	c.Consumers = q.consumers.stats()
	return c, nil
}

// Close stops consumers and closes the publishing channel. The connection
// stays open.
func (q *RabbitMQ) Close() error {
	var err error
	q.closeOnce.Do(func() {
		close(q.done)
		q.pubMu.Lock()
		err = q.pubCh.Close()
		q.pubMu.Unlock()
	})
	return err
}
