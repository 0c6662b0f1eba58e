package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ncobase/paybatch/ctxutil"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/utils/nanoid"
	"github.com/redis/go-redis/v9"
)

// DefaultLease is how long a consumer may hold a job without renewing it.
const DefaultLease = 30 * time.Second

const (
	promoteLimit = 100
	stalledLimit = 100
)

// Redis key layout, all under {prefix}:{queue}:
//
//	wait       list, producers LPUSH and consumers RPOP
//	active     zset of ids held by a consumer, scored by lease deadline in unix ms
//	locks      hash of active id to the lease token of its holder
//	delayed    zset of ids scored by ProcessAt in unix ms
//	completed  list of retained completed ids, newest first
//	failed     list of retained failed ids, newest first
//	job:{id}   JSON encoded Job
type redisKeys struct {
	wait, active, locks, delayed, completed, failed, jobPrefix string
}

func newRedisKeys(prefix, name string) redisKeys {
	base := prefix + ":" + name + ":"
	return redisKeys{
		wait:      base + "wait",
		active:    base + "active",
		locks:     base + "locks",
		delayed:   base + "delayed",
		completed: base + "completed",
		failed:    base + "failed",
		jobPrefix: base + "job:",
	}
}

func (k redisKeys) job(id string) string { return k.jobPrefix + id }

var (
	// KEYS: wait, job key. ARGV: id, job json.
	addScript = redis.NewScript(`
redis.call('SET', KEYS[2], ARGV[2])
redis.call('LPUSH', KEYS[1], ARGV[1])
return 1
`)

	// KEYS: delayed, wait, active, locks. ARGV: now ms, promote limit, lease deadline ms, job key prefix, token.
	// Returns {id, json}, {id, ""} when the body is gone, or nil when nothing waits.
	fetchScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, id in ipairs(due) do
  redis.call('ZREM', KEYS[1], id)
  redis.call('LPUSH', KEYS[2], id)
end
local id = redis.call('RPOP', KEYS[2])
if not id then
  return false
end
local raw = redis.call('GET', ARGV[4] .. id)
if not raw then
  return {id, ''}
end
redis.call('ZADD', KEYS[3], ARGV[3], id)
redis.call('HSET', KEYS[4], id, ARGV[5])
return {id, raw}
`)

	// KEYS: active, locks. ARGV: now ms, new lease deadline ms, limit, token.
	// Re-leases expired ids to the caller and returns them.
	claimStalledScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[3])
for _, id in ipairs(ids) do
  redis.call('ZADD', KEYS[1], ARGV[2], id)
  redis.call('HSET', KEYS[2], id, ARGV[4])
end
return ids
`)

	// KEYS: active, locks. ARGV: id, token, lease deadline ms.
	extendScript = redis.NewScript(`
if redis.call('HGET', KEYS[2], ARGV[1]) ~= ARGV[2] then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[1])
return 1
`)

	// KEYS: active, delayed, job key, locks. ARGV: id, job json, process at ms, token.
	// Returns 0 when the caller no longer holds the lease.
	retryScript = redis.NewScript(`
if redis.call('HGET', KEYS[4], ARGV[1]) ~= ARGV[4] then
  return 0
end
redis.call('HDEL', KEYS[4], ARGV[1])
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('SET', KEYS[3], ARGV[2])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
return 1
`)

	// KEYS: active, target list, job key, locks. ARGV: id, job json, keep, job key prefix, token.
	// Returns -1 when the caller no longer holds the lease, else the number of trimmed jobs.
	finishScript = redis.NewScript(`
if redis.call('HGET', KEYS[4], ARGV[1]) ~= ARGV[5] then
  return -1
end
redis.call('HDEL', KEYS[4], ARGV[1])
redis.call('ZREM', KEYS[1], ARGV[1])
local keep = tonumber(ARGV[3])
if keep <= 0 then
  redis.call('DEL', KEYS[3])
  return 0
end
redis.call('SET', KEYS[3], ARGV[2])
redis.call('LPUSH', KEYS[2], ARGV[1])
local removed = redis.call('LRANGE', KEYS[2], keep, -1)
for _, id in ipairs(removed) do
  redis.call('DEL', ARGV[4] .. id)
end
redis.call('LTRIM', KEYS[2], 0, keep - 1)
return #removed
`)
)

// RedisOption configures a Redis queue.
type RedisOption func(*Redis)

// WithLease sets how long a consumer holds a job between renewals. A job
// whose lease runs out is handed to another consumer.
func WithLease(d time.Duration) RedisOption {
	return func(q *Redis) {
		if d > 0 {
			q.lease = d
		}
	}
}

// Redis is a durable queue backed by go-redis. Delivery is at least once:
// running jobs hold a lease that their consumer renews, and every consumer
// requeues jobs whose lease expired.
type Redis struct {
	name         string
	client       redis.UniversalClient
	keys         redisKeys
	pollInterval time.Duration
	lease        time.Duration

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup

	consumers consumers
}

// NewRedis creates a queue on client. The client is owned by the caller.
// pollInterval is the idle wait between fetches and may be below a second.
func NewRedis(client redis.UniversalClient, prefix, name string, pollInterval time.Duration, opts ...RedisOption) *Redis {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	q := &Redis{
		name:         name,
		client:       client,
		keys:         newRedisKeys(prefix, name),
		pollInterval: pollInterval,
		lease:        DefaultLease,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Name returns the queue name.
func (q *Redis) Name() string { return q.name }

// Add stores the job and pushes its id onto the wait list atomically.
func (q *Redis) Add(ctx context.Context, name string, data any, opts *JobOptions) (*Job, error) {
	select {
	case <-q.done:
		return nil, ErrQueueClosed
	default:
	}

	job, err := newJob(nanoid.PrimaryKey(), name, data, opts)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	if err := addScript.Run(ctx, q.client, []string{q.keys.wait, q.keys.job(job.ID)}, job.ID, raw).Err(); err != nil {
		return nil, fmt.Errorf("redis add %s: %w", q.name, err)
	}
	return job, nil
}

// Process consumes jobs until ctx is done or the queue is closed. It also
// requeues jobs abandoned by crashed consumers.
func (q *Redis) Process(ctx context.Context, n int, handler Handler) error {
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

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-q.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	defer q.wg.Wait()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.reapStalled(ctx)
	}()

	for {
		if err := sem.Acquire(ctx); err != nil {
			return nil
		}

		job, err := q.next(ctx)
		if err != nil {
			sem.Release()
			if ctx.Err() != nil {
				return nil
			}
			logger.Errorf(ctx, "queue %s: fetch job: %v", q.name, err)
		}
		if job == nil {
			if err == nil {
				sem.Release()
			}
			if !q.idle(ctx) {
				return nil
			}
			continue
		}

		q.wg.Add(1)
		go func(job *Job) {
			defer q.wg.Done()
			defer sem.Release()
			q.run(ctx, handler, job)
		}(job)
	}
}

func (q *Redis) idle(ctx context.Context) bool {
	t := time.NewTimer(q.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// run executes one job while renewing its lease, then settles it.
func (q *Redis) run(ctx context.Context, handler Handler, job *Job) {
	leaseCtx, stopLease := context.WithCancel(ctx)
	go q.keepLease(leaseCtx, job)
	herr := runHandler(ctx, handler, job)
	stopLease()

	// settle with a detached context so shutdown does not strand the job in active
	sctx, scancel := ctxutil.WithAsyncContext(ctx, 0)
	defer scancel()
	held, err := q.finish(sctx, job, settle(job, herr), herr != nil)
	if err != nil {
		logger.Errorf(sctx, "queue %s: settle job %s: %v", q.name, job.ID, err)
		return
	}
	if !held {
		logger.Warnf(sctx, "queue %s: job %s lost its lease and was requeued before it finished", q.name, job.ID)
	}
}

func (q *Redis) keepLease(ctx context.Context, job *Job) {
	t := time.NewTicker(q.lease / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			held, err := extendScript.Run(ctx, q.client, []string{q.keys.active, q.keys.locks},
				job.ID, job.token, time.Now().Add(q.lease).UnixMilli()).Int()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warnf(ctx, "queue %s: renew lease of job %s: %v", q.name, job.ID, err)
				}
				continue
			}
			if held == 0 {
				logger.Warnf(ctx, "queue %s: job %s lost its lease", q.name, job.ID)
				return
			}
		}
	}
}

// next promotes due delayed jobs and leases the oldest waiting one.
func (q *Redis) next(ctx context.Context) (*Job, error) {
	now := time.Now()
	token := nanoid.Must(16)
	res, err := fetchScript.Run(ctx, q.client,
		[]string{q.keys.delayed, q.keys.wait, q.keys.active, q.keys.locks},
		now.UnixMilli(), promoteLimit, now.Add(q.lease).UnixMilli(), q.keys.jobPrefix, token,
	).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected fetch reply %v", res)
	}

	id, raw := res[0], res[1]
	if raw == "" {
		logger.Warnf(ctx, "queue %s: %v: %s", q.name, ErrJobNotFound, id)
		return nil, nil
	}
	job, err := q.decode(ctx, id, []byte(raw))
	if job != nil {
		job.token = token
	}
	return job, err
}

// load reads a job body. It returns nil when the body is gone.
func (q *Redis) load(ctx context.Context, id string) (*Job, error) {
	raw, err := q.client.Get(ctx, q.keys.job(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q.decode(ctx, id, raw)
}

// decode drops undecodable jobs from active so they are not redelivered forever.
func (q *Redis) decode(ctx context.Context, id string, raw []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		q.release(ctx, id)
		logger.Errorf(ctx, "queue %s: dropping undecodable job %s: %v", q.name, id, err)
		return nil, nil
	}
	return &job, nil
}

func (q *Redis) release(ctx context.Context, id string) {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.keys.active, id)
	pipe.HDel(ctx, q.keys.locks, id)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnf(ctx, "queue %s: release job %s: %v", q.name, id, err)
	}
}

// finish stores the settled job. It reports false when the caller no longer
// holds the lease, which happens when the lease expired and the job was
// handed to another consumer.
func (q *Redis) finish(ctx context.Context, job *Job, s settlement, failed bool) (bool, error) {
	raw, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	if s.retry {
		n, err := retryScript.Run(ctx, q.client,
			[]string{q.keys.active, q.keys.delayed, q.keys.job(job.ID), q.keys.locks},
			job.ID, raw, job.ProcessAt.UnixMilli(), job.token).Int()
		return n == 1, err
	}

	target, keep := q.keys.completed, job.Opts.RemoveOnComplete
	if failed {
		target, keep = q.keys.failed, job.Opts.RemoveOnFail
	}
	n, err := finishScript.Run(ctx, q.client,
		[]string{q.keys.active, target, q.keys.job(job.ID), q.keys.locks},
		job.ID, raw, keep, q.keys.jobPrefix, job.token).Int()
	return n >= 0, err
}

func (q *Redis) reapStalled(ctx context.Context) {
	t := time.NewTicker(q.lease / 2)
	defer t.Stop()
	for {
		if _, err := q.recoverStalled(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf(ctx, "queue %s: recover stalled jobs: %v", q.name, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// recoverStalled requeues jobs whose lease expired and returns how many it
// settled. See stall for how a stall is counted.
func (q *Redis) recoverStalled(ctx context.Context) (int, error) {
	now := time.Now()
	token := nanoid.Must(16)
	ids, err := claimStalledScript.Run(ctx, q.client, []string{q.keys.active, q.keys.locks},
		now.UnixMilli(), now.Add(q.lease).UnixMilli(), stalledLimit, token).StringSlice()
	if err != nil {
		return 0, fmt.Errorf("claim stalled: %w", err)
	}

	recovered := 0
	for _, id := range ids {
		job, err := q.load(ctx, id)
		if err != nil {
			return recovered, err
		}
		if job == nil {
			q.release(ctx, id)
			continue
		}

		job.token = token
		s, failed := stall(job)
		held, err := q.finish(ctx, job, s, failed)
		if err != nil {
			return recovered, err
		}
		if held {
			recovered++
			logger.Warnf(ctx, "queue %s: job %s stalled (%d times), attempts made %d", q.name, id, job.Stalled, job.AttemptsMade)
		}
	}
	return recovered, nil
}

// Counts returns the number of jobs per state.
func (q *Redis) Counts(ctx context.Context) (Counts, error) {
	pipe := q.client.Pipeline()
	wait := pipe.LLen(ctx, q.keys.wait)
	delayed := pipe.ZCard(ctx, q.keys.delayed)
	active := pipe.ZCard(ctx, q.keys.active)
	completed := pipe.LLen(ctx, q.keys.completed)
	failed := pipe.LLen(ctx, q.keys.failed)
	if _, err := pipe.Exec(ctx); err != nil {
		return Counts{}, fmt.Errorf("redis counts %s: %w", q.name, err)
	}
	return Counts{
		Waiting:   wait.Val(),
		Delayed:   delayed.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
		Consumers: q.consumers.stats(),
	}, nil
}

// Close stops consumers. The client stays open.
func (q *Redis) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
