package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ncobase/paybatch/concurrency"
)

var (
	ErrInvalidJob  = errors.New("invalid job")
	ErrQueueClosed = errors.New("queue is closed")
	ErrJobNotFound = errors.New("job not found")
	ErrNoHandler   = errors.New("handler is nil")
	ErrJobStalled  = errors.New("job stalled")
)

// BackoffType selects how the retry delay grows.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"
	BackoffExponential BackoffType = "exponential"
)

// Backoff describes the delay before a failed job is retried.
type Backoff struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// JobOptions control delivery and retention of a job.
type JobOptions struct {
	// Attempts is the total number of executions, including the first one.
	Attempts int     `json:"attempts"`
	Backoff  Backoff `json:"backoff"`
	// RemoveOnComplete keeps at most this many completed jobs, 0 keeps none.
	RemoveOnComplete int `json:"remove_on_complete"`
	// RemoveOnFail keeps at most this many failed jobs, 0 keeps none.
	RemoveOnFail int `json:"remove_on_fail"`
}

// DefaultJobOptions returns 4 attempts, exponential backoff from one second
// and retention of 100 completed and 50 failed jobs.
func DefaultJobOptions() JobOptions {
	return JobOptions{
		Attempts:         4,
		Backoff:          Backoff{Type: BackoffExponential, Delay: time.Second},
		RemoveOnComplete: 100,
		RemoveOnFail:     50,
	}
}

func (o JobOptions) normalize() JobOptions {
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.Backoff.Type == "" {
		o.Backoff.Type = BackoffFixed
	}
	if o.RemoveOnComplete < 0 {
		o.RemoveOnComplete = 0
	}
	if o.RemoveOnFail < 0 {
		o.RemoveOnFail = 0
	}
	return o
}

// RetryDelay returns the wait before the next attempt once attemptsMade
// executions have failed. Exponential backoff doubles from Delay: 1s, 2s, 4s.
func (o JobOptions) RetryDelay(attemptsMade int) time.Duration {
	if o.Backoff.Delay <= 0 || attemptsMade <= 0 {
		return 0
	}
	if o.Backoff.Type != BackoffExponential {
		return o.Backoff.Delay
	}
	shift := attemptsMade - 1
	if shift > 30 {
		shift = 30
	}
	return o.Backoff.Delay * time.Duration(1<<uint(shift))
}

// Job is a unit of work stored in a queue.
type Job struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data"`
	Opts         JobOptions      `json:"opts"`
	AttemptsMade int             `json:"attempts_made"`
	Stalled      int             `json:"stalled,omitempty"`
	FailedReason string          `json:"failed_reason,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	ProcessAt    time.Time       `json:"process_at,omitempty"`
	FinishedOn   time.Time       `json:"finished_on,omitempty"`

	// lease token of the consumer running the job
	token string
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v any) error {
	if err := json.Unmarshal(j.Data, v); err != nil {
		return fmt.Errorf("decode job %s: %w", j.ID, err)
	}
	return nil
}

// IsFinalAttempt reports whether the current execution is the last one allowed.
func (j *Job) IsFinalAttempt() bool {
	return j.AttemptsMade+1 >= j.Opts.Attempts
}

// newJob builds a job with a fresh id and normalized options.
func newJob(id, name string, data any, opts *JobOptions) (*Job, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidJob)
	}
	raw, err := marshalData(data)
	if err != nil {
		return nil, err
	}
	o := DefaultJobOptions()
	if opts != nil {
		o = *opts
	}
	return &Job{
		ID:        id,
		Name:      name,
		Data:      raw,
		Opts:      o.normalize(),
		Timestamp: time.Now().UTC(),
	}, nil
}

func marshalData(data any) (json.RawMessage, error) {
	switch d := data.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		return d, nil
	case []byte:
		if !json.Valid(d) {
			return nil, fmt.Errorf("%w: payload is not valid JSON", ErrInvalidJob)
		}
		return d, nil
	default:
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
		}
		return raw, nil
	}
}

// Handler processes a job. Returning an error lets the queue retry the job
// according to its options or move it to the failed set.
type Handler func(ctx context.Context, job *Job) error

// Counts is a snapshot of job states.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`

	// Consumers is the handler slot usage of this process, nil while it is
	// not consuming.
	Consumers *concurrency.Stats `json:"consumers,omitempty"`
}

// consumers tracks the handler slots of the running Process call.
type consumers struct {
	limiter atomic.Pointer[concurrency.Limiter]
}

func (c *consumers) start(n int) (*concurrency.Limiter, error) {
	if n <= 0 {
		n = 1
	}
	l, err := concurrency.NewLimiter(n)
	if err != nil {
		return nil, err
	}
	c.limiter.Store(l)
	return l, nil
}

func (c *consumers) stats() *concurrency.Stats {
	l := c.limiter.Load()
	if l == nil {
		return nil
	}
	s := l.Stats()
	return &s
}

// Queue is a durable job queue with retry and retention.
type Queue interface {
	// Name returns the queue name.
	Name() string
	// Add enqueues a job. Nil opts uses DefaultJobOptions.
	Add(ctx context.Context, name string, data any, opts *JobOptions) (*Job, error)
	// Process consumes jobs with at most concurrency handlers in flight and
	// blocks until ctx is done or the queue is closed.
	Process(ctx context.Context, concurrency int, handler Handler) error
	// Counts returns the number of jobs per state.
	Counts(ctx context.Context) (Counts, error)
	// Close stops consumers and releases resources.
	Close() error
}

// settlement is the decision taken after a handler returns.
type settlement struct {
	retry bool
	delay time.Duration
}

// settle records the attempt on job and decides whether it is retried.
func settle(job *Job, err error) settlement {
	job.AttemptsMade++
	if err == nil {
		job.FailedReason = ""
		job.FinishedOn = time.Now().UTC()
		return settlement{}
	}
	job.FailedReason = err.Error()
	if job.AttemptsMade < job.Opts.Attempts {
		delay := job.Opts.RetryDelay(job.AttemptsMade)
		job.ProcessAt = time.Now().Add(delay).UTC()
		return settlement{retry: true, delay: delay}
	}
	job.FinishedOn = time.Now().UTC()
	return settlement{}
}

// stall records an execution lost with its consumer. A stall counts as an
// attempt but never uses up the final one, so the last attempt always runs
// its handler. A job that stalls more often than it may be attempted fails.
func stall(job *Job) (settlement, bool) {
	job.Stalled++
	job.FailedReason = ErrJobStalled.Error()
	if job.Stalled > job.Opts.Attempts {
		job.AttemptsMade++
		job.FinishedOn = time.Now().UTC()
		return settlement{}, true
	}
	if job.AttemptsMade+1 < job.Opts.Attempts {
		job.AttemptsMade++
	}
	delay := job.Opts.RetryDelay(job.AttemptsMade)
	job.ProcessAt = time.Now().Add(delay).UTC()
	return settlement{retry: true, delay: delay}, false
}

// runHandler invokes h and converts a panic into an error.
func runHandler(ctx context.Context, h Handler, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()
	return h(ctx, job)
}
