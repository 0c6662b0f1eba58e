package queue

import (
	"context"
	"sync"
	"time"

	"github.com/ncobase/paybatch/utils/nanoid"
)

// Memory is an in-process queue. Jobs are lost on restart, so it serves
// development and tests where producer and consumers share a process.
type Memory struct {
	name         string
	pollInterval time.Duration

	mu        sync.Mutex
	waiting   []*Job
	delayed   *TimerQueue
	active    map[string]*Job
	completed []*Job
	failed    []*Job
	closed    bool

	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	consumers consumers
}

// NewMemory creates an in-process queue.
func NewMemory(name string, pollInterval time.Duration) *Memory {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Memory{
		name:         name,
		pollInterval: pollInterval,
		delayed:      NewTimerQueue(),
		active:       make(map[string]*Job),
		notify:       make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Name returns the queue name.
func (q *Memory) Name() string { return q.name }

// Add enqueues a job at the tail of the waiting list.
func (q *Memory) Add(_ context.Context, name string, data any, opts *JobOptions) (*Job, error) {
	job, err := newJob(nanoid.PrimaryKey(), name, data, opts)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q.waiting = append(q.waiting, job)
	snapshot := *job
	q.mu.Unlock()

	q.signal()
	return &snapshot, nil
}

// Process consumes jobs until ctx is done or the queue is closed, then waits
// for in-flight handlers to return.
func (q *Memory) Process(ctx context.Context, n int, handler Handler) error {
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
	defer q.wg.Wait()

	for {
		if err := sem.Acquire(ctx); err != nil {
			return nil
		}

		job, wait := q.next(time.Now())
		if job == nil {
			sem.Release()
			if wait < 0 || wait > q.pollInterval {
				wait = q.pollInterval
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-q.done:
				timer.Stop()
				return nil
			case <-q.notify:
				timer.Stop()
			case <-timer.C:
			}
			continue
		}

		q.wg.Add(1)
		go func(job *Job) {
			defer q.wg.Done()
			defer sem.Release()
			snapshot := *job
			err := runHandler(ctx, handler, &snapshot)
			q.finish(job, err)
		}(job)
	}
}

// next promotes due delayed jobs and moves the head of the waiting list to
// active. When nothing is ready it returns the wait until the next delayed job.
func (q *Memory) next(now time.Time) (*Job, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, -1
	}
	q.waiting = append(q.waiting, q.delayed.Due(now)...)
	if len(q.waiting) == 0 {
		return nil, q.delayed.NextDue(now)
	}
	job := q.waiting[0]
	q.waiting[0] = nil
	q.waiting = q.waiting[1:]
	q.active[job.ID] = job
	return job, 0
}

// finish records the outcome and reschedules or retires the job.
func (q *Memory) finish(job *Job, err error) {
	q.mu.Lock()
	delete(q.active, job.ID)
	s := settle(job, err)
	switch {
	case s.retry:
		_ = q.delayed.Push(job)
	case err == nil:
		q.completed = keepLast(append(q.completed, job), job.Opts.RemoveOnComplete)
	default:
		q.failed = keepLast(append(q.failed, job), job.Opts.RemoveOnFail)
	}
	q.mu.Unlock()

	if s.retry {
		q.signal()
	}
}

// Failed returns copies of the retained failed jobs, oldest first.
func (q *Memory) Failed() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, len(q.failed))
	for i, j := range q.failed {
		out[i] = *j
	}
	return out
}

// Counts returns the number of jobs per state.
func (q *Memory) Counts(_ context.Context) (Counts, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Counts{
		Waiting:   int64(len(q.waiting)),
		Delayed:   int64(q.delayed.Len()),
		Active:    int64(len(q.active)),
		Completed: int64(len(q.completed)),
		Failed:    int64(len(q.failed)),
		Consumers: q.consumers.stats(),
	}, nil
}

// Close stops consumers. In-flight handlers still complete.
func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

func (q *Memory) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// keepLast trims jobs to the newest n entries.
func keepLast(jobs []*Job, n int) []*Job {
	if n <= 0 {
		return nil
	}
	if len(jobs) <= n {
		return jobs
	}
	out := make([]*Job, n)
	copy(out, jobs[len(jobs)-n:])
	return out
}
