package queue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T, opts ...RedisOption) (*Redis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := NewRedis(client, "test", "payable", 5*time.Millisecond, opts...)
	t.Cleanup(func() { _ = q.Close() })
	return q, client
}

func waitCounts(t *testing.T, q Queue, done func(Counts) bool) Counts {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		c, err := q.Counts(context.Background())
		if err != nil {
			t.Fatalf("Counts: %v", err)
		}
		if done(c) {
			return c
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out, counts %+v", c)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func jobKeys(t *testing.T, client *redis.Client) []string {
	t.Helper()
	keys, err := client.Keys(context.Background(), "test:payable:job:*").Result()
	if err != nil {
		t.Fatal(err)
	}
	return keys
}

func TestRedisProcessesJobs(t *testing.T) {
	q, _ := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := q.Add(ctx, "work", payload{N: i}, nil); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if c, _ := q.Counts(ctx); c.Waiting != 3 {
		t.Fatalf("waiting = %d", c.Waiting)
	}

	var (
		mu   sync.Mutex
		seen []int
	)
	go func() {
		_ = q.Process(ctx, 2, func(_ context.Context, job *Job) error {
			var p payload
			if err := job.Decode(&p); err != nil {
				return err
			}
			mu.Lock()
			seen = append(seen, p.N)
			mu.Unlock()
			return nil
		})
	}()

	c := waitCounts(t, q, func(c Counts) bool { return c.Completed == 3 && c.Active == 0 })
	if c.Waiting != 0 || c.Failed != 0 || c.Delayed != 0 {
		t.Errorf("counts = %+v", c)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Errorf("handled %v", seen)
	}
}

func TestRedisRetriesWithBackoffThenFails(t *testing.T) {
	q, client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delay := 20 * time.Millisecond
	opts := &JobOptions{
		Attempts:     3,
		Backoff:      Backoff{Type: BackoffExponential, Delay: delay},
		RemoveOnFail: 10,
	}
	job, err := q.Add(ctx, "work", payload{N: 1}, opts)
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu       sync.Mutex
		attempts []int
		at       []time.Time
	)
	go func() {
		_ = q.Process(ctx, 1, func(_ context.Context, job *Job) error {
			mu.Lock()
			attempts = append(attempts, job.AttemptsMade)
			at = append(at, time.Now())
			mu.Unlock()
			return errors.New("always fails")
		})
	}()

	waitCounts(t, q, func(c Counts) bool { return c.Failed == 1 })

	mu.Lock()
	defer mu.Unlock()
	if len(attempts) != 3 || attempts[0] != 0 || attempts[1] != 1 || attempts[2] != 2 {
		t.Fatalf("attemptsMade seen = %v, want [0 1 2]", attempts)
	}
	for i, want := range []time.Duration{delay, 2 * delay} {
		gap := at[i+1].Sub(at[i])
		if gap < want-time.Millisecond {
			t.Errorf("retry %d came after %v, want at least %v", i+1, gap, want)
		}
		if gap > 500*time.Millisecond {
			t.Errorf("retry %d came after %v, delayed jobs are promoted too late", i+1, gap)
		}
	}

	failed, err := client.LRange(ctx, q.keys.failed, 0, -1).Result()
	if err != nil || len(failed) != 1 || failed[0] != job.ID {
		t.Fatalf("failed list = %v, %v", failed, err)
	}
	stored, err := q.load(ctx, job.ID)
	if err != nil || stored == nil {
		t.Fatalf("load failed job: %v, %v", stored, err)
	}
	if stored.AttemptsMade != 3 || stored.FailedReason != "always fails" || stored.FinishedOn.IsZero() {
		t.Errorf("failed job = %+v", stored)
	}
}

func TestRedisRetention(t *testing.T) {
	q, client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keepTwo := &JobOptions{Attempts: 1, RemoveOnComplete: 2}
	for i := 0; i < 5; i++ {
		if _, err := q.Add(ctx, "ok", payload{N: i}, keepTwo); err != nil {
			t.Fatal(err)
		}
	}
	keepNone := &JobOptions{Attempts: 1, RemoveOnFail: 0}
	if _, err := q.Add(ctx, "bad", nil, keepNone); err != nil {
		t.Fatal(err)
	}

	var (
		mu      sync.Mutex
		handled int
	)
	go func() {
		_ = q.Process(ctx, 2, func(_ context.Context, job *Job) error {
			mu.Lock()
			handled++
			mu.Unlock()
			if job.Name == "bad" {
				return errors.New("boom")
			}
			return nil
		})
	}()

	deadline := time.Now().Add(3 * time.Second)
	for {
		mu.Lock()
		n := handled
		mu.Unlock()
		c, _ := q.Counts(ctx)
		if n == 6 && c.Active == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out: handled %d, counts %+v", n, c)
		}
		time.Sleep(5 * time.Millisecond)
	}

	c, _ := q.Counts(ctx)
	if c.Completed != 2 || c.Failed != 0 || c.Waiting != 0 {
		t.Errorf("counts = %+v", c)
	}
	if keys := jobKeys(t, client); len(keys) != 2 {
		t.Errorf("job bodies kept = %v, want the 2 retained completed jobs", keys)
	}
}

func TestRedisRecoverStalledCountsAnAttempt(t *testing.T) {
	q, _ := newTestRedis(t, WithLease(20*time.Millisecond))
	ctx := context.Background()

	added, err := q.Add(ctx, "work", nil, &JobOptions{Attempts: 3, RemoveOnFail: 10})
	if err != nil {
		t.Fatal(err)
	}
	job, err := q.next(ctx)
	if err != nil || job == nil || job.ID != added.ID {
		t.Fatalf("next = %+v, %v", job, err)
	}
	if n, _ := q.recoverStalled(ctx); n != 0 {
		t.Fatalf("recovered %d jobs before the lease expired", n)
	}

	time.Sleep(30 * time.Millisecond)
	n, err := q.recoverStalled(ctx)
	if err != nil || n != 1 {
		t.Fatalf("recoverStalled = %d, %v", n, err)
	}
	c, _ := q.Counts(ctx)
	if c.Active != 0 || c.Delayed+c.Waiting != 1 {
		t.Fatalf("counts after recovery = %+v", c)
	}

	again, err := q.next(ctx)
	if err != nil || again == nil {
		t.Fatalf("redelivery = %+v, %v", again, err)
	}
	if again.AttemptsMade != 1 || again.Stalled != 1 || again.FailedReason != ErrJobStalled.Error() {
		t.Errorf("redelivered job = %+v", again)
	}

	held, err := q.finish(ctx, job, settle(job, nil), false)
	if err != nil || held {
		t.Fatalf("abandoned consumer settled the redelivered job: held %v, %v", held, err)
	}
	held, err = q.finish(ctx, again, settle(again, nil), false)
	if err != nil || !held {
		t.Fatalf("current holder could not settle: held %v, %v", held, err)
	}
	if c, _ := q.Counts(ctx); c.Completed != 1 || c.Active != 0 {
		t.Errorf("counts after settle = %+v", c)
	}
}

func TestRedisLateFinishAfterRecoveryIsIgnored(t *testing.T) {
	q, _ := newTestRedis(t, WithLease(20*time.Millisecond))
	ctx := context.Background()

	if _, err := q.Add(ctx, "work", nil, &JobOptions{Attempts: 2}); err != nil {
		t.Fatal(err)
	}
	job, err := q.next(ctx)
	if err != nil || job == nil {
		t.Fatalf("next = %+v, %v", job, err)
	}
	time.Sleep(30 * time.Millisecond)
	if n, err := q.recoverStalled(ctx); err != nil || n != 1 {
		t.Fatalf("recoverStalled = %d, %v", n, err)
	}

	held, err := q.finish(ctx, job, settle(job, nil), false)
	if err != nil {
		t.Fatal(err)
	}
	if held {
		t.Error("a consumer whose lease expired must not settle the job")
	}
	c, _ := q.Counts(ctx)
	if c.Completed != 0 || c.Delayed+c.Waiting != 1 {
		t.Errorf("counts = %+v", c)
	}
}

func TestRedisStallNeverConsumesFinalAttempt(t *testing.T) {
	q, _ := newTestRedis(t, WithLease(20*time.Millisecond))
	ctx := context.Background()

	if _, err := q.Add(ctx, "work", nil, &JobOptions{Attempts: 1, RemoveOnFail: 5}); err != nil {
		t.Fatal(err)
	}

	if job, _ := q.next(ctx); job == nil {
		t.Fatal("expected a job")
	}
	time.Sleep(30 * time.Millisecond)
	if n, _ := q.recoverStalled(ctx); n != 1 {
		t.Fatalf("first stall recovered %d", n)
	}
	job, err := q.next(ctx)
	if err != nil || job == nil {
		t.Fatalf("redelivery = %+v, %v", job, err)
	}
	if job.AttemptsMade != 0 || !job.IsFinalAttempt() {
		t.Fatalf("a stall used up the final attempt: %+v", job)
	}

	time.Sleep(30 * time.Millisecond)
	if n, _ := q.recoverStalled(ctx); n != 1 {
		t.Fatalf("second stall recovered %d", n)
	}
	c, _ := q.Counts(ctx)
	if c.Failed != 1 || c.Waiting+c.Delayed+c.Active != 0 {
		t.Errorf("counts = %+v, want the job failed after stalling twice", c)
	}
}

func TestRedisConsumerPicksUpJobOfCrashedConsumer(t *testing.T) {
	crashed, client := newTestRedis(t, WithLease(30*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	added, err := crashed.Add(ctx, "work", nil, &JobOptions{Attempts: 4})
	if err != nil {
		t.Fatal(err)
	}
	if job, err := crashed.next(ctx); err != nil || job == nil {
		t.Fatalf("next = %+v, %v", job, err)
	}

	survivor := NewRedis(client, "test", "payable", 5*time.Millisecond, WithLease(30*time.Millisecond))
	defer survivor.Close()
	handled := make(chan *Job, 1)
	go func() {
		_ = survivor.Process(ctx, 1, func(_ context.Context, job *Job) error {
			handled <- job
			return nil
		})
	}()

	select {
	case job := <-handled:
		if job.ID != added.ID || job.AttemptsMade != 1 || job.Stalled != 1 {
			t.Errorf("recovered job = %+v", job)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("job stranded in active")
	}
	waitCounts(t, survivor, func(c Counts) bool { return c.Completed == 1 && c.Active == 0 })
}

func TestRedisRenewsLeaseWhileHandlerRuns(t *testing.T) {
	q, _ := newTestRedis(t, WithLease(90*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := q.Add(ctx, "slow", nil, &JobOptions{Attempts: 3}); err != nil {
		t.Fatal(err)
	}

	var (
		mu    sync.Mutex
		calls []*Job
	)
	go func() {
		_ = q.Process(ctx, 2, func(_ context.Context, job *Job) error {
			mu.Lock()
			calls = append(calls, job)
			mu.Unlock()
			time.Sleep(250 * time.Millisecond)
			return nil
		})
	}()

	waitCounts(t, q, func(c Counts) bool { return c.Completed == 1 && c.Active == 0 })
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0].Stalled != 0 {
		t.Errorf("handler calls = %d, a running job must keep its lease", len(calls))
	}
}

func TestRedisDropsMissingJobBody(t *testing.T) {
	q, client := newTestRedis(t)
	ctx := context.Background()

	job, err := q.Add(ctx, "work", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Del(ctx, q.keys.job(job.ID)).Err(); err != nil {
		t.Fatal(err)
	}
	got, err := q.next(ctx)
	if err != nil || got != nil {
		t.Fatalf("next = %+v, %v", got, err)
	}
	c, _ := q.Counts(ctx)
	if c.Waiting != 0 || c.Active != 0 {
		t.Errorf("counts = %+v", c)
	}
}

func TestRedisAddAfterClose(t *testing.T) {
	q, _ := newTestRedis(t)
	_ = q.Close()
	if _, err := q.Add(context.Background(), "work", nil, nil); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("err = %v", err)
	}
	if !strings.HasSuffix(q.keys.active, ":active") {
		t.Errorf("active key = %s", q.keys.active)
	}
}
