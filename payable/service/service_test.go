package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/data/config"
	_ "github.com/ncobase/paybatch/data/sqlite"
	"github.com/ncobase/paybatch/event"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/payable/data/repository"
	"github.com/ncobase/paybatch/payable/structs"
	"github.com/ncobase/paybatch/queue"
)

type testEnv struct {
	d      *data.Data
	repo   *repository.Repository
	outbox event.Store
	log    *logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	d, cleanup, err := data.New(ctx, &config.Database{
		Driver: config.DriverSQLite,
		Source: filepath.Join(t.TempDir(), "paybatch.db"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(cleanup)
	if err := repository.Migrate(ctx, d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := event.NewStore(ctx, d)
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}
	return &testEnv{d: d, repo: repository.New(d), outbox: store, log: logger.StdLogger()}
}

// processingBatch stores a processing batch expecting total items.
func (e *testEnv) processingBatch(t *testing.T, total int) *structs.Batch {
	t.Helper()
	b := structs.NewBatch("", "", total)
	if err := b.StartProcessing(); err != nil {
		t.Fatal(err)
	}
	if err := e.repo.Batch.Create(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	return b
}

func (e *testEnv) batch(t *testing.T, id string) *structs.Batch {
	t.Helper()
	b, err := e.repo.Batch.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	return b
}

func (e *testEnv) pendingTypes(t *testing.T) []event.Type {
	t.Helper()
	events, err := e.outbox.Pending(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	types := make([]event.Type, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func (e *testEnv) assignor(t *testing.T) string {
	t.Helper()
	a := &structs.Assignor{
		ID:        uuid.NewString(),
		Name:      "ACME",
		Email:     "billing@acme.test",
		Document:  "12345678900",
		Phone:     "5511999999999",
		CreatedAt: time.Now().UTC(),
	}
	if err := e.repo.Assignor.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a.ID
}

type addedJob struct {
	name string
	data any
	opts queue.JobOptions
}

// fakeQueue records added jobs. failAt makes the n-th Add (0-based) fail.
type fakeQueue struct {
	mu     sync.Mutex
	jobs   []addedJob
	failAt int
}

func newFakeQueue() *fakeQueue { return &fakeQueue{failAt: -1} }

func (q *fakeQueue) Add(_ context.Context, name string, data any, opts *queue.JobOptions) (*queue.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failAt >= 0 && len(q.jobs) == q.failAt {
		return nil, errors.New("queue unavailable")
	}
	q.jobs = append(q.jobs, addedJob{name: name, data: data, opts: *opts})
	return &queue.Job{ID: uuid.NewString(), Name: name}, nil
}

func (q *fakeQueue) added() []addedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]addedJob(nil), q.jobs...)
}

type countingWaker struct {
	mu sync.Mutex
	n  int
}

func (w *countingWaker) Notify() {
	w.mu.Lock()
	w.n++
	w.mu.Unlock()
}

func (w *countingWaker) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

func payable(assignor string) structs.PayableInput {
	return structs.PayableInput{Value: 100.5, EmissionDate: "2024-05-01", Assignor: assignor}
}
