package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/payable/structs"
	"github.com/ncobase/paybatch/queue"
)

type fakeCreator struct {
	createFn func(in structs.PayableInput, batchID string) (*structs.Payable, error)
}

func (f *fakeCreator) Create(_ context.Context, in structs.PayableInput, batchID string) (*structs.Payable, error) {
	return f.createFn(in, batchID)
}

type reported struct {
	batchID string
	out     Outcome
}

type fakeReporter struct {
	calls []reported
	err   error
}

func (f *fakeReporter) ReportOutcome(_ context.Context, batchID string, out Outcome) error {
	f.calls = append(f.calls, reported{batchID: batchID, out: out})
	return f.err
}

func newJob(t *testing.T, p structs.PayableJob, attemptsMade int) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return &queue.Job{
		ID:           uuid.NewString(),
		Name:         structs.JobCreatePayable,
		Data:         raw,
		Opts:         queue.DefaultJobOptions(),
		AttemptsMade: attemptsMade,
	}
}

func TestItemWorkerReportsOnlyFinalFailure(t *testing.T) {
	createErr := errors.New("assignor not found")
	creator := &fakeCreator{createFn: func(structs.PayableInput, string) (*structs.Payable, error) {
		return nil, createErr
	}}
	reporter := &fakeReporter{}
	w := NewItemWorker(creator, reporter, logger.StdLogger())
	p := structs.PayableJob{PayableInput: payable(uuid.NewString()), BatchID: "b1"}

	for made := 0; made < 4; made++ {
		err := w.Handle(context.Background(), newJob(t, p, made))
		if !errors.Is(err, createErr) {
			t.Fatalf("attempt %d err = %v, want the creation error", made+1, err)
		}
		wantCalls := 0
		if made == 3 {
			wantCalls = 1
		}
		if len(reporter.calls) != wantCalls {
			t.Fatalf("after attempt %d: %d reports, want %d", made+1, len(reporter.calls), wantCalls)
		}
	}

	call := reporter.calls[0]
	if call.batchID != "b1" || call.out.Failure == nil {
		t.Fatalf("report = %+v", call)
	}
	if call.out.Failure.ErrorMessage != "assignor not found" || call.out.Failure.Assignor != p.Assignor {
		t.Errorf("failure = %+v", call.out.Failure)
	}
}

func TestItemWorkerSuccess(t *testing.T) {
	creator := &fakeCreator{createFn: func(in structs.PayableInput, batchID string) (*structs.Payable, error) {
		return &structs.Payable{ID: "p1", BatchID: batchID}, nil
	}}
	reporter := &fakeReporter{err: errors.New("database down")}
	w := NewItemWorker(creator, reporter, logger.StdLogger())

	// Reporting errors are swallowed.
	job := newJob(t, structs.PayableJob{PayableInput: payable(uuid.NewString()), BatchID: "b1"}, 0)
	if err := w.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(reporter.calls) != 1 || reporter.calls[0].out.Failure != nil {
		t.Errorf("reports = %+v", reporter.calls)
	}
}

func TestItemWorkerWithoutBatch(t *testing.T) {
	createErr := errors.New("boom")
	creator := &fakeCreator{createFn: func(structs.PayableInput, string) (*structs.Payable, error) {
		return nil, createErr
	}}
	reporter := &fakeReporter{}
	w := NewItemWorker(creator, reporter, logger.StdLogger())

	job := newJob(t, structs.PayableJob{PayableInput: payable(uuid.NewString())}, 3)
	if err := w.Handle(context.Background(), job); !errors.Is(err, createErr) {
		t.Errorf("err = %v", err)
	}
	if len(reporter.calls) != 0 {
		t.Errorf("reports = %+v", reporter.calls)
	}
}

func TestItemWorkerRejectsUndecodableJob(t *testing.T) {
	reporter := &fakeReporter{}
	w := NewItemWorker(&fakeCreator{}, reporter, logger.StdLogger())
	job := &queue.Job{ID: "j1", Data: json.RawMessage(`"not an object"`), Opts: queue.DefaultJobOptions()}
	if err := w.Handle(context.Background(), job); err == nil {
		t.Error("expected decode error")
	}
	if len(reporter.calls) != 0 {
		t.Error("undecodable jobs are not reported")
	}
}
