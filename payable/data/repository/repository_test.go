package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/data/config"
	_ "github.com/ncobase/paybatch/data/sqlite"
	"github.com/ncobase/paybatch/payable/structs"
)

func newTestData(t *testing.T) *data.Data {
	t.Helper()
	ctx := context.Background()
	d, cleanup, err := data.New(ctx, &config.Database{
		Driver: config.DriverSQLite,
		Source: filepath.Join(t.TempDir(), "payable.db"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(cleanup)
	if err := Migrate(ctx, d); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Running twice must be harmless.
	if err := Migrate(ctx, d); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	return d
}

func TestBatchCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository(newTestData(t))

	b := structs.NewBatch("march", "receivables", 3)
	if err := b.StartProcessing(); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Version != 1 {
		t.Errorf("version = %d, want 1", b.Version)
	}

	got, err := repo.FindByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status != structs.BatchStatusProcessing || got.TotalItems != 3 || got.Name != "march" || !got.IsActive {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(b.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, b.CreatedAt)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestBatchFindSkipsInactive(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository(newTestData(t))

	b := structs.NewBatch("", "", 1)
	if err := repo.Create(ctx, b); err != nil {
		t.Fatal(err)
	}
	b.IsActive = false
	if err := repo.Save(ctx, b); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.FindByID(ctx, b.ID); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("inactive err = %v", err)
	}
}

func TestBatchSaveDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository(newTestData(t))

	b := structs.NewBatch("", "", 2)
	_ = b.StartProcessing()
	if err := repo.Create(ctx, b); err != nil {
		t.Fatal(err)
	}

	first, _ := repo.FindByID(ctx, b.ID)
	second, _ := repo.FindByID(ctx, b.ID)

	if err := first.IncrementSuccess(); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if first.Version != 2 {
		t.Errorf("version = %d, want 2", first.Version)
	}

	if _, err := second.IncrementFailed(structs.FailedPayable{BatchID: b.ID}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, second); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("stale Save err = %v", err)
	}
	if second.Version != 1 {
		t.Errorf("stale version changed to %d", second.Version)
	}

	got, _ := repo.FindByID(ctx, b.ID)
	if got.SuccessCount != 1 || got.FailedCount != 0 {
		t.Errorf("counters = %d/%d, want 1/0", got.SuccessCount, got.FailedCount)
	}
}

func TestBatchSaveRollsBackWithTx(t *testing.T) {
	ctx := context.Background()
	d := newTestData(t)
	repo := NewBatchRepository(d)

	b := structs.NewBatch("", "", 1)
	_ = b.StartProcessing()
	if err := repo.Create(ctx, b); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := d.WithTx(ctx, func(ctx context.Context) error {
		_ = b.IncrementSuccess()
		if err := repo.Save(ctx, b); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v", err)
	}
	got, _ := repo.FindByID(ctx, b.ID)
	if got.SuccessCount != 0 || got.Version != 1 {
		t.Errorf("rolled back batch = %+v", got)
	}
}

func TestPayableAndAssignor(t *testing.T) {
	ctx := context.Background()
	r := New(newTestData(t))

	a := &structs.Assignor{
		ID:        uuid.NewString(),
		Name:      "ACME",
		Email:     "billing@acme.test",
		Document:  "12345678900",
		Phone:     "5511999999999",
		CreatedAt: time.Now().UTC(),
	}
	if err := r.Assignor.Create(ctx, a); err != nil {
		t.Fatalf("create assignor: %v", err)
	}
	got, err := r.Assignor.FindByID(ctx, a.ID)
	if err != nil || got.Email != a.Email {
		t.Fatalf("FindByID = %+v, %v", got, err)
	}
	if _, err := r.Assignor.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrAssignorNotFound) {
		t.Errorf("missing assignor err = %v", err)
	}

	now := time.Now().UTC()
	p := &structs.Payable{
		ID:           uuid.NewString(),
		AssignorID:   a.ID,
		Value:        150.5,
		EmissionDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		BatchID:      "batch-1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.Payable.Create(ctx, p); err != nil {
		t.Fatalf("create payable: %v", err)
	}
	loose := *p
	loose.ID = uuid.NewString()
	loose.BatchID = ""
	if err := r.Payable.Create(ctx, &loose); err != nil {
		t.Fatalf("create payable without batch: %v", err)
	}

	stored, err := r.Payable.FindByID(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Value != 150.5 || !stored.EmissionDate.Equal(p.EmissionDate) || stored.BatchID != "batch-1" {
		t.Errorf("stored = %+v", stored)
	}
	if n, err := r.Payable.CountByBatch(ctx, "batch-1"); err != nil || n != 1 {
		t.Errorf("CountByBatch = %d, %v", n, err)
	}
	if _, err := r.Payable.FindByID(ctx, "nope"); !errors.Is(err, ErrPayableNotFound) {
		t.Errorf("missing payable err = %v", err)
	}
}
