package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/data/config"
)

func openTestData(t *testing.T) *data.Data {
	t.Helper()
	cfg := &config.Database{
		Driver: config.DriverSQLite,
		Source: filepath.Join(t.TempDir(), "test.db"),
	}
	d, cleanup, err := data.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(cleanup)
	if _, err := d.DB().Exec(`CREATE TABLE kv (k VARCHAR(64) PRIMARY KEY, v INTEGER NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return d
}

func count(t *testing.T, d *data.Data) int {
	t.Helper()
	var n int
	if err := d.DB().QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWithTxCommit(t *testing.T) {
	d := openTestData(t)
	ctx := context.Background()

	err := d.WithTx(ctx, func(ctx context.Context) error {
		if _, err := d.Conn(ctx).ExecContext(ctx, d.Rebind(`INSERT INTO kv (k, v) VALUES (?, ?)`), "a", 1); err != nil {
			return err
		}
		// nested calls join the outer transaction
		return d.WithTx(ctx, func(ctx context.Context) error {
			_, err := d.Conn(ctx).ExecContext(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, "b", 2)
			return err
		})
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if n := count(t, d); n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}
}

func TestWithTxRollback(t *testing.T) {
	d := openTestData(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := d.WithTx(ctx, func(ctx context.Context) error {
		if _, err := d.Conn(ctx).ExecContext(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, "a", 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if n := count(t, d); n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
}

func TestClosed(t *testing.T) {
	d := openTestData(t)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := d.Ping(context.Background()); !errors.Is(err, data.ErrClosed) {
		t.Errorf("Ping err = %v, want ErrClosed", err)
	}
	if err := d.WithTx(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, data.ErrClosed) {
		t.Errorf("WithTx err = %v, want ErrClosed", err)
	}
}

func TestUnknownDriver(t *testing.T) {
	_, _, err := data.New(context.Background(), &config.Database{Driver: "oracle", Source: "x"})
	if err == nil {
		t.Fatal("expected error for unregistered driver")
	}
}
