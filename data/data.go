package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ncobase/paybatch/data/config"
	"github.com/ncobase/paybatch/logging/logger"
)

type ContextKey string

const (
	ContextKeyTransaction ContextKey = "tx"
)

var (
	// ErrClosed is returned when the data layer has been closed.
	ErrClosed = errors.New("data layer is closed")
)

// Executor is satisfied by both *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Data represents the data layer implementation
type Data struct {
	db     *sql.DB
	driver DatabaseDriver
	cfg    *config.Database

	mu     sync.RWMutex
	closed bool
}

// New opens the configured database and returns the data layer with a cleanup func.
func New(ctx context.Context, cfg *config.Database) (*Data, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("database config is nil")
	}
	driver, err := GetDatabaseDriver(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := driver.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	d := NewWithDB(db, driver)
	d.cfg = cfg
	cleanup := func() {
		if err := d.Close(); err != nil {
			logger.Errorf(context.Background(), "data layer close error: %v", err)
		}
	}
	return d, cleanup, nil
}

// NewWithDB wraps an already opened pool.
func NewWithDB(db *sql.DB, driver DatabaseDriver) *Data {
	return &Data{db: db, driver: driver}
}

// DB returns the underlying pool.
func (d *Data) DB() *sql.DB {
	return d.db
}

// DriverName returns the name of the active driver.
func (d *Data) DriverName() string {
	return d.driver.Name()
}

// Rebind rewrites '?' placeholders for the active driver.
func (d *Data) Rebind(query string) string {
	return d.driver.Rebind(query)
}

// Conn returns the transaction stored in ctx, or the pool when there is none.
func (d *Data) Conn(ctx context.Context) Executor {
	if tx, err := GetTx(ctx); err == nil {
		return tx
	}
	return d.db
}

// ForUpdate returns the row lock clause to append to a SELECT. It is empty
// outside a transaction and on SQLite, whose write transactions already
// serialize.
func (d *Data) ForUpdate(ctx context.Context) string {
	if _, err := GetTx(ctx); err != nil {
		return ""
	}
	switch d.driver.Name() {
	case config.DriverPostgres, config.DriverMySQL:
		return " FOR UPDATE"
	default:
		return ""
	}
}

// GetTx retrieves transaction from context
func GetTx(ctx context.Context) (*sql.Tx, error) {
	tx, ok := ctx.Value(ContextKeyTransaction).(*sql.Tx)
	if !ok {
		return nil, errors.New("transaction not found in context")
	}
	return tx, nil
}

// WithTx wraps function within transaction. Nested calls join the outer transaction.
func (d *Data) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	if _, err := GetTx(ctx); err == nil {
		return fn(ctx)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(context.WithValue(ctx, ContextKeyTransaction, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// Ping checks that the database is reachable.
func (d *Data) Ping(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return d.db.PingContext(ctx)
}

// Close closes the pool. It is safe to call more than once.
func (d *Data) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}
