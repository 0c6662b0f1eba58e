// Package sqlite provides a SQLite driver for the data layer.
//
// It uses mattn/go-sqlite3 and registers itself when imported:
//
//	import _ "github.com/ncobase/paybatch/data/sqlite"
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/data/config"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// driver implements data.DatabaseDriver for SQLite.
type driver struct{}

// Name returns the driver identifier used in configuration files.
func (d *driver) Name() string {
	return config.DriverSQLite
}

// Connect opens a SQLite database. Source may be a file path or a URI such as
// "file:paybatch.db?_busy_timeout=5000&_journal_mode=WAL".
func (d *driver) Connect(ctx context.Context, cfg *config.Database) (*sql.DB, error) {
	if cfg.Source == "" {
		return nil, fmt.Errorf("sqlite: connection source is empty")
	}

	db, err := sql.Open("sqlite3", cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open connection: %w", err)
	}

	// a single writer avoids SQLITE_BUSY under concurrent batch updates
	data.ApplyPool(db, cfg, 2, 1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	return db, nil
}

// Rebind returns the query unchanged, SQLite accepts '?' placeholders.
func (d *driver) Rebind(query string) string {
	return query
}

func init() {
	data.RegisterDatabaseDriver(&driver{})
}
