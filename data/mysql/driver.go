// Package mysql provides a MySQL driver for the data layer.
//
//	import _ "github.com/ncobase/paybatch/data/mysql"
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/data/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// driver implements data.DatabaseDriver for MySQL.
type driver struct{}

// Name returns the driver identifier used in configuration files.
func (d *driver) Name() string {
	return config.DriverMySQL
}

// Connect opens a MySQL pool. Source is a go-sql-driver DSN, e.g.
// "user:pass@tcp(localhost:3306)/paybatch?parseTime=true".
func (d *driver) Connect(ctx context.Context, cfg *config.Database) (*sql.DB, error) {
	if cfg.Source == "" {
		return nil, fmt.Errorf("mysql: connection source is empty")
	}

	db, err := sql.Open("mysql", cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("mysql: failed to open connection: %w", err)
	}

	data.ApplyPool(db, cfg, 10, 100)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: failed to ping database: %w", err)
	}

	return db, nil
}

// Rebind returns the query unchanged.
func (d *driver) Rebind(query string) string {
	return query
}

func init() {
	data.RegisterDatabaseDriver(&driver{})
}
