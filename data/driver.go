package data

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/ncobase/paybatch/data/config"
)

// DatabaseDriver defines the contract for relational database drivers.
// Drivers register themselves from init() and are looked up by the name used
// in configuration files.
type DatabaseDriver interface {
	// Name returns the driver identifier (e.g., "postgres", "mysql", "sqlite3")
	Name() string

	// Connect opens a pool and verifies it with a ping.
	Connect(ctx context.Context, cfg *config.Database) (*sql.DB, error)

	// Rebind rewrites a query written with '?' placeholders into the
	// driver's native placeholder syntax.
	Rebind(query string) string
}

var (
	databaseDrivers   = make(map[string]DatabaseDriver)
	databaseDriversMu sync.RWMutex
)

// RegisterDatabaseDriver makes a database driver available by name.
// It panics if called twice with the same name or with a nil driver.
func RegisterDatabaseDriver(driver DatabaseDriver) {
	if driver == nil {
		panic("data: RegisterDatabaseDriver driver is nil")
	}
	databaseDriversMu.Lock()
	defer databaseDriversMu.Unlock()

	name := driver.Name()
	if _, dup := databaseDrivers[name]; dup {
		panic("data: RegisterDatabaseDriver called twice for driver " + name)
	}
	databaseDrivers[name] = driver
}

// GetDatabaseDriver returns the registered driver for name.
func GetDatabaseDriver(name string) (DatabaseDriver, error) {
	databaseDriversMu.RLock()
	defer databaseDriversMu.RUnlock()

	driver, ok := databaseDrivers[name]
	if !ok {
		return nil, fmt.Errorf("database driver %q not registered (forgotten import?), available: %v", name, listDrivers())
	}
	return driver, nil
}

// listDrivers returns the registered driver names. Caller holds the lock.
func listDrivers() []string {
	names := make([]string, 0, len(databaseDrivers))
	for name := range databaseDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPool applies the pool settings from cfg, falling back to the given
// defaults when a value is not set.
func ApplyPool(db *sql.DB, cfg *config.Database, defaultIdle, defaultOpen int) {
	if cfg.MaxIdleConn > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConn)
	} else if defaultIdle > 0 {
		db.SetMaxIdleConns(defaultIdle)
	}
	if cfg.MaxOpenConn > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConn)
	} else if defaultOpen > 0 {
		db.SetMaxOpenConns(defaultOpen)
	}
	if cfg.ConnMaxLifeTime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifeTime)
	}
}
