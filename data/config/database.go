package config

import (
	"time"

	"github.com/spf13/viper"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Database database config struct
type Database struct {
	Driver          string        `json:"driver" yaml:"driver"`
	Source          string        `json:"source" yaml:"source"`
	MaxIdleConn     int           `json:"max_idle_conn" yaml:"max_idle_conn"`
	MaxOpenConn     int           `json:"max_open_conn" yaml:"max_open_conn"`
	ConnMaxLifeTime time.Duration `json:"conn_max_life_time" yaml:"conn_max_life_time"`
	Migrate         bool          `json:"migrate" yaml:"migrate"`
}

// getDatabaseConfig reads database configurations
func getDatabaseConfig(v *viper.Viper) *Database {
	driver := DriverSQLite
	if v.IsSet("data.database.driver") {
		driver = v.GetString("data.database.driver")
	}
	source := "file:paybatch.db?_busy_timeout=5000&_journal_mode=WAL"
	if v.IsSet("data.database.source") {
		source = v.GetString("data.database.source")
	}
	migrate := true
	if v.IsSet("data.database.migrate") {
		migrate = v.GetBool("data.database.migrate")
	}

	return &Database{
		Driver:          driver,
		Source:          source,
		MaxIdleConn:     v.GetInt("data.database.max_idle_conn"),
		MaxOpenConn:     v.GetInt("data.database.max_open_conn"),
		ConnMaxLifeTime: v.GetDuration("data.database.max_life_time"),
		Migrate:         migrate,
	}
}
