package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	dc "github.com/ncobase/paybatch/data/config"
	logcfg "github.com/ncobase/paybatch/logging/logger/config"
	"github.com/ncobase/paybatch/messaging/email"
	"github.com/spf13/viper"
)

var (
	config *Config
	mu     sync.RWMutex
	v      = viper.New()
)

// Config represents the configuration implementation.
type Config struct {
	AppName  string
	RunMode  string
	Host     string
	Port     int
	Logger   *logcfg.Config
	Data     *dc.Config
	Queue    *Queue
	Batch    *Batch
	Events   *Events
	Email    *email.Email
	Observes *Observes
	Viper    *viper.Viper
}

// GetConfig returns the last loaded configuration.
func GetConfig() (*Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	return config, nil
}

// LoadConfig loads the configuration from the file. An empty path searches
// the default locations for config.{yaml,json,toml}.
func LoadConfig(configPath string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		ex, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		v.SetConfigName("config")
		v.AddConfigPath("/etc/paybatch")
		v.AddConfigPath("$HOME/.paybatch")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Dir(ex))
	}
	v.SetEnvPrefix("PAYBATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config = fromViper(v)
	return config, nil
}

// fromViper builds a Config from an already populated viper instance.
func fromViper(v *viper.Viper) *Config {
	return &Config{
		AppName:  getStringOrDefault(v, "app_name", "paybatch"),
		RunMode:  getStringOrDefault(v, "run_mode", "release"),
		Host:     getStringOrDefault(v, "server.host", "0.0.0.0"),
		Port:     getIntOrDefault(v, "server.port", 3000),
		Logger:   logcfg.GetConfig(v),
		Data:     dc.GetConfig(v),
		Queue:    getQueueConfig(v),
		Batch:    getBatchConfig(v),
		Events:   getEventsConfig(v),
		Email:    getEmailConfig(v),
		Observes: getObservesConfig(v),
		Viper:    v,
	}
}

// Reload reloads the configuration from the file.
func Reload() error {
	mu.Lock()
	defer mu.Unlock()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	config = fromViper(v)
	return nil
}

// Watch watches the configuration file and reloads it when it changes.
func Watch(callback func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := Reload(); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}
		cfg, err := GetConfig()
		if err != nil {
			return
		}
		callback(cfg)
	})
	v.WatchConfig()
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
