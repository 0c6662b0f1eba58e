package config

import (
	"github.com/google/wire"
	dc "github.com/ncobase/paybatch/data/config"
	"github.com/ncobase/paybatch/messaging/email"
)

// ProviderSet is the wire provider set for the config package.
var ProviderSet = wire.NewSet(
	ProvideDataConfig,
	ProvideQueueConfig,
	ProvideEmailConfig,
)

// ProvideDataConfig provides the data layer configuration.
func ProvideDataConfig(cfg *Config) *dc.Config { return cfg.Data }

// ProvideQueueConfig provides the queue configuration.
func ProvideQueueConfig(cfg *Config) *Queue { return cfg.Queue }

// ProvideEmailConfig provides the email configuration.
func ProvideEmailConfig(cfg *Config) *email.Email { return cfg.Email }
