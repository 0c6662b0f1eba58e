package commands

import (
	"context"
	"fmt"

	"github.com/ncobase/paybatch/config"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/logging/observes"
	"github.com/ncobase/paybatch/version"
)

// bootstrap loads the configuration and sets up logging, sentry and tracing.
func bootstrap(configFile string) (*config.Config, *logger.Logger, func(), error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	logCleanup, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	cleanups = append(cleanups, logCleanup)
	logger.SetVersion(version.Version)
	l := logger.StdLogger()

	if s := cfg.Observes.Sentry; s != nil && s.Endpoint != "" {
		sentryCleanup, err := observes.NewSentry(&observes.SentryOptions{
			Dsn:         s.Endpoint,
			Name:        cfg.AppName,
			Release:     version.Version,
			Environment: s.Environment,
			SampleRate:  s.SampleRate,
		})
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("failed to init sentry: %w", err)
		}
		cleanups = append(cleanups, sentryCleanup)
	}

	if t := cfg.Observes.Tracer; t != nil && t.Endpoint != "" {
		shutdown, err := observes.NewTracer(&observes.TracerOption{
			URL:                t.Endpoint,
			Name:               cfg.AppName,
			Version:            version.Version,
			Branch:             version.Branch,
			Revision:           version.Revision,
			Environment:        t.Environment,
			SamplingRate:       t.SamplingRate,
			BatchTimeout:       t.BatchTimeout,
			ExportTimeout:      t.ExportTimeout,
			MaxExportBatchSize: t.MaxExportBatchSize,
		})
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("failed to init tracer: %w", err)
		}
		cleanups = append(cleanups, func() {
			if err := shutdown(context.Background()); err != nil {
				l.Errorf(context.Background(), "tracer shutdown: %v", err)
			}
		})
	}

	return cfg, l, cleanup, nil
}
