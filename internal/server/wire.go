//go:build wireinject
// +build wireinject

package server

import (
	"context"

	"github.com/google/wire"
	"github.com/ncobase/paybatch/config"
	"github.com/ncobase/paybatch/logging/logger"
)

// New connects the storage and queue backends and wires the services.
func New(ctx context.Context, cfg *config.Config, l *logger.Logger) (*App, func(), error) {
	panic(wire.Build(ProviderSet))
}
