package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/paybatch/config"
	"github.com/ncobase/paybatch/internal/server"
	"github.com/ncobase/paybatch/version"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command, which runs the HTTP server
// together with the workers.
func NewServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the item workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*configFile, func(ctx context.Context, app *server.App) error {
				return app.Serve(ctx)
			})
		},
	}
}

// NewWorkerCommand creates the worker command
func NewWorkerCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Start the item workers and the event relay only",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*configFile, func(ctx context.Context, app *server.App) error {
				return app.RunWorkers(ctx)
			})
		},
	}
}

func run(configFile string, fn func(ctx context.Context, app *server.App) error) error {
	cfg, l, cleanup, err := bootstrap(configFile)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.RunMode != "" {
		gin.SetMode(cfg.RunMode)
	}
	config.Watch(func(c *config.Config) {
		l.UpdateLevel(c.Logger.Level)
		l.Infof(context.Background(), "config reloaded, log level %d", c.Logger.Level)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, appCleanup, err := server.New(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer appCleanup()

	err = fn(ctx, app)
	l.Infof(context.Background(), "%s stopped", cfg.AppName)
	return err
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetVersionInfo()
			if asJSON {
				out, err := info.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
