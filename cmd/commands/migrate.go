package commands

import (
	"context"
	"fmt"

	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/event"
	"github.com/ncobase/paybatch/payable/data/repository"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:     "migrate",
		Aliases: []string{"m"},
		Args:    cobra.NoArgs,
		Short:   "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, cleanup, err := bootstrap(*configFile)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			d, dataCleanup, err := data.New(ctx, cfg.Data.Database)
			if err != nil {
				return err
			}
			defer dataCleanup()

			if err := repository.Migrate(ctx, d); err != nil {
				return err
			}
			if _, err := event.NewStore(ctx, d); err != nil {
				return err
			}
			l.Infof(ctx, "schema ready on %s", d.DriverName())
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
