package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ncobase/paybatch/data"
	"github.com/ncobase/paybatch/payable/data/repository"
	"github.com/ncobase/paybatch/payable/structs"
	"github.com/spf13/cobra"
)

// NewAssignorCommand creates the assignor command
func NewAssignorCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assignor",
		Short: "Assignor management commands",
	}
	cmd.AddCommand(newAssignorCreateCommand(configFile))
	return cmd
}

func newAssignorCreateCommand(configFile *string) *cobra.Command {
	var a structs.Assignor

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an assignor payables can refer to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, cleanup, err := bootstrap(*configFile)
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
			if cfg.Data.Database.Migrate {
				if err := repository.Migrate(ctx, d); err != nil {
					return err
				}
			}

			if a.ID == "" {
				a.ID = uuid.NewString()
			}
			a.CreatedAt = time.Now().UTC()
			if err := repository.NewAssignorRepository(d).Create(ctx, &a); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&a.ID, "id", "", "assignor id (default: a new UUID)")
	cmd.Flags().StringVar(&a.Name, "name", "", "assignor name")
	cmd.Flags().StringVar(&a.Email, "email", "", "assignor email")
	cmd.Flags().StringVar(&a.Document, "document", "", "assignor document number")
	cmd.Flags().StringVar(&a.Phone, "phone", "", "assignor phone")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
