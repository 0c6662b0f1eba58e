// Package commands implements the paybatch command line.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "paybatch",
		Short:        "Batch payable ingestion service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: search config.yaml)")

	rootCmd.AddCommand(
		NewServeCommand(&configFile),
		NewWorkerCommand(&configFile),
		NewMigrateCommand(&configFile),
		NewAssignorCommand(&configFile),
		NewVersionCommand(),
	)

	return rootCmd
}
