// Package cli wires the scrapbook commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ferntrail/scrapbook/internal/config"
	"github.com/ferntrail/scrapbook/internal/logging"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Config     config.Config
}

// NewRootCommand creates the root command for the scrapbook CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "scrapbook",
		Short:         "Scrapbook content sharing service",
		Long:          "A multi-user scrapbook service with visibility controls and sharing.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.Config = cfg
			logging.Init(os.Stderr, cfg.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}
