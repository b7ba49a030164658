package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferntrail/scrapbook/internal/db"
)

// NewMigrateCommand creates the migrate command with its subcommands.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(newMigrateUpCommand(rootOpts))
	cmd.AddCommand(newMigrateDownCommand(rootOpts))
	cmd.AddCommand(newMigrateStatusCommand(rootOpts))

	return cmd
}

func withMigrator(rootOpts *RootOptions, fn func(*db.Migrator) error) error {
	database, err := db.Open(rootOpts.Config.DataDir)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(db.NewMigrator(database.DB, db.MigrationsFS()))
}

func newMigrateUpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(rootOpts, func(m *db.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				version, err := m.CurrentVersion()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
				return nil
			})
		},
	}
}

func newMigrateDownCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(rootOpts, func(m *db.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				version, err := m.CurrentVersion()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
				return nil
			})
		},
	}
}

func newMigrateStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(rootOpts, func(m *db.Migrator) error {
				if err := m.Initialize(); err != nil {
					return err
				}
				applied, err := m.GetAppliedMigrations()
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				for _, mig := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "V%d  %s  applied %s\n",
						mig.Version, mig.Description, mig.AppliedAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
}
