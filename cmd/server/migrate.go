package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE:  runMigrateDown,
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	app, _, err := bootstrap(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	cmd.Println("Running migrations...")
	if err := app.Migrate(cmd.Context()); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	app, _, err := bootstrap(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	cmd.Println("Rolling back last migration...")
	if err := app.Rollback(cmd.Context()); err != nil {
		return oops.Code("ROLLBACK_FAILED").With("operation", "roll back migration").Wrap(err)
	}

	cmd.Println("Rollback completed successfully")
	return nil
}
