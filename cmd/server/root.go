package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zekret/zekret/internal/logging"
	"github.com/zekret/zekret/internal/server"
	"github.com/zekret/zekret/internal/server/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Zekret server binary.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "zekret",
		Short:         "Zekret - a multi-tenant secrets manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

// newApp is a test seam for server.NewApp.
var newApp = func(ctx context.Context, c *config.Config, l logging.Logger) (appRunner, error) {
	return server.NewApp(ctx, c, l)
}

// appRunner is the part of *server.App the commands drive.
type appRunner interface {
	Run(ctx context.Context) error
	Migrate(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close() error
	userAdmin
}

// bootstrap loads configuration from the config file and flags, builds the
// logger and opens the application.
func bootstrap(cmd *cobra.Command, logOut io.Writer) (appRunner, logging.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logOut, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	app, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}

var logOutput io.Writer = os.Stdout
