package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		Long: `Apply pending migrations, seed credential types and serve the REST API
and the gRPC health endpoint until interrupted.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	cmd.SetContext(ctx)

	app, _, err := bootstrap(cmd, logOutput)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run(ctx)
}
