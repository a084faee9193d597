package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fincast/internal/app"
	"fincast/internal/infrastructure"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		Long: `Serve exposes forecasts, the impact matrix and observation history over
HTTP, plus health checks and Prometheus metrics. It stops gracefully on
SIGINT or SIGTERM.

Example:
  fincast serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			logger, err := opts.logger(cmd, cfg)
			if err != nil {
				return err
			}
			defer infrastructure.CloseLogFile()

			application, err := app.NewApplication(cfg, logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return application.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: configured)")
	return cmd
}
