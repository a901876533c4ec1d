package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kapu/herobuilds-api-go/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const buildTimeout = 60 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var noPrewarm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background pre-warm scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if noPrewarm {
				cfg.Scheduler.Enabled = false
			}

			logger.Info("HeroBuilds API starting...",
				zap.String("addr", cfg.Server.Addr()),
				zap.String("source", cfg.Source.BaseURL),
				zap.String("log_level", cfg.Logging.Level))

			buildCtx, buildCancel := context.WithTimeout(cmd.Context(), buildTimeout)
			container, err := app.Build(buildCtx, cfg, logger)
			buildCancel()
			if err != nil {
				logger.Error("Failed to assemble application services", zap.Error(err))
				return err
			}
			defer container.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			if cfg.Scheduler.Enabled {
				container.Scheduler.Start(ctx)
			} else {
				logger.Info("Prewarm scheduler disabled")
			}

			server := container.NewServer()
			errCh := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil {
					errCh <- err
				}
			}()

			var runErr error
			select {
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			case runErr = <-errCh:
				logger.Error("HTTP server error", zap.Error(runErr))
			}

			logger.Info("Shutting down gracefully...")
			cancel()
			container.Scheduler.Stop()
			container.Events.Close()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", zap.Error(err))
			}

			logger.Info("Shutdown complete")
			return runErr
		},
	}

	cmd.Flags().BoolVar(&noPrewarm, "no-prewarm", false, "do not start the background pre-warm scheduler")
	return cmd
}
