package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kapu/herobuilds-api-go/internal/app"
	"github.com/kapu/herobuilds-api-go/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newPrewarmCommand(opts *rootOptions) *cobra.Command {
	var heroes []string

	cmd := &cobra.Command{
		Use:   "prewarm",
		Short: "Run a single pre-warm sweep over the catalog and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := restrictCatalog(cfg, heroes); err != nil {
				return err
			}

			logger, err := opts.newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			buildCtx, buildCancel := context.WithTimeout(ctx, buildTimeout)
			container, err := app.Build(buildCtx, cfg, logger)
			buildCancel()
			if err != nil {
				return err
			}
			defer container.Close()

			result, err := container.Scheduler.RunOnce(ctx)
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				logger.Warn("Prewarm interrupted", zap.String("run_id", result.RunID))
			}

			logger.Info("Prewarm complete",
				zap.String("run_id", result.RunID),
				zap.Int("failed", result.Failed))
			fmt.Fprintf(cmd.OutOrStdout(), "prewarmed %d/%d heroes in %s\n",
				result.Total-result.Failed, result.Total, result.Duration.Round(time.Millisecond))
			if result.Total > 0 && result.Failed == result.Total {
				return fmt.Errorf("every hero failed to refresh")
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&heroes, "hero", nil, "pre-warm only this catalog hero (can be repeated)")
	return cmd
}

// restrictCatalog narrows the sweep to the named heroes, which must all be in the catalog.
func restrictCatalog(cfg *config.Config, heroes []string) error {
	if len(heroes) == 0 {
		return nil
	}
	catalog, err := app.LoadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	for _, name := range heroes {
		if !catalog.Contains(name) {
			return fmt.Errorf("hero %q is not in the catalog", name)
		}
	}
	cfg.Catalog.Heroes = heroes
	return nil
}
