package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"allsidestg/internal/importer"
	"allsidestg/internal/logger"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the balanced-news page and publish new stories until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *cfgPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			im, err := a.newImporter(importer.Interval(a.cfg.PollInterval()))
			if err != nil {
				return err
			}

			a.log.Info("🚀 Starting importer",
				"interval", a.cfg.PollInterval(),
				"fetcher", a.cfg.Fetcher.Kind,
				"store", a.cfg.Store.Backend,
				"dryRun", a.cfg.Importer.DryRun,
			)

			var serve func(context.Context) error
			if a.cfg.Metrics.Enabled {
				serve = func(ctx context.Context) error {
					return a.metrics.Serve(ctx, a.cfg.Metrics.Address, a.log)
				}
			}

			err = runWorkers(ctx, a.log, im.Run, serve)
			a.log.Info("importer stopped")

			return err
		},
	}
}

// runWorkers runs the importer and the optional ops server side by side.
// An ops server failure is logged and never stops publishing.
func runWorkers(ctx context.Context, log *logger.Logger, run, serve func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	if serve != nil {
		g.Go(func() error {
			if err := ignoreCanceled(serve(gctx)); err != nil {
				log.Error("metrics server stopped", "error", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		return run(gctx)
	})

	return ignoreCanceled(g.Wait())
}

