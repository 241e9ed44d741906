package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"allsidestg/internal/config"
	"allsidestg/internal/crawler"
	"allsidestg/internal/formatter"
	"allsidestg/internal/importer"
	"allsidestg/internal/logger"
	"allsidestg/internal/metrics"
	"allsidestg/internal/notifier"
	"allsidestg/internal/state"
	"allsidestg/pkg/utils"
)

// app holds the wired collaborators for one command invocation.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	store    state.Store
	client   *crawler.Client
	notifier notifier.Notifier
	metrics  *metrics.Metrics
	closers  []func()
}

func loadConfig(path string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format), nil
}

// newApp opens the store and builds the fetcher. withNotifier also connects to Telegram.
func newApp(ctx context.Context, cfgPath string, withNotifier bool) (*app, error) {
	cfg, log, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	fetcher, closeFetcher, err := newFetcher(cfg.Fetcher)
	if err != nil {
		return nil, err
	}

	a.closers = append(a.closers, closeFetcher)
	a.client = crawler.NewClient(fetcher)

	store, err := state.Open(ctx, cfg.Store)
	if err != nil {
		a.Close()

		return nil, err
	}

	a.store = store
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	})

	if !withNotifier {
		return a, nil
	}

	if cfg.Importer.DryRun {
		a.notifier = notifier.NewLog(log)

		return a, nil
	}

	tg, err := notifier.NewTelegram(cfg.Telegram)
	if err != nil {
		a.Close()

		return nil, err
	}

	log.Info("connected to telegram", "notifier", tg.String())
	a.notifier = tg

	return a, nil
}

func newFetcher(cfg config.FetcherConfig) (crawler.PageFetcher, func(), error) {
	switch cfg.Kind {
	case "chrome":
		var (
			f   *crawler.ChromeFetcher
			err error
		)

		if cfg.Host != "" {
			f, err = crawler.NewRemoteChromeFetcher(cfg.Host, cfg.Port, cfg.Retry.GetTimeout())
		} else {
			f, err = crawler.NewLocalChromeFetcher(utils.UserAgent, cfg.Retry.GetTimeout())
		}

		if err != nil {
			return nil, nil, err
		}

		return f, f.Close, nil
	case "http":
		return crawler.NewScraperWithConfig(&cfg.Retry, cfg.BufferSizeKb), func() {}, nil
	case "file":
		return crawler.NewFileFetcher(cfg.Dir), func() {}, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidFetcherKind, cfg.Kind)
}

func (a *app) newImporter(scheduler importer.Scheduler) (*importer.Importer, error) {
	policy, err := importer.ParseStoryErrorPolicy(a.cfg.Importer.OnStoryError)
	if err != nil {
		return nil, err
	}

	excerpt, err := formatter.ParseExcerptPolicy(a.cfg.Importer.ExcerptPolicy)
	if err != nil {
		return nil, err
	}

	return importer.New(importer.Deps{
		Source:    a.client,
		Formatter: formatter.New(excerpt),
		Store:     a.store,
		Notifier:  a.notifier,
		Recorder:  a.metrics,
		Scheduler: scheduler,
		Logger:    a.log,
	}, importer.Options{
		MainURL: a.cfg.Importer.MainURL,
		Policy:  policy,
		DryRun:  a.cfg.Importer.DryRun,
	}), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}

	a.closers = nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
