// Package importer runs the poll cycle: fetch the balanced-news page, then
// publish every story that has not been published yet, recording each one.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"allsidestg/internal/apperr"
	"allsidestg/internal/formatter"
	"allsidestg/internal/logger"
	"allsidestg/internal/metrics"
	"allsidestg/internal/models"
	"allsidestg/internal/notifier"
	"allsidestg/internal/state"

	"github.com/google/uuid"
)

// DuplicateRiskPrefix starts admin alerts for stories that were published but not recorded.
const DuplicateRiskPrefix = "DUPLICATE RISK"

// recordTimeout bounds the mark and its follow-up alert once a story is out.
const recordTimeout = 10 * time.Second

// Source yields parsed pages. *crawler.Client implements it.
type Source interface {
	CrawlMainPage(ctx context.Context, url string) (*models.MainPage, error)
	CrawlStory(ctx context.Context, url string) (*models.Story, error)
}

// Recorder receives cycle metrics. *metrics.Metrics implements it.
type Recorder interface {
	CycleFinished(result string, d time.Duration)
	StoryPublished()
	StoryFailed(kind string)
}

// StoryErrorPolicy decides what a failed teaser does to the rest of the cycle.
type StoryErrorPolicy int

const (
	// IsolateTeaser reports the failure and moves on to the next teaser.
	IsolateTeaser StoryErrorPolicy = iota
	// AbortCycle reports the failure and ends the cycle.
	AbortCycle
)

// ParseStoryErrorPolicy maps the config names "isolate" and "abort".
func ParseStoryErrorPolicy(s string) (StoryErrorPolicy, error) {
	switch s {
	case "", "isolate":
		return IsolateTeaser, nil
	case "abort":
		return AbortCycle, nil
	}

	return 0, fmt.Errorf("unknown story error policy %q", s)
}

// Deps are the collaborators of an Importer. Recorder and Scheduler are optional.
type Deps struct {
	Source    Source
	Formatter *formatter.Formatter
	Store     state.Store
	Notifier  notifier.Notifier
	Recorder  Recorder
	Scheduler Scheduler
	Logger    *logger.Logger
}

// Options tune a cycle.
type Options struct {
	MainURL string
	Policy  StoryErrorPolicy
	// DryRun formats stories and logs them without publishing or recording.
	DryRun bool
}

// Importer is a single sequential worker.
type Importer struct {
	src       Source
	format    *formatter.Formatter
	store     state.Store
	notifier  notifier.Notifier
	recorder  Recorder
	scheduler Scheduler
	log       *logger.Logger
	opts      Options
}

// New creates an importer.
func New(deps Deps, opts Options) *Importer {
	im := &Importer{
		src:       deps.Source,
		format:    deps.Formatter,
		store:     deps.Store,
		notifier:  deps.Notifier,
		recorder:  deps.Recorder,
		scheduler: deps.Scheduler,
		log:       deps.Logger,
		opts:      opts,
	}

	if im.recorder == nil {
		im.recorder = nopRecorder{}
	}

	if im.scheduler == nil {
		im.scheduler = Interval(10 * time.Minute)
	}

	if im.log == nil {
		im.log = logger.Discard()
	}

	return im
}

// TeaserError is a failure confined to one teaser.
type TeaserError struct {
	URL string
	Err error
}

func (e *TeaserError) Error() string {
	return e.URL + ": " + e.Err.Error()
}

func (e *TeaserError) Unwrap() error {
	return e.Err
}

// CycleReport summarizes one Tick.
type CycleReport struct {
	ID        string
	Published []string
	DryRun    []string
	Failed    []*TeaserError
	Teasers   int
	Skipped   int
	Duration  time.Duration
}

// Result classifies the cycle for metrics.
func (r *CycleReport) Result(err error) string {
	switch {
	case err != nil:
		return metrics.ResultFailed
	case len(r.Failed) > 0:
		return metrics.ResultPartial
	default:
		return metrics.ResultOK
	}
}

// Run alternates Tick and the scheduler until ctx is cancelled, then returns nil.
func (im *Importer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		// Errors were already logged and reported to the admin.
		_, _ = im.Tick(ctx)

		if err := im.scheduler.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("scheduler: %w", err)
		}
	}
}

// Tick runs exactly one cycle. It returns an error when the main page could not
// be loaded, when ctx is cancelled, or when AbortCycle stops on a teaser.
func (im *Importer) Tick(ctx context.Context) (*CycleReport, error) {
	start := time.Now()
	report := &CycleReport{ID: uuid.NewString()}
	log := im.log.With("cycle", report.ID)

	err := im.tick(ctx, log, report)

	report.Duration = time.Since(start)
	im.recorder.CycleFinished(report.Result(err), report.Duration)

	log.Info("cycle finished",
		"teasers", report.Teasers,
		"skipped", report.Skipped,
		"published", len(report.Published),
		"failed", len(report.Failed),
		"duration", report.Duration,
	)

	return report, err
}

func (im *Importer) tick(ctx context.Context, log *logger.Logger, report *CycleReport) error {
	log.Debug("loading main page", "url", im.opts.MainURL)

	page, err := im.src.CrawlMainPage(ctx, im.opts.MainURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		im.reportError(ctx, log, fmt.Sprintf("failed to load main page %s: %v", im.opts.MainURL, err), err)

		return err
	}

	report.Teasers = len(page.Teasers)

	for _, teaser := range page.Teasers {
		if err := ctx.Err(); err != nil {
			return err
		}

		tlog := log.With("url", teaser.URL)

		err := im.processTeaser(ctx, tlog, teaser, report)
		if err == nil {
			continue
		}

		te := &TeaserError{URL: teaser.URL, Err: err}

		if errors.Is(err, errNotRecorded) {
			// Publish already happened; keep going whatever the policy.
			report.Failed = append(report.Failed, te)
			im.recorder.StoryFailed(apperr.KindOf(err).String())

			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		report.Failed = append(report.Failed, te)
		im.recorder.StoryFailed(apperr.KindOf(err).String())

		im.reportError(ctx, tlog, fmt.Sprintf("failed to process story %s: %v", teaser.URL, err), err)

		if im.opts.Policy == AbortCycle {
			return te
		}
	}

	return nil
}

var errNotRecorded = errors.New("published but not recorded")

func (im *Importer) processTeaser(ctx context.Context, log *logger.Logger, teaser models.Teaser, report *CycleReport) error {
	done, err := im.store.IsPublished(ctx, teaser.URL)
	if err != nil {
		return err
	}

	if done {
		report.Skipped++

		log.Debug("already published")

		return nil
	}

	story, err := im.src.CrawlStory(ctx, teaser.URL)
	if err != nil {
		return err
	}

	body, err := im.format.Format(story, teaser.URL)
	if err != nil {
		return apperr.Wrap(apperr.KindDataFormat, "format", err)
	}

	if im.opts.DryRun {
		report.DryRun = append(report.DryRun, teaser.URL)

		log.Info("dry run: formatted story", "title", story.Title, "body", body)

		return nil
	}

	if err := im.notifier.Publish(ctx, body); err != nil {
		return err
	}

	report.Published = append(report.Published, teaser.URL)
	im.recorder.StoryPublished()

	// The story is on the channel; shutdown must not stop it being recorded.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := im.store.MarkPublished(rctx, teaser.URL); err != nil {
		msg := fmt.Sprintf("%s: story %s was published but could not be recorded and may be posted again: %v",
			DuplicateRiskPrefix, teaser.URL, err)
		im.reportError(rctx, log, msg, err)

		return fmt.Errorf("%w: %w", errNotRecorded, err)
	}

	log.Info("story published", "title", story.Title)

	return nil
}

// reportError logs msg and forwards it to the admin. Admin failures are logged and dropped.
func (im *Importer) reportError(ctx context.Context, log *logger.Logger, msg string, err error) {
	log.Error(msg, "kind", apperr.KindOf(err).String(), "error", err)

	if nerr := im.notifier.NotifyAdmin(ctx, msg); nerr != nil {
		log.Warn("failed to notify admin", "error", nerr)
	}
}

type nopRecorder struct{}

func (nopRecorder) CycleFinished(string, time.Duration) {}
func (nopRecorder) StoryPublished()                     {}
func (nopRecorder) StoryFailed(string)                  {}
