// Package pipeline runs one scrape-extract-notify pass.
//
// The runner owns the browser session for the whole pass and releases it on
// every exit path. Only launch and scrape failures fail the run; a missing
// value is skipped and a failed delivery is logged.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Buck-Ouro/Jupiter/internal/config"
	"github.com/Buck-Ouro/Jupiter/internal/logger"
	"github.com/Buck-Ouro/Jupiter/internal/notify"
	"github.com/Buck-Ouro/Jupiter/internal/scraper"
	"github.com/Buck-Ouro/Jupiter/pkg/extractor"
)

// State is a step of a run.
type State string

const (
	StateScraping   State = "scraping"
	StateExtracting State = "extracting"
	StateNotifying  State = "notifying"
	StateSkipping   State = "skipping"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Session is a browser tab that must be released.
type Session interface {
	scraper.Tab
	Release() error
}

// Launcher starts a browser session behind the proxy.
type Launcher interface {
	Launch(ctx context.Context, proxy config.ProxyConfig) (Session, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, proxy config.ProxyConfig) (Session, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context, proxy config.ProxyConfig) (Session, error) {
	return f(ctx, proxy)
}

// Scraper reads the rendered page text from a tab.
type Scraper interface {
	FetchRenderedText(tab scraper.Tab) (scraper.PageContent, error)
}

// Notifier delivers an extracted value.
type Notifier interface {
	Send(ctx context.Context, v extractor.Value) notify.Result
}

// Deps are the components a run is built from.
type Deps struct {
	Launcher  Launcher
	Scraper   Scraper
	Extractor extractor.Extractor
	Notifier  Notifier
}

// Options are per-run settings.
type Options struct {
	Proxy config.ProxyConfig
	Label string
}

// Outcome summarizes a finished run.
type Outcome struct {
	RunID    string
	State    State
	Trail    []State
	Value    *extractor.Value
	Delivery *notify.Result
	Duration time.Duration
}

// Runner executes runs.
type Runner struct {
	deps Deps
	opts Options
}

// New creates a Runner.
func New(deps Deps, opts Options) *Runner {
	return &Runner{deps: deps, opts: opts}
}

// Run executes one pass. The returned error is non-nil only when the run
// failed, in which case Outcome.State is StateFailed.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	start := time.Now()
	out := Outcome{RunID: uuid.NewString()}
	log := logger.With("run_id", out.RunID)

	enter := func(s State) {
		out.State = s
		out.Trail = append(out.Trail, s)
		log.Debugw("state", "state", string(s))
	}
	finish := func() {
		out.Duration = time.Since(start)
	}

	log.Infow("run started", "proxy", r.opts.Proxy.Redacted(), "label", r.opts.Label)
	enter(StateScraping)

	page, err := r.scrape(ctx, log)
	if err != nil {
		enter(StateFailed)
		finish()
		log.Errorw("run failed", "error", err, "duration", out.Duration)
		return out, err
	}

	enter(StateExtracting)
	value, ok := r.deps.Extractor.Extract(page.Text)
	if !ok {
		enter(StateSkipping)
		log.Warnw("value not found, skipping notification",
			"label", r.opts.Label,
			"text_size", len(page.Text))
		enter(StateDone)
		finish()
		log.Infow("run finished", "state", string(out.State), "duration", out.Duration)
		return out, nil
	}
	out.Value = &value
	log.Infow("value extracted", "value", value.Display, "strategy", value.Strategy)

	enter(StateNotifying)
	res := r.deps.Notifier.Send(ctx, value)
	out.Delivery = &res
	if !res.Delivered {
		log.Warnw("notification not delivered",
			"status_code", res.StatusCode,
			"reason", res.Reason,
			"error", res.Err)
	}

	enter(StateDone)
	finish()
	log.Infow("run finished",
		"state", string(out.State),
		"value", value.Display,
		"delivered", res.Delivered,
		"duration", out.Duration)
	return out, nil
}

// scrape acquires a session, reads the page and releases the session.
func (r *Runner) scrape(ctx context.Context, log *zap.SugaredLogger) (scraper.PageContent, error) {
	session, err := r.deps.Launcher.Launch(ctx, r.opts.Proxy)
	if err != nil {
		var scrapeErr *scraper.ScrapeError
		if !errors.As(err, &scrapeErr) {
			err = &scraper.ScrapeError{Stage: scraper.StageLaunch, Err: err}
		}
		return scraper.PageContent{}, err
	}
	defer func() {
		if rerr := session.Release(); rerr != nil {
			log.Warnw("browser release failed", "error", rerr)
		}
	}()

	page, err := r.deps.Scraper.FetchRenderedText(session)
	if err != nil {
		return page, fmt.Errorf("fetch rendered text: %w", err)
	}
	return page, nil
}
