// Package scraper drives a prepared browser tab: it confirms the proxy egress,
// loads the target page, waits for it to finish rendering and reads its text.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default timings.
const (
	DefaultNavigationTimeout = 60 * time.Second
	DefaultSettleDelay       = 8 * time.Second
	DefaultPreviewChars      = 3000
)

// Lifecycle events waited on.
const (
	EventDOMContentLoaded = "DOMContentLoaded"
	EventNetworkIdle      = "networkIdle"
)

// Failure stages reported in ScrapeError.
const (
	StageLaunch   = "launch"
	StageProbe    = "probe"
	StageNavigate = "navigate"
	StageRender   = "render"
	StageRead     = "read"
)

var (
	// ErrNavigation means Chrome reported an error loading the page.
	ErrNavigation = errors.New("navigation failed")
	// ErrWaitTimeout means the lifecycle event did not arrive in time.
	ErrWaitTimeout = errors.New("timed out waiting for page")
)

// ScrapeError is a fatal failure while loading or reading a page.
type ScrapeError struct {
	Stage string
	URL   string
	Err   error
}

func (e *ScrapeError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("scrape failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("scrape failed at %s (%s): %v", e.Stage, e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// PageContent is the rendered text of the target page.
type PageContent struct {
	URL       string
	Text      string
	Source    string // "innerText" or "html"
	ProbeBody string // What the probe endpoint returned
	FetchedAt time.Time
	Duration  time.Duration
}

// Tab is a browser tab ready to take chromedp actions.
type Tab interface {
	Context() context.Context
}

// screenshotter is implemented by tabs that can capture their viewport.
type screenshotter interface {
	CaptureScreenshot() []byte
}

// Config controls a PageScraper.
type Config struct {
	TargetURL         string
	ProbeURL          string // Skipped when empty
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	ScrollPass        bool
	ScreenshotDir     string // Screenshots on failure when set
	PreviewChars      int
}

// DefaultConfig returns the default timings for targetURL.
func DefaultConfig(targetURL string) Config {
	return Config{
		TargetURL:         targetURL,
		NavigationTimeout: DefaultNavigationTimeout,
		SettleDelay:       DefaultSettleDelay,
		PreviewChars:      DefaultPreviewChars,
	}
}
