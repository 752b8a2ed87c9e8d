package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/dustin/go-humanize"

	"github.com/Buck-Ouro/Jupiter/internal/logger"
)

// PageScraper loads the target page in a tab and returns its rendered text.
type PageScraper struct {
	config Config
}

// New creates a PageScraper. Zero timings take their defaults.
func New(cfg Config) *PageScraper {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.PreviewChars <= 0 {
		cfg.PreviewChars = DefaultPreviewChars
	}
	return &PageScraper{config: cfg}
}

// FetchRenderedText runs the probe, loads the target page, waits for the
// network to go idle plus the settle delay, and reads the visible text.
func (s *PageScraper) FetchRenderedText(tab Tab) (PageContent, error) {
	ctx := tab.Context()
	start := time.Now()
	result := PageContent{URL: s.config.TargetURL}

	if err := chromedp.Run(ctx, page.Enable(), page.SetLifecycleEventsEnabled(true)); err != nil {
		return result, s.fail(tab, StageLaunch, "", fmt.Errorf("enable lifecycle events: %w", err))
	}

	if s.config.ProbeURL != "" {
		body, err := s.probe(ctx)
		if err != nil {
			return result, s.fail(tab, StageProbe, s.config.ProbeURL, err)
		}
		result.ProbeBody = body
	}

	logger.Info("loading target page",
		"url", s.config.TargetURL,
		"timeout", s.config.NavigationTimeout)

	if err := navigateAndWait(ctx, s.config.TargetURL, EventNetworkIdle, s.config.NavigationTimeout); err != nil {
		return result, s.fail(tab, StageNavigate, s.config.TargetURL, err)
	}
	logger.Debug("network idle", "url", s.config.TargetURL, "elapsed", time.Since(start))

	if err := chromedp.Run(ctx, s.renderActions()...); err != nil {
		return result, s.fail(tab, StageRender, s.config.TargetURL, err)
	}

	text, source, err := readText(ctx)
	if err != nil {
		return result, s.fail(tab, StageRead, s.config.TargetURL, err)
	}

	result.Text = text
	result.Source = source
	result.FetchedAt = time.Now()
	result.Duration = time.Since(start)

	logger.Debug("page text",
		"source", source,
		"size", humanize.Bytes(uint64(len(text))),
		"preview", preview(text, s.config.PreviewChars))
	logger.Info("page rendered",
		"url", s.config.TargetURL,
		"text_size", humanize.Bytes(uint64(len(text))),
		"duration", result.Duration.Round(time.Millisecond))

	return result, nil
}

// probe loads the probe URL and returns its body, which for an IP echo
// service is the egress address the target will see.
func (s *PageScraper) probe(ctx context.Context) (string, error) {
	if err := navigateAndWait(ctx, s.config.ProbeURL, EventDOMContentLoaded, 0); err != nil {
		return "", err
	}

	var body string
	if err := chromedp.Run(ctx, chromedp.Evaluate(innerTextJS, &body)); err != nil {
		return "", fmt.Errorf("read probe body: %w", err)
	}
	body = strings.TrimSpace(body)
	logger.Info("proxy probe", "url", s.config.ProbeURL, "body", body)
	return body, nil
}

func (s *PageScraper) renderActions() []chromedp.Action {
	var actions []chromedp.Action
	if s.config.SettleDelay > 0 {
		logger.Debug("waiting for page to settle", "delay", s.config.SettleDelay)
		actions = append(actions, chromedp.Sleep(s.config.SettleDelay))
	}
	if s.config.ScrollPass {
		var scrolled bool
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, document.body ? document.body.scrollHeight : 0); true`, &scrolled),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, 0); true`, &scrolled),
			chromedp.Sleep(time.Second),
		)
	}
	return actions
}

// fail wraps err in a ScrapeError and saves a screenshot if configured.
func (s *PageScraper) fail(tab Tab, stage, url string, err error) error {
	scrapeErr := &ScrapeError{Stage: stage, URL: url, Err: err}
	logger.Error("scrape failed", "stage", stage, "url", url, "error", err)

	if s.config.ScreenshotDir == "" || errors.Is(err, context.Canceled) {
		return scrapeErr
	}
	shooter, ok := tab.(screenshotter)
	if !ok {
		return scrapeErr
	}
	if path, werr := saveScreenshot(s.config.ScreenshotDir, stage, shooter.CaptureScreenshot()); werr != nil {
		logger.Warn("could not save failure screenshot", "error", werr)
	} else if path != "" {
		logger.Info("saved failure screenshot", "path", path)
	}
	return scrapeErr
}

func saveScreenshot(dir, stage string, png []byte) (string, error) {
	if len(png) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("apywatch-%s-%s.png", stage, time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// preview returns at most n runes of text.
func preview(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
