package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Buck-Ouro/Jupiter/internal/browser"
	"github.com/Buck-Ouro/Jupiter/internal/config"
	"github.com/Buck-Ouro/Jupiter/internal/logger"
	"github.com/Buck-Ouro/Jupiter/internal/notify"
	"github.com/Buck-Ouro/Jupiter/internal/output"
	"github.com/Buck-Ouro/Jupiter/internal/pipeline"
	"github.com/Buck-Ouro/Jupiter/internal/scraper"
	"github.com/Buck-Ouro/Jupiter/pkg/extractor"
)

// launch starts the browser. Replaced in tests.
var launch = func(ctx context.Context, opts browser.Options) (pipeline.Session, error) {
	s, err := browser.Acquire(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newScraper builds the page scraper. Replaced in tests.
var newScraper = func(cfg scraper.Config) pipeline.Scraper {
	return scraper.New(cfg)
}

func runPipeline(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	var format output.Format
	if s := v.GetString(keyReportFormat); s != "" {
		if format, err = output.ParseFormat(s); err != nil {
			return err
		}
	}

	telegram, err := notify.NewTelegram(notify.Config{
		Token:    cfg.TelegramKey,
		ChatID:   cfg.ChatID,
		APIBase:  cfg.TelegramAPI,
		Template: cfg.MessageTemplate,
		Title:    cfg.Title,
		PageURL:  cfg.TargetURL,
	})
	if err != nil {
		logger.Error("invalid notification settings", "error", err)
		return err
	}

	logger.Debug("configuration loaded", "config", cfg.Redacted())

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := pipeline.New(pipeline.Deps{
		Launcher: pipeline.LauncherFunc(func(ctx context.Context, proxy config.ProxyConfig) (pipeline.Session, error) {
			opts := browser.DefaultOptions(proxy)
			opts.ChromePath = cfg.ChromePath
			return launch(ctx, opts)
		}),
		Scraper:   newScraper(scraperConfig(cfg)),
		Extractor: extractor.ForLabel(cfg.Label),
		Notifier:  telegram,
	}, pipeline.Options{
		Proxy: cfg.Proxy,
		Label: cfg.Label,
	})

	outcome, runErr := runner.Run(ctx)

	report := newRunReport(outcome, runErr)
	if format != "" {
		if err := output.Write(cmd.OutOrStdout(), format, report); err != nil {
			logger.Warn("could not write run report", "error", err)
		}
	}
	if path := v.GetString(keyHistoryFile); path != "" {
		if err := output.AppendJSONL(path, report); err != nil {
			logger.Warn("could not append run history", "path", path, "error", err)
		}
	}

	return runErr
}

func scraperConfig(cfg config.Config) scraper.Config {
	sc := scraper.DefaultConfig(cfg.TargetURL)
	sc.ProbeURL = cfg.ProbeURL
	sc.NavigationTimeout = cfg.NavigationTimeout
	sc.SettleDelay = cfg.SettleDelay
	sc.ScrollPass = cfg.ScrollPass
	sc.ScreenshotDir = cfg.ScreenshotDir
	return sc
}

// runReport is the machine-readable summary of one run.
type runReport struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	State      string    `json:"state" yaml:"state"`
	Trail      []string  `json:"trail" yaml:"trail"`
	Value      string    `json:"value,omitempty" yaml:"value,omitempty"`
	Strategy   string    `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Notified   bool      `json:"notified" yaml:"notified"`
	Delivered  bool      `json:"delivered" yaml:"delivered"`
	StatusCode int       `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Reason     string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Duration   string    `json:"duration" yaml:"duration"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

func newRunReport(out pipeline.Outcome, err error) runReport {
	r := runReport{
		RunID:      out.RunID,
		State:      string(out.State),
		Duration:   out.Duration.Round(time.Millisecond).String(),
		FinishedAt: time.Now().UTC(),
	}
	for _, s := range out.Trail {
		r.Trail = append(r.Trail, string(s))
	}
	if out.Value != nil {
		r.Value = out.Value.Display
		r.Strategy = out.Value.Strategy
	}
	if d := out.Delivery; d != nil {
		r.Notified = true
		r.Delivered = d.Delivered
		r.StatusCode = d.StatusCode
		r.Reason = d.Reason
		if d.Err != nil && r.Reason == "" {
			r.Reason = d.Err.Error()
		}
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
