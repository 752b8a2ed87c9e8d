// Package browser owns the headless Chrome process used for a run.
//
// A Session is a scoped resource: Acquire starts Chrome behind the configured
// proxy with a fixed fingerprint, and Release tears everything down. Callers
// defer Release immediately after a successful Acquire.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/security"
	"github.com/chromedp/chromedp"

	"github.com/Buck-Ouro/Jupiter/internal/config"
	"github.com/Buck-Ouro/Jupiter/internal/logger"
)

// Fixed desktop fingerprint.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultLocale         = "en-US"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultWidth          = 1920
	DefaultHeight         = 1080
)

// Options configures a browser session.
type Options struct {
	Proxy      config.ProxyConfig
	UserAgent  string
	Locale     string
	Width      int
	Height     int
	ChromePath string // Overrides FindChromePath
	Stealth    bool   // Inject the stealth script into every document
}

// DefaultOptions returns the fixed fingerprint for the given proxy.
func DefaultOptions(proxy config.ProxyConfig) Options {
	return Options{
		Proxy:     proxy,
		UserAgent: DefaultUserAgent,
		Locale:    DefaultLocale,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		Stealth:   true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions(o.Proxy)
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.Locale == "" {
		o.Locale = d.Locale
	}
	if o.Width == 0 {
		o.Width = d.Width
	}
	if o.Height == 0 {
		o.Height = d.Height
	}
	return o
}

// Session is one browser process with one tab.
type Session struct {
	opts        Options
	ctx         context.Context // tab context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	userDataDir string

	releaseOnce sync.Once
	releaseErr  error
}

// Acquire launches Chrome and prepares a tab. On error nothing is left running.
func Acquire(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	if opts.Proxy.Host == "" {
		return nil, errors.New("browser: proxy is required")
	}

	userDataDir, err := os.MkdirTemp("", "apywatch-profile-*")
	if err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(opts, userDataDir)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	s := &Session{
		opts:        opts,
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		userDataDir: userDataDir,
	}

	if opts.Proxy.HasCredentials() {
		if opts.Proxy.Scheme == "socks4" || opts.Proxy.Scheme == "socks5" {
			logger.Warn("chrome does not authenticate SOCKS proxies; credentials will be ignored",
				"proxy", opts.Proxy.Redacted())
		} else {
			s.listenProxyAuth()
		}
	}

	logger.Debug("launching browser",
		"proxy", opts.Proxy.Redacted(),
		"viewport", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"locale", opts.Locale,
		"stealth", opts.Stealth)

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx, s.setupActions()...); err != nil {
		_ = s.Release()
		return nil, fmt.Errorf("browser setup failed: %w", err)
	}

	logger.Info("browser session acquired", "proxy", opts.Proxy.Redacted())
	return s, nil
}

// Context returns the chromedp tab context. Actions run against it.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Release closes the browser and removes the temporary profile.
// It is safe to call more than once; only the first call does work.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		// chromedp.Cancel waits for the browser to exit.
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.releaseErr = fmt.Errorf("close browser: %w", err)
		}
		s.cancelTab()
		s.cancelAlloc()

		if s.userDataDir != "" {
			if err := os.RemoveAll(s.userDataDir); err != nil && s.releaseErr == nil {
				s.releaseErr = fmt.Errorf("remove profile dir: %w", err)
			}
		}
		logger.Debug("browser session released", "error", s.releaseErr)
	})
	return s.releaseErr
}

func allocatorOptions(opts Options, userDataDir string) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		// The target is reached through an intercepting proxy.
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("lang", opts.Locale),
		chromedp.ProxyServer(opts.Proxy.Server()),
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.UserDataDir(userDataDir),
	)
	allocOpts = append(allocOpts, stealthFlags()...)

	chromePath := opts.ChromePath
	if chromePath == "" {
		chromePath = FindChromePath()
	}
	if chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromePath))
	}
	return allocOpts
}

func (s *Session) setupActions() []chromedp.Action {
	actions := []chromedp.Action{
		security.SetIgnoreCertificateErrors(true),
		emulation.SetDeviceMetricsOverride(int64(s.opts.Width), int64(s.opts.Height), 1, false),
		emulation.SetUserAgentOverride(s.opts.UserAgent).WithAcceptLanguage(acceptLanguage(s.opts.Locale)),
		emulation.SetLocaleOverride().WithLocale(s.opts.Locale),
	}
	if s.opts.Stealth {
		actions = append(actions, InjectStealthScript())
	}
	if s.opts.Proxy.HasCredentials() && s.opts.Proxy.Scheme != "socks4" && s.opts.Proxy.Scheme != "socks5" {
		actions = append(actions, fetch.Enable().WithHandleAuthRequests(true))
	}
	return actions
}

// listenProxyAuth answers proxy auth challenges with the configured
// credentials. With auth handling enabled every request is paused, so
// paused requests are continued unchanged.
func (s *Session) listenProxyAuth() {
	username, password := s.opts.Proxy.Credentials()

	chromedp.ListenTarget(s.ctx, func(ev any) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			go s.runOnTarget(fetch.ContinueRequest(e.RequestID))
		case *fetch.EventAuthRequired:
			resp := &fetch.AuthChallengeResponse{
				Response: fetch.AuthChallengeResponseResponseCancelAuth,
			}
			if e.AuthChallenge != nil && e.AuthChallenge.Source == fetch.AuthChallengeSourceProxy {
				resp = &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: username,
					Password: password,
				}
			}
			go s.runOnTarget(fetch.ContinueWithAuth(e.RequestID, resp))
		}
	})
}

// runOnTarget executes a CDP command from inside an event listener, where
// chromedp.Run would deadlock.
func (s *Session) runOnTarget(action chromedp.Action) {
	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Target == nil {
		return
	}
	if err := action.Do(cdp.WithExecutor(s.ctx, c.Target)); err != nil && s.ctx.Err() == nil {
		logger.Debug("proxy auth handler failed", "error", err)
	}
}

// CaptureScreenshot grabs a PNG of the current viewport for debugging.
// Returns nil if the browser is not in a state to answer.
func (s *Session) CaptureScreenshot() []byte {
	captureCtx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(captureCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil
	}
	return buf
}

func acceptLanguage(locale string) string {
	if locale == DefaultLocale {
		return DefaultAcceptLanguage
	}
	return locale
}
