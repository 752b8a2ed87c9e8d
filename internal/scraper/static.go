package scraper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"github.com/Buck-Ouro/Jupiter/internal/config"
	"github.com/Buck-Ouro/Jupiter/internal/logger"
)

// ErrUnsupportedProxy means the static client cannot speak the proxy scheme.
var ErrUnsupportedProxy = errors.New("proxy scheme not supported without a browser")

// DefaultStaticTimeout bounds StaticProbe requests.
const DefaultStaticTimeout = 30 * time.Second

// ProbeResult is what the probe endpoint returned through the proxy.
type ProbeResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        string
	Duration    time.Duration
}

// StaticProbe fetches probeURL through the proxy with a plain HTTP client.
// It checks that the proxy is reachable and accepts the credentials without
// starting a browser.
func StaticProbe(probeURL string, proxy config.ProxyConfig, userAgent string, timeout time.Duration) (ProbeResult, error) {
	result := ProbeResult{URL: probeURL}

	// net/http proxies http, https and socks5 only.
	if proxy.Scheme == "socks4" {
		return result, &ScrapeError{Stage: StageProbe, URL: probeURL, Err: fmt.Errorf("%w: %s", ErrUnsupportedProxy, proxy.Scheme)}
	}
	if timeout <= 0 {
		timeout = DefaultStaticTimeout
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)
	if err := c.SetProxy(proxy.URL().String()); err != nil {
		return result, &ScrapeError{Stage: StageProbe, URL: probeURL, Err: errors.New("proxy URL rejected")}
	}

	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.Body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	logger.Debug("static probe", "url", probeURL, "proxy", proxy.Redacted())
	start := time.Now()

	err := c.Visit(probeURL)
	result.Duration = time.Since(start)
	if err == nil {
		err = fetchErr
	}
	if err != nil {
		return result, &ScrapeError{Stage: StageProbe, URL: probeURL, Err: err}
	}

	if strings.Contains(result.ContentType, "html") {
		text, err := textFromHTML(result.Body)
		if err != nil {
			return result, &ScrapeError{Stage: StageRead, URL: probeURL, Err: err}
		}
		result.Body = text
	}
	result.Body = strings.TrimSpace(result.Body)

	logger.Info("static probe complete",
		"url", probeURL,
		"status_code", result.StatusCode,
		"size", humanize.Bytes(uint64(len(result.Body))),
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}
