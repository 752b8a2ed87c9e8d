package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Buck-Ouro/Jupiter/internal/browser"
	"github.com/Buck-Ouro/Jupiter/pkg/extractor"
)

const egressIP = "203.0.113.7"

// vaultPage writes its APY shortly after a slow fetch returns, so the value
// only appears once the network is idle and the page has settled.
const vaultPage = `<!DOCTYPE html>
<html><body>
<h1>srUSD Vault</h1>
<div id="apy">Loading...</div>
<script>
setTimeout(function () {
  fetch('/apy').then(function (r) { return r.text(); }).then(function (v) {
    setTimeout(function () {
      document.getElementById('apy').innerText = 'Current APY ' + v;
    }, 300);
  });
}, 200);
</script>
</body></html>`

// busyPage polls forever, so the network never goes idle.
const busyPage = `<!DOCTYPE html>
<html><body>
<p id="ip">%s</p>
<script>
setInterval(function () { fetch('/tick?t=' + Date.now()); }, 100);
</script>
</body></html>`

// siteServer serves the pages above and records the order paths were hit.
type siteServer struct {
	*httptest.Server

	mu   sync.Mutex
	hits []string
}

func newSiteServer(t *testing.T) *siteServer {
	t.Helper()
	s := &siteServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ip", func(w http.ResponseWriter, r *http.Request) {
		s.hit(r)
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, egressIP)
	})
	mux.HandleFunc("/busy-ip", func(w http.ResponseWriter, r *http.Request) {
		s.hit(r)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, busyPage, egressIP)
	})
	mux.HandleFunc("/vault", func(w http.ResponseWriter, r *http.Request) {
		s.hit(r)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, vaultPage)
	})
	mux.HandleFunc("/apy", func(w http.ResponseWriter, r *http.Request) {
		s.hit(r)
		select {
		case <-time.After(700 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		fmt.Fprint(w, "4.25%")
	})
	mux.HandleFunc("/tick", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
		}
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *siteServer) hit(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = append(s.hits, r.URL.Path)
}

func (s *siteServer) Hits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hits...)
}

// acquireTab starts a real browser, or skips when none is installed.
// Chrome reaches loopback hosts directly, so the proxy only needs to exist.
func acquireTab(t *testing.T) *browser.Session {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in -short mode")
	}
	if browser.FindChromePath() == "" {
		t.Skip("skipping browser test - Chrome not found")
	}

	proxy := fakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unexpected proxied request", http.StatusBadGateway)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	session, err := browser.Acquire(ctx, browser.DefaultOptions(proxy))
	if err != nil {
		t.Skipf("skipping browser test - Chrome could not start: %v", err)
	}
	t.Cleanup(func() {
		assert.NoError(t, session.Release())
	})
	return session
}

func TestFetchRenderedText_LateContent(t *testing.T) {
	tab := acquireTab(t)
	site := newSiteServer(t)

	s := New(Config{
		TargetURL:         site.URL + "/vault",
		ProbeURL:          site.URL + "/ip",
		NavigationTimeout: 20 * time.Second,
		SettleDelay:       2 * time.Second,
	})

	content, err := s.FetchRenderedText(tab)
	require.NoError(t, err)

	assert.Equal(t, egressIP, content.ProbeBody)
	assert.Equal(t, "innerText", content.Source)
	assert.Contains(t, content.Text, "srUSD Vault")
	assert.Contains(t, content.Text, "Current APY 4.25%")
	assert.GreaterOrEqual(t, content.Duration, 2*time.Second)
	assert.False(t, content.FetchedAt.IsZero())

	hits := site.Hits()
	require.GreaterOrEqual(t, len(hits), 3)
	assert.Equal(t, []string{"/ip", "/vault", "/apy"}, hits[:3])

	v, ok := extractor.ForLabel("Current APY").Extract(content.Text)
	require.True(t, ok)
	assert.Equal(t, "4.25%", v.Display)
}

func TestFetchRenderedText_EgressPageWaitsForDOMOnly(t *testing.T) {
	tab := acquireTab(t)
	site := newSiteServer(t)

	s := New(Config{
		TargetURL:         site.URL + "/vault",
		ProbeURL:          site.URL + "/busy-ip",
		NavigationTimeout: 20 * time.Second,
		SettleDelay:       2 * time.Second,
	})

	content, err := s.FetchRenderedText(tab)
	require.NoError(t, err)
	assert.Equal(t, egressIP, content.ProbeBody)
	assert.Contains(t, content.Text, "Current APY 4.25%")
}

func TestFetchRenderedText_NeverIdle(t *testing.T) {
	tab := acquireTab(t)
	site := newSiteServer(t)
	shots := t.TempDir()

	s := New(Config{
		TargetURL:         site.URL + "/busy-ip",
		NavigationTimeout: 2 * time.Second,
		ScreenshotDir:     shots,
	})

	start := time.Now()
	_, err := s.FetchRenderedText(tab)
	require.Error(t, err)

	var scrapeErr *ScrapeError
	require.True(t, errors.As(err, &scrapeErr))
	assert.Equal(t, StageNavigate, scrapeErr.Stage)
	assert.Equal(t, site.URL+"/busy-ip", scrapeErr.URL)
	assert.True(t, errors.Is(err, ErrWaitTimeout))
	assert.Less(t, time.Since(start), 15*time.Second)

	files, _ := filepath.Glob(filepath.Join(shots, "apywatch-navigate-*.png"))
	assert.Len(t, files, 1)
}

func TestFetchRenderedText_NavigationError(t *testing.T) {
	tab := acquireTab(t)

	// Nothing listens on a closed server's port.
	closed := httptest.NewServer(http.NotFoundHandler())
	target := closed.URL + "/vault"
	closed.Close()

	s := New(Config{TargetURL: target, NavigationTimeout: 10 * time.Second})

	_, err := s.FetchRenderedText(tab)

	var scrapeErr *ScrapeError
	require.True(t, errors.As(err, &scrapeErr))
	assert.Equal(t, StageNavigate, scrapeErr.Stage)
	assert.True(t, errors.Is(err, ErrNavigation))
}
