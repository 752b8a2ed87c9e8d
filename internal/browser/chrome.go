package browser

import (
	"os/exec"

	"github.com/Buck-Ouro/Jupiter/internal/logger"
)

// Binary names and install locations, most likely first.
var chromeBinaryNames = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// FindChromePath returns the first Chrome or Chromium binary found, or ""
// to let chromedp fall back to its own lookup.
func FindChromePath() string {
	return findBinary(chromeBinaryNames, exec.LookPath)
}

func findBinary(names []string, lookPath func(string) (string, error)) string {
	for _, name := range names {
		if path, err := lookPath(name); err == nil {
			logger.Debug("found chrome binary", "name", name, "path", path)
			return path
		}
	}
	logger.Warn("no chrome binary found, relying on chromedp defaults")
	return ""
}
