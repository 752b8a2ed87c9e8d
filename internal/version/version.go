// Package version reports which apywatch build is running.
//
// Release builds stamp the values with
//
//	go build -ldflags "-X github.com/Buck-Ouro/Jupiter/internal/version.Version=1.0.0 ..."
//
// Anything left unset is read from the module build info that the Go
// toolchain embeds (module version, vcs.revision, vcs.time, vcs.modified).
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Stamped via ldflags. Empty means "ask the build info".
var (
	Version   = ""
	Commit    = ""
	Dirty     = ""
	BuildDate = ""
)

const (
	develVersion = "(devel)"
	unknown      = "unknown"
	shortCommit  = 7
)

// Info is the version information printed by "apywatch version --json".
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Dirty     bool   `json:"dirty"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get resolves the running build.
func Get() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(bi)
}

// resolve merges the ldflags stamps over bi, which may be nil.
func resolve(bi *debug.BuildInfo) Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		Dirty:     Dirty == "true",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi != nil {
		if info.Version == "" && bi.Main.Version != "" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				if Dirty == "" {
					info.Dirty = s.Value == "true"
				}
			}
		}
		if bi.GoVersion != "" {
			info.GoVersion = bi.GoVersion
		}
	}

	if info.Version == "" {
		info.Version = develVersion
	}
	if len(info.Commit) > shortCommit {
		info.Commit = info.Commit[:shortCommit]
	}
	if info.Commit == "" {
		info.Commit = unknown
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	return info
}

// Short renders the version with a -dirty suffix for modified trees.
func (i Info) Short() string {
	if i.Dirty {
		return i.Version + "-dirty"
	}
	return i.Version
}

// Long renders every field, one per line.
func (i Info) Long() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "apywatch %s\n", i.Short())
	fmt.Fprintf(&sb, "  commit:  %s\n", i.Commit)
	fmt.Fprintf(&sb, "  built:   %s\n", i.BuildDate)
	fmt.Fprintf(&sb, "  go:      %s\n", i.GoVersion)
	fmt.Fprintf(&sb, "  os/arch: %s", i.Platform)
	return sb.String()
}

// String is Get().Short().
func String() string {
	return Get().Short()
}

// Full is Get().Long().
func Full() string {
	return Get().Long()
}

// UserAgent identifies apywatch in outbound API requests.
func UserAgent() string {
	return "apywatch/" + String()
}
