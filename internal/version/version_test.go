package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stamp(t *testing.T, version, commit, dirty, date string) {
	t.Helper()
	old := [4]string{Version, Commit, Dirty, BuildDate}
	Version, Commit, Dirty, BuildDate = version, commit, dirty, date
	t.Cleanup(func() { Version, Commit, Dirty, BuildDate = old[0], old[1], old[2], old[3] })
}

func buildInfo(version string, settings map[string]string) *debug.BuildInfo {
	bi := &debug.BuildInfo{GoVersion: "go1.25.5"}
	bi.Main.Version = version
	for k, v := range settings {
		bi.Settings = append(bi.Settings, debug.BuildSetting{Key: k, Value: v})
	}
	return bi
}

func TestResolve_Stamped(t *testing.T) {
	stamp(t, "1.2.3", "abcdef0123456789", "true", "2026-01-02T03:04:05Z")

	info := resolve(buildInfo("v9.9.9", map[string]string{
		"vcs.revision": "ffffffffffff",
		"vcs.modified": "false",
	}))

	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abcdef0", info.Commit)
	assert.True(t, info.Dirty)
	assert.Equal(t, "2026-01-02T03:04:05Z", info.BuildDate)
	assert.Equal(t, "1.2.3-dirty", info.Short())
}

func TestResolve_FromBuildInfo(t *testing.T) {
	stamp(t, "", "", "", "")

	info := resolve(buildInfo("v0.4.0", map[string]string{
		"vcs.revision": "0123456789abcdef",
		"vcs.time":     "2026-10-01T00:00:00Z",
		"vcs.modified": "true",
	}))

	assert.Equal(t, "v0.4.0", info.Version)
	assert.Equal(t, "0123456", info.Commit)
	assert.Equal(t, "2026-10-01T00:00:00Z", info.BuildDate)
	assert.True(t, info.Dirty)
	assert.Equal(t, "go1.25.5", info.GoVersion)
}

func TestResolve_NoBuildInfo(t *testing.T) {
	stamp(t, "", "", "", "")

	info := resolve(nil)
	assert.Equal(t, "(devel)", info.Version)
	assert.Equal(t, "unknown", info.Commit)
	assert.Equal(t, "unknown", info.BuildDate)
	assert.False(t, info.Dirty)
	assert.NotEmpty(t, info.GoVersion)
}

func TestInfo_Long(t *testing.T) {
	info := Info{Version: "1.0.0", Commit: "abc1234", Dirty: true, BuildDate: "today", GoVersion: "go1.25.5", Platform: "linux/amd64"}

	long := info.Long()
	assert.True(t, strings.HasPrefix(long, "apywatch 1.0.0-dirty\n"))
	assert.Contains(t, long, "commit:  abc1234")
	assert.Contains(t, long, "os/arch: linux/amd64")
}

func TestUserAgent(t *testing.T) {
	stamp(t, "0.1.0", "abc", "false", "")
	assert.Equal(t, "apywatch/0.1.0", UserAgent())
}
