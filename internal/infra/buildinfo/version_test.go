package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" || info.Commit == "" || info.BuildTime == "" || info.GoVersion == "" {
		t.Errorf("Get() = %+v, every field should be populated", info)
	}
	if Get() != info {
		t.Error("Get() should be stable across calls")
	}
}

func TestResolve_FromBuildInfo(t *testing.T) {
	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.24.4",
			Main:      debug.Module{Version: "v0.3.0"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, true
	}

	got := resolve(read)
	want := Info{
		Version:   "v0.3.0",
		Commit:    "0123456789abcdef0123",
		BuildTime: "2026-01-02T03:04:05Z",
		GoVersion: "go1.24.4",
		Modified:  true,
	}
	if got != want {
		t.Errorf("resolve() = %+v, want %+v", got, want)
	}
}

func TestResolve_LdflagsWin(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	Version, Commit = "v9.9.9", "feedface"
	defer func() { Version, Commit = oldVersion, oldCommit }()

	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main:     debug.Module{Version: "v0.3.0"},
			Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123"}},
		}, true
	}

	got := resolve(read)
	if got.Version != "v9.9.9" || got.Commit != "feedface" {
		t.Errorf("resolve() = %+v, want ldflags values kept", got)
	}
}

func TestResolve_NoBuildInfo(t *testing.T) {
	got := resolve(func() (*debug.BuildInfo, bool) { return nil, false })
	if got.Version != Version || got.GoVersion == "" {
		t.Errorf("resolve() = %+v", got)
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.Contains(s, Get().Version) || !strings.Contains(s, "built at") {
		t.Errorf("String() = %q", s)
	}
}
