package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func stamp(t *testing.T, appVersion, commit, buildTime string) {
	t.Helper()
	prev := [3]string{AppVersion, GitCommit, BuildTime}
	AppVersion, GitCommit, BuildTime = appVersion, commit, buildTime
	t.Cleanup(func() { AppVersion, GitCommit, BuildTime = prev[0], prev[1], prev[2] })
}

func TestCurrent(t *testing.T) {
	stamp(t, "  ", "", "")
	info := Current("")
	if info.Service != Unknown || info.Version != DevelopmentVersion || info.GoVersion == "" {
		t.Errorf("unexpected defaults %+v", info)
	}

	stamp(t, "v1.2.3", "abc123", "2026-01-02T03:04:05Z")
	got := Current("docmanager").String()
	if got != "docmanager v1.2.3 (commit abc123, built 2026-01-02T03:04:05Z)" {
		t.Errorf("unexpected info %q", got)
	}
}

func TestInfo_WithVCS(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	info := Info{Commit: Unknown, BuildTime: Unknown}.withVCS(settings)
	if info.Commit != "0123456789ab" || info.BuildTime != "2026-03-04T05:06:07Z" {
		t.Errorf("unexpected vcs fill %+v", info)
	}

	stamped := Info{Commit: "deadbeef", BuildTime: "2026-01-01T00:00:00Z"}.withVCS(settings)
	if stamped.Commit != "deadbeef" || !strings.HasPrefix(stamped.BuildTime, "2026-01-01") {
		t.Errorf("linker values must win, got %+v", stamped)
	}
}

func TestInfo_WithFallback(t *testing.T) {
	tests := []struct {
		name       string
		version    string
		configured string
		want       string
	}{
		{name: "dev takes configured", version: DevelopmentVersion, configured: " 1.4.0 ", want: "1.4.0"},
		{name: "dev keeps dev without configured", version: DevelopmentVersion, want: DevelopmentVersion},
		{name: "stamped wins", version: "v2.0.0", configured: "1.4.0", want: "v2.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Info{Version: tt.version}).WithFallback(tt.configured).Version; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInfo_ParseBuildTime(t *testing.T) {
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for in, ok := range map[string]bool{
		"2026-01-02T03:04:05Z": true,
		Unknown:                false,
		"":                     false,
		"yesterday":            false,
	} {
		ts, got := Info{BuildTime: in}.ParseBuildTime()
		if got != ok {
			t.Errorf("%q: ok = %v, want %v", in, got, ok)
		}
		if got && !ts.Equal(want) {
			t.Errorf("%q: unexpected time %v", in, ts)
		}
	}
}
