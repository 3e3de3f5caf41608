// Package version exposes the build metadata of the running binary.
//
// Release builds stamp the variables below through the linker:
//
//	go build -ldflags "-X github.com/nimburion/docmanager/pkg/version.AppVersion=v1.2.3 \
//	  -X github.com/nimburion/docmanager/pkg/version.GitCommit=$(git rev-parse --short HEAD) \
//	  -X github.com/nimburion/docmanager/pkg/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Local builds fall back to the VCS stamp the Go toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	Unknown            = "unknown"
	DevelopmentVersion = "dev"

	shortCommitLength = 12
)

// Linker-stamped values.
var (
	AppVersion = DevelopmentVersion
	GitCommit  = Unknown
	BuildTime  = Unknown
)

// Info is served on /version and printed by the version command.
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version,omitempty"`
}

// Current assembles the metadata for service.
func Current(service string) Info {
	info := Info{
		Service:   pick(service, Unknown),
		Version:   pick(AppVersion, DevelopmentVersion),
		Commit:    pick(GitCommit, Unknown),
		BuildTime: pick(BuildTime, Unknown),
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = info.withVCS(bi.Settings)
	}
	return info
}

// withVCS fills commit and build time from the toolchain stamp when the linker left them unset.
func (i Info) withVCS(settings []debug.BuildSetting) Info {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.Commit == Unknown && s.Value != "" {
				i.Commit = shortCommit(s.Value)
			}
		case "vcs.time":
			if i.BuildTime == Unknown && s.Value != "" {
				i.BuildTime = s.Value
			}
		}
	}
	return i
}

// WithFallback replaces a development version with configured, when set.
// Stamped versions always win.
func (i Info) WithFallback(configured string) Info {
	if v := strings.TrimSpace(configured); v != "" && i.Version == DevelopmentVersion {
		i.Version = v
	}
	return i
}

// ParseBuildTime reports the build time when it is a valid RFC3339 timestamp.
func (i Info) ParseBuildTime() (time.Time, bool) {
	if i.BuildTime == Unknown {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, i.BuildTime)
	return ts, err == nil
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Service, i.Version, i.Commit, i.BuildTime)
}

func shortCommit(rev string) string {
	if len(rev) > shortCommitLength {
		return rev[:shortCommitLength]
	}
	return rev
}

func pick(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
