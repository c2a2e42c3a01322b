// Package versions reports which contacts-server build is running. The values
// come from -ldflags when the release pipeline sets them, and otherwise from the
// VCS stamp the go command embeds in the binary.
package versions

import (
	"cmp"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// ServiceName identifies this binary in version output and telemetry
const ServiceName = "contacts-server"

const unknown = "unknown"

// Build metadata, set with
// -ldflags "-X github.com/stacklok/contacts-server/internal/versions.Version=v1.2.3"
var (
	// Version is the release version; "dev" for local builds
	Version = "dev"
	// Commit is the git commit hash of the build
	Commit = ""
	// BuildDate is the RFC 3339 time the binary was built
	BuildDate = ""
)

// VersionInfo is the body of GET /version and of `contacts-server version --format json`
type VersionInfo struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the version information of the running binary
func GetVersionInfo() VersionInfo {
	return resolve(Version, Commit, BuildDate, vcsStamp())
}

// String formats the info on one line for the version command
func (v VersionInfo) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s, %s)",
		v.Service, v.Version, v.Commit, v.BuildDate, v.GoVersion, v.Platform)
}

// vcsStamp returns the vcs.* settings recorded by the go command, keyed
// without the "vcs." prefix. Test binaries carry none.
func vcsStamp() map[string]string {
	stamp := make(map[string]string)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return stamp
	}
	for _, setting := range info.Settings {
		if key, found := strings.CutPrefix(setting.Key, "vcs."); found {
			stamp[key] = setting.Value
		}
	}
	return stamp
}

// resolve merges the linker values with the VCS stamp; linker values win
func resolve(version, commit, buildDate string, stamp map[string]string) VersionInfo {
	commit = cmp.Or(commit, stamp["revision"], unknown)
	if stamp["modified"] == "true" && commit == stamp["revision"] {
		commit += "-dirty"
	}

	buildDate = cmp.Or(buildDate, stamp["time"], unknown)
	if t, err := time.Parse(time.RFC3339, buildDate); err == nil {
		buildDate = t.UTC().Format(time.RFC3339)
	}

	// Local builds are named after their commit
	if version == "" || version == "dev" {
		version = "dev-" + shortCommit(commit)
	}

	return VersionInfo{
		Service:   ServiceName,
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func shortCommit(commit string) string {
	if len(commit) > 8 && commit != unknown {
		return commit[:8]
	}
	return commit
}
