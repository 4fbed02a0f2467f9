// Package buildinfo carries build metadata stamped in with -ldflags:
//
//	-X 'github.com/m3rciful/hrvbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/hrvbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/hrvbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
package buildinfo

import (
	"runtime/debug"
	"strings"
)

var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String formats the metadata as "version (commit, date)". Unstamped dev
// builds fall back to the VCS revision recorded by the Go toolchain.
func String() string {
	commit := Commit
	if commit == "local" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					commit = s.Value[:7]
				}
			}
		}
	}
	parts := []string{commit}
	if Date != "" {
		parts = append(parts, Date)
	}
	return Version + " (" + strings.Join(parts, ", ") + ")"
}
