// Package version reports the build version of the orcbot binaries.
package version

import (
	"runtime/debug"
	"strings"
)

// Version is set at build time with
// -ldflags "-X github.com/ShayCichocki/orcbot/internal/version.Version=v1.2.3".
var Version = ""

// Get returns the current version, with whitespace trimmed.
// Falls back to the module version recorded in the build info, then "dev".
func Get() string {
	if v := strings.TrimSpace(Version); v != "" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}
