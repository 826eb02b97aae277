// Package version exposes build metadata of the qodana binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build metadata, overridden with -ldflags "-X" at release time.
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

const (
	settingRevision = "vcs.revision"
	settingTime     = "vcs.time"
	settingModified = "vcs.modified"

	shortCommitLen = 12
)

// InitBinaryVersion fills unset metadata from the Go build info embedded in
// the binary. Values injected with -ldflags are left untouched.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	dirty := false

	for _, s := range info.Settings {
		switch s.Key {
		case settingRevision:
			if Commit == "<unknown>" {
				Commit = s.Value
				if len(Commit) > shortCommitLen {
					Commit = Commit[:shortCommitLen]
				}
			}
		case settingTime:
			if Date == "<unknown>" {
				Date = s.Value
			}
		case settingModified:
			dirty = s.Value == "true"
		}
	}

	if dirty && Commit != "<unknown>" {
		Commit += "-dirty"
	}
}

// String formats the metadata for the version command.
func String() string {
	return fmt.Sprintf("qodana %s (commit: %s, built: %s)", Version, Commit, Date)
}
