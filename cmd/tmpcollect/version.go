package main

import (
	"fmt"
	"runtime/debug"
)

// Build information populated at init() from debug.ReadBuildInfo().
var (
	Version   = "unknown"
	GoVersion = "unknown"
	Commit    = "unknown"
	Modified  bool
)

func init() {
	parseBuildInfo()
}

func parseBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	Version = info.Main.Version
	GoVersion = info.GoVersion

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Commit = setting.Value
		case "vcs.modified":
			Modified = setting.Value == "true"
		}
	}
}

// versionString is shown by --version.
func versionString() string {
	s := fmt.Sprintf("%s (%s)", Version, GoVersion)
	if Commit == "unknown" {
		return s
	}
	if len(Commit) > 12 {
		s += " " + Commit[:12]
	} else {
		s += " " + Commit
	}
	if Modified {
		s += "-dirty"
	}
	return s
}
