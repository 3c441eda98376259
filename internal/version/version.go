/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build information.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the current version of Grimnir Lineup.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/grimnir_lineup/internal/version.Version=X.Y.Z
var Version = "0.4.0"

// Commit is the VCS revision, filled from build info when not set via ldflags.
var Commit = ""

// String renders the version line printed by the version command.
func String() string {
	return fmt.Sprintf("grimnirlineup %s (%s, %s)", Version, revision(), runtime.Version())
}

func revision() string {
	if Commit != "" {
		return Commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return "unknown"
}
