// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"runtime/debug"
	"strings"
)

// BuildVersion is the latest tagged release of lingosync.
const BuildVersion string = "v0.3.0"

type buildInfo struct {
	VcsRevision string
	VcsTime     string
	VcsModified bool
	GoVersion   string
}

// Revision returns "date-shortrev", with "+dirty" for modified trees.
func (b *buildInfo) Revision() string {
	if b.VcsRevision == "" {
		return "unknown"
	}

	rev := b.VcsRevision
	if len(rev) > 8 {
		rev = rev[:8]
	}

	s := strings.Split(b.VcsTime, "T")[0] + "-" + rev
	if b.VcsModified {
		s += "+dirty"
	}

	return s
}

func (b *buildInfo) load() {
	if info, ok := debug.ReadBuildInfo(); ok {
		b.GoVersion = info.GoVersion
		b.VcsRevision = getBuildSetting(info.Settings, "vcs.revision")
		b.VcsTime = getBuildSetting(info.Settings, "vcs.time")
		b.VcsModified = getBuildSetting(info.Settings, "vcs.modified") == "true"
	}
}

func getBuildSetting(settings []debug.BuildSetting, key string) string {
	for _, kv := range settings {
		if key == kv.Key {
			return kv.Value
		}
	}

	return ""
}

// BuildInfo returns the version control details embedded in the binary.
func BuildInfo() (revision, goVersion string) {
	var b buildInfo
	b.load()

	return b.Revision(), b.GoVersion
}
