// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cli

import (
	"github.com/spf13/cobra"

	"codeberg.org/lingosync/lingosync/config"
)

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lingosync version.",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			revision, goVersion := config.BuildInfo()
			a.printf("lingosync %s (revision %s, %s)\n", config.BuildVersion, revision, goVersion)
		},
	}
}
