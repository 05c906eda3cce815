// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package cli

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) syncCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Scan the sources and update the catalog of every target locale.",
		Long: `sync scans the source tree, merges the messages into the catalog of every
target locale and writes the catalogs that changed. The validation report of
the merged catalogs is printed at the end.

A catalog that fails to parse aborts the run before anything is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(dryRun)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.pipeline.Sync(cmd.Context())
			if err != nil {
				return err
			}

			for _, w := range res.Warnings {
				log.Warn().Str("file", w.File).Err(w.Err).Msg("Skipped source file")
			}

			for _, lr := range res.Locales {
				for _, amb := range lr.Ambiguities {
					log.Info().
						Str("locale", lr.Locale).
						Str("context", amb.Context).
						Str("source", amb.Source).
						Str("chosen", amb.Chosen).
						Msg("Fuzzy match had several candidates")
				}
			}

			if err := a.writeReport(s.cfg, res.Report); err != nil {
				return err
			}

			if res.RunID != uuid.Nil {
				log.Info().Str("run", res.RunID.String()).Msg("Recorded run")
			}

			return res.Err()
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "do everything except writing catalogs")

	return cmd
}

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the catalogs without changing them.",
		Long: `check validates the catalog of every target locale and prints the report.
It exits non-zero when a catalog is missing or has an error-level finding.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(true)
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.pipeline.Check(cmd.Context())
			if err != nil {
				return err
			}

			if err := a.writeReport(s.cfg, res.Report); err != nil {
				return err
			}

			if err := res.Err(); err != nil {
				return err
			}

			if res.Report.HasErrors() {
				return ErrFindings
			}

			return nil
		},
	}
}

func (a *app) compactCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Remove obsolete entries from every catalog.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(dryRun)
			if err != nil {
				return err
			}
			defer s.close()

			results, err := s.pipeline.Compact(cmd.Context())
			if err != nil {
				return err
			}

			for _, lr := range results {
				a.printf("%s\t%d removed\t%s\n", lr.Locale, lr.Stats.Obsoleted, lr.Path)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "report what would be removed without writing")

	return cmd
}
