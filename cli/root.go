// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package cli implements the lingosync command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"codeberg.org/lingosync/lingosync/config"
	"codeberg.org/lingosync/lingosync/core/history"
	"codeberg.org/lingosync/lingosync/core/metrics"
	"codeberg.org/lingosync/lingosync/core/pipeline"
	"codeberg.org/lingosync/lingosync/core/report"
	"codeberg.org/lingosync/lingosync/core/validate"
)

// ErrFindings is returned by check when the catalogs have error-level findings.
var ErrFindings = errors.New("catalogs have error-level findings")

// app is the state shared by the commands of one invocation.
type app struct {
	flags  config.Flags
	cfg    *config.Config
	stdout io.Writer
}

// NewRootCommand builds the command tree. Command output goes to stdout;
// logs go wherever the configuration sends them.
func NewRootCommand(stdout io.Writer) *cobra.Command {
	a := &app{stdout: stdout}

	root := &cobra.Command{
		Use:   "lingosync",
		Short: "Keep translation catalogs in sync with the source tree.",
		Long: `lingosync scans a source tree for translatable strings and merges them into
one catalog per target locale, keeping existing translations, flagging the ones
whose source changed and validating placeholders, markup and plural forms.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.SetOut(stdout)
	a.flags.Register(root.PersistentFlags())

	root.AddCommand(
		a.syncCommand(),
		a.checkCommand(),
		a.compactCommand(),
		a.statsCommand(),
		a.pluralsCommand(),
		a.historyCommand(),
		a.versionCommand(),
	)

	return root
}

// Execute runs the command line in args.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand(os.Stdout)
	root.SetArgs(args)

	return root.ExecuteContext(ctx)
}

func (a *app) load() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}

	cfg := &config.Config{}
	if err := cfg.LoadConfig(&a.flags); err != nil {
		return nil, err
	}

	a.cfg = cfg

	return cfg, nil
}

// session is a configured pipeline plus the resources it holds open.
type session struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	history  *history.Store
	metrics  *metrics.Collector
}

func (a *app) open(dryRun bool) (*session, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}

	if cfg.Metrics.Textfile != "" {
		s.metrics = metrics.New()
	}

	if cfg.History.Path != "" {
		s.history, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
	}

	s.pipeline, err = pipeline.New(pipeline.Options{
		Root:           cfg.Project.Root,
		Patterns:       cfg.Project.Patterns,
		Excludes:       cfg.Project.Excludes,
		Workers:        cfg.Project.Workers,
		CatalogPath:    cfg.Catalog.Path,
		Format:         cfg.Catalog.Format,
		SourceLanguage: cfg.Catalog.SourceLanguage,
		Locales:        cfg.TargetLocales,
		FuzzyMatching:  cfg.Fuzzy(),
		PruneObsolete:  cfg.PruneObsolete,
		DryRun:         dryRun,
		Resolver:       cfg.Resolver(),
		History:        s.history,
		Metrics:        s.metrics,
	})
	if err != nil {
		s.close()

		return nil, err
	}

	return s, nil
}

// close flushes the metrics textfile and closes the history store.
func (s *session) close() {
	if err := s.metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
		log.Error().Err(err).Msg("Failed to write metrics")
	}

	if s.history != nil {
		if err := s.history.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close history store")
		}
	}
}

// writeReport renders r to the configured output, stdout by default.
func (a *app) writeReport(cfg *config.Config, r *validate.Report) error {
	r.Sort()

	if cfg.Report.Output == "" {
		return report.Write(a.stdout, cfg.Report.Format, r)
	}

	if err := report.WriteFile(cfg.Report.Output, cfg.Report.Format, r); err != nil {
		return err
	}

	log.Info().Str("path", cfg.Report.Output).Msg("Wrote validation report")

	return nil
}

// printf writes command output, ignoring errors the way fmt.Printf does.
func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.stdout, format, args...)
}
