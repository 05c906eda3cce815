// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"codeberg.org/lingosync/lingosync/core/audit"
	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/history"
	"codeberg.org/lingosync/lingosync/core/merge"
	"codeberg.org/lingosync/lingosync/core/scanner"
	"codeberg.org/lingosync/lingosync/core/validate"
)

// LocaleResult is the outcome of a command for one locale.
type LocaleResult struct {
	Locale string `json:"locale" yaml:"locale"`
	Path   string `json:"path"   yaml:"path"`
	Format string `json:"format" yaml:"format"`

	Stats       merge.Stats       `json:"stats"                 yaml:"stats"`
	Changes     []merge.Change    `json:"changes,omitempty"     yaml:"changes,omitempty"`
	Ambiguities []merge.Ambiguity `json:"ambiguities,omitempty" yaml:"ambiguities,omitempty"`

	Counts map[catalog.Status]int `json:"counts" yaml:"counts"`
	// Changed is true when the new catalog differs from the file on disk.
	Changed bool `json:"changed" yaml:"changed"`
	// Written is true when the file was replaced; always false in a dry run.
	Written bool `json:"written" yaml:"written"`

	Err error `json:"-" yaml:"-"`
}

// SyncResult is the outcome of [Pipeline.Sync].
type SyncResult struct {
	// RunID identifies the run in the history store; uuid.Nil without one.
	RunID    uuid.UUID         `json:"run_id"   yaml:"run_id"`
	Files    int               `json:"files"    yaml:"files"`
	Messages int               `json:"messages" yaml:"messages"`
	Warnings []scanner.Warning `json:"-"        yaml:"-"`
	Locales  []LocaleResult    `json:"locales"  yaml:"locales"`
	Report   *validate.Report  `json:"-"        yaml:"-"`
}

// Err reports the locales that failed, or nil.
func (r *SyncResult) Err() error {
	errs := make([]error, 0, len(r.Locales))
	for _, l := range r.Locales {
		errs = append(errs, l.Err)
	}

	return joinLocaleErrors(errs)
}

// Sync scans the sources, merges them into the catalog of every locale,
// validates and writes the catalogs that changed.
//
// The returned error is set only when the run aborted as a whole; failures
// of single locales are reported through [SyncResult.Err].
func (p *Pipeline) Sync(ctx context.Context) (*SyncResult, error) {
	run := history.NewRun("sync", p.opts.DryRun)

	scan, err := p.scan(ctx)
	if err != nil {
		return nil, err
	}

	prev, err := p.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{
		Files:    scan.Files,
		Messages: len(scan.Messages),
		Warnings: scan.Warnings,
		Locales:  make([]LocaleResult, len(prev)),
		Report:   &validate.Report{},
	}

	reports := make([]*validate.Report, len(prev))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())

	for i, l := range prev {
		g.Go(func() error {
			lr, report, err := p.syncLocale(gctx, l, scan.Messages)
			if err != nil {
				return err
			}

			res.Locales[i] = *lr
			reports[i] = report

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range reports {
		res.Report.Merge(r)
	}

	p.opts.Metrics.ObserveScan(scan.Files, len(scan.Warnings))

	if err := p.record(ctx, run, prev, res.Locales); err != nil {
		return nil, err
	}

	if p.opts.History != nil {
		res.RunID = run.ID
	}

	p.logSummary("sync", res.Locales)

	return res, nil
}

func (p *Pipeline) scan(ctx context.Context) (*scanner.Result, error) {
	var res *scanner.Result

	err := audit.Run(ctx, audit.PhaseScan, "", p.opts.Metrics, func(ctx context.Context, span *audit.Span) error {
		s := scanner.New(scanner.Options{
			Root:       p.opts.Root,
			Patterns:   p.opts.Patterns,
			Excludes:   p.opts.Excludes,
			Workers:    p.opts.Workers,
			Extractors: p.opts.Extractors,
			Logger:     &p.logger,
		})

		var err error

		res, err = s.Scan(ctx)
		if err != nil {
			return fmt.Errorf("scan %s: %w", p.opts.Root, err)
		}

		span.Items = res.Files

		return nil
	})

	return res, err
}

// syncLocale merges, validates and writes one locale. Merge failures stay in
// the result; only write errors are returned.
func (p *Pipeline) syncLocale(ctx context.Context, l *loaded, fresh []scanner.Message) (*LocaleResult, *validate.Report, error) {
	lr := &LocaleResult{Locale: l.locale, Path: l.path, Format: l.codec.Name()}

	var merged *merge.Result

	err := audit.Run(ctx, audit.PhaseMerge, l.locale, p.opts.Metrics, func(ctx context.Context, span *audit.Span) error {
		var err error

		merged, err = merge.Merge(ctx, l.catalog, fresh, merge.Options{
			Language:       l.locale,
			SourceLanguage: p.opts.SourceLanguage,
			FuzzyMatching:  p.opts.FuzzyMatching,
			Resolver:       p.opts.Resolver,
			Workers:        p.opts.Workers,
			Logger:         &p.logger,
		})
		if err != nil {
			return err
		}

		span.Items = merged.Catalog.Len()

		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		lr.Err = &LocaleError{Locale: l.locale, Err: err}
		p.opts.Metrics.LocaleFailed(l.locale)

		return lr, nil, nil
	}

	cat := merged.Catalog
	if p.opts.PruneObsolete {
		cat = catalog.Compact(cat)
	}

	lr.Stats = merged.Stats
	lr.Changes = merged.Changes
	lr.Ambiguities = merged.Ambiguities
	lr.Counts = cat.Counts()

	report := p.validate(ctx, l.locale, cat)

	if err := p.store(ctx, l, cat, lr); err != nil {
		return nil, nil, err
	}

	p.opts.Metrics.ObserveCatalog(l.locale, cat)
	p.opts.Metrics.ObserveMerge(l.locale, merged.Stats)

	return lr, report, nil
}

func (p *Pipeline) validate(ctx context.Context, locale string, cat *catalog.Catalog) *validate.Report {
	var report *validate.Report

	_ = audit.Run(ctx, audit.PhaseValidate, locale, p.opts.Metrics, func(context.Context, *audit.Span) error {
		report = validate.New(p.opts.Resolver).ValidateAs(cat, locale)

		return nil
	})

	p.opts.Metrics.ObserveReport(locale, report)

	return report
}

// store encodes cat and writes it when it changed, unless this is a dry run.
func (p *Pipeline) store(ctx context.Context, l *loaded, cat *catalog.Catalog, lr *LocaleResult) error {
	return audit.Run(ctx, audit.PhaseWrite, l.locale, p.opts.Metrics, func(_ context.Context, span *audit.Span) error {
		b, changed, err := l.encode(cat)
		if err != nil {
			return err
		}

		lr.Changed = changed
		span.Bytes = len(b)
		span.Items = cat.Len()

		if !changed || p.opts.DryRun {
			return nil
		}

		if err := l.write(b); err != nil {
			return err
		}

		lr.Written = true

		return nil
	})
}

// record stores the run in the history database, if there is one.
func (p *Pipeline) record(ctx context.Context, run history.Run, prev []*loaded, results []LocaleResult) error {
	if p.opts.History == nil {
		return nil
	}

	return audit.Run(ctx, audit.PhaseRecord, "", p.opts.Metrics, func(ctx context.Context, span *audit.Span) error {
		locales := make([]history.Locale, 0, len(results))

		for i, lr := range results {
			if lr.Err != nil {
				continue
			}

			hl := history.Locale{
				Locale:  lr.Locale,
				Path:    lr.Path,
				Format:  lr.Format,
				Written: lr.Written,
				Stats:   lr.Stats,
				Changes: lr.Changes,
			}

			if lr.Written && prev[i].exists() {
				hl.Previous = prev[i].raw
			}

			locales = append(locales, hl)
		}

		span.Items = len(locales)
		run.FinishedAt = time.Now().UTC()

		if err := p.opts.History.Record(ctx, run, locales); err != nil {
			return fmt.Errorf("record history: %w", err)
		}

		return nil
	})
}

func (p *Pipeline) logSummary(command string, results []LocaleResult) {
	for _, lr := range results {
		if lr.Err != nil {
			var le *LocaleError
			if errors.As(lr.Err, &le) {
				p.logger.Error().Err(le.Err).Str("locale", lr.Locale).Msgf("%s failed for locale", command)
			}

			continue
		}

		p.logger.Info().
			Str("locale", lr.Locale).
			Str("path", lr.Path).
			Bool("changed", lr.Changed).
			Bool("written", lr.Written).
			Int("new", lr.Stats.New).
			Int("fuzzy", lr.Stats.Fuzzy).
			Int("vanished", lr.Stats.Vanished).
			Int("obsoleted", lr.Stats.Obsoleted).
			Msgf("%s finished", command)
	}
}
