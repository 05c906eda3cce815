// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/history"
	"codeberg.org/lingosync/lingosync/core/validate"
)

// CheckResult is the outcome of [Pipeline.Check].
type CheckResult struct {
	Report  *validate.Report
	Locales []LocaleResult
}

// Err reports the locales whose catalog is missing, or nil.
func (r *CheckResult) Err() error {
	errs := make([]error, 0, len(r.Locales))
	for _, l := range r.Locales {
		errs = append(errs, l.Err)
	}

	return joinLocaleErrors(errs)
}

// Check validates the catalog of every locale without writing anything.
func (p *Pipeline) Check(ctx context.Context) (*CheckResult, error) {
	prev, err := p.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	res := &CheckResult{Report: &validate.Report{}}

	for _, l := range prev {
		lr := LocaleResult{Locale: l.locale, Path: l.path, Format: l.codec.Name()}

		if !l.exists() {
			lr.Err = &LocaleError{Locale: l.locale, Err: fmt.Errorf("%w: %s", ErrCatalogMissing, l.path)}
			p.opts.Metrics.LocaleFailed(l.locale)
			res.Locales = append(res.Locales, lr)

			continue
		}

		lr.Counts = l.catalog.Counts()
		res.Report.Merge(p.validate(ctx, l.locale, l.catalog))
		p.opts.Metrics.ObserveCatalog(l.locale, l.catalog)
		res.Locales = append(res.Locales, lr)
	}

	p.logger.Info().
		Int("findings", len(res.Report.Findings)).
		Int("errors", res.Report.Count(validate.SeverityError)).
		Msg("check finished")

	return res, nil
}

// Compact drops Obsolete entries from every existing catalog.
func (p *Pipeline) Compact(ctx context.Context) ([]LocaleResult, error) {
	run := history.NewRun("compact", p.opts.DryRun)

	prev, err := p.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]LocaleResult, len(prev))

	for i, l := range prev {
		results[i] = LocaleResult{Locale: l.locale, Path: l.path, Format: l.codec.Name()}
		if !l.exists() {
			continue
		}

		before := l.catalog.Counts()[catalog.Obsolete]
		cat := catalog.Compact(l.catalog)

		results[i].Stats.Obsoleted = before
		results[i].Counts = cat.Counts()

		if err := p.store(ctx, l, cat, &results[i]); err != nil {
			return nil, err
		}
	}

	if err := p.record(ctx, run, prev, results); err != nil {
		return nil, err
	}

	p.logSummary("compact", results)

	return results, nil
}

// LocaleStats summarizes one catalog.
type LocaleStats struct {
	Locale string                 `json:"locale" yaml:"locale"`
	Path   string                 `json:"path"   yaml:"path"`
	Exists bool                   `json:"exists" yaml:"exists"`
	Counts map[catalog.Status]int `json:"counts" yaml:"counts"`
	Total  int                    `json:"total"  yaml:"total"`
	// Completion is the share of active entries that are Finished, from 0 to 1.
	Completion float64 `json:"completion" yaml:"completion"`
}

// Stats counts the entries of every catalog by status.
func (p *Pipeline) Stats(ctx context.Context) ([]LocaleStats, error) {
	prev, err := p.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]LocaleStats, 0, len(prev))

	for _, l := range prev {
		counts := l.catalog.Counts()
		active := counts[catalog.Unfinished] + counts[catalog.Finished] + counts[catalog.Fuzzy]

		st := LocaleStats{
			Locale: l.locale,
			Path:   l.path,
			Exists: l.exists(),
			Counts: counts,
			Total:  l.catalog.Len(),
		}

		if active > 0 {
			st.Completion = float64(counts[catalog.Finished]) / float64(active)
		}

		out = append(out, st)
	}

	return out, nil
}

// Restore writes back the catalog of locale as it was before run id. The
// snapshot must still parse; the current file is replaced atomically.
func (p *Pipeline) Restore(ctx context.Context, id uuid.UUID, locale string) (string, error) {
	if p.opts.History == nil {
		return "", ErrNoHistory
	}

	snap, err := p.opts.History.Snapshot(ctx, id, locale)
	if err != nil {
		return "", err
	}

	codec, err := p.opts.Codecs.Resolve(snap.Format, snap.Path)
	if err != nil {
		return "", err
	}

	if _, err := codec.Decode(bytes.NewReader(snap.Content)); err != nil {
		return "", fmt.Errorf("snapshot of %s in run %s: %w", locale, id, err)
	}

	l := &loaded{locale: locale, path: snap.Path, codec: codec}

	if p.opts.DryRun {
		return snap.Path, nil
	}

	if err := l.write(snap.Content); err != nil {
		return "", err
	}

	p.logger.Info().Str("locale", locale).Str("run", id.String()).Str("path", snap.Path).Msg("Restored catalog")

	return snap.Path, nil
}
