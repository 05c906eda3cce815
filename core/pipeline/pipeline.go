// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package pipeline runs the lingosync commands over a project: scanning the
sources, loading and merging the catalog of every target locale, validating
and writing the results.

Previous catalogs are all loaded before anything is written. A catalog that
does not parse aborts the whole run, so a broken file is never replaced by a
catalog rebuilt from scratch. A locale without a plural rule only fails that
locale; the others are still written.
*/
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"codeberg.org/lingosync/lingosync/core/audit"
	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/format"
	"codeberg.org/lingosync/lingosync/core/history"
	"codeberg.org/lingosync/lingosync/core/metrics"
	"codeberg.org/lingosync/lingosync/core/plural"
	"codeberg.org/lingosync/lingosync/core/scanner"

	// Catalog formats.
	_ "codeberg.org/lingosync/lingosync/core/format/po"
	_ "codeberg.org/lingosync/lingosync/core/format/ts"
)

// LocalePlaceholder is replaced by the locale in [Options.CatalogPath].
const LocalePlaceholder = "{locale}"

var (
	ErrNoLocales        = errors.New("no target locales configured")
	ErrNoCatalogPath    = errors.New("no catalog path configured")
	ErrPathNotPerLocale = errors.New("catalog path must contain " + LocalePlaceholder + " when there is more than one target locale")
	ErrNoHistory        = errors.New("history store is not configured")
	ErrCatalogMissing   = errors.New("catalog file does not exist")
	// ErrLocalesFailed is returned by [SyncResult.Err] and friends when at
	// least one locale could not be processed.
	ErrLocalesFailed = errors.New("some locales failed")
)

const catalogDirPermissions = 0o755

// Options configures a [Pipeline].
type Options struct {
	// Root is the source tree; relative catalog paths are resolved against it.
	Root     string
	Patterns []string
	Excludes []string
	// Workers bounds every fan-out: files, contexts and locales. 0 means GOMAXPROCS.
	Workers int

	CatalogPath    string
	Format         string
	SourceLanguage string
	Locales        []string

	FuzzyMatching bool
	PruneObsolete bool
	DryRun        bool

	Resolver   *plural.Resolver
	Codecs     *format.Registry
	Extractors []scanner.Extractor
	History    *history.Store
	Metrics    *metrics.Collector
	Logger     *zerolog.Logger
}

// Pipeline runs commands against one project.
type Pipeline struct {
	opts   Options
	logger zerolog.Logger
}

// New checks opts and returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	if len(opts.Locales) == 0 {
		return nil, ErrNoLocales
	}

	if opts.CatalogPath == "" {
		return nil, ErrNoCatalogPath
	}

	if len(opts.Locales) > 1 && !strings.Contains(opts.CatalogPath, LocalePlaceholder) {
		return nil, ErrPathNotPerLocale
	}

	if opts.Root == "" {
		opts.Root = "."
	}

	if opts.Resolver == nil {
		opts.Resolver = plural.Default()
	}

	if opts.Codecs == nil {
		opts.Codecs = format.Default()
	}

	p := &Pipeline{opts: opts}

	if opts.Logger != nil {
		p.logger = opts.Logger.With().Str("sys", "pipeline").Logger()
	} else {
		p.logger = log.With().Str("sys", "pipeline").Logger()
	}

	return p, nil
}

// CatalogPath returns the catalog file of locale.
func (p *Pipeline) CatalogPath(locale string) string {
	path := strings.ReplaceAll(p.opts.CatalogPath, LocalePlaceholder, locale)
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.opts.Root, path)
	}

	return path
}

// loaded is a catalog file as found on disk.
type loaded struct {
	locale string
	path   string
	codec  format.Codec
	// raw is nil when the file does not exist.
	raw     []byte
	catalog *catalog.Catalog
}

func (l *loaded) exists() bool {
	return l.raw != nil
}

// loadAll reads the catalog of every locale. The first parse error aborts.
func (p *Pipeline) loadAll(ctx context.Context) ([]*loaded, error) {
	out := make([]*loaded, len(p.opts.Locales))

	err := audit.Run(ctx, audit.PhaseLoad, "", p.opts.Metrics, func(ctx context.Context, span *audit.Span) error {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(p.workers())

		for i, locale := range p.opts.Locales {
			g.Go(func() error {
				l, err := p.load(locale)
				if err != nil {
					return err
				}

				out[i] = l

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		for _, l := range out {
			span.Bytes += len(l.raw)
			span.Items += l.catalog.Len()
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (p *Pipeline) load(locale string) (*loaded, error) {
	path := p.CatalogPath(locale)

	codec, err := p.opts.Codecs.Resolve(p.opts.Format, path)
	if err != nil {
		return nil, fmt.Errorf("locale %s: %w", locale, err)
	}

	l := &loaded{locale: locale, path: path, codec: codec}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		p.logger.Info().Str("locale", locale).Str("path", path).Msg("No previous catalog, starting a new one")

		return l, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	cat, err := codec.Decode(bytes.NewReader(raw))
	if err != nil {
		var pe *format.CatalogParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}

		return nil, err
	}

	if raw == nil {
		raw = []byte{}
	}

	l.raw = raw
	l.catalog = cat

	return l, nil
}

// encode serializes cat with the locale's codec and reports whether the
// result differs from the file on disk.
func (l *loaded) encode(cat *catalog.Catalog) ([]byte, bool, error) {
	b, err := format.EncodeBytes(l.codec, cat)
	if err != nil {
		return nil, false, err
	}

	return b, !l.exists() || !bytes.Equal(b, l.raw), nil
}

// write replaces the catalog file atomically.
func (l *loaded) write(b []byte) error {
	if err := os.MkdirAll(filepath.Dir(l.path), catalogDirPermissions); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}

	if err := atomic.WriteFile(l.path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write catalog %s: %w", l.path, err)
	}

	return nil
}

func (p *Pipeline) workers() int {
	if p.opts.Workers <= 0 {
		return -1
	}

	return p.opts.Workers
}

// LocaleError is a failure confined to one locale.
type LocaleError struct {
	Locale string
	Err    error
}

func (e *LocaleError) Error() string {
	return "locale " + e.Locale + ": " + e.Err.Error()
}

func (e *LocaleError) Unwrap() error {
	return e.Err
}

func joinLocaleErrors(errs []error) error {
	var failed []error

	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}

	if len(failed) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrLocalesFailed, errors.Join(failed...))
}
