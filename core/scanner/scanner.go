// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package scanner extracts translatable messages from a source tree.
package scanner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"codeberg.org/lingosync/lingosync/core/catalog"
)

var (
	// ErrUnrecognizedFile is reported for a selected file no extractor handles.
	ErrUnrecognizedFile = errors.New("no extractor for file")
	// ErrNonConstant is reported for a recognized call whose source text is not a constant string.
	ErrNonConstant = errors.New("source text is not a constant string")

	errNoRoot = errors.New("scan root is not a directory")
)

// Occurrence is one message found by an [Extractor] in a single file.
// Line and Column are 1-based.
type Occurrence struct {
	Context        string
	Source         string
	Disambiguation string
	ExtraComment   string
	Plural         bool
	Line           int
	Column         int
}

// Extractor finds messages in files of a particular kind.
//
// Extract may return occurrences together with a non-nil error. In that case
// every [LineError] joined into the error becomes a warning and the
// occurrences are kept; any other error discards the whole file.
type Extractor interface {
	Name() string
	Extensions() []string
	Extract(path string, src []byte) ([]Occurrence, error)
}

// LineError is a non-fatal problem at one line of a file.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Message is a deduplicated translatable message.
type Message struct {
	Context        string
	Source         string
	Disambiguation string
	ExtraComment   string
	Plural         bool
	Locations      []catalog.Location
}

// Warning is a file the scanner could not fully process.
type Warning struct {
	File string
	Line int
	Err  error
}

func (w Warning) Error() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", w.File, w.Line, w.Err)
	}

	return fmt.Sprintf("%s: %v", w.File, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Result is the outcome of a scan.
type Result struct {
	Messages []Message
	Warnings []Warning
	// Files is the number of files selected by the patterns.
	Files int
}

// Options configures a [Scanner].
type Options struct {
	Root     string
	Patterns []string
	Excludes []string
	// Workers bounds the number of files processed at once; 0 means GOMAXPROCS.
	Workers int
	// Extractors defaults to [DefaultExtractors] when empty.
	Extractors []Extractor
	Logger     *zerolog.Logger
}

// Scanner walks a source tree and collects messages.
type Scanner struct {
	opts   Options
	byExt  map[string]Extractor
	logger zerolog.Logger
}

// New returns a scanner for opts.
func New(opts Options) *Scanner {
	if len(opts.Extractors) == 0 {
		opts.Extractors = DefaultExtractors()
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	s := &Scanner{
		opts:  opts,
		byExt: make(map[string]Extractor),
	}

	if opts.Logger != nil {
		s.logger = opts.Logger.With().Str("sys", "scanner").Logger()
	} else {
		s.logger = log.With().Str("sys", "scanner").Logger()
	}

	for _, ex := range opts.Extractors {
		for _, ext := range ex.Extensions() {
			s.byExt[strings.ToLower(ext)] = ex
		}
	}

	return s
}

// DefaultExtractors returns the Go, template and HTML extractors.
func DefaultExtractors() []Extractor {
	return []Extractor{GoExtractor{}, TemplateExtractor{}, HTMLExtractor{}}
}

type fileResult struct {
	occs     []Occurrence
	warnings []Warning
}

// Scan walks the root and extracts every message. Only a failure to walk the
// root itself is returned as an error; everything else becomes a warning.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	files, warnings, err := s.walk()
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results[i] = s.scanFile(rel)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.opts.Root, err)
	}

	res := &Result{Files: len(files), Warnings: warnings}

	agg := newAggregator()
	for i, rel := range files {
		res.Warnings = append(res.Warnings, results[i].warnings...)

		for _, occ := range results[i].occs {
			agg.add(rel, occ)
		}
	}

	res.Messages = agg.messages()

	for _, w := range res.Warnings {
		s.logger.Warn().Str("file", w.File).Int("line", w.Line).Err(w.Err).Msg("Scan warning")
	}

	s.logger.Debug().
		Int("files", res.Files).
		Int("messages", len(res.Messages)).
		Int("warnings", len(res.Warnings)).
		Msg("Scan finished")

	return res, nil
}

// walk lists the selected files as sorted slash-separated paths relative to the root.
func (s *Scanner) walk() ([]string, []Warning, error) {
	fi, err := os.Stat(s.opts.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", s.opts.Root, err)
	}

	if !fi.IsDir() {
		return nil, nil, fmt.Errorf("scan %s: %w", s.opts.Root, errNoRoot)
	}

	var (
		files    []string
		warnings []Warning
	)

	err = filepath.WalkDir(s.opts.Root, func(p string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(s.opts.Root, p)
		if relErr != nil {
			return relErr
		}

		rel = filepath.ToSlash(rel)

		if err != nil {
			if rel == "." {
				return err
			}

			warnings = append(warnings, Warning{File: rel, Err: err})

			if d != nil && d.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			if rel != "." && (skipDir(d.Name()) || s.excluded(rel+"/")) {
				return fs.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() || !s.selected(d.Name()) || s.excluded(rel) {
			return nil
		}

		files = append(files, rel)

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", s.opts.Root, err)
	}

	slices.Sort(files)

	return files, warnings, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules"
}

func (s *Scanner) selected(base string) bool {
	for _, pattern := range s.opts.Patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}

	return false
}

// excluded matches rel against the exclude globs. Directory paths carry a
// trailing slash so that a pattern such as "testdata/" only excludes directories.
func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.opts.Excludes {
		if prefix, ok := strings.CutSuffix(pattern, "/"); ok {
			if strings.HasPrefix(rel, prefix+"/") {
				return true
			}

			if ok, _ := path.Match(prefix, strings.TrimSuffix(rel, "/")); ok && strings.HasSuffix(rel, "/") {
				return true
			}

			continue
		}

		if ok, _ := path.Match(pattern, strings.TrimSuffix(rel, "/")); ok {
			return true
		}
	}

	return false
}

func (s *Scanner) scanFile(rel string) fileResult {
	ex, ok := s.byExt[strings.ToLower(path.Ext(rel))]
	if !ok {
		return fileResult{warnings: []Warning{{File: rel, Err: ErrUnrecognizedFile}}}
	}

	src, err := os.ReadFile(filepath.Join(s.opts.Root, filepath.FromSlash(rel)))
	if err != nil {
		return fileResult{warnings: []Warning{{File: rel, Err: err}}}
	}

	occs, err := ex.Extract(rel, src)
	sortOccurrences(occs)

	if err == nil {
		return fileResult{occs: occs}
	}

	lineErrs := lineErrors(err)
	if lineErrs == nil {
		return fileResult{warnings: []Warning{{File: rel, Err: fmt.Errorf("%s: %w", ex.Name(), err)}}}
	}

	res := fileResult{occs: occs}
	for _, le := range lineErrs {
		res.warnings = append(res.warnings, Warning{File: rel, Line: le.Line, Err: le.Err})
	}

	return res
}

// lineErrors unpacks err into line errors. It returns nil if err holds
// anything else.
func lineErrors(err error) []*LineError {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	out := make([]*LineError, 0, len(errs))

	for _, e := range errs {
		le, ok := e.(*LineError)
		if !ok {
			return nil
		}

		out = append(out, le)
	}

	return out
}

type tuple struct {
	context, source, disambiguation string
}

// aggregator merges occurrences of the same message, keeping the order in
// which messages were first seen.
type aggregator struct {
	index map[tuple]int
	msgs  []Message
	// comments tracks the distinct extra comments of each message.
	comments [][]string
}

func newAggregator() *aggregator {
	return &aggregator{index: make(map[tuple]int)}
}

func (a *aggregator) add(file string, occ Occurrence) {
	k := tuple{occ.Context, occ.Source, occ.Disambiguation}
	loc := catalog.Location{File: file, Line: occ.Line}

	i, ok := a.index[k]
	if !ok {
		i = len(a.msgs)
		a.index[k] = i
		a.msgs = append(a.msgs, Message{
			Context:        occ.Context,
			Source:         occ.Source,
			Disambiguation: occ.Disambiguation,
		})
		a.comments = append(a.comments, nil)
	}

	m := &a.msgs[i]
	m.Plural = m.Plural || occ.Plural
	m.Locations = append(m.Locations, loc)

	if occ.ExtraComment != "" && !slices.Contains(a.comments[i], occ.ExtraComment) {
		a.comments[i] = append(a.comments[i], occ.ExtraComment)
	}
}

func (a *aggregator) messages() []Message {
	for i := range a.msgs {
		m := &a.msgs[i]
		slices.SortFunc(m.Locations, catalog.CompareLocations)
		m.Locations = slices.Compact(m.Locations)
		m.ExtraComment = strings.Join(a.comments[i], "\n")
	}

	return a.msgs
}

// sortOccurrences orders occurrences by position in the file.
func sortOccurrences(occs []Occurrence) {
	slices.SortStableFunc(occs, func(a, b Occurrence) int {
		return cmp.Or(cmp.Compare(a.Line, b.Line), cmp.Compare(a.Column, b.Column))
	})
}
