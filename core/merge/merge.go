// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package merge reconciles a previous catalog with freshly scanned messages.
package merge

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/plural"
	"codeberg.org/lingosync/lingosync/core/scanner"
)

// Options configures [Merge].
type Options struct {
	// Language is the target locale of the resulting catalog.
	Language string
	// SourceLanguage defaults to the previous catalog's source language.
	SourceLanguage string
	FuzzyMatching  bool
	// Resolver defaults to [plural.Default].
	Resolver *plural.Resolver
	// Workers bounds the number of contexts merged at once; 0 means GOMAXPROCS.
	Workers int
	Logger  *zerolog.Logger
}

// Stats counts merge outcomes. Vanished and Obsoleted count entries retired
// by this merge only.
type Stats struct {
	New        int `json:"new" yaml:"new"`
	Carried    int `json:"carried" yaml:"carried"`
	Reinstated int `json:"reinstated" yaml:"reinstated"`
	Fuzzy      int `json:"fuzzy" yaml:"fuzzy"`
	Vanished   int `json:"vanished" yaml:"vanished"`
	Obsoleted  int `json:"obsoleted" yaml:"obsoleted"`
	Reshaped   int `json:"reshaped" yaml:"reshaped"`
	Downgraded int `json:"downgraded" yaml:"downgraded"`
	Ambiguous  int `json:"ambiguous" yaml:"ambiguous"`
}

func (s *Stats) add(o Stats) {
	s.New += o.New
	s.Carried += o.Carried
	s.Reinstated += o.Reinstated
	s.Fuzzy += o.Fuzzy
	s.Vanished += o.Vanished
	s.Obsoleted += o.Obsoleted
	s.Reshaped += o.Reshaped
	s.Downgraded += o.Downgraded
	s.Ambiguous += o.Ambiguous
}

// ChangeKind names what happened to an entry.
type ChangeKind string

// Change kinds.
const (
	Added      ChangeKind = "added"
	Reinstated ChangeKind = "reinstated"
	Matched    ChangeKind = "fuzzy"
	Retired    ChangeKind = "retired"
	Downgraded ChangeKind = "downgraded"
)

// Change records an entry whose status was set by the merge rather than carried.
// For fuzzy matches Source is the new source and PreviousSource the old one.
type Change struct {
	Kind           ChangeKind     `json:"kind" yaml:"kind"`
	Context        string         `json:"context" yaml:"context"`
	Source         string         `json:"source" yaml:"source"`
	Disambiguation string         `json:"disambiguation,omitempty" yaml:"disambiguation,omitempty"`
	PreviousSource string         `json:"previous_source,omitempty" yaml:"previous_source,omitempty"`
	From           catalog.Status `json:"from" yaml:"from"`
	To             catalog.Status `json:"to" yaml:"to"`
}

// Ambiguity is a fresh message that could have claimed more than one
// previous translation. Chosen is the source of the entry it claimed.
type Ambiguity struct {
	Context        string   `json:"context" yaml:"context"`
	Source         string   `json:"source" yaml:"source"`
	Disambiguation string   `json:"disambiguation,omitempty" yaml:"disambiguation,omitempty"`
	Candidates     []string `json:"candidates" yaml:"candidates"`
	Chosen         string   `json:"chosen" yaml:"chosen"`
}

// Result is the outcome of [Merge].
type Result struct {
	Catalog     *catalog.Catalog
	Stats       Stats
	Changes     []Change
	Ambiguities []Ambiguity
}

// Merge builds a new catalog from prev and the fresh scan. Neither input is
// modified. prev may be nil on the first run.
//
// An error is returned when the target locale has no plural rule and the
// merge needs one, or when an entry would violate the catalog invariants.
func Merge(ctx context.Context, prev *catalog.Catalog, fresh []scanner.Message, opts Options) (*Result, error) {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	logger = logger.With().Str("sys", "merge").Str("locale", opts.Language).Logger()

	if opts.Resolver == nil {
		opts.Resolver = plural.Default()
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	sourceLanguage := opts.SourceLanguage
	if sourceLanguage == "" && prev != nil {
		sourceLanguage = prev.SourceLanguage
	}

	if prev != nil && prev.Language != "" && prev.Language != opts.Language {
		logger.Warn().Str("catalog_language", prev.Language).Msg("Previous catalog declares a different language")
	}

	groups, order := groupFresh(prev, fresh)

	slots := 1

	if needsPluralRule(prev, fresh) {
		rule, err := opts.Resolver.Resolve(opts.Language)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", opts.Language, err)
		}

		slots = rule.Count()
	}

	b := catalog.NewBuilder(sourceLanguage, opts.Language)
	jobs := make([]*contextMerge, len(order))

	for i, name := range order {
		cb, err := b.Context(name)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", opts.Language, err)
		}

		prevCtx, _ := prev.Context(name)

		jobs[i] = &contextMerge{
			name:   name,
			prev:   prevCtx,
			fresh:  groups[name],
			out:    cb,
			slots:  slots,
			fuzzy:  opts.FuzzyMatching,
			logger: logger,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			return job.run()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("merge %s: %w", opts.Language, err)
	}

	res := &Result{Catalog: b.Build()}
	for _, job := range jobs {
		res.Stats.add(job.stats)
		res.Changes = append(res.Changes, job.changes...)
		res.Ambiguities = append(res.Ambiguities, job.ambiguities...)
	}

	logger.Debug().
		Int("new", res.Stats.New).
		Int("carried", res.Stats.Carried).
		Int("fuzzy", res.Stats.Fuzzy).
		Int("vanished", res.Stats.Vanished).
		Int("obsoleted", res.Stats.Obsoleted).
		Int("ambiguous", res.Stats.Ambiguous).
		Msg("Merged catalog")

	return res, nil
}

// groupFresh splits fresh messages by context. Context order is the previous
// catalog's, followed by new contexts in scan order. Repeated messages are
// folded into their first occurrence.
func groupFresh(prev *catalog.Catalog, fresh []scanner.Message) (map[string][]scanner.Message, []string) {
	groups := make(map[string][]scanner.Message)
	seen := make(map[string]map[catalog.Key]int)

	var order []string

	for _, ctx := range prev.Contexts() {
		order = append(order, ctx.Name())
		seen[ctx.Name()] = make(map[catalog.Key]int)
	}

	for _, m := range fresh {
		keys, ok := seen[m.Context]
		if !ok {
			keys = make(map[catalog.Key]int)
			seen[m.Context] = keys
			order = append(order, m.Context)
		}

		k := catalog.Key{Source: m.Source, Disambiguation: m.Disambiguation}
		if i, dup := keys[k]; dup {
			first := &groups[m.Context][i]
			first.Plural = first.Plural || m.Plural
			first.Locations = append(slices.Clone(first.Locations), m.Locations...)
			slices.SortFunc(first.Locations, catalog.CompareLocations)
			first.Locations = slices.Compact(first.Locations)

			continue
		}

		keys[k] = len(groups[m.Context])
		groups[m.Context] = append(groups[m.Context], m)
	}

	return groups, order
}

func needsPluralRule(prev *catalog.Catalog, fresh []scanner.Message) bool {
	for _, m := range fresh {
		if m.Plural {
			return true
		}
	}

	found := false
	prev.Walk(func(_ *catalog.Context, e *catalog.Entry) bool {
		found = e.Plural

		return !found
	})

	return found
}
