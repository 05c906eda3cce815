// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package validate

import (
	"cmp"
	"fmt"
	"slices"
)

// Kind classifies a finding.
type Kind string

const (
	MissingPlaceholder  Kind = "MissingPlaceholder"
	UnknownPlaceholder  Kind = "UnknownPlaceholder"
	PluralCountMismatch Kind = "PluralCountMismatch"
	MarkupImbalance     Kind = "MarkupImbalance"
	UnknownLocale       Kind = "UnknownLocale"
)

// Kinds lists every finding kind.
var Kinds = []Kind{MissingPlaceholder, UnknownPlaceholder, PluralCountMismatch, MarkupImbalance, UnknownLocale}

// Severity tells whether a finding fails a check.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}

	return "warning"
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", b)
	}

	return nil
}

// Finding is one structural problem of a catalog entry. Catalog-wide
// findings leave Context and Source empty.
type Finding struct {
	Context        string   `json:"context,omitempty"        yaml:"context,omitempty"`
	Source         string   `json:"source,omitempty"         yaml:"source,omitempty"`
	Disambiguation string   `json:"disambiguation,omitempty" yaml:"disambiguation,omitempty"`
	Locale         string   `json:"locale"                   yaml:"locale"`
	Kind           Kind     `json:"kind"                     yaml:"kind"`
	Severity       Severity `json:"severity"                 yaml:"severity"`
	Detail         string   `json:"detail"                   yaml:"detail"`
	File           string   `json:"file,omitempty"           yaml:"file,omitempty"`
	Line           int      `json:"line,omitempty"           yaml:"line,omitempty"`
}

// Key groups findings that concern the same entry in the same locale.
type Key struct {
	Context        string
	Source         string
	Disambiguation string
	Locale         string
}

func (f *Finding) Key() Key {
	return Key{Context: f.Context, Source: f.Source, Disambiguation: f.Disambiguation, Locale: f.Locale}
}

// Report is the outcome of validating one or more catalogs.
type Report struct {
	Findings []Finding `json:"findings" yaml:"findings"`
}

// HasErrors reports whether any finding is error-level.
func (r *Report) HasErrors() bool {
	return r.Count(SeverityError) > 0
}

// Count returns the number of findings with severity s.
func (r *Report) Count(s Severity) int {
	if r == nil {
		return 0
	}

	n := 0
	for i := range r.Findings {
		if r.Findings[i].Severity == s {
			n++
		}
	}

	return n
}

// CountByKind returns the number of findings per kind. Every kind is present.
func (r *Report) CountByKind() map[Kind]int {
	out := make(map[Kind]int, len(Kinds))
	for _, k := range Kinds {
		out[k] = 0
	}

	if r != nil {
		for i := range r.Findings {
			out[r.Findings[i].Kind]++
		}
	}

	return out
}

// ByKey groups findings by entry and locale, keeping report order inside each group.
func (r *Report) ByKey() map[Key][]Finding {
	out := make(map[Key][]Finding)

	if r != nil {
		for _, f := range r.Findings {
			k := f.Key()
			out[k] = append(out[k], f)
		}
	}

	return out
}

// Merge appends the findings of other to r.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}

	r.Findings = append(r.Findings, other.Findings...)
}

// Sort orders findings by locale, keeping the catalog order within a locale.
func (r *Report) Sort() {
	slices.SortStableFunc(r.Findings, func(a, b Finding) int {
		return cmp.Compare(a.Locale, b.Locale)
	})
}
