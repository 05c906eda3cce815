// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package validate checks that translations are structurally consistent with
// their sources: placeholder tokens, plural-form counts and inline markup.
//
// Validation only reads the catalog. Problems are reported as [Finding]
// values; none of them stops the remaining entries from being checked.
package validate

import (
	"fmt"
	"slices"
	"strings"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/plural"
)

// Validator checks catalogs against a plural rule registry.
type Validator struct {
	resolver *plural.Resolver
}

// New returns a Validator. A nil resolver means [plural.Default].
func New(resolver *plural.Resolver) *Validator {
	if resolver == nil {
		resolver = plural.Default()
	}

	return &Validator{resolver: resolver}
}

// Validate checks every entry of c against the plural rule of c.Language.
func (v *Validator) Validate(c *catalog.Catalog) *Report {
	return v.ValidateAs(c, c.Language)
}

// ValidateAs checks c as the catalog of locale, whatever language its header
// declares. Plural counts follow locale's rule and findings carry locale.
// Entries are independent: a problem in one never hides problems in another.
func (v *Validator) ValidateAs(c *catalog.Catalog, locale string) *Report {
	r := &Report{}

	rule, err := v.resolver.Resolve(locale)
	if err != nil {
		r.Findings = append(r.Findings, Finding{
			Locale:   locale,
			Kind:     UnknownLocale,
			Severity: SeverityError,
			Detail:   err.Error(),
		})
	}

	c.Walk(func(ctx *catalog.Context, e *catalog.Entry) bool {
		if !e.HasTranslation() {
			return true
		}

		ev := entryValidator{report: r, locale: locale, context: ctx.Name(), entry: e}

		if rule != nil {
			ev.pluralCount(rule)
		}

		ev.placeholders()
		ev.markup()

		return true
	})

	return r
}

type entryValidator struct {
	report  *Report
	locale  string
	context string
	entry   *catalog.Entry
}

func (ev *entryValidator) add(kind Kind, severity Severity, format string, args ...any) {
	f := Finding{
		Context:        ev.context,
		Source:         ev.entry.Source,
		Disambiguation: ev.entry.Disambiguation,
		Locale:         ev.locale,
		Kind:           kind,
		Severity:       severity,
		Detail:         fmt.Sprintf(format, args...),
	}

	if len(ev.entry.Locations) > 0 {
		f.File = ev.entry.Locations[0].File
		f.Line = ev.entry.Locations[0].Line
	}

	ev.report.Findings = append(ev.report.Findings, f)
}

// pluralCount checks the slot count of plural entries.
func (ev *entryValidator) pluralCount(rule *plural.Rule) {
	e := ev.entry
	if !e.Plural {
		return
	}

	if got, want := len(e.Translations), rule.Count(); got != want {
		ev.add(PluralCountMismatch, SeverityError,
			"%d translation forms, %s needs %d (%s)", got, ev.locale, want, strings.Join(rule.Forms, ", "))
	}
}

func (ev *entryValidator) placeholders() {
	e := ev.entry
	source := placeholders(e.Source)

	for slot, text := range e.Translations {
		if text == "" {
			continue
		}

		got := placeholders(text)

		for _, tok := range got {
			if !slices.Contains(source, tok) {
				ev.add(UnknownPlaceholder, SeverityError, "%s%s is not in the source", tok, ev.slotSuffix(slot))
			}
		}

		for _, tok := range source {
			if slices.Contains(got, tok) {
				continue
			}

			severity := SeverityError
			if e.Plural && tok == countMarker {
				severity = SeverityWarning
			}

			ev.add(MissingPlaceholder, severity, "%s%s is missing", tok, ev.slotSuffix(slot))
		}
	}
}

func (ev *entryValidator) markup() {
	source := scanMarkup(ev.entry.Source)

	for slot, text := range ev.entry.Translations {
		if text == "" {
			continue
		}

		got := scanMarkup(text)

		switch {
		case got.problem != "":
			ev.add(MarkupImbalance, SeverityWarning, "%s%s", got.problem, ev.slotSuffix(slot))
		case !slices.Equal(source.tags, got.tags):
			ev.add(MarkupImbalance, SeverityWarning, "tags %v%s differ from source tags %v",
				got.tags, ev.slotSuffix(slot), source.tags)
		}
	}
}

func (ev *entryValidator) slotSuffix(slot int) string {
	if !ev.entry.Plural {
		return ""
	}

	return fmt.Sprintf(" in form %d", slot)
}
