// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package plural maps locales to their plural-form rules.
package plural

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/leonelquinteros/gotext/plurals"
	"golang.org/x/text/language"
)

// probeLimit bounds the sample of n used to check that a rule's expression
// reaches every one of its forms and nothing else.
const probeLimit = 1000

var (
	// ErrUnknownLocale is matched by every [UnknownLocaleError].
	ErrUnknownLocale = errors.New("unknown locale")

	errInvalidRule   = errors.New("invalid plural rule")
	errNoForms       = errors.New("rule has no forms")
	errFormsMismatch = errors.New("expression range does not match forms")
)

// UnknownLocaleError reports a locale with no plural rule.
type UnknownLocaleError struct {
	Locale string
}

func (e *UnknownLocaleError) Error() string {
	return fmt.Sprintf("unknown locale %q: no plural rule", e.Locale)
}

func (e *UnknownLocaleError) Unwrap() error {
	return ErrUnknownLocale
}

// Rule describes how a language selects plural forms.
//
// Forms holds the CLDR category of every translation slot, in slot order.
// Expression is a gettext Plural-Forms expression in n that yields the slot index.
type Rule struct {
	Locale     string   `json:"locale" yaml:"locale"`
	Forms      []string `json:"forms" yaml:"forms"`
	Expression string   `json:"expression" yaml:"expression"`

	expr plurals.Expression
}

// Count returns the number of plural forms.
func (r *Rule) Count() int {
	return len(r.Forms)
}

// Select returns the slot index used for the quantity n.
func (r *Rule) Select(n int) int {
	if n < 0 {
		n = -n
	}

	return r.expr.Eval(uint32(n))
}

// Header renders the rule as a gettext Plural-Forms header value.
func (r *Rule) Header() string {
	return fmt.Sprintf("nplurals=%d; plural=%s;", len(r.Forms), r.Expression)
}

func (r *Rule) compile() error {
	if len(r.Forms) == 0 {
		return fmt.Errorf("%w %s: %w", errInvalidRule, r.Locale, errNoForms)
	}

	expr, err := plurals.Compile(r.Expression)
	if err != nil {
		return fmt.Errorf("%w %s: %w", errInvalidRule, r.Locale, err)
	}

	seen := make([]bool, len(r.Forms))

	for n := range uint32(probeLimit) {
		i := expr.Eval(n)
		if i < 0 || i >= len(r.Forms) {
			return fmt.Errorf("%w %s: %w: n=%d selects form %d of %d",
				errInvalidRule, r.Locale, errFormsMismatch, n, i, len(r.Forms))
		}

		seen[i] = true
	}

	if i := slices.Index(seen, false); i >= 0 {
		return fmt.Errorf("%w %s: %w: form %q is never selected",
			errInvalidRule, r.Locale, errFormsMismatch, r.Forms[i])
	}

	r.expr = expr

	return nil
}

// Resolver maps locale identifiers to plural rules. It is safe for concurrent
// use; the rules it returns must not be modified.
type Resolver struct {
	rules map[string]*Rule
}

var defaultResolver = sync.OnceValue(func() *Resolver {
	r, err := NewResolver()
	if err != nil {
		panic("plural: built-in rules do not compile: " + err.Error())
	}

	return r
})

// Default returns the resolver for the built-in rule table.
func Default() *Resolver {
	return defaultResolver()
}

// NewResolver builds a resolver from the built-in table plus overrides. An
// override replaces the built-in rule for the same canonical locale.
func NewResolver(overrides ...Rule) (*Resolver, error) {
	r := &Resolver{rules: make(map[string]*Rule, len(builtin)+len(overrides))}

	for _, set := range [][]Rule{builtin, overrides} {
		for _, rule := range set {
			tag, err := Canonical(rule.Locale)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", errInvalidRule, err)
			}

			rule.Locale = tag.String()
			rule.Forms = slices.Clone(rule.Forms)

			if err := rule.compile(); err != nil {
				return nil, err
			}

			r.rules[rule.Locale] = &rule
		}
	}

	return r, nil
}

// Resolve returns the rule for locale. It tries the full tag, then language
// and region, then the base language.
func (r *Resolver) Resolve(locale string) (*Rule, error) {
	tag, err := Canonical(locale)
	if err != nil {
		return nil, &UnknownLocaleError{Locale: locale}
	}

	for _, key := range candidates(tag) {
		if rule, ok := r.rules[key]; ok {
			return rule, nil
		}
	}

	return nil, &UnknownLocaleError{Locale: locale}
}

// Forms returns the plural form labels for locale in slot order.
func (r *Resolver) Forms(locale string) ([]string, error) {
	rule, err := r.Resolve(locale)
	if err != nil {
		return nil, err
	}

	return slices.Clone(rule.Forms), nil
}

// Locales returns every locale with a registered rule, sorted.
func (r *Resolver) Locales() []string {
	out := make([]string, 0, len(r.rules))
	for k := range r.rules {
		out = append(out, k)
	}

	slices.Sort(out)

	return out
}

// Canonical parses a locale identifier. Both "pt_BR" and "pt-BR" are accepted.
func Canonical(locale string) (language.Tag, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return language.Und, &UnknownLocaleError{Locale: locale}
	}

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("parse locale %q: %w", locale, err)
	}

	return tag, nil
}

func candidates(tag language.Tag) []string {
	out := []string{tag.String()}

	base, _ := tag.Base()

	if region, conf := tag.Region(); conf == language.Exact {
		if t, err := language.Compose(base, region); err == nil {
			out = append(out, t.String())
		}
	}

	return append(out, base.String())
}
