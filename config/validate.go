// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog/log"

	"codeberg.org/lingosync/lingosync/core/format"
	"codeberg.org/lingosync/lingosync/core/plural"
	"codeberg.org/lingosync/lingosync/core/report"
	"codeberg.org/lingosync/lingosync/core/scanner"

	// Catalog formats.
	_ "codeberg.org/lingosync/lingosync/core/format/po"
	_ "codeberg.org/lingosync/lingosync/core/format/ts"
)

const localePlaceholder = "{locale}"

// validation errors.
var (
	errNoTargetLocales         = errors.New("target_locales must list at least one locale")
	errEmptyLocale             = errors.New("target_locales contains an empty locale")
	errDuplicateLocale         = errors.New("target_locales contains a duplicate locale")
	errNoCatalogPath           = errors.New("catalog.path is required")
	errCatalogPathNotPerLocale = errors.New("catalog.path must contain " + localePlaceholder + " when there is more than one target locale")
	errNoPatterns              = errors.New("project.patterns must not be empty")
	errNegativeWorkers         = errors.New("project.workers must not be negative")
	errInvalidFuzzyMatching    = errors.New("fuzzy_matching must be enabled or disabled")
	errInvalidCatalogFormat    = errors.New("invalid catalog.format")
	errInvalidReportFormat     = errors.New("invalid report.format")
	errInvalidLogLevel         = errors.New("invalid log.level")
	errInvalidLogFormat        = errors.New("log.format must be console or json")
	errInvalidPluralRule       = errors.New("invalid plural_rules entry")
)

var logLevels = []string{"trace", "debug", "info", "warn", "error"}

// validateAndSet validates the configuration and fills in derived values.
func (cfg *Config) validateAndSet() error {
	if err := cfg.expandPaths(); err != nil {
		return err
	}

	if cfg.Project.Root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine project root: %w", err)
		}

		cfg.Project.Root = scanner.FindProjectRoot(cwd)
		log.Debug().
			Str("root", cfg.Project.Root).
			Msg("Using detected project root")
	}

	if len(cfg.Project.Patterns) == 0 {
		return errNoPatterns
	}

	if cfg.Project.Workers < 0 {
		return errNegativeWorkers
	}

	if err := cfg.validateLocales(); err != nil {
		return err
	}

	if cfg.Catalog.Path == "" {
		return errNoCatalogPath
	}

	if len(cfg.TargetLocales) > 1 && !strings.Contains(cfg.Catalog.Path, localePlaceholder) {
		return errCatalogPathNotPerLocale
	}

	if cfg.Catalog.Format != "" {
		if _, ok := format.Default().Lookup(cfg.Catalog.Format); !ok {
			return fmt.Errorf("%w %q, expected one of %v", errInvalidCatalogFormat, cfg.Catalog.Format, format.Default().Names())
		}
	}

	switch cfg.FuzzyMatching {
	case FuzzyEnabled, FuzzyDisabled:
		// valid
	default:
		return fmt.Errorf("%w, got %q", errInvalidFuzzyMatching, cfg.FuzzyMatching)
	}

	if !report.Supported(cfg.Report.Format) {
		return fmt.Errorf("%w %q, expected one of %v", errInvalidReportFormat, cfg.Report.Format, report.Formats())
	}

	if !slices.Contains(logLevels, cfg.Log.Level) {
		return fmt.Errorf("%w %q", errInvalidLogLevel, cfg.Log.Level)
	}

	if cfg.Log.Format != "console" && cfg.Log.Format != "json" {
		return errInvalidLogFormat
	}

	return cfg.buildResolver()
}

// validateLocales trims the target locales and rejects blanks and duplicates.
// Whether a locale has a plural rule is only checked when it is needed.
func (cfg *Config) validateLocales() error {
	if len(cfg.TargetLocales) == 0 {
		return errNoTargetLocales
	}

	seen := make(map[string]bool, len(cfg.TargetLocales))

	for i, locale := range cfg.TargetLocales {
		locale = strings.TrimSpace(locale)
		if locale == "" {
			return errEmptyLocale
		}

		if seen[locale] {
			return fmt.Errorf("%w: %s", errDuplicateLocale, locale)
		}

		seen[locale] = true
		cfg.TargetLocales[i] = locale
	}

	return nil
}

func (cfg *Config) buildResolver() error {
	if len(cfg.PluralRules) == 0 {
		cfg.resolver = plural.Default()

		return nil
	}

	locales := make([]string, 0, len(cfg.PluralRules))
	for locale := range cfg.PluralRules {
		locales = append(locales, locale)
	}

	slices.Sort(locales)

	rules := make([]plural.Rule, 0, len(locales))
	for _, locale := range locales {
		r := cfg.PluralRules[locale]
		rules = append(rules, plural.Rule{Locale: locale, Forms: r.Forms, Expression: r.Expression})
	}

	resolver, err := plural.NewResolver(rules...)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPluralRule, err)
	}

	cfg.resolver = resolver

	return nil
}

// expandPaths resolves a leading ~ in every configured path.
func (cfg *Config) expandPaths() error {
	paths := []*string{
		&cfg.Project.Root,
		&cfg.Catalog.Path,
		&cfg.Report.Output,
		&cfg.History.Path,
		&cfg.Metrics.Textfile,
	}

	for i := range cfg.Log.Outputs {
		paths = append(paths, &cfg.Log.Outputs[i])
	}

	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}

		*p = expanded
	}

	return nil
}
