// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads the lingosync configuration from defaults, a YAML
// file, a .env file, the environment and command-line flags, in that order.
package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"codeberg.org/lingosync/lingosync/core/plural"
)

// Fuzzy matching modes.
const (
	FuzzyEnabled  FuzzyMatching = "enabled"
	FuzzyDisabled FuzzyMatching = "disabled"
)

// FuzzyMatching selects whether new source strings may inherit the
// translation of a vanished one.
type FuzzyMatching string

// PluralRule overrides or adds a plural rule for one locale.
type PluralRule struct {
	Forms      []string `yaml:"forms"`
	Expression string   `yaml:"expression"`
}

// Config holds the effective configuration of a run.
type Config struct {
	Build buildInfo `yaml:"-"`

	// ConfigFile is the YAML file that was loaded, if any.
	ConfigFile string `yaml:"-"`

	Project struct {
		// Root defaults to the git toplevel or the nearest directory holding go.mod.
		Root     string   `env:"LINGOSYNC_ROOT,overwrite"     yaml:"root"`
		Patterns []string `env:"LINGOSYNC_PATTERNS,overwrite" yaml:"patterns"`
		Excludes []string `env:"LINGOSYNC_EXCLUDES,overwrite" yaml:"excludes"`
		Workers  int      `env:"LINGOSYNC_WORKERS,overwrite"  yaml:"workers"`
	} `yaml:"project"`

	Catalog struct {
		Path           string `env:"LINGOSYNC_CATALOG_PATH,overwrite"    yaml:"path"`
		Format         string `env:"LINGOSYNC_CATALOG_FORMAT,overwrite"  yaml:"format"`
		SourceLanguage string `env:"LINGOSYNC_SOURCE_LANGUAGE,overwrite" yaml:"source_language"`
	} `yaml:"catalog"`

	FuzzyMatching FuzzyMatching `env:"LINGOSYNC_FUZZY_MATCHING,overwrite" yaml:"fuzzy_matching"`
	PruneObsolete bool          `env:"LINGOSYNC_PRUNE_OBSOLETE,overwrite" yaml:"prune_obsolete"`
	TargetLocales []string      `env:"LINGOSYNC_TARGET_LOCALES,overwrite" yaml:"target_locales"`

	PluralRules map[string]PluralRule `yaml:"plural_rules,omitempty"`

	Report struct {
		Format string `env:"LINGOSYNC_REPORT_FORMAT,overwrite" yaml:"format"`
		Output string `env:"LINGOSYNC_REPORT_OUTPUT,overwrite" yaml:"output"`
	} `yaml:"report"`

	History struct {
		Path string `env:"LINGOSYNC_HISTORY_PATH,overwrite" yaml:"path"`
	} `yaml:"history"`

	Metrics struct {
		Textfile string `env:"LINGOSYNC_METRICS_TEXTFILE,overwrite" yaml:"textfile"`
	} `yaml:"metrics"`

	Log struct {
		Level   string   `env:"LINGOSYNC_LOG_LEVEL,overwrite"   yaml:"level"`
		Outputs []string `env:"LINGOSYNC_LOG_OUTPUTS,overwrite" yaml:"outputs"`
		Format  string   `env:"LINGOSYNC_LOG_FORMAT,overwrite"  yaml:"format"`
	} `yaml:"log"`

	resolver *plural.Resolver
}

// LoadConfig loads the configuration. flags may be nil.
func (cfg *Config) LoadConfig(flags *Flags) error {
	configFilePath := findConfigFile(flags)

	cfg.SetDefaults()
	cfg.Build.load()

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := useDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := readEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	flags.apply(cfg)

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	cfg.setupLogging()
	cfg.print()

	return nil
}

// findConfigFile picks the YAML file with this precedence:
//  1. the --config flag
//  2. LINGOSYNC_CONFIGFILE
//  3. ./lingosync.yaml, then ./lingosync.yml
func findConfigFile(flags *Flags) string {
	if flags != nil && flags.ConfigFile != "" {
		return flags.ConfigFile
	}

	if envVar := os.Getenv("LINGOSYNC_CONFIGFILE"); envVar != "" {
		return envVar
	}

	for _, candidate := range []string{"./lingosync.yaml", "./lingosync.yml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	log.Debug().Msg("No configuration file found in the working directory")

	return ""
}

// Resolver returns the plural rule resolver including the configured overrides.
func (cfg *Config) Resolver() *plural.Resolver {
	if cfg.resolver == nil {
		return plural.Default()
	}

	return cfg.resolver
}

// Fuzzy reports whether fuzzy matching is enabled.
func (cfg *Config) Fuzzy() bool {
	return cfg.FuzzyMatching == FuzzyEnabled
}
