// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "github.com/spf13/pflag"

// Flags are the command-line overrides shared by every command. Only flags
// that were set on the command line replace configured values.
type Flags struct {
	ConfigFile      string
	Root            string
	CatalogPath     string
	Format          string
	Locales         []string
	FuzzyMatching   string
	PruneObsolete   bool
	Workers         int
	ReportFormat    string
	ReportOutput    string
	HistoryPath     string
	MetricsTextfile string
	LogLevel        string

	set *pflag.FlagSet
}

// Register defines the flags on fs.
func (f *Flags) Register(fs *pflag.FlagSet) {
	f.set = fs

	fs.StringVarP(&f.ConfigFile, "config", "c", "", "path to a lingosync configuration file in YAML format")
	fs.StringVar(&f.Root, "root", "", "source tree to scan")
	fs.StringVar(&f.CatalogPath, "catalog", "", "catalog path, {locale} is replaced by each target locale")
	fs.StringVar(&f.Format, "format", "", "catalog format (ts or po), detected from the extension by default")
	fs.StringSliceVarP(&f.Locales, "locale", "l", nil, "target locale, repeatable")
	fs.StringVar(&f.FuzzyMatching, "fuzzy-matching", "", "enabled or disabled")
	fs.BoolVar(&f.PruneObsolete, "prune-obsolete", false, "drop obsolete entries while syncing")
	fs.IntVarP(&f.Workers, "workers", "j", 0, "maximum parallelism, 0 for GOMAXPROCS")
	fs.StringVar(&f.ReportFormat, "report", "", "report format: text, json, yaml or github")
	fs.StringVarP(&f.ReportOutput, "output", "o", "", "write the report to a file instead of stdout")
	fs.StringVar(&f.HistoryPath, "history", "", "sqlite file recording every run")
	fs.StringVar(&f.MetricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file")
	fs.StringVar(&f.LogLevel, "log-level", "", "debug, info, warn or error")
}

func (f *Flags) changed(name string) bool {
	return f.set != nil && f.set.Changed(name)
}

func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}

	if f.changed("root") {
		cfg.Project.Root = f.Root
	}

	if f.changed("catalog") {
		cfg.Catalog.Path = f.CatalogPath
	}

	if f.changed("format") {
		cfg.Catalog.Format = f.Format
	}

	if f.changed("locale") {
		cfg.TargetLocales = f.Locales
	}

	if f.changed("fuzzy-matching") {
		cfg.FuzzyMatching = FuzzyMatching(f.FuzzyMatching)
	}

	if f.changed("prune-obsolete") {
		cfg.PruneObsolete = f.PruneObsolete
	}

	if f.changed("workers") {
		cfg.Project.Workers = f.Workers
	}

	if f.changed("report") {
		cfg.Report.Format = f.ReportFormat
	}

	if f.changed("output") {
		cfg.Report.Output = f.ReportOutput
	}

	if f.changed("history") {
		cfg.History.Path = f.HistoryPath
	}

	if f.changed("metrics-textfile") {
		cfg.Metrics.Textfile = f.MetricsTextfile
	}

	if f.changed("log-level") {
		cfg.Log.Level = f.LogLevel
	}
}
