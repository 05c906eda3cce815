// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

// SetDefaults populates the configuration with default values.
func (cfg *Config) SetDefaults() {
	cfg.Project.Root = ""
	cfg.Project.Patterns = []string{"*.go", "*.tmpl", "*.gohtml", "*.html"}
	cfg.Project.Excludes = []string{}
	cfg.Project.Workers = 0

	cfg.Catalog.Path = "translations/{locale}.ts"
	cfg.Catalog.Format = ""
	cfg.Catalog.SourceLanguage = "en"

	cfg.FuzzyMatching = FuzzyEnabled
	cfg.PruneObsolete = false
	cfg.TargetLocales = []string{}

	cfg.Report.Format = "text"
	cfg.Report.Output = ""

	cfg.History.Path = ""
	cfg.Metrics.Textfile = ""

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"
}
