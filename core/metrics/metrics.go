// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics collects the outcome of a run as Prometheus gauges and
// writes them in the text format read by node_exporter's textfile collector.
//
// A nil *Collector is valid and discards everything.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/merge"
	"codeberg.org/lingosync/lingosync/core/validate"
)

const namespace = "lingosync"

// Collector holds the gauges of one run. It is safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	entries      *prometheus.GaugeVec
	complete     *prometheus.GaugeVec
	merged       *prometheus.GaugeVec
	findings     *prometheus.GaugeVec
	localeFailed *prometheus.GaugeVec
	phases       *prometheus.GaugeVec
	scanFiles    prometheus.Gauge
	scanWarnings prometheus.Gauge
	lastRun      prometheus.Gauge

	mu sync.Mutex
}

// New returns a Collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entries",
			Help:      "Catalog entries per locale and status.",
		}, []string{"locale", "status"}),
		complete: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_completion_ratio",
			Help:      "Share of active entries that are finished.",
		}, []string{"locale"}),
		merged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "merge_entries",
			Help:      "Entries per merge outcome in the last sync.",
		}, []string{"locale", "outcome"}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_findings",
			Help:      "Validation findings per locale and kind.",
		}, []string{"locale", "kind"}),
		localeFailed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "locale_failed",
			Help:      "1 when the locale could not be processed.",
		}, []string{"locale"}),
		phases: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent per pipeline phase, summed over locales.",
		}, []string{"phase"}),
		scanFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_files",
			Help:      "Source files scanned.",
		}),
		scanWarnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_warnings",
			Help:      "Scan warnings in the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}

	c.registry.MustRegister(
		c.entries, c.complete, c.merged, c.findings, c.localeFailed,
		c.phases, c.scanFiles, c.scanWarnings, c.lastRun,
	)

	return c
}

// Gatherer exposes the registry, mainly for tests.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// ObserveScan records the scan totals.
func (c *Collector) ObserveScan(files, warnings int) {
	if c == nil {
		return
	}

	c.scanFiles.Set(float64(files))
	c.scanWarnings.Set(float64(warnings))
}

// ObserveCatalog records the status counts of a locale's catalog.
func (c *Collector) ObserveCatalog(locale string, cat *catalog.Catalog) {
	if c == nil {
		return
	}

	counts := cat.Counts()
	for _, s := range catalog.Statuses {
		c.entries.WithLabelValues(locale, s.String()).Set(float64(counts[s]))
	}

	active := counts[catalog.Unfinished] + counts[catalog.Finished] + counts[catalog.Fuzzy]
	if active > 0 {
		c.complete.WithLabelValues(locale).Set(float64(counts[catalog.Finished]) / float64(active))
	} else {
		c.complete.WithLabelValues(locale).Set(1)
	}
}

// ObserveMerge records the merge statistics of a locale.
func (c *Collector) ObserveMerge(locale string, s merge.Stats) {
	if c == nil {
		return
	}

	for outcome, n := range map[string]int{
		"new":        s.New,
		"carried":    s.Carried,
		"reinstated": s.Reinstated,
		"fuzzy":      s.Fuzzy,
		"vanished":   s.Vanished,
		"obsoleted":  s.Obsoleted,
		"reshaped":   s.Reshaped,
		"downgraded": s.Downgraded,
		"ambiguous":  s.Ambiguous,
	} {
		c.merged.WithLabelValues(locale, outcome).Set(float64(n))
	}
}

// ObserveReport records the findings of a validation report for locale.
// Every kind gets a sample so that alerts can rely on the series existing.
func (c *Collector) ObserveReport(locale string, r *validate.Report) {
	if c == nil {
		return
	}

	for kind, n := range r.CountByKind() {
		c.findings.WithLabelValues(locale, string(kind)).Set(float64(n))
	}
}

// LocaleFailed marks locale as not processed.
func (c *Collector) LocaleFailed(locale string) {
	if c == nil {
		return
	}

	c.localeFailed.WithLabelValues(locale).Set(1)
}

// ObservePhase adds d to the time spent in phase.
func (c *Collector) ObservePhase(phase string, d time.Duration) {
	if c == nil {
		return
	}

	c.phases.WithLabelValues(phase).Add(d.Seconds())
}

// WriteTextfile stamps the run time and writes every gauge to path. The file
// is written to a temporary name first and renamed, so the collector never
// reads a partial file.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastRun.Set(float64(time.Now().Unix()))

	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}

	return nil
}
