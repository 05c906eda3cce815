// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/merge"
	"codeberg.org/lingosync/lingosync/core/validate"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	b := catalog.NewBuilder("en", "sv")
	require.NoError(t, b.Restore("Main", catalog.Entry{Source: "Open", Status: catalog.Finished, Translations: []string{"Öppna"}}))
	require.NoError(t, b.Restore("Main", catalog.Entry{Source: "Save", Status: catalog.Unfinished, Translations: []string{""}}))
	require.NoError(t, b.Restore("Main", catalog.Entry{Source: "Help", Status: catalog.Obsolete, Translations: []string{""}}))

	c := New()
	c.ObserveScan(12, 2)
	c.ObserveCatalog("sv", b.Build())
	c.ObserveMerge("sv", merge.Stats{New: 1, Fuzzy: 3})
	c.ObserveReport("sv", &validate.Report{Findings: []validate.Finding{
		{Locale: "sv", Kind: validate.MissingPlaceholder},
		{Locale: "sv", Kind: validate.MissingPlaceholder},
	}})
	c.LocaleFailed("ru")
	c.ObservePhase("merge", 1500*time.Millisecond)
	c.ObservePhase("merge", 500*time.Millisecond)

	assert.InDelta(t, 12.0, testutil.ToFloat64(c.scanFiles), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(c.scanWarnings), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.entries.WithLabelValues("sv", "finished")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.entries.WithLabelValues("sv", "obsolete")), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(c.entries.WithLabelValues("sv", "fuzzy")), 0)
	assert.InDelta(t, 0.5, testutil.ToFloat64(c.complete.WithLabelValues("sv")), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(c.merged.WithLabelValues("sv", "fuzzy")), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(c.findings.WithLabelValues("sv", "MissingPlaceholder")), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(c.findings.WithLabelValues("sv", "UnknownLocale")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.localeFailed.WithLabelValues("ru")), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(c.phases.WithLabelValues("merge")), 1e-9)

	problems, err := testutil.GatherAndLint(c.Gatherer())
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	c := New()
	c.ObserveScan(3, 0)

	path := filepath.Join(t.TempDir(), "lingosync.prom")
	require.NoError(t, c.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "lingosync_scan_files 3")
	assert.True(t, strings.Contains(string(b), "# TYPE lingosync_last_run_timestamp_seconds gauge"))
}

func TestNilCollector(t *testing.T) {
	t.Parallel()

	var c *Collector

	assert.NotPanics(t, func() {
		c.ObserveScan(1, 1)
		c.ObserveMerge("sv", merge.Stats{})
		c.ObservePhase("scan", time.Second)
		c.LocaleFailed("sv")
		require.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	})
}
