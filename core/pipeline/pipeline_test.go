// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/format"
	"codeberg.org/lingosync/lingosync/core/format/po"
	"codeberg.org/lingosync/lingosync/core/history"
	"codeberg.org/lingosync/lingosync/core/plural"
	"codeberg.org/lingosync/lingosync/core/validate"
)

const dialogSource = `package ui

func (d *Dialog) build() {
	Tr("Cancel")
	Tr("Open")
	TrN("%n file(s)", 2)
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newProject(t *testing.T, locales ...string) (string, Options) {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ui", "dialog.go"), dialogSource)

	return root, Options{
		Root:           root,
		Patterns:       []string{"*.go"},
		CatalogPath:    "translations/{locale}.po",
		SourceLanguage: "en",
		Locales:        locales,
		FuzzyMatching:  true,
		Workers:        2,
	}
}

func loadCatalog(t *testing.T, path string) *catalog.Catalog {
	t.Helper()

	cat, err := format.ReadFile(po.Codec{}, path)
	require.NoError(t, err)

	return cat
}

// translate fills in translations the way a translator would and marks the
// entries Finished.
func translate(t *testing.T, path string, texts map[string][]string) {
	t.Helper()

	cat := loadCatalog(t, path)
	b := catalog.NewBuilder(cat.SourceLanguage, cat.Language)

	cat.Walk(func(ctx *catalog.Context, e *catalog.Entry) bool {
		out := e.Clone()
		if tr, ok := texts[e.Source]; ok {
			out.Translations = tr
			out.Status = catalog.Finished
			out.PreviousSource = ""
		}

		require.NoError(t, b.Restore(ctx.Name(), out))

		return true
	})

	out, err := format.EncodeBytes(po.Codec{}, b.Build())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, out, 0o644))
}

func mustSync(t *testing.T, opts Options) *SyncResult {
	t.Helper()

	p, err := New(opts)
	require.NoError(t, err)

	res, err := p.Sync(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err())

	return res
}

func TestSyncLifecycle(t *testing.T) {
	t.Parallel()

	root, opts := newProject(t, "sv")
	path := filepath.Join(root, "translations", "sv.po")

	res := mustSync(t, opts)
	require.Len(t, res.Locales, 1)
	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 3, res.Messages)
	assert.Equal(t, 3, res.Locales[0].Stats.New)
	assert.True(t, res.Locales[0].Written)

	cat := loadCatalog(t, path)
	assert.Equal(t, "sv", cat.Language)
	assert.Equal(t, "en", cat.SourceLanguage)

	e, ok := cat.Lookup("Dialog", "%n file(s)", "")
	require.True(t, ok)
	assert.Len(t, e.Translations, 2)

	translate(t, path, map[string][]string{
		"Cancel":     {"Avbryt"},
		"Open":       {"Öppna"},
		"%n file(s)": {"%n fil", "%n filer"},
	})

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	res = mustSync(t, opts)
	assert.False(t, res.Locales[0].Changed, "a second run over unchanged sources is a no-op")
	assert.False(t, res.Locales[0].Written)
	assert.Empty(t, res.Report.Findings)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	writeFile(t, filepath.Join(root, "ui", "dialog.go"),
		"package ui\n\nfunc (d *Dialog) build() {\n\tTr(\"Close\")\n\tTrN(\"%n file(s)\", 2)\n}\n")

	res = mustSync(t, opts)
	assert.Equal(t, 1, res.Locales[0].Stats.Fuzzy)
	assert.Equal(t, 1, res.Locales[0].Stats.Vanished)

	cat = loadCatalog(t, path)

	e, ok = cat.Lookup("Dialog", "Close", "")
	require.True(t, ok)
	assert.Equal(t, catalog.Fuzzy, e.Status)
	assert.Equal(t, "Cancel", e.PreviousSource)
	assert.Equal(t, []string{"Avbryt"}, e.Translations)

	e, ok = cat.Lookup("Dialog", "Open", "")
	require.True(t, ok)
	assert.Equal(t, catalog.Vanished, e.Status)
	assert.Equal(t, []string{"Öppna"}, e.Translations)
}

func TestSyncFailsClosedOnParseError(t *testing.T) {
	t.Parallel()

	root, opts := newProject(t, "sv", "ru")
	writeFile(t, filepath.Join(root, "translations", "ru.po"), "msgctxt \"Dialog\"\nmsgid \"Cancel\"\nbogus\n")

	p, err := New(opts)
	require.NoError(t, err)

	_, err = p.Sync(context.Background())

	var pe *format.CatalogParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, filepath.Join(root, "translations", "ru.po"), pe.Path)
	assert.Equal(t, 3, pe.Line)

	assert.NoFileExists(t, filepath.Join(root, "translations", "sv.po"))
}

func TestSyncUnknownLocaleFailsOnlyThatLocale(t *testing.T) {
	t.Parallel()

	root, opts := newProject(t, "sv", "qaa")

	p, err := New(opts)
	require.NoError(t, err)

	res, err := p.Sync(context.Background())
	require.NoError(t, err)

	err = res.Err()
	require.ErrorIs(t, err, ErrLocalesFailed)
	require.ErrorIs(t, err, plural.ErrUnknownLocale)

	var le *LocaleError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "qaa", le.Locale)

	assert.FileExists(t, filepath.Join(root, "translations", "sv.po"))
	assert.NoFileExists(t, filepath.Join(root, "translations", "qaa.po"))
	assert.True(t, res.Locales[0].Written)
	assert.False(t, res.Locales[1].Written)
}

func TestSyncDryRun(t *testing.T) {
	t.Parallel()

	root, opts := newProject(t, "sv")
	opts.DryRun = true

	res := mustSync(t, opts)
	assert.True(t, res.Locales[0].Changed)
	assert.False(t, res.Locales[0].Written)
	assert.NoFileExists(t, filepath.Join(root, "translations", "sv.po"))
}

func TestSyncPruneObsolete(t *testing.T) {
	t.Parallel()

	root, opts := newProject(t, "sv")
	path := filepath.Join(root, "translations", "sv.po")

	mustSync(t, opts)
	writeFile(t, filepath.Join(root, "ui", "dialog.go"), "package ui\n\nfunc (d *Dialog) build() {\n\tTr(\"Open\")\n}\n")

	opts.FuzzyMatching = false
	opts.PruneObsolete = true
	res := mustSync(t, opts)
	assert.Equal(t, 2, res.Locales[0].Stats.Obsoleted)
	assert.Equal(t, 0, res.Locales[0].Counts[catalog.Obsolete])

	cat := loadCatalog(t, path)
	assert.Equal(t, 1, cat.Len())
}

func TestCheck(t *testing.T) {
	t.Parallel()

	root, opts := newProject(t, "sv", "de")
	mustSync(t, opts)

	translate(t, filepath.Join(root, "translations", "sv.po"), map[string][]string{
		"Cancel":     {"Avbryt %s"},
		"%n file(s)": {"%n fil", "filer"},
	})
	require.NoError(t, os.Remove(filepath.Join(root, "translations", "de.po")))

	p, err := New(opts)
	require.NoError(t, err)

	res, err := p.Check(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, res.Err(), ErrCatalogMissing)

	assert.True(t, res.Report.HasErrors())
	assert.Equal(t, 1, res.Report.CountByKind()[validate.MissingPlaceholder])
	assert.Equal(t, 1, res.Report.CountByKind()[validate.UnknownPlaceholder])
	assert.Equal(t, 1, res.Report.Count(validate.SeverityError))
	assert.Equal(t, 1, res.Report.Count(validate.SeverityWarning))
}

func TestCheckUsesConfiguredLocale(t *testing.T) {
	t.Parallel()

	root, opts := newProject(t, "sv")
	writeFile(t, filepath.Join(root, "translations", "sv.po"), `msgctxt "Files"
msgid "%n file"
msgid_plural "%n files"
msgstr[0] "%n fil"
`)

	p, err := New(opts)
	require.NoError(t, err)

	res, err := p.Check(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Err())

	require.Len(t, res.Report.Findings, 1)
	f := res.Report.Findings[0]
	assert.Equal(t, validate.PluralCountMismatch, f.Kind)
	assert.Equal(t, "sv", f.Locale)
	assert.Equal(t, "Files", f.Context)
}

func TestCompactAndStats(t *testing.T) {
	t.Parallel()

	root, opts := newProject(t, "sv")
	mustSync(t, opts)
	translate(t, filepath.Join(root, "translations", "sv.po"), map[string][]string{"Open": {"Öppna"}})

	writeFile(t, filepath.Join(root, "ui", "dialog.go"), "package ui\n\nfunc (d *Dialog) build() {\n\tTr(\"Save\")\n}\n")
	opts.FuzzyMatching = false
	mustSync(t, opts)

	p, err := New(opts)
	require.NoError(t, err)

	stats, err := p.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.True(t, stats[0].Exists)
	assert.Equal(t, 4, stats[0].Total)
	assert.Equal(t, 2, stats[0].Counts[catalog.Obsolete])
	assert.Equal(t, 1, stats[0].Counts[catalog.Vanished])
	assert.InDelta(t, 0.0, stats[0].Completion, 0)

	results, err := p.Compact(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, results[0].Stats.Obsoleted)
	assert.True(t, results[0].Written)

	stats, err = p.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats[0].Total)
}

func TestHistoryRestore(t *testing.T) {
	t.Parallel()

	root, opts := newProject(t, "sv")
	path := filepath.Join(root, "translations", "sv.po")

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	opts.History = store

	mustSync(t, opts)
	translate(t, path, map[string][]string{"Cancel": {"Avbryt"}})

	translated, err := os.ReadFile(path)
	require.NoError(t, err)

	writeFile(t, filepath.Join(root, "ui", "dialog.go"), "package ui\n\nfunc (d *Dialog) build() {\n\tTr(\"Close\")\n}\n")
	res := mustSync(t, opts)
	require.NotEqual(t, uuid.Nil, res.RunID)

	runs, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, res.RunID, runs[0].ID)

	p, err := New(opts)
	require.NoError(t, err)

	restored, err := p.Restore(context.Background(), res.RunID, "sv")
	require.NoError(t, err)
	assert.Equal(t, path, restored)

	now, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(translated, now))

	_, err = p.Restore(context.Background(), runs[1].ID, "sv")
	require.ErrorIs(t, err, history.ErrNoSnapshot, "the first run had no catalog to keep")
}

func TestNewOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		want error
	}{
		{name: "no locales", opts: Options{CatalogPath: "x.po"}, want: ErrNoLocales},
		{name: "no path", opts: Options{Locales: []string{"sv"}}, want: ErrNoCatalogPath},
		{name: "shared path", opts: Options{Locales: []string{"sv", "ru"}, CatalogPath: "all.po"}, want: ErrPathNotPerLocale},
		{name: "single locale fixed path", opts: Options{Locales: []string{"sv"}, CatalogPath: "sv.po"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.opts)
			if tt.want == nil {
				require.NoError(t, err)
			} else {
				require.True(t, errors.Is(err, tt.want), err)
			}
		})
	}

	p, err := New(Options{Root: "/src", Locales: []string{"pt_BR"}, CatalogPath: "i18n/{locale}.ts"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/src", "i18n", "pt_BR.ts"), p.CatalogPath("pt_BR"))
}
