// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package merge

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/plural"
	"codeberg.org/lingosync/lingosync/core/scanner"
)

type ctxEntry struct {
	context string
	entry   catalog.Entry
}

func buildCatalog(t *testing.T, lang string, entries ...ctxEntry) *catalog.Catalog {
	t.Helper()

	b := catalog.NewBuilder("en", lang)
	for _, ce := range entries {
		require.NoError(t, b.Restore(ce.context, ce.entry))
	}

	return b.Build()
}

func finished(src string, text ...string) catalog.Entry {
	return catalog.Entry{Source: src, Status: catalog.Finished, Translations: text}
}

func msg(ctx, src string, line int) scanner.Message {
	return scanner.Message{Context: ctx, Source: src, Locations: []catalog.Location{{File: "ui.go", Line: line}}}
}

func opts(lang string) Options {
	return Options{Language: lang, FuzzyMatching: true, Workers: 2}
}

func sources(c *catalog.Catalog, ctx string) []string {
	cx, ok := c.Context(ctx)
	if !ok {
		return nil
	}

	var out []string
	for _, e := range cx.Entries() {
		out = append(out, e.Source)
	}

	return out
}

func TestMergeRenamedSourceBecomesFuzzy(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "sv", ctxEntry{"Dialog", finished("Cancel", "Avbryt")})

	res, err := Merge(context.Background(), prev, []scanner.Message{msg("Dialog", "Close", 12)}, opts("sv"))
	require.NoError(t, err)

	e, ok := res.Catalog.Lookup("Dialog", "Close", "")
	require.True(t, ok)
	assert.Equal(t, catalog.Fuzzy, e.Status)
	assert.Equal(t, "Cancel", e.PreviousSource)
	assert.Equal(t, []string{"Avbryt"}, e.Translations)
	assert.Equal(t, []catalog.Location{{File: "ui.go", Line: 12}}, e.Locations)

	_, ok = res.Catalog.Lookup("Dialog", "Cancel", "")
	assert.False(t, ok, "the claimed entry is consumed")

	assert.Equal(t, 1, res.Stats.Fuzzy)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, Change{
		Kind:           Matched,
		Context:        "Dialog",
		Source:         "Close",
		PreviousSource: "Cancel",
		From:           catalog.Finished,
		To:             catalog.Fuzzy,
	}, res.Changes[0])
}

func TestMergeExactMatchCarriesTranslation(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "sv",
		ctxEntry{"Dialog", catalog.Entry{
			Source:            "Open",
			TranslatorComment: "imperative",
			Status:            catalog.Finished,
			Locations:         []catalog.Location{{File: "old.go", Line: 1}},
			Translations:      []string{"Öppna"},
		}},
		ctxEntry{"Dialog", catalog.Entry{Source: "Save", Status: catalog.Unfinished, Translations: []string{"Spa"}}},
		ctxEntry{"Dialog", catalog.Entry{Source: "Quit", PreviousSource: "Exit", Status: catalog.Fuzzy, Translations: []string{"Avsluta"}}},
	)

	fresh := []scanner.Message{msg("Dialog", "Quit", 3), msg("Dialog", "Save", 2), msg("Dialog", "Open", 1)}

	res, err := Merge(context.Background(), prev, fresh, opts("sv"))
	require.NoError(t, err)

	open, _ := res.Catalog.Lookup("Dialog", "Open", "")
	assert.Equal(t, catalog.Finished, open.Status)
	assert.Equal(t, []string{"Öppna"}, open.Translations)
	assert.Equal(t, "imperative", open.TranslatorComment)
	assert.Equal(t, []catalog.Location{{File: "ui.go", Line: 1}}, open.Locations)

	save, _ := res.Catalog.Lookup("Dialog", "Save", "")
	assert.Equal(t, catalog.Unfinished, save.Status)
	assert.Equal(t, []string{"Spa"}, save.Translations)

	quit, _ := res.Catalog.Lookup("Dialog", "Quit", "")
	assert.Equal(t, catalog.Fuzzy, quit.Status)
	assert.Equal(t, "Exit", quit.PreviousSource)

	assert.Equal(t, []string{"Open", "Save", "Quit"}, sources(res.Catalog, "Dialog"), "previous positions are kept")
	assert.Equal(t, 3, res.Stats.Carried)
	assert.Empty(t, res.Changes)
}

func TestMergeRetiresMissingEntries(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "sv",
		ctxEntry{"Dialog", catalog.Entry{
			Source:       "Help",
			Status:       catalog.Finished,
			Locations:    []catalog.Location{{File: "ui.go", Line: 9}},
			Translations: []string{"Hjälp"},
		}},
		ctxEntry{"Dialog", catalog.Entry{Source: "About", Status: catalog.Unfinished, Translations: []string{""}}},
		ctxEntry{"Dialog", catalog.Entry{Source: "Partial", Status: catalog.Unfinished, Translations: []string{"Del"}}},
		ctxEntry{"Gone", finished("Bye", "Hej då")},
	)

	o := opts("sv")
	o.FuzzyMatching = false

	res, err := Merge(context.Background(), prev, []scanner.Message{msg("Dialog", "New", 1)}, o)
	require.NoError(t, err)

	tests := []struct {
		context, source string
		want            catalog.Status
	}{
		{"Dialog", "Help", catalog.Vanished},
		{"Dialog", "About", catalog.Obsolete},
		{"Dialog", "Partial", catalog.Vanished},
		{"Dialog", "New", catalog.Unfinished},
		{"Gone", "Bye", catalog.Vanished},
	}

	for _, tt := range tests {
		e, ok := res.Catalog.Lookup(tt.context, tt.source, "")
		require.True(t, ok, tt.source)
		assert.Equal(t, tt.want, e.Status, tt.source)
	}

	help, _ := res.Catalog.Lookup("Dialog", "Help", "")
	assert.Nil(t, help.Locations)
	assert.Equal(t, []string{"Hjälp"}, help.Translations)

	assert.Equal(t, Stats{New: 1, Vanished: 3, Obsoleted: 1}, res.Stats)
	assert.Equal(t, []string{"Help", "About", "Partial", "New"}, sources(res.Catalog, "Dialog"))
}

func TestMergeReinstatesRetiredEntries(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "sv",
		ctxEntry{"Dialog", catalog.Entry{Source: "Help", Status: catalog.Vanished, Translations: []string{"Hjälp"}}},
		ctxEntry{"Dialog", catalog.Entry{Source: "About", Status: catalog.Obsolete, Translations: []string{""}}},
	)

	fresh := []scanner.Message{msg("Dialog", "Help", 1), msg("Dialog", "About", 2)}

	res, err := Merge(context.Background(), prev, fresh, opts("sv"))
	require.NoError(t, err)

	help, _ := res.Catalog.Lookup("Dialog", "Help", "")
	assert.Equal(t, catalog.Finished, help.Status)

	about, _ := res.Catalog.Lookup("Dialog", "About", "")
	assert.Equal(t, catalog.Unfinished, about.Status)

	assert.Equal(t, 2, res.Stats.Reinstated)
	assert.Len(t, res.Changes, 2)
}

func TestMergeFuzzyClaimsAreUnique(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "sv",
		ctxEntry{"File", finished("Open", "Öppna")},
		ctxEntry{"File", finished("Save", "Spara")},
		ctxEntry{"File", catalog.Entry{Source: "Empty", Status: catalog.Unfinished, Translations: []string{""}}},
	)

	fresh := []scanner.Message{msg("File", "Open file", 1), msg("File", "Save file", 2), msg("File", "Print file", 3)}

	res, err := Merge(context.Background(), prev, fresh, opts("sv"))
	require.NoError(t, err)

	openFile, _ := res.Catalog.Lookup("File", "Open file", "")
	assert.Equal(t, "Open", openFile.PreviousSource)
	assert.Equal(t, "Öppna", openFile.Translation())

	saveFile, _ := res.Catalog.Lookup("File", "Save file", "")
	assert.Equal(t, "Save", saveFile.PreviousSource)

	printFile, _ := res.Catalog.Lookup("File", "Print file", "")
	assert.Equal(t, catalog.Fuzzy, printFile.Status)
	assert.Equal(t, "Empty", printFile.PreviousSource)
	assert.Equal(t, []string{""}, printFile.Translations)

	_, ok := res.Catalog.Lookup("File", "Empty", "")
	assert.False(t, ok)

	claimed := map[string]int{}
	res.Catalog.Walk(func(_ *catalog.Context, e *catalog.Entry) bool {
		if e.PreviousSource != "" {
			claimed[e.PreviousSource]++
		}

		return true
	})

	for src, n := range claimed {
		assert.Equal(t, 1, n, src)
	}

	assert.Equal(t, 2, res.Stats.Ambiguous)
	assert.Equal(t, []Ambiguity{
		{Context: "File", Source: "Open file", Candidates: []string{"Open", "Save", "Empty"}, Chosen: "Open"},
		{Context: "File", Source: "Save file", Candidates: []string{"Save", "Empty"}, Chosen: "Save"},
	}, res.Ambiguities)

	assert.Equal(t, []string{"Open file", "Save file", "Print file"}, sources(res.Catalog, "File"),
		"fuzzy matches take the position of the claimed entry")
}

func TestMergeFuzzyClaimsUntranslatedEntry(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "sv", ctxEntry{"Dialog", catalog.Entry{
		Source:       "Cancel",
		Status:       catalog.Unfinished,
		Translations: []string{""},
	}})

	res, err := Merge(context.Background(), prev, []scanner.Message{msg("Dialog", "Close", 4)}, opts("sv"))
	require.NoError(t, err)

	e, ok := res.Catalog.Lookup("Dialog", "Close", "")
	require.True(t, ok)
	assert.Equal(t, catalog.Fuzzy, e.Status)
	assert.Equal(t, "Cancel", e.PreviousSource)
	assert.Equal(t, []string{""}, e.Translations)

	_, ok = res.Catalog.Lookup("Dialog", "Cancel", "")
	assert.False(t, ok)
	assert.Equal(t, Stats{Fuzzy: 1}, res.Stats)
}

func TestMergeFuzzyAcrossPluralFlip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		prev      catalog.Entry
		fresh     scanner.Message
		wantSlots []string
	}{
		{
			name: "plural to singular",
			prev: catalog.Entry{
				Source:       "%n file",
				Plural:       true,
				Status:       catalog.Finished,
				Translations: []string{"%n файл", "%n файла", "%n файлов"},
			},
			fresh:     scanner.Message{Context: "Files", Source: "A file"},
			wantSlots: []string{"%n файл"},
		},
		{
			name:      "singular to plural",
			prev:      catalog.Entry{Source: "A file", Status: catalog.Finished, Translations: []string{"Файл"}},
			fresh:     scanner.Message{Context: "Files", Source: "%n file", Plural: true},
			wantSlots: []string{"Файл", "", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			prev := buildCatalog(t, "ru", ctxEntry{"Files", tt.prev})

			res, err := Merge(context.Background(), prev, []scanner.Message{tt.fresh}, opts("ru"))
			require.NoError(t, err)

			e, ok := res.Catalog.Lookup("Files", tt.fresh.Source, "")
			require.True(t, ok)
			assert.Equal(t, catalog.Fuzzy, e.Status)
			assert.Equal(t, tt.prev.Source, e.PreviousSource)
			assert.Equal(t, tt.fresh.Plural, e.Plural)
			assert.Equal(t, tt.wantSlots, e.Translations)
			assert.Equal(t, 1, res.Catalog.Len(), "the claimed entry is not retired")
			assert.Equal(t, 1, res.Stats.Fuzzy)
			assert.Equal(t, 1, res.Stats.Reshaped)
		})
	}
}

func TestMergeFuzzyRespectsDisambiguation(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "sv", ctxEntry{"Menu", catalog.Entry{
		Source:         "Open",
		Disambiguation: "verb",
		Status:         catalog.Finished,
		Translations:   []string{"Öppna"},
	}})

	fresh := []scanner.Message{{Context: "Menu", Source: "Open…", Disambiguation: "adjective"}}

	res, err := Merge(context.Background(), prev, fresh, opts("sv"))
	require.NoError(t, err)

	e, _ := res.Catalog.Lookup("Menu", "Open…", "adjective")
	assert.Equal(t, catalog.Unfinished, e.Status)

	old, _ := res.Catalog.Lookup("Menu", "Open", "verb")
	assert.Equal(t, catalog.Vanished, old.Status)
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "ru",
		ctxEntry{"Dialog", finished("Cancel", "Отмена")},
		ctxEntry{"Dialog", catalog.Entry{Source: "Help", Status: catalog.Finished, Translations: []string{"Справка"}}},
		ctxEntry{"Old", catalog.Entry{Source: "Unused", Status: catalog.Unfinished, Translations: []string{""}}},
	)

	fresh := []scanner.Message{
		msg("Dialog", "Close", 1),
		msg("Dialog", "Help", 2),
		{Context: "Files", Source: "%n file(s)", Plural: true, Locations: []catalog.Location{{File: "f.go", Line: 4}}},
	}

	first, err := Merge(context.Background(), prev, fresh, opts("ru"))
	require.NoError(t, err)

	second, err := Merge(context.Background(), first.Catalog, fresh, opts("ru"))
	require.NoError(t, err)

	assert.True(t, catalog.Equal(first.Catalog, second.Catalog))
	assert.Empty(t, second.Changes)

	var names []string
	for _, c := range second.Catalog.Contexts() {
		names = append(names, c.Name())
	}

	assert.Equal(t, []string{"Dialog", "Old", "Files"}, names, "new contexts follow previous ones")

	files, _ := second.Catalog.Lookup("Files", "%n file(s)", "")
	assert.Len(t, files.Translations, 3)
}

func TestMergePreservesTranslations(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "sv",
		ctxEntry{"A", finished("one", "ett")},
		ctxEntry{"A", finished("two", "två")},
		ctxEntry{"B", finished("three", "tre")},
		ctxEntry{"B", catalog.Entry{Source: "four", Status: catalog.Unfinished, Translations: []string{"fy"}}},
	)

	fresh := []scanner.Message{msg("A", "one", 1), msg("B", "3", 2)}

	res, err := Merge(context.Background(), prev, fresh, opts("sv"))
	require.NoError(t, err)

	// Every translated previous entry survives, either carried, fuzzy or vanished.
	prev.Walk(func(ctx *catalog.Context, old *catalog.Entry) bool {
		if !old.HasTranslation() {
			return true
		}

		found := false
		res.Catalog.Walk(func(c *catalog.Context, e *catalog.Entry) bool {
			if c.Name() == ctx.Name() && (e.Source == old.Source || e.PreviousSource == old.Source) {
				found = assert.Equal(t, old.Translations, e.Translations, old.Source)
			}

			return !found
		})
		assert.True(t, found, "lost %q", old.Source)

		return true
	})
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "sv", ctxEntry{"Dialog", finished("Cancel", "Avbryt")})
	fresh := []scanner.Message{msg("Dialog", "Close", 1), msg("Dialog", "Close", 5)}
	fresh[1].Locations = []catalog.Location{{File: "a.go", Line: 1}}

	before := buildCatalog(t, "sv", ctxEntry{"Dialog", finished("Cancel", "Avbryt")})
	freshBefore := []scanner.Message{msg("Dialog", "Close", 1), msg("Dialog", "Close", 5)}
	freshBefore[1].Locations = []catalog.Location{{File: "a.go", Line: 1}}

	res, err := Merge(context.Background(), prev, fresh, opts("sv"))
	require.NoError(t, err)

	assert.True(t, catalog.Equal(before, prev))

	if diff := cmp.Diff(freshBefore, fresh); diff != "" {
		t.Errorf("fresh messages modified (-want +got):\n%s", diff)
	}

	e, _ := res.Catalog.Lookup("Dialog", "Close", "")
	assert.Equal(t, []catalog.Location{{File: "a.go", Line: 1}, {File: "ui.go", Line: 1}}, e.Locations)
}

func TestMergePluralSlots(t *testing.T) {
	t.Parallel()

	prev := buildCatalog(t, "ru",
		ctxEntry{"Files", catalog.Entry{Source: "%n file(s)", Plural: true, Status: catalog.Finished, Translations: []string{"%n файл"}}},
		ctxEntry{"Files", catalog.Entry{Source: "%n dir(s)", Plural: true, Status: catalog.Finished, Translations: []string{"a", "b", "c", "d"}}},
		ctxEntry{"Files", catalog.Entry{Source: "Open", Status: catalog.Finished, Translations: []string{"Открыть"}}},
		ctxEntry{"Files", catalog.Entry{Source: "%n item(s)", Plural: true, Status: catalog.Finished, Translations: []string{"", "предмета", ""}}},
	)

	fresh := []scanner.Message{
		{Context: "Files", Source: "%n file(s)", Plural: true},
		{Context: "Files", Source: "%n dir(s)", Plural: true},
		{Context: "Files", Source: "Open", Plural: true},
		{Context: "Files", Source: "%n item(s)"},
		{Context: "Files", Source: "%n link(s)", Plural: true},
	}

	res, err := Merge(context.Background(), prev, fresh, opts("ru"))
	require.NoError(t, err)

	tests := []struct {
		source     string
		wantStatus catalog.Status
		wantSlots  []string
	}{
		{"%n file(s)", catalog.Unfinished, []string{"%n файл", "", ""}},
		{"%n dir(s)", catalog.Unfinished, []string{"a", "b", "c", "d"}},
		{"Open", catalog.Unfinished, []string{"Открыть", "", ""}},
		{"%n item(s)", catalog.Unfinished, []string{""}},
		{"%n link(s)", catalog.Unfinished, []string{"", "", ""}},
	}

	for _, tt := range tests {
		e, ok := res.Catalog.Lookup("Files", tt.source, "")
		require.True(t, ok, tt.source)
		assert.Equal(t, tt.wantStatus, e.Status, tt.source)
		assert.Equal(t, tt.wantSlots, e.Translations, tt.source)
	}

	assert.Equal(t, 4, res.Stats.Reshaped)
	assert.Equal(t, 4, res.Stats.Downgraded)
}

func TestMergeUnknownLocale(t *testing.T) {
	t.Parallel()

	_, err := Merge(context.Background(), nil, []scanner.Message{{Context: "A", Source: "%n x", Plural: true}}, opts("xx"))
	require.ErrorIs(t, err, plural.ErrUnknownLocale)

	res, err := Merge(context.Background(), nil, []scanner.Message{msg("A", "x", 1)}, opts("xx"))
	require.NoError(t, err, "singular catalogs never need a plural rule")
	assert.Equal(t, 1, res.Catalog.Len())
}

func TestMergeFirstRun(t *testing.T) {
	t.Parallel()

	o := opts("sv")
	o.SourceLanguage = "en"

	res, err := Merge(context.Background(), nil, []scanner.Message{msg("B", "x", 1), msg("A", "y", 2)}, o)
	require.NoError(t, err)

	assert.Equal(t, "en", res.Catalog.SourceLanguage)
	assert.Equal(t, "sv", res.Catalog.Language)
	assert.Equal(t, Stats{New: 2}, res.Stats)

	var names []string
	for _, c := range res.Catalog.Contexts() {
		names = append(names, c.Name())
	}

	assert.Equal(t, []string{"B", "A"}, names)
}
