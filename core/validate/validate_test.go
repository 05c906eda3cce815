// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/lingosync/lingosync/core/catalog"
)

func buildCatalog(t *testing.T, language string, entries ...catalog.Entry) *catalog.Catalog {
	t.Helper()

	b := catalog.NewBuilder("en", language)
	for _, e := range entries {
		require.NoError(t, b.Restore("Main", e))
	}

	return b.Build()
}

func finished(source string, translations ...string) catalog.Entry {
	return catalog.Entry{
		Source:       source,
		Plural:       len(translations) > 1,
		Status:       catalog.Finished,
		Translations: translations,
	}
}

func kinds(r *Report) []Kind {
	var out []Kind
	for _, f := range r.Findings {
		out = append(out, f.Kind)
	}

	return out
}

func TestPluralCountScenario(t *testing.T) {
	t.Parallel()

	oneSlot := catalog.Entry{Source: "%n file(s)", Plural: true, Status: catalog.Finished, Translations: []string{"%n fil"}}
	r := New(nil).Validate(buildCatalog(t, "sv", oneSlot))
	require.Len(t, r.Findings, 1)
	assert.Equal(t, PluralCountMismatch, r.Findings[0].Kind)
	assert.Equal(t, SeverityError, r.Findings[0].Severity)
	assert.True(t, r.HasErrors())

	oneEmpty := catalog.Entry{Source: "%n file(s)", Plural: true, Status: catalog.Unfinished, Translations: []string{""}}
	assert.Empty(t, New(nil).Validate(buildCatalog(t, "sv", oneEmpty)).Findings, "entries without text are not checked")

	twoEmpty := catalog.Entry{Source: "%n file(s)", Plural: true, Status: catalog.Unfinished, Translations: []string{"", ""}}
	assert.Empty(t, New(nil).Validate(buildCatalog(t, "sv", twoEmpty)).Findings)

	twoFilled := finished("%n file(s)", "%n fil", "%n filer")
	assert.Empty(t, New(nil).Validate(buildCatalog(t, "sv", twoFilled)).Findings)
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry catalog.Entry
		want  []Finding
	}{
		{
			name:  "qt positional",
			entry: finished("Copy %1 to %2", "Kopiera %1 till %3"),
			want: []Finding{
				{Kind: UnknownPlaceholder, Severity: SeverityError, Detail: "%3 is not in the source"},
				{Kind: MissingPlaceholder, Severity: SeverityError, Detail: "%2 is missing"},
			},
		},
		{
			name:  "localized positional",
			entry: finished("%1 items", "%L1 objekt"),
		},
		{
			name:  "reordered positional",
			entry: finished("%1 of %2", "%2 av %1"),
		},
		{
			name:  "printf",
			entry: finished("Hello %s, you have %d messages", "Hej %s"),
			want: []Finding{
				{Kind: MissingPlaceholder, Severity: SeverityError, Detail: "%d is missing"},
			},
		},
		{
			name:  "escaped percent",
			entry: finished("100%% done", "100 % klart"),
		},
		{
			name:  "template field",
			entry: finished("Hi {{.Name}}", "Hej {{ .Name }}"),
		},
		{
			name:  "wrong template field",
			entry: finished("Hi {{.Name}}", "Hej {{.User}}"),
			want: []Finding{
				{Kind: UnknownPlaceholder, Severity: SeverityError, Detail: "{{.User}} is not in the source"},
				{Kind: MissingPlaceholder, Severity: SeverityError, Detail: "{{.Name}} is missing"},
			},
		},
		{
			name:  "count marker spelled out in singular",
			entry: finished("%n file(s)", "en fil", "%n filer"),
			want: []Finding{
				{Kind: MissingPlaceholder, Severity: SeverityWarning, Detail: "%n is missing in form 0"},
			},
		},
		{
			name:  "untranslated entry is skipped",
			entry: catalog.Entry{Source: "Copy %1", Status: catalog.Unfinished, Translations: []string{""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := New(nil).Validate(buildCatalog(t, "sv", tt.entry))

			got := make([]Finding, 0, len(r.Findings))
			for _, f := range r.Findings {
				assert.Equal(t, "Main", f.Context)
				assert.Equal(t, tt.entry.Source, f.Source)
				assert.Equal(t, "sv", f.Locale)
				got = append(got, Finding{Kind: f.Kind, Severity: f.Severity, Detail: f.Detail})
			}

			if len(tt.want) == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMarkup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		source      string
		translation string
		wantDetail  string
	}{
		{name: "balanced", source: "<b>Bold</b> text", translation: "<b>Fet</b> text"},
		{name: "void and self-closing", source: "Line<br>break", translation: "Rad<br/>bryt"},
		{name: "unclosed", source: "<b>Bold</b> text", translation: "<b>Fet text", wantDetail: "unclosed <b>"},
		{name: "crossed", source: "<b><i>x</i></b>", translation: "<b><i>x</b></i>", wantDetail: "unexpected </b>"},
		{name: "different tags", source: "<b>x</b>", translation: "<i>x</i>", wantDetail: "tags [i] differ from source tags [b]"},
		{name: "dropped decoration", source: "<em>Note</em>", translation: "Obs", wantDetail: "tags [] differ from source tags [em]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := New(nil).Validate(buildCatalog(t, "sv", finished(tt.source, tt.translation)))

			if tt.wantDetail == "" {
				assert.Empty(t, r.Findings)

				return
			}

			require.Len(t, r.Findings, 1)
			assert.Equal(t, MarkupImbalance, r.Findings[0].Kind)
			assert.Equal(t, SeverityWarning, r.Findings[0].Severity)
			assert.Equal(t, tt.wantDetail, r.Findings[0].Detail)
			assert.False(t, r.HasErrors())
		})
	}
}

func TestValidateAsConfiguredLocale(t *testing.T) {
	t.Parallel()

	oneSlot := catalog.Entry{Source: "%n file(s)", Plural: true, Status: catalog.Finished, Translations: []string{"%n fil"}}

	tests := []struct {
		name     string
		language string
	}{
		{"no header language", ""},
		{"other header language", "ja"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := New(nil).ValidateAs(buildCatalog(t, tt.language, oneSlot), "sv")
			require.Len(t, r.Findings, 1)
			assert.Equal(t, PluralCountMismatch, r.Findings[0].Kind)
			assert.Equal(t, "sv", r.Findings[0].Locale)
		})
	}
}

func TestUnknownLocale(t *testing.T) {
	t.Parallel()

	c := buildCatalog(t, "xx-unknown",
		catalog.Entry{Source: "%n file(s)", Plural: true, Status: catalog.Unfinished, Translations: []string{""}},
		finished("Copy %1", "Copy"),
	)

	r := New(nil).Validate(c)
	assert.Equal(t, []Kind{UnknownLocale, MissingPlaceholder}, kinds(r))
	assert.Equal(t, "xx-unknown", r.Findings[0].Locale)
	assert.Empty(t, r.Findings[0].Source)
}

func TestFindingLocation(t *testing.T) {
	t.Parallel()

	e := finished("Copy %1", "Kopiera")
	e.Locations = []catalog.Location{{File: "ui/copy.go", Line: 7}, {File: "ui/z.go", Line: 1}}

	r := New(nil).Validate(buildCatalog(t, "sv", e))
	require.Len(t, r.Findings, 1)
	assert.Equal(t, "ui/copy.go", r.Findings[0].File)
	assert.Equal(t, 7, r.Findings[0].Line)
}

func TestValidateDoesNotMutate(t *testing.T) {
	t.Parallel()

	entries := []catalog.Entry{
		finished("%n file(s)", "%n fil"),
		finished("<b>x</b>", "<i>x"),
	}
	entries[0].Plural = true

	c := buildCatalog(t, "ru", entries...)
	want := buildCatalog(t, "ru", entries...)

	r := New(nil).Validate(c)
	assert.NotEmpty(t, r.Findings)
	assert.True(t, catalog.Equal(want, c))
}

func TestReport(t *testing.T) {
	t.Parallel()

	sv := New(nil).Validate(buildCatalog(t, "sv", finished("Copy %1 to %2", "Kopiera")))
	de := New(nil).Validate(buildCatalog(t, "de", finished("<b>x</b>", "x")))

	r := &Report{}
	r.Merge(de)
	r.Merge(sv)
	r.Merge(nil)
	r.Sort()

	assert.Equal(t, []Kind{MarkupImbalance, MissingPlaceholder, MissingPlaceholder}, kinds(r))
	assert.True(t, r.HasErrors())
	assert.Equal(t, 2, r.Count(SeverityError))
	assert.Equal(t, 1, r.Count(SeverityWarning))

	counts := r.CountByKind()
	assert.Equal(t, 2, counts[MissingPlaceholder])
	assert.Equal(t, 0, counts[UnknownLocale])

	groups := r.ByKey()
	assert.Len(t, groups, 2)
	assert.Len(t, groups[Key{Context: "Main", Source: "Copy %1 to %2", Locale: "sv"}], 2)
}

func TestPlaceholderTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"no tokens", nil},
		{"%1 and %L1 and %12", []string{"%1", "%12"}},
		{"%n items, %Ln total", []string{"%n"}},
		{"%[2]v %5.2f %-8s %x%%", []string{"%[2]v", "%5.2f", "%-8s", "%x"}},
		{"50% off", nil},
		{"{{.User.Name}} {{- .Count -}}", []string{"{{.User.Name}}", "{{.Count}}"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, placeholders(tt.in), tt.in)
	}
}
