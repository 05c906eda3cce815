// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/lingosync/lingosync/core/catalog"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	return root
}

func TestScan(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"b/dialog.go": "package b\n\nfunc (d Dialog) x() {\n\tTr(\"Cancel\")\n}\n",
		"a/dialog.go": "package a\n\nfunc (d *Dialog) y() {\n\t//: first\n\tTr(\"Cancel\")\n\tTrN(\"%n file(s)\", 2)\n}\n",
		"a/more.go": "package a\n\nfunc (d *Dialog) z() {\n\t//: second\n\tTr(\"Cancel\")\n\t//: first\n\tTr(\"Cancel\")\n}\n",
		"a/page.tmpl":            `{{tr "Cancel"}}`,
		"a/notes.txt":            "ignored, not selected",
		"a/data.json":            "{}",
		"vendor/x/x.go":          "package x\nfunc f() { Tr(\"Vendored\") }\n",
		".git/hooks/x.go":        "package x\nfunc f() { Tr(\"Hidden\") }\n",
		"testdata/fixture.go":    "package x\nfunc f() { Tr(\"Fixture\") }\n",
		"a/generated_gen.go":     "package a\nfunc f() { Tr(\"Generated\") }\n",
		"broken/broken.go":       "package broken\nfunc {",
		"c/plural.go":            "package c\n\nfunc (d *Dialog) w() {\n\tTr(\"%n file(s)\")\n}\n",
		"c/nested/deeper/ok.go":  "package deeper\nfunc f() { Translate(nil, \"Deep\", \"Ok\") }\n",
		"a/pages/index.gohtml":   `{{trc "menu" "Open"}}`,
		"a/pages/ignored.gohtml": `{{ .NoMessages }}`,
	})

	s := New(Options{
		Root:     root,
		Patterns: []string{"*.go", "*.tmpl", "*.gohtml", "*.json"},
		Excludes: []string{"testdata/", "*/*_gen.go"},
		Workers:  2,
	})

	res, err := s.Scan(context.Background())
	require.NoError(t, err)

	want := []Message{
		{
			Context:      "Dialog",
			Source:       "Cancel",
			ExtraComment: "first\nsecond",
			Locations: []catalog.Location{
				{File: "a/dialog.go", Line: 5},
				{File: "a/more.go", Line: 5},
				{File: "a/more.go", Line: 7},
				{File: "b/dialog.go", Line: 4},
			},
		},
		{
			Context:   "Dialog",
			Source:    "%n file(s)",
			Plural:    true,
			Locations: []catalog.Location{{File: "a/dialog.go", Line: 6}, {File: "c/plural.go", Line: 4}},
		},
		{Context: "page", Source: "Cancel", Locations: []catalog.Location{{File: "a/page.tmpl", Line: 1}}},
		{Context: "index", Source: "Open", Disambiguation: "menu", Locations: []catalog.Location{{File: "a/pages/index.gohtml", Line: 1}}},
		{Context: "Deep", Source: "Ok", Locations: []catalog.Location{{File: "c/nested/deeper/ok.go", Line: 2}}},
	}

	if diff := cmp.Diff(want, res.Messages); diff != "" {
		t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 10, res.Files)

	var files []string
	for _, w := range res.Warnings {
		files = append(files, w.File)
	}

	assert.ElementsMatch(t, []string{"a/data.json", "broken/broken.go"}, files)

	for _, w := range res.Warnings {
		if w.File == "a/data.json" {
			assert.ErrorIs(t, w, ErrUnrecognizedFile)
		}
	}
}

func TestScanMissingRoot(t *testing.T) {
	t.Parallel()

	s := New(Options{Root: filepath.Join(t.TempDir(), "missing"), Patterns: []string{"*.go"}})

	_, err := s.Scan(context.Background())
	assert.Error(t, err)
}

func TestScanCancelled(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.go": "package a\nfunc f() { Tr(\"x\") }\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Root: root, Patterns: []string{"*.go"}}).Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExcluded(t *testing.T) {
	t.Parallel()

	s := New(Options{Excludes: []string{"testdata/", "*/mocks/", "gen/*.go"}})

	tests := []struct {
		rel  string
		want bool
	}{
		{"testdata/", true},
		{"testdata/x.go", true},
		{"pkg/testdata/", false},
		{"pkg/mocks/", true},
		{"pkg/mocks", false},
		{"gen/a.go", true},
		{"gen/", false},
		{"main.go", false},
	}

	for _, tt := range tests {
		if got := s.excluded(tt.rel); got != tt.want {
			t.Errorf("excluded(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}
