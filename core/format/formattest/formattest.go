// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package formattest provides fixtures shared by the codec tests.
package formattest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/format"
)

// Sample returns a Swedish catalog holding every status, a plural entry,
// a disambiguated entry and texts that need escaping, including control
// characters such as terminal escape sequences.
func Sample(t testing.TB) *catalog.Catalog {
	t.Helper()

	b := catalog.NewBuilder("en", "sv")

	entries := []struct {
		context string
		entry   catalog.Entry
	}{
		{"Dialog", catalog.Entry{
			Source:       "Open",
			ExtraComment: "Toolbar button",
			Locations:    []catalog.Location{{File: "ui/dialog.go", Line: 10}, {File: "ui/menu.go", Line: 3}},
			Status:       catalog.Finished,
			Translations: []string{"Öppna"},
		}},
		{"Dialog", catalog.Entry{
			Source:            "Close",
			PreviousSource:    "Cancel",
			TranslatorComment: "check\nwording",
			Locations:         []catalog.Location{{File: "ui/dialog.go", Line: 12}},
			Status:            catalog.Fuzzy,
			Translations:      []string{"Avbryt"},
		}},
		{"Dialog", catalog.Entry{
			Source:       "Save",
			Locations:    []catalog.Location{{File: "ui/dialog.go", Line: 14}},
			Status:       catalog.Unfinished,
			Translations: []string{""},
		}},
		{"Dialog", catalog.Entry{
			Source:         "Save as",
			Disambiguation: "menu",
			Status:         catalog.Unfinished,
			Translations:   []string{"Spara som"},
		}},
		{"Dialog", catalog.Entry{
			Source:       "%n file(s)",
			Plural:       true,
			Locations:    []catalog.Location{{File: "ui/list.go", Line: 40}},
			Status:       catalog.Finished,
			Translations: []string{"%n fil", "%n filer"},
		}},
		{"Dialog", catalog.Entry{
			Source:       "Quit",
			Status:       catalog.Vanished,
			Translations: []string{"Avsluta"},
		}},
		{"Dialog", catalog.Entry{
			Source:       "Help",
			Status:       catalog.Obsolete,
			Translations: []string{""},
		}},
		{`Main|Window \ x`, catalog.Entry{
			Source:       "Line one\nLine \"two\"\t<tab> & more",
			Locations:    []catalog.Location{{File: "ui/main.html"}},
			Status:       catalog.Finished,
			Translations: []string{"Rad ett\nRad två"},
		}},
		{`Main|Window \ x`, catalog.Entry{
			Source:       "\x1b[1mBold\x1b[0m",
			Status:       catalog.Finished,
			Translations: []string{"\x1b[1mFet\x1b[0m\x07"},
		}},
	}

	for _, e := range entries {
		require.NoError(t, b.Restore(e.context, e.entry))
	}

	return b.Build()
}

// Small returns a three-entry Swedish catalog: a fuzzy entry, a finished
// plural entry and a vanished entry, all in the context "Dialog".
func Small(t testing.TB) *catalog.Catalog {
	t.Helper()

	b := catalog.NewBuilder("en", "sv")

	require.NoError(t, b.Restore("Dialog", catalog.Entry{
		Source:         "Close",
		PreviousSource: "Cancel",
		Locations:      []catalog.Location{{File: "ui/dialog.go", Line: 12}},
		Status:         catalog.Fuzzy,
		Translations:   []string{"Avbryt"},
	}))
	require.NoError(t, b.Restore("Dialog", catalog.Entry{
		Source:       "%n file(s)",
		ExtraComment: "Counter",
		Plural:       true,
		Status:       catalog.Finished,
		Translations: []string{"%n fil", "%n filer"},
	}))
	require.NoError(t, b.Restore("Dialog", catalog.Entry{
		Source:       "Quit",
		Status:       catalog.Vanished,
		Translations: []string{"Avsluta"},
	}))

	return b.Build()
}

// RoundTrip encodes c, decodes the result and encodes again. It fails t
// unless the decoded catalog equals c and both encodings are byte-identical.
// The first encoding is returned.
func RoundTrip(t testing.TB, codec format.Codec, c *catalog.Catalog) []byte {
	t.Helper()

	first, err := format.EncodeBytes(codec, c)
	require.NoError(t, err)

	decoded, err := codec.Decode(bytes.NewReader(first))
	require.NoError(t, err)
	require.True(t, catalog.Equal(c, decoded), "decoded catalog differs from the original")

	second, err := format.EncodeBytes(codec, decoded)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))

	return first
}
