// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package catalog holds the in-memory model of a translation catalog.

A [Catalog] is an ordered list of named contexts, each an ordered list of
entries keyed by source text and disambiguation. Catalogs are immutable once
built; every change goes through a [Builder], so merging always produces a
new catalog value and never edits its inputs.

	b := catalog.NewBuilder("en", "sv")
	dialog, _ := b.Context("Dialog")
	_ = dialog.Add(catalog.Entry{Source: "Close", Translations: catalog.EmptySlots(1)})
	cat := b.Build()
*/
package catalog
