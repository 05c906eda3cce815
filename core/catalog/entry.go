// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// entry invariant violations.
var (
	ErrInvalidEntry = errors.New("invalid entry")

	errFinishedWithoutText  = errors.New("finished entry has no translation")
	errVanishedWithoutText  = errors.New("vanished entry has no translation")
	errObsoleteWithText     = errors.New("obsolete entry has a translation")
	errSingularSlots        = errors.New("non-plural entry must have exactly one translation slot")
	errPluralWithoutSlots   = errors.New("plural entry has no translation slots")
	errPreviousWithoutFuzzy = errors.New("previous source set on a non-fuzzy entry")
)

// Key identifies an entry inside a [Context].
type Key struct {
	Source         string
	Disambiguation string
}

func (k Key) String() string {
	if k.Disambiguation == "" {
		return strconv.Quote(k.Source)
	}

	return strconv.Quote(k.Source) + " (" + strconv.Quote(k.Disambiguation) + ")"
}

// Location is a place in the source tree where an entry's source string occurs.
// Locations are informational and never part of an entry's identity.
type Location struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

func (l Location) String() string {
	if l.Line <= 0 {
		return l.File
	}

	return l.File + ":" + strconv.Itoa(l.Line)
}

// CompareLocations orders locations by file, then line.
func CompareLocations(a, b Location) int {
	if a.File != b.File {
		if a.File < b.File {
			return -1
		}

		return 1
	}

	return a.Line - b.Line
}

// Entry is one translatable unit.
//
// Translations holds a single slot for non-plural entries and one slot per
// plural form of the catalog's language otherwise. Any slot may be empty.
// PreviousSource is meaningful only while Status is [Fuzzy].
type Entry struct {
	Source            string
	Disambiguation    string
	ExtraComment      string
	TranslatorComment string
	PreviousSource    string
	Plural            bool
	Locations         []Location
	Status            Status
	Translations      []string
}

// Key returns the entry's identity inside its context.
func (e *Entry) Key() Key {
	return Key{Source: e.Source, Disambiguation: e.Disambiguation}
}

// HasTranslation reports whether any translation slot is non-empty.
func (e *Entry) HasTranslation() bool {
	for _, t := range e.Translations {
		if t != "" {
			return true
		}
	}

	return false
}

// Complete reports whether every translation slot is non-empty.
func (e *Entry) Complete() bool {
	if len(e.Translations) == 0 {
		return false
	}

	for _, t := range e.Translations {
		if t == "" {
			return false
		}
	}

	return true
}

// Translation returns the first translation slot, or "" if there is none.
func (e *Entry) Translation() string {
	if len(e.Translations) == 0 {
		return ""
	}

	return e.Translations[0]
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() Entry {
	c := *e
	c.Locations = slices.Clone(e.Locations)
	c.Translations = slices.Clone(e.Translations)

	return c
}

// Validate checks the status and shape invariants of e.
func (e *Entry) Validate() error {
	var err error

	switch {
	case !e.Plural && len(e.Translations) != 1:
		err = errSingularSlots
	case e.Plural && len(e.Translations) == 0:
		err = errPluralWithoutSlots
	case e.Status == Finished && !e.HasTranslation():
		err = errFinishedWithoutText
	case e.Status == Vanished && !e.HasTranslation():
		err = errVanishedWithoutText
	case e.Status == Obsolete && e.HasTranslation():
		err = errObsoleteWithText
	case e.Status != Fuzzy && e.PreviousSource != "":
		err = errPreviousWithoutFuzzy
	case int(e.Status) >= len(statusNames):
		err = fmt.Errorf("%w: %d", errUnknownStatus, uint8(e.Status))
	}

	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidEntry, e.Key(), err)
	}

	return nil
}

// EmptySlots returns n empty translation slots, at least one.
func EmptySlots(n int) []string {
	if n < 1 {
		n = 1
	}

	return make([]string, n)
}
