// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package catalog

import (
	"errors"
	"fmt"
	"slices"
)

// builder errors.
var (
	ErrDuplicateEntry   = errors.New("duplicate entry")
	ErrEmptyContextName = errors.New("context name must not be empty")
	ErrNewWithText      = errors.New("new entry must not carry a translation")

	errBuilt = errors.New("catalog builder already built")
)

// Builder assembles a [Catalog]. Its operations are the only way entries
// enter a catalog, and each of them enforces the status transition it stands for.
//
// Contexts are created in call order by [Builder.Context]. The returned
// [ContextBuilder] values are independent of each other, so distinct contexts
// may be filled from different goroutines once they have all been created.
type Builder struct {
	cat   *Catalog
	ctxs  []*ContextBuilder
	built bool
}

// NewBuilder starts an empty catalog for language, translated from sourceLanguage.
func NewBuilder(sourceLanguage, language string) *Builder {
	return &Builder{
		cat: &Catalog{
			SourceLanguage: sourceLanguage,
			Language:       language,
			index:          make(map[string]int),
		},
	}
}

// HasContext reports whether a context called name was already created.
func (b *Builder) HasContext(name string) bool {
	_, ok := b.cat.index[name]

	return ok
}

// Context returns the builder for the context called name, creating it at the
// end of the catalog if needed.
func (b *Builder) Context(name string) (*ContextBuilder, error) {
	if b.built {
		return nil, errBuilt
	}

	if name == "" {
		return nil, ErrEmptyContextName
	}

	if i, ok := b.cat.index[name]; ok {
		return b.ctxs[i], nil
	}

	cb := &ContextBuilder{ctx: &Context{name: name, index: make(map[Key]int)}}

	b.cat.index[name] = len(b.ctxs)
	b.ctxs = append(b.ctxs, cb)

	return cb, nil
}

// Restore inserts e into the context called name with its status unchanged.
// It is meant for deserializers.
func (b *Builder) Restore(name string, e Entry) error {
	cb, err := b.Context(name)
	if err != nil {
		return err
	}

	return cb.Restore(e)
}

// Build returns the finished catalog. Contexts without entries are pruned.
func (b *Builder) Build() *Catalog {
	b.built = true

	cat := &Catalog{
		SourceLanguage: b.cat.SourceLanguage,
		Language:       b.cat.Language,
		index:          make(map[string]int, len(b.ctxs)),
	}

	for _, cb := range b.ctxs {
		if len(cb.ctx.entries) == 0 {
			continue
		}

		cat.index[cb.ctx.name] = len(cat.contexts)
		cat.contexts = append(cat.contexts, cb.ctx)
	}

	return cat
}

// ContextBuilder fills one context. It is not safe for concurrent use.
type ContextBuilder struct {
	ctx *Context
}

// Name returns the context name.
func (cb *ContextBuilder) Name() string {
	return cb.ctx.name
}

// Len returns the number of entries added so far.
func (cb *ContextBuilder) Len() int {
	return len(cb.ctx.entries)
}

// Lookup returns the entry inserted under k. The pointer is valid until the
// next insertion.
func (cb *ContextBuilder) Lookup(k Key) (*Entry, bool) {
	return cb.ctx.Lookup(k)
}

// Add inserts a new entry found by a scan. The entry becomes Unfinished and
// must not carry any translation text.
func (cb *ContextBuilder) Add(e Entry) error {
	e = e.Clone()
	e.Status = Unfinished
	e.PreviousSource = ""

	if e.HasTranslation() {
		return fmt.Errorf("%w: %s", ErrNewWithText, e.Key())
	}

	return cb.insert(e)
}

// CarryForward inserts an entry that the scan found again unchanged.
// Active statuses are kept; retired entries are reinstated as Finished when
// they hold a translation and as Unfinished otherwise. A Finished entry left
// without any text becomes Unfinished.
func (cb *ContextBuilder) CarryForward(e Entry) error {
	e = e.Clone()

	switch e.Status {
	case Vanished:
		e.Status = Finished
	case Obsolete:
		e.Status = Unfinished
	}

	if e.Status == Finished && !e.HasTranslation() {
		e.Status = Unfinished
	}

	return cb.insert(e)
}

// Fuzzy inserts an entry whose translation was made for previousSource.
func (cb *ContextBuilder) Fuzzy(e Entry, previousSource string) error {
	e = e.Clone()
	e.Status = Fuzzy
	e.PreviousSource = previousSource

	return cb.insert(e)
}

// Retire inserts an entry that no longer appears in the sources. It becomes
// Vanished if it holds any translation text and Obsolete otherwise; its
// locations and previous source are dropped.
func (cb *ContextBuilder) Retire(e Entry) error {
	e = e.Clone()
	e.Locations = nil
	e.PreviousSource = ""

	if e.HasTranslation() {
		e.Status = Vanished
	} else {
		e.Status = Obsolete
	}

	return cb.insert(e)
}

// Restore inserts e with its status unchanged after validating it.
func (cb *ContextBuilder) Restore(e Entry) error {
	return cb.insert(e.Clone())
}

func (cb *ContextBuilder) insert(e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	k := e.Key()
	if _, ok := cb.ctx.index[k]; ok {
		return fmt.Errorf("%w %s in context %q", ErrDuplicateEntry, k, cb.ctx.name)
	}

	if len(e.Locations) == 0 {
		e.Locations = nil
	}

	cb.ctx.index[k] = len(cb.ctx.entries)
	cb.ctx.entries = append(cb.ctx.entries, e)

	return nil
}

// Compact returns a copy of c without Obsolete entries. Contexts left empty
// are dropped. c itself is not modified.
func Compact(c *Catalog) *Catalog {
	b := NewBuilder(c.SourceLanguage, c.Language)

	for _, ctx := range c.Contexts() {
		cb, _ := b.Context(ctx.name)

		for i := range ctx.entries {
			if ctx.entries[i].Status == Obsolete {
				continue
			}

			// Entries of a valid catalog stay valid, so Restore cannot fail here.
			_ = cb.Restore(ctx.entries[i])
		}
	}

	return b.Build()
}

// Equal reports whether a and b hold the same contexts and entries in the same order.
func Equal(a, b *Catalog) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.SourceLanguage != b.SourceLanguage || a.Language != b.Language || len(a.contexts) != len(b.contexts) {
		return false
	}

	for i, ca := range a.contexts {
		cb := b.contexts[i]
		if ca.name != cb.name || len(ca.entries) != len(cb.entries) {
			return false
		}

		for j := range ca.entries {
			if !entryEqual(&ca.entries[j], &cb.entries[j]) {
				return false
			}
		}
	}

	return true
}

func entryEqual(a, b *Entry) bool {
	return a.Source == b.Source &&
		a.Disambiguation == b.Disambiguation &&
		a.ExtraComment == b.ExtraComment &&
		a.TranslatorComment == b.TranslatorComment &&
		a.PreviousSource == b.PreviousSource &&
		a.Plural == b.Plural &&
		a.Status == b.Status &&
		slices.Equal(a.Locations, b.Locations) &&
		slices.Equal(a.Translations, b.Translations)
}
