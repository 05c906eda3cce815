// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package catalog

// Context is a named group of entries, typically one UI component or type.
//
// A Context obtained from a [Catalog] must not be modified.
type Context struct {
	name    string
	entries []Entry
	index   map[Key]int
}

// Name returns the context name.
func (c *Context) Name() string {
	return c.name
}

// Entries returns the entries in catalog order. The slice is shared with the
// catalog and must be treated as read-only.
func (c *Context) Entries() []Entry {
	return c.entries
}

// Len returns the number of entries.
func (c *Context) Len() int {
	return len(c.entries)
}

// Lookup returns the entry with key k.
func (c *Context) Lookup(k Key) (*Entry, bool) {
	i, ok := c.index[k]
	if !ok {
		return nil, false
	}

	return &c.entries[i], true
}

// Catalog is an immutable snapshot of a translation catalog for one target
// language. Build one with [Builder].
type Catalog struct {
	SourceLanguage string
	Language       string

	contexts []*Context
	index    map[string]int
}

// Contexts returns the contexts in catalog order. The slice must not be modified.
func (c *Catalog) Contexts() []*Context {
	if c == nil {
		return nil
	}

	return c.contexts
}

// Context returns the context called name.
func (c *Catalog) Context(name string) (*Context, bool) {
	if c == nil {
		return nil, false
	}

	i, ok := c.index[name]
	if !ok {
		return nil, false
	}

	return c.contexts[i], true
}

// Lookup finds an entry by context name, source and disambiguation.
func (c *Catalog) Lookup(context, source, disambiguation string) (*Entry, bool) {
	ctx, ok := c.Context(context)
	if !ok {
		return nil, false
	}

	return ctx.Lookup(Key{Source: source, Disambiguation: disambiguation})
}

// Len returns the total number of entries.
func (c *Catalog) Len() int {
	n := 0
	for _, ctx := range c.Contexts() {
		n += len(ctx.entries)
	}

	return n
}

// Counts returns the number of entries per status.
func (c *Catalog) Counts() map[Status]int {
	out := make(map[Status]int, len(statusNames))
	for _, s := range Statuses {
		out[s] = 0
	}

	for _, ctx := range c.Contexts() {
		for i := range ctx.entries {
			out[ctx.entries[i].Status]++
		}
	}

	return out
}

// Walk calls fn for every entry in catalog order until fn returns false.
func (c *Catalog) Walk(fn func(ctx *Context, e *Entry) bool) {
	for _, ctx := range c.Contexts() {
		for i := range ctx.entries {
			if !fn(ctx, &ctx.entries[i]) {
				return
			}
		}
	}
}
