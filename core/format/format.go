// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package format converts catalogs to and from their on-disk form.

Each file format is a [Codec]. Codec packages register themselves with the
default registry when imported, the same way database/sql drivers do:

	import (
		"codeberg.org/lingosync/lingosync/core/format"
		_ "codeberg.org/lingosync/lingosync/core/format/po"
		_ "codeberg.org/lingosync/lingosync/core/format/ts"
	)

	codec, err := format.Default().Resolve("", "translations/sv.po")

Decoding is all-or-nothing: a malformed document yields a [*CatalogParseError]
and no catalog.
*/
package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"codeberg.org/lingosync/lingosync/core/catalog"
)

var (
	// ErrUnknownFormat is returned when no codec matches a name or file extension.
	ErrUnknownFormat = errors.New("unknown catalog format")

	errDuplicateCodec = errors.New("codec already registered")
)

// Codec reads and writes one catalog file format.
type Codec interface {
	Name() string
	Extensions() []string
	Decode(r io.Reader) (*catalog.Catalog, error)
	Encode(w io.Writer, c *catalog.Catalog) error
}

// CatalogParseError reports a malformed catalog document.
type CatalogParseError struct {
	Format string
	Path   string
	// Line is 1-based; 0 when unknown.
	Line int
	// Entry names the entry being decoded, if any.
	Entry string
	Err   error
}

func (e *CatalogParseError) Error() string {
	var b strings.Builder

	b.WriteString(e.Format)
	b.WriteString(" catalog")

	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}

	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}

	if e.Entry != "" {
		fmt.Fprintf(&b, " (entry %s)", e.Entry)
	}

	b.WriteString(": ")
	b.WriteString(e.Err.Error())

	return b.String()
}

func (e *CatalogParseError) Unwrap() error {
	return e.Err
}

// Registry resolves codecs by name or file extension. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Codec
	byExt  map[string]Codec
}

// NewRegistry returns a registry holding codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{byName: make(map[string]Codec), byExt: make(map[string]Codec)}

	for _, c := range codecs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}

	return r
}

var defaultRegistry = NewRegistry()

// Default returns the registry codec packages add themselves to.
func Default() *Registry {
	return defaultRegistry
}

// Register adds c under its name and extensions.
func (r *Registry) Register(c Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(c.Name())
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s", errDuplicateCodec, name)
	}

	r.byName[name] = c

	for _, ext := range c.Extensions() {
		ext = strings.ToLower(ext)
		if _, ok := r.byExt[ext]; !ok {
			r.byExt[ext] = c
		}
	}

	return nil
}

// Lookup returns the codec called name.
func (r *Registry) Lookup(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byName[strings.ToLower(name)]

	return c, ok
}

// Resolve returns the codec called name, or the codec for path's extension
// when name is empty.
func (r *Registry) Resolve(name, path string) (Codec, error) {
	if name != "" {
		if c, ok := r.Lookup(name); ok {
			return c, nil
		}

		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if c, ok := r.byExt[ext]; ok {
		return c, nil
	}

	return nil, fmt.Errorf("%w: no codec for %q files", ErrUnknownFormat, ext)
}

// Names lists the registered codec names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}

	slices.Sort(out)

	return out
}

// ReadFile decodes the catalog stored at path. Parse errors carry the path.
func ReadFile(c Codec, path string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cat, err := c.Decode(f)
	if err != nil {
		var pe *CatalogParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}

		return nil, err
	}

	return cat, nil
}

// EncodeBytes encodes cat in memory.
func EncodeBytes(c Codec, cat *catalog.Catalog) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, cat); err != nil {
		return nil, fmt.Errorf("encode %s catalog: %w", c.Name(), err)
	}

	return buf.Bytes(), nil
}
