// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package ts implements the XML catalog format modelled on Qt Linguist TS files.
//
// Importing the package registers the codec with [format.Default].
package ts

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/format"
)

// Name is the codec name.
const Name = "ts"

const (
	tsVersion = "2.1"

	typeUnfinished = "unfinished"
	typeVanished   = "vanished"
	typeObsolete   = "obsolete"
)

var (
	errNoRoot          = errors.New("missing <TS> root element")
	errUnexpectedRoot  = errors.New("unexpected root element")
	errBadLine         = errors.New("invalid location line")
	errUnknownType     = errors.New("unknown translation type")
	errMissingName     = errors.New("context has no <name>")
	errUnexpectedToken = errors.New("unexpected element")
	errBadByte         = errors.New("invalid <byte> value")
	errUnrepresentable = errors.New("attribute holds a character XML cannot represent")
)

func init() {
	if err := format.Default().Register(Codec{}); err != nil {
		panic(err)
	}
}

// Codec is the TS format.
type Codec struct{}

func (Codec) Name() string { return Name }

func (Codec) Extensions() []string { return []string{".ts", ".xml"} }

type xmlLocation struct {
	Filename string `xml:"filename,attr"`
	Line     string `xml:"line,attr"`
}

type xmlTranslation struct {
	Type  string
	Text  string
	Forms []string
}

// UnmarshalXML collects the plain text and the numerus forms of a
// <translation> element.
func (t *xmlTranslation) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local == "type" {
			t.Type = a.Value
		}
	}

	var text []byte

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch tt := tok.(type) {
		case xml.CharData:
			text = append(text, tt...)
		case xml.StartElement:
			switch tt.Name.Local {
			case "numerusform":
				var form tsText
				if err := d.DecodeElement(&form, &tt); err != nil {
					return err
				}

				t.Forms = append(t.Forms, string(form))
			case "byte":
				if text, err = appendByte(text, tt); err != nil {
					return err
				}

				if err := d.Skip(); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			t.Text = string(text)

			return nil
		}
	}
}

type xmlMessage struct {
	Numerus           string          `xml:"numerus,attr"`
	Locations         []xmlLocation   `xml:"location"`
	Source            tsText          `xml:"source"`
	OldSource         *tsText         `xml:"oldsource"`
	Comment           tsText          `xml:"comment"`
	ExtraComment      tsText          `xml:"extracomment"`
	TranslatorComment tsText          `xml:"translatorcomment"`
	Translation       *xmlTranslation `xml:"translation"`
}

// tsText is element content in which characters XML cannot carry are
// written as <byte value="x1b"/>, the way Qt Linguist does.
type tsText string

func (t *tsText) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	var text []byte

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch tt := tok.(type) {
		case xml.CharData:
			text = append(text, tt...)
		case xml.StartElement:
			if tt.Name.Local == "byte" {
				if text, err = appendByte(text, tt); err != nil {
					return err
				}
			}

			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			*t = tsText(text)

			return nil
		}
	}
}

// appendByte decodes the value attribute of a <byte> element, either hex
// with an x prefix or decimal. Values 0x80 to 0xff stand for raw bytes of
// text that is not valid UTF-8; every other value is a character code.
func appendByte(b []byte, se xml.StartElement) ([]byte, error) {
	for _, a := range se.Attr {
		if a.Name.Local != "value" {
			continue
		}

		v, base := a.Value, 10
		if rest, ok := strings.CutPrefix(v, "x"); ok {
			v, base = rest, 16
		}

		n, err := strconv.ParseUint(v, base, 32)
		if err != nil || n > utf8.MaxRune {
			return nil, fmt.Errorf("%w %q", errBadByte, a.Value)
		}

		if n >= 0x80 && n <= 0xff {
			return append(b, byte(n)), nil
		}

		return utf8.AppendRune(b, rune(n)), nil
	}

	return nil, fmt.Errorf("%w: no value", errBadByte)
}

// attrSafe reports whether s can be written as an attribute value as is.
func attrSafe(s string) bool {
	return utf8.ValidString(s) && strings.IndexFunc(s, func(r rune) bool { return !isXMLChar(r) }) < 0
}

// isXMLChar reports whether r may appear in an XML 1.0 document.
func isXMLChar(r rune) bool {
	return r == '\t' || r == '\n' || r == '\r' ||
		r >= 0x20 && r <= 0xd7ff ||
		r >= 0xe000 && r <= 0xfffd ||
		r >= 0x10000 && r <= utf8.MaxRune
}

// Decode reads a whole TS document. No catalog is returned on error.
func (Codec) Decode(r io.Reader) (*catalog.Catalog, error) {
	d := &decoder{xml: xml.NewDecoder(r)}

	cat, err := d.decode()
	if err != nil {
		var pe *format.CatalogParseError
		if errors.As(err, &pe) {
			return nil, pe
		}

		line, _ := d.xml.InputPos()

		return nil, &format.CatalogParseError{Format: Name, Line: line, Err: err}
	}

	return cat, nil
}

type decoder struct {
	xml *xml.Decoder
	b   *catalog.Builder
}

func (d *decoder) decode() (*catalog.Catalog, error) {
	root, err := d.nextStart()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errNoRoot
		}

		return nil, err
	}

	if root.Name.Local != "TS" {
		return nil, fmt.Errorf("%w <%s>", errUnexpectedRoot, root.Name.Local)
	}

	var language, sourceLanguage string

	for _, a := range root.Attr {
		switch a.Name.Local {
		case "language":
			language = a.Value
		case "sourcelanguage":
			sourceLanguage = a.Value
		}
	}

	d.b = catalog.NewBuilder(sourceLanguage, language)

	for {
		tok, err := d.xml.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "context" {
				return nil, fmt.Errorf("%w <%s> in <TS>", errUnexpectedToken, t.Name.Local)
			}

			if err := d.context(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			return d.b.Build(), nil
		}
	}
}

// nextStart skips the prolog up to the first start element.
func (d *decoder) nextStart() (xml.StartElement, error) {
	for {
		tok, err := d.xml.Token()
		if err != nil {
			return xml.StartElement{}, err
		}

		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func (d *decoder) context() error {
	var cb *catalog.ContextBuilder

	for {
		tok, err := d.xml.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "name":
				var name tsText
				if err := d.xml.DecodeElement(&name, &t); err != nil {
					return err
				}

				if cb, err = d.b.Context(string(name)); err != nil {
					return err
				}
			case "message":
				if cb == nil {
					return errMissingName
				}

				line, _ := d.xml.InputPos()

				var m xmlMessage
				if err := d.xml.DecodeElement(&m, &t); err != nil {
					return err
				}

				if err := d.message(cb, &m, line); err != nil {
					return err
				}
			default:
				if err := d.xml.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if cb == nil {
				return errMissingName
			}

			return nil
		}
	}
}

func (d *decoder) message(cb *catalog.ContextBuilder, m *xmlMessage, line int) error {
	e := catalog.Entry{
		Source:            string(m.Source),
		Disambiguation:    string(m.Comment),
		ExtraComment:      string(m.ExtraComment),
		TranslatorComment: string(m.TranslatorComment),
		Plural:            m.Numerus == "yes",
	}

	parseErr := func(err error) error {
		return &format.CatalogParseError{
			Format: Name,
			Line:   line,
			Entry:  cb.Name() + "/" + e.Key().String(),
			Err:    err,
		}
	}

	for _, loc := range m.Locations {
		l := catalog.Location{File: loc.Filename}

		if loc.Line != "" {
			n, err := strconv.Atoi(loc.Line)
			if err != nil || n < 0 {
				return parseErr(fmt.Errorf("%w %q", errBadLine, loc.Line))
			}

			l.Line = n
		}

		e.Locations = append(e.Locations, l)
	}

	tr := m.Translation
	if tr == nil {
		tr = &xmlTranslation{Type: typeUnfinished}
	}

	switch {
	case e.Plural && len(tr.Forms) > 0:
		e.Translations = tr.Forms
	case e.Plural:
		e.Translations = catalog.EmptySlots(1)
	default:
		e.Translations = []string{tr.Text}
	}

	switch tr.Type {
	case "":
		e.Status = catalog.Finished
	case typeUnfinished:
		e.Status = catalog.Unfinished
		if m.OldSource != nil {
			e.Status = catalog.Fuzzy
			e.PreviousSource = string(*m.OldSource)
		}
	case typeVanished:
		e.Status = catalog.Vanished
	case typeObsolete:
		e.Status = catalog.Obsolete
	default:
		return parseErr(fmt.Errorf("%w %q", errUnknownType, tr.Type))
	}

	if err := cb.Restore(e); err != nil {
		return parseErr(err)
	}

	return nil
}

// Encode writes c as a TS document.
func (Codec) Encode(w io.Writer, c *catalog.Catalog) error {
	bw := bufio.NewWriter(w)
	enc := encoder{w: bw}

	enc.raw("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<!DOCTYPE TS>\n")
	enc.raw("<TS version=\"" + tsVersion + "\"")
	enc.attr("language", c.Language)
	enc.attr("sourcelanguage", c.SourceLanguage)
	enc.raw(">\n")

	for _, ctx := range c.Contexts() {
		enc.raw("<context>\n")
		enc.element(1, "name", ctx.Name())

		for _, e := range ctx.Entries() {
			enc.message(&e)
		}

		enc.raw("</context>\n")
	}

	enc.raw("</TS>\n")

	if enc.err != nil {
		return enc.err
	}

	return bw.Flush()
}

// encoder writes TS markup, remembering the first error.
type encoder struct {
	w   *bufio.Writer
	err error
}

func (enc *encoder) raw(s string) {
	if enc.err == nil {
		_, enc.err = enc.w.WriteString(s)
	}
}

func (enc *encoder) escape(s string) {
	if enc.err == nil && s != "" {
		enc.err = xml.EscapeText(enc.w, []byte(s))
	}
}

// text writes element content. Characters XML cannot carry and bytes that
// are not valid UTF-8 become <byte> elements.
func (enc *encoder) text(s string) {
	start := 0

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])

		code := -1

		switch {
		case r == utf8.RuneError && size == 1:
			code = int(s[i])
		case !isXMLChar(r):
			code = int(r)
		}

		if code >= 0 {
			enc.escape(s[start:i])
			enc.raw(fmt.Sprintf(`<byte value="x%x"/>`, code))
			start = i + size
		}

		i += size
	}

	enc.escape(s[start:])
}

func (enc *encoder) indent(depth int) {
	for range depth {
		enc.raw("    ")
	}
}

func (enc *encoder) attr(name, value string) {
	if enc.err == nil && !attrSafe(value) {
		enc.err = fmt.Errorf("%w: %s=%q", errUnrepresentable, name, value)

		return
	}

	enc.raw(" " + name + "=\"")
	enc.escape(value)
	enc.raw("\"")
}

func (enc *encoder) element(depth int, name, value string) {
	enc.indent(depth)
	enc.raw("<" + name + ">")
	enc.text(value)
	enc.raw("</" + name + ">\n")
}

func (enc *encoder) message(e *catalog.Entry) {
	enc.indent(1)
	enc.raw("<message")

	if e.Plural {
		enc.attr("numerus", "yes")
	}

	enc.raw(">\n")

	for _, loc := range e.Locations {
		enc.indent(2)
		enc.raw("<location")
		enc.attr("filename", loc.File)

		if loc.Line > 0 {
			enc.attr("line", strconv.Itoa(loc.Line))
		}

		enc.raw("/>\n")
	}

	enc.element(2, "source", e.Source)

	if e.Status == catalog.Fuzzy {
		enc.element(2, "oldsource", e.PreviousSource)
	}

	if e.Disambiguation != "" {
		enc.element(2, "comment", e.Disambiguation)
	}

	if e.ExtraComment != "" {
		enc.element(2, "extracomment", e.ExtraComment)
	}

	if e.TranslatorComment != "" {
		enc.element(2, "translatorcomment", e.TranslatorComment)
	}

	enc.indent(2)
	enc.raw("<translation")

	switch e.Status {
	case catalog.Unfinished, catalog.Fuzzy:
		enc.attr("type", typeUnfinished)
	case catalog.Vanished:
		enc.attr("type", typeVanished)
	case catalog.Obsolete:
		enc.attr("type", typeObsolete)
	}

	enc.raw(">")

	if e.Plural {
		enc.raw("\n")

		for _, form := range e.Translations {
			enc.element(3, "numerusform", form)
		}

		enc.indent(2)
	} else {
		enc.text(e.Translation())
	}

	enc.raw("</translation>\n")
	enc.indent(1)
	enc.raw("</message>\n")
}
