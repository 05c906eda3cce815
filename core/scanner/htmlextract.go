// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scanner

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Attributes recognized by [HTMLExtractor].
const (
	attrI18n    = "i18n"
	attrContext = "i18n-context"
	attrPlural  = "i18n-plural"
)

var (
	errEmptyMessage   = errors.New("i18n element has no content")
	errUnclosedMarkup = errors.New("i18n element is never closed")
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

// HTMLExtractor extracts messages from elements marked with an i18n attribute.
//
// The attribute value "meaning|description" supplies the disambiguation and
// the extra comment. The message source is the element's inner markup with
// whitespace collapsed. The context comes from the nearest i18n-context
// attribute on the element or its ancestors, defaulting to the file name.
type HTMLExtractor struct{}

func (HTMLExtractor) Name() string { return "html" }

func (HTMLExtractor) Extensions() []string { return []string{".html", ".htm"} }

func (HTMLExtractor) Extract(filename string, src []byte) ([]Occurrence, error) {
	h := &htmlScan{
		z:        html.NewTokenizer(bytes.NewReader(src)),
		fallback: contextFromFile(filename),
		line:     1,
	}

	return h.run()
}

type htmlCapture struct {
	occ   Occurrence
	depth int
	inner bytes.Buffer
}

type htmlScan struct {
	z        *html.Tokenizer
	fallback string
	line     int
	// contexts holds the effective context of every open element.
	contexts []string
	capture  *htmlCapture
	occs     []Occurrence
	errs     []error
}

func (h *htmlScan) run() ([]Occurrence, error) {
	for {
		tt := h.z.Next()
		if tt == html.ErrorToken {
			if err := h.z.Err(); err != io.EOF {
				return nil, err
			}

			break
		}

		raw := h.z.Raw()
		line := h.line
		h.line += bytes.Count(raw, []byte{'\n'})

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			h.start(h.z.Token(), tt == html.SelfClosingTagToken, raw, line)
		case html.EndTagToken:
			h.end(raw)
		default:
			if h.capture != nil {
				h.capture.inner.Write(raw)
			}
		}
	}

	if h.capture != nil {
		h.errs = append(h.errs, &LineError{Line: h.capture.occ.Line, Err: errUnclosedMarkup})
	}

	return h.occs, errors.Join(h.errs...)
}

func (h *htmlScan) currentContext() string {
	if len(h.contexts) == 0 {
		return h.fallback
	}

	return h.contexts[len(h.contexts)-1]
}

func (h *htmlScan) start(tok html.Token, selfClosing bool, raw []byte, line int) {
	opens := !selfClosing && !voidElements[tok.Data]

	if h.capture != nil {
		h.capture.inner.Write(raw)

		if opens {
			h.capture.depth++
			h.contexts = append(h.contexts, h.currentContext())
		}

		return
	}

	ctx := h.currentContext()

	var (
		marker         string
		marked, plural bool
	)

	for _, a := range tok.Attr {
		switch a.Key {
		case attrContext:
			if a.Val != "" {
				ctx = a.Val
			}
		case attrI18n:
			marker, marked = a.Val, true
		case attrPlural:
			plural = true
		}
	}

	if opens {
		h.contexts = append(h.contexts, ctx)
	}

	if !marked {
		return
	}

	meaning, description, _ := strings.Cut(marker, "|")
	occ := Occurrence{
		Context:        ctx,
		Disambiguation: strings.TrimSpace(meaning),
		ExtraComment:   strings.TrimSpace(description),
		Plural:         plural,
		Line:           line,
		Column:         1,
	}

	if !opens {
		h.errs = append(h.errs, &LineError{Line: line, Err: errEmptyMessage})

		return
	}

	h.capture = &htmlCapture{occ: occ, depth: 1}
}

func (h *htmlScan) end(raw []byte) {
	if len(h.contexts) > 0 {
		h.contexts = h.contexts[:len(h.contexts)-1]
	}

	c := h.capture
	if c == nil {
		return
	}

	c.depth--
	if c.depth > 0 {
		c.inner.Write(raw)

		return
	}

	h.capture = nil

	source := strings.Join(strings.Fields(c.inner.String()), " ")
	if source == "" {
		h.errs = append(h.errs, &LineError{Line: c.occ.Line, Err: errEmptyMessage})

		return
	}

	c.occ.Source = source
	h.occs = append(h.occs, c.occ)
}
