// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package scanner

import (
	"bytes"
	"errors"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// goString matches an interpreted or raw Go string literal.
const goString = `"(?:[^"\\\n]|\\.)*"|` + "`[^`]*`"

// tmplCall matches {{tr "src"}}, {{trc "dis" "src"}}, {{trn "src" .N}} and
// {{trnc "dis" "src" .N}}, with optional trim markers.
var tmplCall = regexp.MustCompile(`\{\{-?\s*(trnc|trn|trc|tr)\s+(` + goString + `)(?:\s+(` + goString + `))?`)

// TemplateExtractor extracts messages from Go html/template and text/template files.
// The context is the file name without its extension.
type TemplateExtractor struct{}

func (TemplateExtractor) Name() string { return "template" }

func (TemplateExtractor) Extensions() []string { return []string{".tmpl", ".gohtml"} }

func (TemplateExtractor) Extract(filename string, src []byte) ([]Occurrence, error) {
	context := contextFromFile(filename)

	var (
		occs []Occurrence
		errs []error
	)

	for _, m := range tmplCall.FindAllSubmatchIndex(src, -1) {
		line, col := position(src, m[0])
		fn := string(src[m[2]:m[3]])

		first, err := strconv.Unquote(string(src[m[4]:m[5]]))
		if err != nil {
			errs = append(errs, &LineError{Line: line, Err: err})

			continue
		}

		occ := Occurrence{
			Context: context,
			Source:  first,
			Plural:  strings.HasPrefix(fn, "trn"),
			Line:    line,
			Column:  col,
		}

		if fn == "trc" || fn == "trnc" {
			if m[6] < 0 {
				errs = append(errs, &LineError{Line: line, Err: ErrNonConstant})

				continue
			}

			second, err := strconv.Unquote(string(src[m[6]:m[7]]))
			if err != nil {
				errs = append(errs, &LineError{Line: line, Err: err})

				continue
			}

			occ.Disambiguation, occ.Source = first, second
		}

		occs = append(occs, occ)
	}

	return occs, errors.Join(errs...)
}

// contextFromFile derives a context name from a file's base name.
func contextFromFile(filename string) string {
	base := path.Base(filename)
	if name := strings.TrimSuffix(base, path.Ext(base)); name != "" {
		return name
	}

	return base
}

// position converts a byte offset into a 1-based line and column.
func position(src []byte, offset int) (line, col int) {
	line = 1 + bytes.Count(src[:offset], []byte{'\n'})
	col = offset - bytes.LastIndexByte(src[:offset], '\n')

	return line, col
}
