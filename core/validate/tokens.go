// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

package validate

import (
	"regexp"
	"slices"
	"strings"
)

const countMarker = "%n"

// placeholderRegexp matches, in order of preference: an escaped percent sign,
// printf verbs with optional argument index, flags, width and precision, Qt
// count markers, Qt positional markers and template fields.
var placeholderRegexp = regexp.MustCompile(
	`%%` +
		`|%(?:\[\d+\])?[-+#0]*(?:\d+|\*)?(?:\.(?:\d+|\*))?(?:\[\d+\])?[vTtbcdoOqxXUeEfFgGsp]` +
		`|%L?n` +
		`|%L?[1-9][0-9]?` +
		`|\{\{-?\s*\.[A-Za-z_][A-Za-z0-9_.]*\s*-?\}\}`,
)

var templateFieldRegexp = regexp.MustCompile(`^\{\{-?\s*(\.[A-Za-z_][A-Za-z0-9_.]*)\s*-?\}\}$`)

// placeholders returns the distinct placeholder tokens of s in order of first
// appearance. %L1 is reported as %1 and {{ .Name }} as {{.Name}}.
func placeholders(s string) []string {
	var out []string

	for _, tok := range placeholderRegexp.FindAllString(s, -1) {
		tok = normalizePlaceholder(tok)
		if tok == "" || slices.Contains(out, tok) {
			continue
		}

		out = append(out, tok)
	}

	return out
}

func normalizePlaceholder(tok string) string {
	switch {
	case tok == "%%":
		return ""
	case strings.HasPrefix(tok, "%L"):
		return "%" + tok[2:]
	case strings.HasPrefix(tok, "{{"):
		if m := templateFieldRegexp.FindStringSubmatch(tok); m != nil {
			return "{{" + m[1] + "}}"
		}
	}

	return tok
}

var tagRegexp = regexp.MustCompile(`<(/?)([A-Za-z][A-Za-z0-9-]*)\b[^<>]*?(/?)>`)

var voidTags = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true, "meta": true,
	"link": true, "wbr": true, "source": true, "col": true, "area": true,
}

// markup describes the inline tags of a string.
type markup struct {
	// tags holds one name per opening or void tag, sorted.
	tags []string
	// problem is empty when every opening tag is closed in order.
	problem string
}

func scanMarkup(s string) markup {
	var (
		m     markup
		stack []string
	)

	for _, sub := range tagRegexp.FindAllStringSubmatch(s, -1) {
		closing, name, selfClosing := sub[1] == "/", strings.ToLower(sub[2]), sub[3] == "/"

		switch {
		case closing:
			if voidTags[name] {
				continue
			}

			if len(stack) == 0 || stack[len(stack)-1] != name {
				if m.problem == "" {
					m.problem = "unexpected </" + name + ">"
				}

				continue
			}

			stack = stack[:len(stack)-1]
		case selfClosing || voidTags[name]:
			m.tags = append(m.tags, name)
		default:
			m.tags = append(m.tags, name)
			stack = append(stack, name)
		}
	}

	if m.problem == "" && len(stack) > 0 {
		m.problem = "unclosed <" + stack[len(stack)-1] + ">"
	}

	slices.Sort(m.tags)

	return m
}
