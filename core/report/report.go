// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package report renders validation reports for people and CI systems.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"codeberg.org/lingosync/lingosync/core/validate"
)

// Output formats.
const (
	Text   = "text"
	JSON   = "json"
	YAML   = "yaml"
	GitHub = "github"
)

// ErrUnknownFormat is returned for an unsupported report format.
var ErrUnknownFormat = errors.New("unknown report format")

type writeFunc func(w io.Writer, r *validate.Report) error

var writers = map[string]writeFunc{
	Text:   writeText,
	JSON:   writeJSON,
	YAML:   writeYAML,
	GitHub: writeGitHub,
}

// Formats lists the supported formats, sorted.
func Formats() []string {
	out := make([]string, 0, len(writers))
	for name := range writers {
		out = append(out, name)
	}

	slices.Sort(out)

	return out
}

// Supported reports whether format names a known output format.
func Supported(format string) bool {
	_, ok := writers[format]

	return ok
}

// Write renders r to w in format.
func Write(w io.Writer, format string, r *validate.Report) error {
	fn, ok := writers[format]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if r == nil {
		r = &validate.Report{}
	}

	return fn(w, r)
}

// WriteFile renders r into path, replacing the file atomically.
func WriteFile(path, format string, r *validate.Report) error {
	var buf bytes.Buffer
	if err := Write(&buf, format, r); err != nil {
		return err
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}

	return nil
}

func writeText(w io.Writer, r *validate.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, f := range r.Findings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.Locale, f.Severity, f.Kind, entryName(&f), position(&f), f.Detail)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%s: %s, %s\n",
		plural(len(r.Findings), "finding"),
		plural(r.Count(validate.SeverityError), "error"),
		plural(r.Count(validate.SeverityWarning), "warning"))

	return err
}

func writeJSON(w io.Writer, r *validate.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	out := *r
	if out.Findings == nil {
		out.Findings = []validate.Finding{}
	}

	return enc.Encode(&out)
}

func writeYAML(w io.Writer, r *validate.Report) error {
	b, err := yaml.MarshalWithOptions(r, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = w.Write(b)

	return err
}

// writeGitHub prints workflow commands that GitHub Actions turns into annotations.
func writeGitHub(w io.Writer, r *validate.Report) error {
	for _, f := range r.Findings {
		level := "warning"
		if f.Severity == validate.SeverityError {
			level = "error"
		}

		var props []string
		if f.File != "" {
			props = append(props, "file="+escapeProperty(f.File))

			if f.Line > 0 {
				props = append(props, "line="+strconv.Itoa(f.Line))
			}
		}

		props = append(props, "title="+escapeProperty(string(f.Kind)))

		msg := "[" + f.Locale + "] " + entryName(&f) + ": " + f.Detail
		if _, err := fmt.Fprintf(w, "::%s %s::%s\n", level, strings.Join(props, ","), escapeData(msg)); err != nil {
			return err
		}
	}

	return nil
}

var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

func escapeData(s string) string { return dataEscaper.Replace(s) }

func escapeProperty(s string) string { return propertyEscaper.Replace(s) }

func entryName(f *validate.Finding) string {
	if f.Source == "" && f.Context == "" {
		return "-"
	}

	name := f.Context + " " + strconv.Quote(f.Source)
	if f.Disambiguation != "" {
		name += " (" + strconv.Quote(f.Disambiguation) + ")"
	}

	return name
}

func position(f *validate.Finding) string {
	switch {
	case f.File == "":
		return "-"
	case f.Line > 0:
		return f.File + ":" + strconv.Itoa(f.Line)
	default:
		return f.File
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return strconv.Itoa(n) + " " + noun + "s"
}
