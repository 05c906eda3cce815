// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package po implements the GNU gettext PO catalog format.
//
// The catalog context and disambiguation share msgctxt as "Context|disambiguation";
// "|" and "\" inside the context part are escaped with a backslash. Fuzzy
// entries carry the fuzzy flag and a "#| msgid" line with the previous source.
// Unfinished entries that already hold text carry an "unfinished" flag.
// Retired entries are written with the "#~" prefix.
//
// Importing the package registers the codec with [format.Default].
package po

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"codeberg.org/lingosync/lingosync/core/catalog"
	"codeberg.org/lingosync/lingosync/core/format"
	"codeberg.org/lingosync/lingosync/core/plural"
)

// Name is the codec name.
const Name = "po"

// Flags written by the codec.
const (
	flagFuzzy      = "fuzzy"
	flagUnfinished = "unfinished"
)

// Header fields.
const (
	headerLanguage       = "Language"
	headerSourceLanguage = "X-Source-Language"
	headerPluralForms    = "Plural-Forms"
)

var (
	errUnexpectedLine = errors.New("unexpected line")
	errNoContext      = errors.New("entry has no msgctxt")
	errNoMsgid        = errors.New("entry has no msgid")
	errNoMsgstr       = errors.New("entry has no msgstr")
	errPluralIndex    = errors.New("msgstr indexes are not contiguous from 0")
	errMixedMsgstr    = errors.New("entry mixes msgstr and msgstr[n]")
)

func init() {
	if err := format.Default().Register(Codec{}); err != nil {
		panic(err)
	}
}

// Codec is the PO format. Resolver supplies the Plural-Forms header and
// defaults to [plural.Default].
type Codec struct {
	Resolver *plural.Resolver
}

func (Codec) Name() string { return Name }

func (Codec) Extensions() []string { return []string{".po"} }

// Encode writes c as a PO document.
func (c Codec) Encode(w io.Writer, cat *catalog.Catalog) error {
	bw := bufio.NewWriter(w)

	writeField(bw, "", "msgid", "")
	writeField(bw, "", "msgstr", c.header(cat))

	for _, ctx := range cat.Contexts() {
		for _, e := range ctx.Entries() {
			bw.WriteString("\n")
			writeEntry(bw, ctx.Name(), &e)
		}
	}

	return bw.Flush()
}

func (c Codec) header(cat *catalog.Catalog) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s\n", headerLanguage, cat.Language)
	fmt.Fprintf(&b, "%s: %s\n", headerSourceLanguage, cat.SourceLanguage)
	b.WriteString("MIME-Version: 1.0\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\n")

	resolver := c.Resolver
	if resolver == nil {
		resolver = plural.Default()
	}

	if rule, err := resolver.Resolve(cat.Language); err == nil {
		fmt.Fprintf(&b, "%s: %s\n", headerPluralForms, rule.Header())
	}

	return b.String()
}

func writeEntry(w *bufio.Writer, context string, e *catalog.Entry) {
	writeComment(w, "#", e.TranslatorComment)
	writeComment(w, "#.", e.ExtraComment)

	for _, loc := range e.Locations {
		w.WriteString("#: " + loc.String() + "\n")
	}

	switch {
	case e.Status == catalog.Fuzzy:
		w.WriteString("#, " + flagFuzzy + "\n")
		w.WriteString("#| msgid " + quote(e.PreviousSource) + "\n")
	case e.Status == catalog.Unfinished && e.HasTranslation():
		w.WriteString("#, " + flagUnfinished + "\n")
	}

	prefix := ""
	if e.Status.IsRetired() {
		prefix = "#~ "
	}

	writeField(w, prefix, "msgctxt", joinContext(context, e.Disambiguation))
	writeField(w, prefix, "msgid", e.Source)

	if !e.Plural {
		writeField(w, prefix, "msgstr", e.Translation())

		return
	}

	writeField(w, prefix, "msgid_plural", e.Source)

	for i, form := range e.Translations {
		writeField(w, prefix, "msgstr["+strconv.Itoa(i)+"]", form)
	}
}

// writeComment writes text as comment lines, one per line of text.
func writeComment(w *bufio.Writer, marker, text string) {
	if text == "" {
		return
	}

	for line := range strings.SplitSeq(text, "\n") {
		if line == "" {
			w.WriteString(marker + "\n")
		} else {
			w.WriteString(marker + " " + line + "\n")
		}
	}
}

// writeField writes a PO keyword with proper multiline quoting.
func writeField(w *bufio.Writer, prefix, keyword, value string) {
	if !strings.Contains(value, "\n") {
		w.WriteString(prefix + keyword + " " + quote(value) + "\n")

		return
	}

	w.WriteString(prefix + keyword + " \"\"\n")

	parts := strings.Split(value, "\n")
	for i, part := range parts {
		switch {
		case i < len(parts)-1:
			w.WriteString(prefix + quote(part+"\n") + "\n")
		case part != "":
			w.WriteString(prefix + quote(part) + "\n")
		}
	}
}

// joinContext builds msgctxt from a context name and a disambiguation.
func joinContext(context, disambiguation string) string {
	s := strings.ReplaceAll(context, `\`, `\\`)
	s = strings.ReplaceAll(s, `|`, `\|`)

	if disambiguation != "" {
		s += "|" + disambiguation
	}

	return s
}

// splitContext is the inverse of the msgctxt encoding.
func splitContext(msgctxt string) (context, disambiguation string) {
	var b strings.Builder

	for i := 0; i < len(msgctxt); i++ {
		switch c := msgctxt[i]; {
		case c == '\\' && i+1 < len(msgctxt):
			i++
			b.WriteByte(msgctxt[i])
		case c == '|':
			return b.String(), msgctxt[i+1:]
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), ""
}

// quote produces a PO-style quoted string.
func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)

var errBadQuoting = errors.New("malformed quoted string")

// unquote removes PO-style quoting from a string.
func unquote(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("%w: %s", errBadQuoting, s)
	}

	s = s[1 : len(s)-1]

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]

		if c == '"' {
			return "", fmt.Errorf("%w: unescaped quote", errBadQuoting)
		}

		if c != '\\' {
			b.WriteByte(c)

			continue
		}

		if i+1 == len(s) {
			return "", fmt.Errorf("%w: trailing backslash", errBadQuoting)
		}

		i++

		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '"':
			b.WriteByte(s[i])
		default:
			return "", fmt.Errorf("%w: unknown escape \\%c", errBadQuoting, s[i])
		}
	}

	return b.String(), nil
}

// rawEntry collects the lines of one PO entry before it is converted.
type rawEntry struct {
	line int

	translator []string
	extracted  []string
	references []string
	flags      []string
	previous   *string

	obsolete    bool
	msgctxt     *string
	msgid       *string
	msgidPlural *string
	msgstr      *string
	msgstrN     map[int]*string

	// current is the field continuation lines append to.
	current *string
}

func (re *rawEntry) empty() bool {
	return re.line == 0
}

// Decode reads a whole PO document. No catalog is returned on error.
func (Codec) Decode(r io.Reader) (*catalog.Catalog, error) {
	d := &decoder{}

	if err := d.parse(r); err != nil {
		var pe *format.CatalogParseError
		if errors.As(err, &pe) {
			return nil, pe
		}

		return nil, &format.CatalogParseError{Format: Name, Line: d.line, Err: err}
	}

	return d.b.Build(), nil
}

type decoder struct {
	b     *catalog.Builder
	line  int
	entry rawEntry
}

func (d *decoder) parse(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for sc.Scan() {
		d.line++

		if err := d.parseLine(strings.TrimRight(sc.Text(), "\r")); err != nil {
			return err
		}
	}

	if err := sc.Err(); err != nil {
		return err
	}

	if err := d.flush(); err != nil {
		return err
	}

	if d.b == nil {
		d.b = catalog.NewBuilder("", "")
	}

	return nil
}

func (d *decoder) parseLine(line string) error {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return d.flush()
	}

	if d.entry.empty() {
		d.entry = rawEntry{line: d.line}
	}

	re := &d.entry

	switch {
	case strings.HasPrefix(trimmed, "#~|"), strings.HasPrefix(trimmed, "#|"):
		rest := strings.TrimPrefix(strings.TrimPrefix(trimmed, "#~|"), "#|")
		rest = strings.TrimSpace(rest)

		if strings.HasPrefix(rest, `"`) {
			if re.previous == nil || re.current != re.previous {
				return fmt.Errorf("%w: %s", errUnexpectedLine, trimmed)
			}

			return appendContinuation(re.previous, rest)
		}

		value, ok := strings.CutPrefix(rest, "msgid ")
		if !ok {
			// Previous msgctxt and msgid_plural lines are not tracked.
			re.current = nil

			return nil
		}

		s, err := unquote(value)
		if err != nil {
			return err
		}

		re.previous = &s
		re.current = re.previous

		return nil
	case strings.HasPrefix(trimmed, "#~"):
		re.obsolete = true

		return d.keyword(strings.TrimSpace(trimmed[2:]))
	case strings.HasPrefix(trimmed, "#,"):
		for f := range strings.SplitSeq(trimmed[2:], ",") {
			if f = strings.TrimSpace(f); f != "" {
				re.flags = append(re.flags, f)
			}
		}

		return nil
	case strings.HasPrefix(trimmed, "#:"):
		re.references = append(re.references, strings.TrimSpace(trimmed[2:]))

		return nil
	case strings.HasPrefix(trimmed, "#."):
		re.extracted = append(re.extracted, commentText(line, "#."))

		return nil
	case strings.HasPrefix(trimmed, "#"):
		re.translator = append(re.translator, commentText(line, "#"))

		return nil
	}

	return d.keyword(trimmed)
}

// commentText strips marker and the single space after it, keeping the rest verbatim.
func commentText(line, marker string) string {
	_, rest, _ := strings.Cut(line, marker)

	return strings.TrimPrefix(rest, " ")
}

func appendContinuation(dst *string, s string) error {
	v, err := unquote(s)
	if err != nil {
		return err
	}

	*dst += v

	return nil
}

func (d *decoder) keyword(s string) error {
	re := &d.entry

	if strings.HasPrefix(s, `"`) {
		if re.current == nil {
			return fmt.Errorf("%w: %s", errUnexpectedLine, s)
		}

		return appendContinuation(re.current, s)
	}

	key, value, ok := strings.Cut(s, " ")
	if !ok {
		return fmt.Errorf("%w: %s", errUnexpectedLine, s)
	}

	v, err := unquote(value)
	if err != nil {
		return err
	}

	switch {
	case key == "msgctxt":
		re.msgctxt = &v
	case key == "msgid":
		re.msgid = &v
	case key == "msgid_plural":
		re.msgidPlural = &v
	case key == "msgstr":
		if re.msgstrN != nil {
			return errMixedMsgstr
		}

		re.msgstr = &v
	case strings.HasPrefix(key, "msgstr[") && strings.HasSuffix(key, "]"):
		if re.msgstr != nil {
			return errMixedMsgstr
		}

		n, err := strconv.Atoi(key[len("msgstr[") : len(key)-1])
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s", errUnexpectedLine, s)
		}

		if re.msgstrN == nil {
			re.msgstrN = make(map[int]*string)
		}

		re.msgstrN[n] = &v
	default:
		return fmt.Errorf("%w: %s", errUnexpectedLine, s)
	}

	re.current = &v

	return nil
}

// flush converts the collected entry, if any.
func (d *decoder) flush() error {
	re := d.entry
	d.entry = rawEntry{}

	if re.empty() {
		return nil
	}

	if re.msgid == nil {
		// A block of comments only.
		if re.msgctxt == nil && re.msgstr == nil && re.msgstrN == nil && re.msgidPlural == nil {
			return nil
		}

		return d.entryError(&re, "", errNoMsgid)
	}

	if d.b == nil {
		if re.msgctxt == nil && *re.msgid == "" && !re.obsolete {
			d.b = header(re.msgstr)

			return nil
		}

		d.b = catalog.NewBuilder("", "")
	}

	if re.msgctxt == nil {
		return d.entryError(&re, "", errNoContext)
	}

	context, disambiguation := splitContext(*re.msgctxt)

	e := catalog.Entry{
		Source:            *re.msgid,
		Disambiguation:    disambiguation,
		ExtraComment:      strings.Join(re.extracted, "\n"),
		TranslatorComment: strings.Join(re.translator, "\n"),
		Plural:            re.msgidPlural != nil,
	}

	for _, ref := range re.references {
		e.Locations = append(e.Locations, parseReference(ref))
	}

	if e.Plural {
		if re.msgstrN == nil {
			return d.entryError(&re, context, errNoMsgstr)
		}

		e.Translations = make([]string, len(re.msgstrN))

		for i := range e.Translations {
			s, ok := re.msgstrN[i]
			if !ok {
				return d.entryError(&re, context, errPluralIndex)
			}

			e.Translations[i] = *s
		}
	} else {
		if re.msgstr == nil {
			return d.entryError(&re, context, errNoMsgstr)
		}

		e.Translations = []string{*re.msgstr}
	}

	switch {
	case re.obsolete && e.HasTranslation():
		e.Status = catalog.Vanished
	case re.obsolete:
		e.Status = catalog.Obsolete
	case slices.Contains(re.flags, flagFuzzy):
		e.Status = catalog.Fuzzy
		if re.previous != nil {
			e.PreviousSource = *re.previous
		}
	case slices.Contains(re.flags, flagUnfinished), !e.HasTranslation():
		e.Status = catalog.Unfinished
	default:
		e.Status = catalog.Finished
	}

	if err := d.b.Restore(context, e); err != nil {
		return d.entryError(&re, context, err)
	}

	return nil
}

func (d *decoder) entryError(re *rawEntry, context string, err error) error {
	pe := &format.CatalogParseError{Format: Name, Line: re.line, Err: err}

	if re.msgid != nil {
		pe.Entry = context + "/" + catalog.Key{Source: *re.msgid}.String()
	}

	return pe
}

// header starts a builder from the header entry's msgstr.
func header(msgstr *string) *catalog.Builder {
	var language, sourceLanguage string

	if msgstr != nil {
		for line := range strings.SplitSeq(*msgstr, "\n") {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}

			switch strings.TrimSpace(key) {
			case headerLanguage:
				language = strings.TrimSpace(value)
			case headerSourceLanguage:
				sourceLanguage = strings.TrimSpace(value)
			}
		}
	}

	return catalog.NewBuilder(sourceLanguage, language)
}

// parseReference splits "file:line"; references without a numeric suffix are file-only.
func parseReference(ref string) catalog.Location {
	i := strings.LastIndexByte(ref, ':')
	if i < 0 {
		return catalog.Location{File: ref}
	}

	n, err := strconv.Atoi(ref[i+1:])
	if err != nil || n <= 0 {
		return catalog.Location{File: ref}
	}

	return catalog.Location{File: ref[:i], Line: n}
}
