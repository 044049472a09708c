package token

import (
	"strings"
	"unicode"
)

// Span is the byte range of one placeholder occurrence in the source HTML,
// from its first '{' to its last '}'.
//
// A placeholder can straddle inline markup. Tags inside the span that are not
// closed (or opened) within it are reported in Close and Open so a caller
// replacing the span can keep the surrounding markup balanced.
type Span struct {
	Start int
	End   int
	Close string
	Open  string
}

func isGap(r rune) bool { return unicode.IsSpace(r) || r == '\u00a0' }

func isKeyRune(r rune) bool {
	return r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// matchAt tries to read "{{ KEY }}" starting at runs[i]. It returns the
// upper-cased key and the index of the closing brace.
func (d *Doc) matchAt(i int) (string, int, bool) {
	n := len(d.runs)
	skip := func(j int) int {
		for j < n && isGap(d.runs[j].r) {
			j++
		}
		return j
	}
	expect := func(j int, r rune) bool { return j < n && d.runs[j].r == r }

	j := i
	if !expect(j, '{') {
		return "", 0, false
	}
	j = skip(j + 1)
	if !expect(j, '{') {
		return "", 0, false
	}
	j = skip(j + 1)
	var key strings.Builder
	for j < n && isKeyRune(d.runs[j].r) {
		key.WriteRune(d.runs[j].r)
		j++
	}
	if key.Len() == 0 {
		return "", 0, false
	}
	j = skip(j)
	if !expect(j, '}') {
		return "", 0, false
	}
	j = skip(j + 1)
	if !expect(j, '}') {
		return "", 0, false
	}
	return strings.ToUpper(key.String()), j, true
}

type occurrence struct {
	key        string
	first, last int
}

// occurrences lists the placeholders outside data-block elements. Text
// inside a block is filled content, so braces there are not slots.
func (d *Doc) occurrences() []occurrence {
	blocks := d.Blocks(nil)
	inBlock := func(pos int) bool {
		for _, b := range blocks {
			if pos >= b.Start && pos < b.End {
				return true
			}
		}
		return false
	}

	var out []occurrence
	for i := 0; i < len(d.runs); i++ {
		if d.runs[i].r != '{' {
			continue
		}
		key, last, ok := d.matchAt(i)
		if !ok {
			continue
		}
		if !inBlock(d.runs[i].start) && !inBlock(d.runs[last].start) {
			out = append(out, occurrence{key: key, first: i, last: last})
		}
		i = last
	}
	return out
}

// Keys returns the distinct upper-cased placeholder keys in first-seen order.
func (d *Doc) Keys() []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range d.occurrences() {
		if !seen[o.key] {
			seen[o.key] = true
			out = append(out, o.key)
		}
	}
	return out
}

// Locate returns the spans of every placeholder for key, case-insensitively.
func (d *Doc) Locate(key string) []Span {
	key = strings.ToUpper(strings.TrimSpace(key))
	var out []Span
	for _, o := range d.occurrences() {
		if o.key != key {
			continue
		}
		sp := Span{Start: d.runs[o.first].start, End: d.runs[o.last].end}
		sp.Close, sp.Open = d.residue(sp.Start, sp.End)
		out = append(out, sp)
	}
	return out
}

// residue lists the tags inside [start,end) that do not pair up within it.
func (d *Doc) residue(start, end int) (string, string) {
	var closes []string
	var opens []Tag
	for _, t := range d.Tags {
		if t.Start < start || t.End > end {
			continue
		}
		switch t.Kind {
		case Open:
			opens = append(opens, t)
		case Close:
			matched := false
			for k := len(opens) - 1; k >= 0; k-- {
				if opens[k].Name == t.Name {
					opens = append(opens[:k], opens[k+1:]...)
					matched = true
					break
				}
			}
			if !matched {
				closes = append(closes, d.Source[t.Start:t.End])
			}
		}
	}
	var open strings.Builder
	for _, t := range opens {
		open.WriteString(d.Source[t.Start:t.End])
	}
	return strings.Join(closes, ""), open.String()
}

// Extract returns the distinct upper-cased keys of every {{KEY}} placeholder
// in html. Malformed input yields an empty result.
func Extract(html string) []string {
	return Scan(html).Keys()
}

// Locate is Scan(html).Locate(key).
func Locate(html, key string) []Span {
	return Scan(html).Locate(key)
}

// Replace substitutes every placeholder for key with repl, keeping straddled
// markup balanced. It reports whether anything was replaced.
func Replace(html, key, repl string) (string, bool) {
	spans := Locate(html, key)
	if len(spans) == 0 {
		return html, false
	}
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(html[prev:sp.Start])
		b.WriteString(sp.Close)
		b.WriteString(repl)
		b.WriteString(sp.Open)
		prev = sp.End
	}
	b.WriteString(html[prev:])
	return b.String(), true
}

var templateCleaner = strings.NewReplacer(
	"&lcub;", "{",
	"&rcub;", "}",
	"&#123;", "{",
	"&#125;", "}",
	"\u00a0", " ",
	"&nbsp;", " ",
	"\x00", "",
)

// NormalizeTemplate tidies freshly converted template HTML: brace entities
// become braces, non-breaking spaces become spaces and NUL bytes are dropped.
func NormalizeTemplate(html string) string {
	return templateCleaner.Replace(html)
}
