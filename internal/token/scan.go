// Package token finds {{KEY}} placeholders in converted template HTML.
//
// Matching runs over the document's text nodes rather than its serialized
// markup, so a placeholder split across inline tags by the DOCX converter
// (for example "{{<strong>TITLE</strong>}}") is still recognized. Every
// recognized character keeps its byte span in the source, which lets callers
// splice replacements into the original HTML without re-serializing it.
package token

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

type TagKind int

const (
	Open TagKind = iota
	Close
	Void
)

// Tag is one start or end tag of the scanned document.
type Tag struct {
	Name  string
	Kind  TagKind
	Start int
	End   int
	// Block is the value of the data-block attribute, if any.
	Block string
}

type run struct {
	r          rune
	start, end int
}

// Doc is the scanned form of an HTML string: decoded text runs and tags,
// both addressed by byte offsets into Source.
type Doc struct {
	Source string
	Tags   []Tag
	runs   []run
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

// Scan tokenizes src. It never fails: whatever the tokenizer cannot make
// sense of is simply not part of the text stream.
func Scan(src string) *Doc {
	d := &Doc{Source: src}
	z := html.NewTokenizer(strings.NewReader(src))
	off := 0
	rawText := ""
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return d
		}
		raw := z.Raw()
		start, end := off, off+len(raw)
		off = end

		switch tt {
		case html.TextToken:
			if rawText != "" {
				continue
			}
			d.decodeText(start, end)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := Tag{Name: string(name), Kind: Open, Start: start, End: end}
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				if string(k) == "data-block" {
					tag.Block = string(v)
				}
			}
			if tt == html.SelfClosingTagToken || voidElements[tag.Name] {
				tag.Kind = Void
			} else if tag.Name == "script" || tag.Name == "style" {
				rawText = tag.Name
			}
			d.Tags = append(d.Tags, tag)
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == rawText {
				rawText = ""
			}
			d.Tags = append(d.Tags, Tag{Name: string(name), Kind: Close, Start: start, End: end})
		}
	}
}

// decodeText appends the runes of src[start:end], resolving character
// references. A decoded reference keeps the span of the whole reference.
func (d *Doc) decodeText(start, end int) {
	s := d.Source
	i := start
	for i < end {
		if s[i] == '&' {
			if j := entityEnd(s, i, end); j > 0 {
				dec := html.UnescapeString(s[i:j])
				if dec != s[i:j] {
					for _, r := range dec {
						d.runs = append(d.runs, run{r: r, start: i, end: j})
					}
					i = j
					continue
				}
			}
		}
		r, size := utf8.DecodeRuneInString(s[i:end])
		d.runs = append(d.runs, run{r: r, start: i, end: i + size})
		i += size
	}
}

// entityEnd returns the offset just past the ';' of a reference starting at
// i, or -1 when s[i:] does not look like one.
func entityEnd(s string, i, end int) int {
	limit := i + 40
	if limit > end {
		limit = end
	}
	for j := i + 1; j < limit; j++ {
		c := s[j]
		switch {
		case c == ';':
			if j == i+1 {
				return -1
			}
			return j + 1
		case c == '#' && j == i+1:
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return -1
		}
	}
	return -1
}

// Region is the byte range of one element tagged with data-block, from its
// start tag through its matching end tag.
type Region struct {
	Start int
	End   int
	Block string
}

// Blocks returns the outermost data-block elements whose identifier
// satisfies match, in document order. A nil match accepts every block. An
// element with no matching end tag covers only its start tag.
func (d *Doc) Blocks(match func(block string) bool) []Region {
	var out []Region
	limit := -1
	for i, t := range d.Tags {
		if t.Kind != Open || t.Block == "" || t.Start < limit {
			continue
		}
		if match != nil && !match(t.Block) {
			continue
		}
		r := Region{Start: t.Start, End: t.End, Block: t.Block}
		depth := 1
		for _, u := range d.Tags[i+1:] {
			if u.Name != t.Name {
				continue
			}
			if u.Kind == Open {
				depth++
			} else if u.Kind == Close {
				depth--
			}
			if depth == 0 {
				r.End = u.End
				break
			}
		}
		out = append(out, r)
		limit = r.End
	}
	return out
}

// Text returns the decoded text content of the document.
func (d *Doc) Text() string {
	var b strings.Builder
	for _, r := range d.runs {
		b.WriteRune(r.r)
	}
	return b.String()
}
