// Package pdftext pulls the source material for generation out of a PDF.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	rpdf "rsc.io/pdf"
)

// ErrNoText means none of the sampled pages carried a text layer.
var ErrNoText = errors.New("pdftext: no extractable text")

const (
	leadingPages  = 5
	trailingPages = 2
)

// Document is the sampled text of a PDF.
type Document struct {
	Pages   int
	Sampled []int
	Text    string
}

// SamplePages returns the 1-based pages read from an n-page document: the
// first five and the last two, without duplicates.
func SamplePages(n int) []int {
	seen := map[int]bool{}
	var out []int
	add := func(p int) {
		if p >= 1 && p <= n && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for p := 1; p <= leadingPages; p++ {
		add(p)
	}
	for p := n - trailingPages + 1; p <= n; p++ {
		add(p)
	}
	return out
}

// Extract reads the sampled pages of a PDF held in memory, one line of
// output per page.
func Extract(data []byte) (doc Document, err error) {
	defer func() {
		// rsc.io/pdf panics on malformed content streams.
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("open pdf: %w", err)
	}
	doc.Pages = r.NumPage()
	doc.Sampled = SamplePages(doc.Pages)

	var b strings.Builder
	for _, n := range doc.Sampled {
		p := r.Page(n)
		if p.V.IsNull() {
			continue
		}
		b.WriteString(joinText(p.Content().Text))
		b.WriteString("\n")
	}
	doc.Text = b.String()
	if strings.TrimSpace(doc.Text) == "" {
		return doc, ErrNoText
	}
	return doc, nil
}

// joinText assembles positioned glyph runs into words. A jump to another
// baseline or a gap wider than a fifth of the font size becomes a space.
func joinText(items []rpdf.Text) string {
	var b strings.Builder
	var prev *rpdf.Text
	for i := range items {
		t := &items[i]
		if prev != nil {
			size := math.Max(prev.FontSize, 1)
			if math.Abs(t.Y-prev.Y) > size*0.5 || t.X-(prev.X+prev.W) > size*0.2 {
				b.WriteString(" ")
			}
		}
		b.WriteString(t.S)
		prev = t
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
