// Package reconcile merges normalized patches into document HTML.
//
// Every field the model can address lives in the document either as a
// literal {{KEY}} placeholder or as an element tagged data-block="KEY".
// Reconciliation only ever touches those regions.
package reconcile

import (
	"regexp"
	"strings"

	"github.com/thywilljoshua/repot-ai/internal/patch"
	"github.com/thywilljoshua/repot-ai/internal/token"
)

// Spacer separates appended blocks from the content above them.
const Spacer = `<div style="margin-top:18px;"></div>`

// Result is the reconciled document and the block to bring into view.
type Result struct {
	HTML  string
	Focus string
}

var (
	slashParagraphRe = regexp.MustCompile(`(?i)<p[^>]*>\s*/\s*</p>`)
	slashDivRe       = regexp.MustCompile(`(?i)<div[^>]*>\s*/\s*</div>`)
	brRunRe          = regexp.MustCompile(`(?i)(<br\s*/?>\s*){4,}`)
)

// Cleanup drops paragraphs and divs holding nothing but a slash and
// collapses runs of four or more line breaks into two.
func Cleanup(s string) string {
	s = slashParagraphRe.ReplaceAllString(s, "")
	s = slashDivRe.ReplaceAllString(s, "")
	return brRunRe.ReplaceAllString(s, "<br/><br/>")
}

func blocks(src, key string) []token.Region {
	return token.Scan(src).Blocks(func(b string) bool {
		return strings.EqualFold(strings.TrimSpace(b), key)
	})
}

// BlockKeys counts the outermost data-block elements of src per identifier.
func BlockKeys(src string) map[string]int {
	out := map[string]int{}
	for _, r := range token.Scan(src).Blocks(nil) {
		out[strings.ToUpper(strings.TrimSpace(r.Block))]++
	}
	return out
}

// splice replaces every region of src with repl.
func splice(src string, regions []token.Region, repl string) string {
	var b strings.Builder
	prev := 0
	for _, r := range regions {
		b.WriteString(src[prev:r.Start])
		b.WriteString(repl)
		prev = r.End
	}
	b.WriteString(src[prev:])
	return b.String()
}

// Delete removes every block and every literal placeholder for key.
func Delete(src, key string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	src = splice(src, blocks(src, key), "")
	src, _ = token.Replace(src, key, "")
	return Cleanup(src)
}

// Upsert places rendered markup for key: at its placeholders when any are
// left, else over its existing blocks, else at the end of the document after
// a spacer. A key never gains more blocks than it had placeholders.
func Upsert(src, key, rendered string) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	if out, ok := token.Replace(src, key, rendered); ok {
		return Cleanup(out)
	}
	if spans := blocks(src, key); len(spans) > 0 {
		return Cleanup(splice(src, spans, rendered))
	}
	return Cleanup(src + Spacer + rendered)
}

// Apply runs the patch against src: deletions first, then upserts in patch
// order. Focus is focus when given, else the first upserted key, else the
// first deleted key.
func Apply(src string, p *patch.Patch, focus string) Result {
	if p == nil {
		return Result{HTML: src, Focus: focus}
	}
	for _, k := range p.Delete {
		src = Delete(src, k)
	}
	keys := p.Keys()
	for _, k := range keys {
		v, _ := p.Value(k)
		src = Upsert(src, k, Render(k, v))
	}

	if focus == "" {
		switch {
		case len(keys) > 0:
			focus = keys[0]
		case len(p.Delete) > 0:
			focus = p.Delete[0]
		}
	}
	return Result{HTML: src, Focus: focus}
}
