package bridge

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// NewPolicy allows what the editor and the reconciler produce: user-generated
// content markup plus data-block ids, inline styles and classes.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataAttributes()
	p.AllowAttrs("style", "class").Globally()
	return p
}

// ChangeStats counts the markup lines added and removed between two
// snapshots. Tags are split onto their own lines first so a single-line
// document still diffs usefully.
func ChangeStats(before, after string) (added, removed int) {
	split := func(s string) string { return strings.ReplaceAll(s, ">", ">\n") }
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(split(before), split(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if !strings.HasSuffix(d.Text, "\n") {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}
