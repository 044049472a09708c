package token

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "plain", in: "<p>{{TITLE}}</p><p>{{ body_1 }}</p>", want: []string{"TITLE", "BODY_1"}},
		{name: "dedupe upper", in: "<p>{{title}} and {{Title}}</p>", want: []string{"TITLE"}},
		{name: "split across markup", in: "<p>{<strong>{TI</strong>TLE}<em>}</em></p>", want: []string{"TITLE"}},
		{name: "nbsp gaps", in: "<p>{{&nbsp;COURSE&nbsp;}}</p><p>{{ DATE }}</p>", want: []string{"COURSE", "DATE"}},
		{name: "brace entities", in: "<p>&lcub;&lcub;TOPIC&rcub;&rcub;</p>", want: []string{"TOPIC"}},
		{name: "space between braces", in: "<p>{ {NOTES} }</p>", want: []string{"NOTES"}},
		{name: "not a key", in: "<p>{{ two words }}</p><p>{single}</p>", want: nil},
		{name: "script ignored", in: "<script>var x = '{{SECRET}}'</script><p>{{SHOWN}}</p>", want: []string{"SHOWN"}},
		{name: "malformed", in: "<p<<{{>>", want: nil},
		{name: "empty", in: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Extract(tt.in)); diff != "" {
				t.Errorf("Extract mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractExactlyDistinctKeys(t *testing.T) {
	src := `<h1>{{TITLE}}</h1><p>By {{STUDENT_NAME}} ({{student_id}})</p>` +
		`<table><tr><td>{{PAPER_1_1}}</td><td>{<span>{PAPER_1_2}</span>}</td></tr></table>` +
		`<p>{{TITLE}}</p>`
	want := []string{"TITLE", "STUDENT_NAME", "STUDENT_ID", "PAPER_1_1", "PAPER_1_2"}
	if diff := cmp.Diff(want, Extract(src)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestReplacePlain(t *testing.T) {
	got, ok := Replace("<p>Title: {{ title }}.</p>", "TITLE", "<b>X</b>")
	if !ok {
		t.Fatal("expected a replacement")
	}
	if want := "<p>Title: <b>X</b>.</p>"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReplaceKeepsMarkupBalanced(t *testing.T) {
	src := "<p><strong>{{TI</strong>TLE}}</p>"
	got, ok := Replace(src, "title", "NEW")
	if !ok {
		t.Fatal("expected a replacement")
	}
	if want := "<p><strong></strong>NEW</p>"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	src = "<p>{{<em>A</em>}} and {{A}}</p>"
	got, _ = Replace(src, "A", "1")
	if want := "<p>1 and 1</p>"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReplaceMissing(t *testing.T) {
	src := "<p>{{OTHER}}</p>"
	got, ok := Replace(src, "TITLE", "x")
	if ok || got != src {
		t.Errorf("unexpected replacement: %q", got)
	}
}

func TestScanTags(t *testing.T) {
	d := Scan(`<div data-block="TABLE_1"><table data-block="TABLE_1"></table></div><br/>`)
	var blocks []string
	for _, tg := range d.Tags {
		if tg.Block != "" {
			blocks = append(blocks, tg.Name)
		}
	}
	if diff := cmp.Diff([]string{"div", "table"}, blocks); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if last := d.Tags[len(d.Tags)-1]; last.Kind != Void || last.Name != "br" {
		t.Errorf("last tag = %+v", last)
	}
}

func TestBlocksOutermost(t *testing.T) {
	src := `<p>x</p><div data-block="A"><div data-block="A">in</div></div><span data-block="B">b</span>`
	got := Scan(src).Blocks(nil)
	want := []Region{
		{Start: 8, End: 62, Block: "A"},
		{Start: 62, End: 91, Block: "B"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if src[got[0].Start:got[0].End] != `<div data-block="A"><div data-block="A">in</div></div>` {
		t.Errorf("region A = %q", src[got[0].Start:got[0].End])
	}
	onlyB := Scan(src).Blocks(func(b string) bool { return b == "B" })
	if len(onlyB) != 1 || onlyB[0].Block != "B" {
		t.Errorf("filtered = %+v", onlyB)
	}
}

func TestPlaceholdersInsideBlocksAreContent(t *testing.T) {
	src := `<p>{{TITLE}}</p><div data-block="SUMMARY">see {{TITLE}} and {{<b>NOTE</b>}}</div>`
	if diff := cmp.Diff([]string{"TITLE"}, Extract(src)); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	got, ok := Replace(src, "TITLE", "T")
	if !ok {
		t.Fatal("outside placeholder not replaced")
	}
	if want := `<p>T</p><div data-block="SUMMARY">see {{TITLE}} and {{<b>NOTE</b>}}</div>`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if _, ok := Replace(src, "NOTE", "N"); ok {
		t.Error("placeholder inside a block should not be replaced")
	}
}

func TestNormalizeTemplate(t *testing.T) {
	got := NormalizeTemplate("<p>&lcub;&lcub;A&rcub;&rcub; x\x00</p>")
	if want := "<p>{{A}} x</p>"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
