package reconcile

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"

	"github.com/thywilljoshua/repot-ai/internal/patch"
	"github.com/thywilljoshua/repot-ai/internal/template"
)

func mustPatch(t *testing.T, text string) *patch.Patch {
	t.Helper()
	allowed := template.NewKeySet(template.DefaultKeys(template.Report))
	p, err := patch.ParseAndNormalize(text, allowed, nil)
	if err != nil {
		t.Fatalf("patch %s: %v", text, err)
	}
	return p
}

func TestDeleteTableLeavesOthers(t *testing.T) {
	doc := `<h1>Report</h1>` +
		`<div data-block="TITLE">T</div>` +
		RenderTable(Table{Title: "one", Columns: []string{"a"}, Rows: [][]string{{"1"}}}, "TABLE_1") +
		`<p>between</p>` +
		RenderTable(Table{Title: "three", Columns: []string{"x", "y"}, Rows: [][]string{{"1", "2"}}}, "TABLE_3") +
		`<div data-block="BODY_1"><div>nested</div></div>`

	res := Apply(doc, mustPatch(t, `{"DELETE":["TABLE_3"]}`), "")

	want := map[string]int{"TITLE": 1, "TABLE_1": 1, "BODY_1": 1}
	if diff := cmp.Diff(want, BlockKeys(res.HTML)); diff != "" {
		t.Errorf("blocks (-want +got):\n%s", diff)
	}
	for _, s := range []string{"<h1>Report</h1>", "<p>between</p>", "<div>nested</div>"} {
		if !strings.Contains(res.HTML, s) {
			t.Errorf("lost %q in %s", s, res.HTML)
		}
	}
	if strings.Contains(res.HTML, "three") {
		t.Errorf("TABLE_3 content survived: %s", res.HTML)
	}
	if res.Focus != "TABLE_3" {
		t.Errorf("focus = %q", res.Focus)
	}
}

func TestDeleteRemovesPlaceholder(t *testing.T) {
	got := Delete(`<p>{{<b>TOC</b>}}</p><p>{{TITLE}}</p>`, "toc")
	if want := `<p></p><p>{{TITLE}}</p>`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUpsertIgnoresPlaceholderInFilledBlock(t *testing.T) {
	doc := Upsert(`<p>{{TITLE}}</p>`, "TITLE", Render("TITLE", json.RawMessage(`"see {{TITLE}}"`)))
	doc = Upsert(doc, "TITLE", Render("TITLE", json.RawMessage(`"second"`)))
	if want := `<p><div data-block="TITLE">second</div></p>`; doc != want {
		t.Errorf("got %q, want %q", doc, want)
	}
	if diff := cmp.Diff(map[string]int{"TITLE": 1}, BlockKeys(doc)); diff != "" {
		t.Errorf("blocks (-want +got):\n%s", diff)
	}

	doc = `<p>{{TITLE}}</p><div data-block="SUMMARY">about {{TITLE}}</div>`
	doc = Upsert(doc, "TITLE", Render("TITLE", json.RawMessage(`"T"`)))
	if !strings.Contains(doc, `<div data-block="SUMMARY">about {{TITLE}}</div>`) {
		t.Errorf("text of another block was filled: %s", doc)
	}
}

func TestRenderEscapesKey(t *testing.T) {
	for _, raw := range []string{`"x"`, `{"columns":["a"],"rows":[["1"]]}`} {
		got := Render(`TABLE_1" onclick="x`, json.RawMessage(raw))
		if strings.Contains(got, `" ONCLICK="`) {
			t.Errorf("key escaped its attribute: %s", got)
		}
		if !strings.Contains(got, `data-block="TABLE_1&#34; ONCLICK=&#34;X"`) {
			t.Errorf("escaped key missing: %s", got)
		}
	}
	got := RenderTable(Table{Columns: []string{"a"}}, `A"B`)
	if strings.Count(got, `data-block="A&#34;B"`) != 2 {
		t.Errorf("table key not escaped: %s", got)
	}
}

func TestUpsertTwiceReplaces(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "placeholder", doc: `<p>{{BODY_1}}</p><p>tail</p>`},
		{name: "appended", doc: `<p>tail</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Apply(tt.doc, mustPatch(t, `{"BODY_1":"first"}`), "").HTML
			doc = Apply(doc, mustPatch(t, `{"BODY_1":"second\nline"}`), "").HTML

			if n := BlockKeys(doc)["BODY_1"]; n != 1 {
				t.Fatalf("BODY_1 blocks = %d in %s", n, doc)
			}
			if strings.Contains(doc, "first") {
				t.Errorf("first value survived: %s", doc)
			}
			if !strings.Contains(doc, `<div data-block="BODY_1">second<br/>line</div>`) {
				t.Errorf("second value missing: %s", doc)
			}
			if !strings.Contains(doc, "<p>tail</p>") {
				t.Errorf("unrelated content touched: %s", doc)
			}
		})
	}
}

func TestUpsertTableTwice(t *testing.T) {
	doc := "<p>intro</p>"
	doc = Apply(doc, mustPatch(t, `{"TABLE_2":{"columns":["a"],"rows":[["1"]]}}`), "").HTML
	doc = Apply(doc, mustPatch(t, `{"TABLE_2":"`+"```json"+`{\"columns\":[\"b\"],\"rows\":[]}`+"```"+`"}`), "").HTML
	if n := BlockKeys(doc)["TABLE_2"]; n != 1 {
		t.Fatalf("TABLE_2 blocks = %d in %s", n, doc)
	}
	if !strings.Contains(doc, "<th>b</th>") || strings.Contains(doc, "<th>a</th>") {
		t.Errorf("table not replaced: %s", doc)
	}
	if strings.Count(doc, Spacer) != 1 {
		t.Errorf("spacer count = %d", strings.Count(doc, Spacer))
	}
}

func cellTexts(t *testing.T, src, tag string) []string {
	t.Helper()
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			out = append(out, b.String())
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func TestRenderTableRoundTrip(t *testing.T) {
	raw := json.RawMessage(`{"title":"T","columns":["A","B"],"rows":[["1","2"]]}`)
	out := Render("TABLE_1", raw)
	if diff := cmp.Diff([]string{"A", "B"}, cellTexts(t, out, "th")); diff != "" {
		t.Errorf("headers (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2"}, cellTexts(t, out, "td")); diff != "" {
		t.Errorf("cells (-want +got):\n%s", diff)
	}
	if strings.Count(out, `<col style="width:50%;">`) != 2 {
		t.Errorf("colgroup: %s", out)
	}

	raw = json.RawMessage(`{"columns":["<b>&"],"rows":[["<script>x</script>",3,null]]}`)
	out = Render("table_4", raw)
	if strings.Contains(out, "<script>") || strings.Contains(out, "<b>&") {
		t.Errorf("unescaped output: %s", out)
	}
	if diff := cmp.Diff([]string{"<script>x</script>", "3", ""}, cellTexts(t, out, "td")); diff != "" {
		t.Errorf("cells (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, `data-block="TABLE_4"`) {
		t.Errorf("block id not upper-cased: %s", out)
	}
}

func TestRenderEmptyTableColumns(t *testing.T) {
	out := RenderTable(Table{}, "TABLE_1")
	if strings.Count(out, `<col style="width:33%;">`) != 3 {
		t.Errorf("colgroup: %s", out)
	}
}

func TestRenderValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  string
		want string
	}{
		{name: "string", key: "TITLE", raw: `"a < b\nc"`, want: `<div data-block="TITLE">a &lt; b<br/>c</div>`},
		{name: "number", key: "TITLE", raw: `42`, want: `<div data-block="TITLE">42</div>`},
		{name: "null", key: "TITLE", raw: `null`, want: `<div data-block="TITLE"></div>`},
		{
			name: "heading",
			key:  "BODY_1",
			raw:  `{"heading":"H","description":"D"}`,
			want: `<div data-block="BODY_1"><div style="font-weight:700; margin:10px 0 6px;">H</div><div style="white-space:pre-wrap;">D</div></div>`,
		},
		{
			name: "content list",
			key:  "BODY_2",
			raw:  `{"title":"T","content":[{"heading":"H"},"plain"]}`,
			want: `<div data-block="BODY_2"><div style="font-weight:800; font-size:18px; margin:10px 0 12px;">T</div>` +
				`<div><div style="font-weight:700; margin:10px 0 6px;">H</div></div><div style="white-space:pre-wrap;">plain</div></div>`,
		},
		{
			name: "other object",
			key:  "APPENDIX",
			raw:  `{"z":1,"a":"<"}`,
			want: "<div data-block=\"APPENDIX\"><pre style=\"white-space:pre-wrap;\">{\n  &#34;z&#34;: 1,\n  &#34;a&#34;: &#34;&lt;&#34;\n}</pre></div>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.key, json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestCleanup(t *testing.T) {
	got := Cleanup(`<p> / </p><div class="x">/</div><p>keep</p><br><br/><br /><br>`)
	if want := `<p>keep</p><br/><br/>`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyFocus(t *testing.T) {
	p := mustPatch(t, `{"TITLE":"a","TOC":"b"}`)
	if got := Apply("", p, "").Focus; got != "TITLE" {
		t.Errorf("focus = %q", got)
	}
	if got := Apply("", p, "BODY_2").Focus; got != "BODY_2" {
		t.Errorf("focus = %q", got)
	}
}
