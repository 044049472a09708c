package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/thywilljoshua/repot-ai/internal/template"
)

// Table is the tabular value shape the model emits for TABLE_ keys.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

func escapeText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br/>")
}

// decode reads raw with numbers kept verbatim.
func decode(raw json.RawMessage) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// cellText is the display form of a JSON value inside a table cell or title.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return fmt.Sprint(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// unwrapJSONString parses a string value that itself holds a JSON object or
// array, as models often return tables double-encoded or fenced.
func unwrapJSONString(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "```json", ""), "```", ""))
	obj := strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")
	arr := strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
	if !obj && !arr {
		return v
	}
	out, ok := decode(json.RawMessage(s))
	if !ok {
		return v
	}
	return out
}

// asTable reports whether v has the columns/rows shape.
func asTable(v any) (Table, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Table{}, false
	}
	cols, ok1 := m["columns"].([]any)
	rows, ok2 := m["rows"].([]any)
	if !ok1 || !ok2 {
		return Table{}, false
	}
	t := Table{Title: cellText(m["title"])}
	for _, c := range cols {
		t.Columns = append(t.Columns, cellText(c))
	}
	for _, r := range rows {
		cells, _ := r.([]any)
		row := make([]string, 0, len(cells))
		for _, c := range cells {
			row = append(row, cellText(c))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, true
}

// RenderTable renders t as a titled table block for key.
func RenderTable(t Table, key string) string {
	key = html.EscapeString(key)
	var b strings.Builder
	fmt.Fprintf(&b, `<div data-block="%s">`, key)
	if t.Title != "" {
		fmt.Fprintf(&b, `<div style="font-weight:700;margin:12px 0 6px;">%s</div>`, html.EscapeString(t.Title))
	}
	fmt.Fprintf(&b, `<table class="doc-table" data-block="%s">`, key)

	n, width := len(t.Columns), 33
	if n > 0 {
		width = 100 / n
	} else {
		n = 3
	}
	b.WriteString("<colgroup>")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<col style="width:%d%%;">`, width)
	}
	b.WriteString("</colgroup><thead><tr>")
	for _, c := range t.Columns {
		b.WriteString("<th>" + html.EscapeString(c) + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, r := range t.Rows {
		b.WriteString("<tr>")
		for _, c := range r {
			b.WriteString("<td>" + escapeText(c) + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></div>")
	return b.String()
}

func nonBlank(m map[string]any, k string) (string, bool) {
	s, ok := m[k].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// renderObject renders a structured value: a title with a content list, a
// heading/description pair, or pretty-printed JSON as a last resort.
func renderObject(v any, raw json.RawMessage) string {
	m, _ := v.(map[string]any)
	var b strings.Builder
	if s, ok := nonBlank(m, "title"); ok {
		b.WriteString(`<div style="font-weight:800; font-size:18px; margin:10px 0 12px;">` + html.EscapeString(s) + "</div>")
	}

	if items, ok := m["content"].([]any); ok {
		for _, it := range items {
			if it == nil {
				continue
			}
			im, _ := it.(map[string]any)
			h, hok := nonBlank(im, "heading")
			d, dok := nonBlank(im, "description")
			if !hok && !dok {
				s, isStr := it.(string)
				if !isStr {
					pretty, _ := json.MarshalIndent(it, "", "  ")
					s = string(pretty)
				}
				b.WriteString(`<div style="white-space:pre-wrap;">` + html.EscapeString(s) + "</div>")
				continue
			}
			b.WriteString("<div>")
			if hok {
				b.WriteString(`<div style="font-weight:700; margin:10px 0 6px;">` + html.EscapeString(h) + "</div>")
			}
			if dok {
				b.WriteString(`<div style="margin:0 0 10px; white-space:pre-wrap;">` + html.EscapeString(d) + "</div>")
			}
			b.WriteString("</div>")
		}
		return b.String()
	}

	_, hasH := m["heading"].(string)
	_, hasD := m["description"].(string)
	if hasH || hasD {
		if h, ok := nonBlank(m, "heading"); ok {
			b.WriteString(`<div style="font-weight:700; margin:10px 0 6px;">` + html.EscapeString(h) + "</div>")
		}
		if d, ok := nonBlank(m, "description"); ok {
			b.WriteString(`<div style="white-space:pre-wrap;">` + html.EscapeString(d) + "</div>")
		}
		return b.String()
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		pretty.Reset()
		out, _ := json.MarshalIndent(v, "", "  ")
		pretty.Write(out)
	}
	b.WriteString(`<pre style="white-space:pre-wrap;">` + html.EscapeString(pretty.String()) + "</pre>")
	return b.String()
}

// Render turns a patch value into the block markup stored under key.
func Render(key string, raw json.RawMessage) string {
	key = strings.ToUpper(strings.TrimSpace(key))
	v, ok := decode(raw)
	if !ok {
		v = string(raw)
	}
	if template.IsTableKey(key) {
		v = unwrapJSONString(v)
		if t, ok := asTable(v); ok {
			return RenderTable(t, key)
		}
		if b, err := json.Marshal(v); err == nil {
			raw = b
		}
	}

	var body string
	switch x := v.(type) {
	case nil:
	case map[string]any, []any:
		body = renderObject(x, raw)
	default:
		body = escapeText(cellText(x))
	}
	return fmt.Sprintf(`<div data-block="%s">%s</div>`, html.EscapeString(key), body)
}
