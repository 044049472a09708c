package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/thywilljoshua/repot-ai/internal/token"
)

const rels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

func build(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
		"word/_rels/document.xml.rels": rels,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestToHTML(t *testing.T) {
	body := `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Report &amp; Notes</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">Title: </w:t></w:r>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>{{TI</w:t></w:r><w:r><w:t>TLE}}</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:p><w:r><w:rPr><w:i/><w:b w:val="0"/></w:rPr><w:t>a</w:t><w:br/><w:t>b</w:t></w:r></w:p>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>{{STUDENT_NAME}}</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`

	got, err := ToHTML(build(t, body))
	if err != nil {
		t.Fatal(err)
	}
	want := `<h1>Report &amp; Notes</h1>` +
		`<p>Title: <strong>{{TI</strong>TLE}}</p>` +
		`<p><em>a</em><br/><em>b</em></p>` +
		`<table><tr><td><p>{{STUDENT_NAME}}</p></td></tr></table>`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}

	keys := token.Extract(got)
	if len(keys) != 2 || keys[0] != "TITLE" || keys[1] != "STUDENT_NAME" {
		t.Errorf("keys = %v", keys)
	}
}

func TestToHTMLEmpty(t *testing.T) {
	if _, err := ToHTML(build(t, `<w:p></w:p>`)); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestToHTMLNotADocx(t *testing.T) {
	if _, err := ToHTML([]byte("plain text")); err == nil {
		t.Error("expected error")
	}
}
