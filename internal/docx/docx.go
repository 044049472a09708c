// Package docx converts Word templates into the HTML the editor works on.
// Only structure that matters for filling placeholders survives: paragraphs,
// headings, bold and italic runs, line breaks and tables.
package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/thywilljoshua/repot-ai/internal/token"
)

// ErrEmpty means the document converted to no visible text.
var ErrEmpty = errors.New("docx: document has no text")

// ToHTML converts a .docx file held in memory.
func ToHTML(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	out, err := bodyToHTML(r.Editable().GetContent())
	if err != nil {
		return "", fmt.Errorf("convert docx: %w", err)
	}
	if strings.TrimSpace(token.Scan(out).Text()) == "" {
		return "", ErrEmpty
	}
	return out, nil
}

type run struct {
	bold, italic bool
	text         strings.Builder
}

type converter struct {
	out strings.Builder

	para    strings.Builder
	inPara  bool
	heading int

	run   *run
	inRPr bool
	inT   bool
}

func headingLevel(style string) int {
	s := strings.ToLower(style)
	switch {
	case s == "title":
		return 1
	case strings.HasPrefix(s, "heading") && len(s) == len("heading")+1:
		if c := s[len(s)-1]; c >= '1' && c <= '6' {
			return int(c - '0')
		}
	}
	return 0
}

func attr(se xml.StartElement, local string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// toggled reads an OOXML on/off property such as <w:b/> or <w:b w:val="0"/>.
func toggled(se xml.StartElement) bool {
	v, ok := attr(se, "val")
	if !ok {
		return true
	}
	switch strings.ToLower(v) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

func (c *converter) flushRun() {
	if c.run == nil {
		return
	}
	t := html.EscapeString(c.run.text.String())
	if t != "" {
		if c.run.italic {
			t = "<em>" + t + "</em>"
		}
		if c.run.bold {
			t = "<strong>" + t + "</strong>"
		}
		c.para.WriteString(t)
	}
	c.run = nil
}

func (c *converter) endPara() {
	c.flushRun()
	body := c.para.String()
	c.para.Reset()
	c.inPara = false
	if strings.TrimSpace(body) == "" {
		return
	}
	tag := "p"
	if c.heading > 0 {
		tag = fmt.Sprintf("h%d", c.heading)
	}
	fmt.Fprintf(&c.out, "<%s>%s</%s>", tag, body, tag)
}

func bodyToHTML(documentXML string) (string, error) {
	c := &converter{}
	dec := xml.NewDecoder(strings.NewReader(documentXML))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				c.inPara, c.heading = true, 0
			case "pStyle":
				if v, ok := attr(t, "val"); ok {
					c.heading = headingLevel(v)
				}
			case "r":
				c.flushRun()
				c.run = &run{}
			case "rPr":
				c.inRPr = true
			case "b":
				if c.inRPr && c.run != nil {
					c.run.bold = toggled(t)
				}
			case "i":
				if c.inRPr && c.run != nil {
					c.run.italic = toggled(t)
				}
			case "t":
				c.inT = true
			case "tab":
				if c.run != nil && !c.inRPr {
					c.run.text.WriteString(" ")
				}
			case "br", "cr":
				if c.inPara {
					next := &run{}
					if c.run != nil {
						next.bold, next.italic = c.run.bold, c.run.italic
					}
					c.flushRun()
					c.para.WriteString("<br/>")
					c.run = next
				}
			case "tbl":
				c.out.WriteString("<table>")
			case "tr":
				c.out.WriteString("<tr>")
			case "tc":
				c.out.WriteString("<td>")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				c.endPara()
			case "r":
				c.flushRun()
			case "rPr":
				c.inRPr = false
			case "t":
				c.inT = false
			case "tbl":
				c.out.WriteString("</table>")
			case "tr":
				c.out.WriteString("</tr>")
			case "tc":
				c.out.WriteString("</td>")
			}
		case xml.CharData:
			if c.inT && c.run != nil {
				c.run.text.Write(t)
			}
		}
	}
	return c.out.String(), nil
}
