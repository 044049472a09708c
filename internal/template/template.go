// Package template describes the bundled document templates: their categories,
// display labels, asset files and the keys an AI model may fill in each of them.
package template

import "strings"

type Category string

const (
	Report      Category = "report"
	LabReport   Category = "lab_report"
	Thesis      Category = "thesis"
	LectureNote Category = "lecture_note"
	Review      Category = "review"
)

// Info is the static description of one template category.
type Info struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Icon     string   `json:"icon"`
	DOCX     string   `json:"docx"`
	PDF      string   `json:"pdf"`
}

var catalog = []Info{
	{Category: Report, Label: "레포트", Icon: "📄"},
	{Category: LabReport, Label: "실험보고서", Icon: "🧪"},
	{Category: Thesis, Label: "논문", Icon: "🎓"},
	{Category: LectureNote, Label: "강의노트", Icon: "📝"},
	{Category: Review, Label: "문헌고찰", Icon: "📚"},
}

func init() {
	for i := range catalog {
		catalog[i].DOCX = string(catalog[i].Category) + ".docx"
		catalog[i].PDF = string(catalog[i].Category) + ".pdf"
	}
}

// All returns every category in display order.
func All() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup resolves a display label or a category name. Unknown values fall back
// to the report template, the way the type picker always did.
func Lookup(labelOrName string) Info {
	s := strings.TrimSpace(labelOrName)
	for _, in := range catalog {
		if in.Label == s || strings.EqualFold(string(in.Category), s) {
			return in
		}
	}
	return catalog[0]
}

// Known reports whether labelOrName names one of the bundled categories.
func Known(labelOrName string) bool {
	s := strings.TrimSpace(labelOrName)
	for _, in := range catalog {
		if in.Label == s || strings.EqualFold(string(in.Category), s) {
			return true
		}
	}
	return false
}

// Of returns the Info for c.
func Of(c Category) Info {
	return Lookup(string(c))
}
