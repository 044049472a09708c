package template

import (
	"fmt"
	"regexp"
	"strings"
)

// TablePrefix marks keys that carry tabular values. Table keys are always
// accepted, whatever the template's allow-list says.
const TablePrefix = "TABLE_"

// DeleteKey is the reserved patch field listing keys to remove.
const DeleteKey = "DELETE"

// MaxTables is the number of table slots advertised to the model.
const MaxTables = 10

var (
	keyRe   = regexp.MustCompile(`^[A-Z0-9_]+$`)
	tableRe = regexp.MustCompile(`^TABLE_[0-9]+$`)
)

// IsTableKey reports whether key (in any case) is TABLE_ followed by a number.
func IsTableKey(key string) bool {
	return tableRe.MatchString(strings.ToUpper(strings.TrimSpace(key)))
}

// TableKeys returns TABLE_1 .. TABLE_n.
func TableKeys(n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("%s%d", TablePrefix, i))
	}
	return out
}

// PaperMatrixKeys returns the PAPER_r_c cell keys of the literature summary table.
func PaperMatrixKeys(rows, cols int) []string {
	out := make([]string, 0, rows*cols)
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			out = append(out, fmt.Sprintf("PAPER_%d_%d", r, c))
		}
	}
	return out
}

var defaultKeys = map[Category][]string{
	LectureNote: {
		"COURSE", "DATE", "TOPIC", "LECTURER", "CUES", "NOTES", "SUMMARY",
		"LEARNING_OBJECTIVES", "KEY_POINTS", "TERMS", "EXAMPLES", "QUESTIONS", "NEXT_ACTIONS",
	},
	LabReport: {
		"TITLE", "COURSE", "INSTRUCTOR", "EXPERIMENT_NAME", "EXPERIMENT_DATE", "SUBMIT_DATE",
		"DEPARTMENT", "STUDENT_ID", "STUDENT_NAME", "OBJECTIVE", "BACKGROUND",
		"MATERIALS_EQUIPMENT", "METHODS", "RAW_DATA", "PROCESSED_RESULTS", "DISCUSSION",
		"CONCLUSION", "REFERENCES", "APPENDIX",
	},
	Thesis: {
		"PAPER_TITLE_KO", "PAPER_TITLE_EN", "AUTHORS", "AFFILIATIONS", "ABSTRACT", "KEYWORDS",
		"INTRODUCTION", "METHODS", "RESULTS", "DISCUSSION", "CONCLUSION", "REFERENCES", "APPENDIX",
	},
	Review: {
		"TITLE", "COURSE", "INSTRUCTOR", "SUBMIT_DATE", "DEPARTMENT", "STUDENT_ID", "STUDENT_NAME",
		"RESEARCH_QUESTION", "SCOPE_DEFINITIONS", "DATABASES", "SEARCH_QUERY", "FILTERS",
		"INCLUSION_CRITERIA", "EXCLUSION_CRITERIA", "SCREENING_LOG", "THEMES_SUMMARY",
		"GAP_IMPLICATIONS", "REFERENCES", "APPENDIX",
	},
	Report: {
		"TITLE", "ABSTRACT", "TOC", "INTRODUCTION", "BODY_1", "BODY_2", "BODY_3", "CONCLUSION",
		"REFERENCES", "APPENDIX", "INSTRUCTOR", "COURSE", "DEPARTMENT", "STUDENT_ID", "STUDENT_NAME",
	},
}

// DefaultKeys returns the static field names of c. The review template also
// exposes its 12x8 literature matrix.
func DefaultKeys(c Category) []string {
	base, ok := defaultKeys[c]
	if !ok {
		base = defaultKeys[Report]
	}
	out := append([]string(nil), base...)
	if c == Review {
		out = append(out, PaperMatrixKeys(12, 8)...)
	}
	return out
}

// KeySet is an ordered set of upper-cased keys. Membership is case-insensitive.
type KeySet struct {
	order []string
	set   map[string]struct{}
}

// NewKeySet unions the given lists, dropping blanks and duplicates.
func NewKeySet(lists ...[]string) *KeySet {
	s := &KeySet{set: map[string]struct{}{}}
	for _, l := range lists {
		s.Add(l...)
	}
	return s
}

// Add inserts keys not already present. Keys with anything but letters,
// digits and underscores are skipped.
func (s *KeySet) Add(keys ...string) {
	if s.set == nil {
		s.set = map[string]struct{}{}
	}
	for _, k := range keys {
		k = strings.ToUpper(strings.TrimSpace(k))
		if !keyRe.MatchString(k) {
			continue
		}
		if _, ok := s.set[k]; ok {
			continue
		}
		s.set[k] = struct{}{}
		s.order = append(s.order, k)
	}
}

func (s *KeySet) Has(key string) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[strings.ToUpper(strings.TrimSpace(key))]
	return ok
}

// Accepts reports whether key may appear in a patch: table keys always do,
// anything else must be a member.
func (s *KeySet) Accepts(key string) bool {
	return IsTableKey(key) || s.Has(key)
}

// Keys returns the members in insertion order.
func (s *KeySet) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}
