package template

import "strings"

// Step is one AI round-trip of the automatic fill flow: the keys the model
// must produce and the instruction sent along with the source material.
type Step struct {
	Keys    []string
	Request string
}

// Section is the comma-joined key list, used as the step's display name.
func (s Step) Section() string { return strings.Join(s.Keys, ", ") }

var plans = map[Category][]Step{
	LectureNote: {
		{
			Keys:    []string{"COURSE", "DATE", "TOPIC", "LECTURER", "LEARNING_OBJECTIVES", "KEY_POINTS"},
			Request: "Write the course, date, topic, lecturer, learning objectives and key points. If the date is not in the material, write that it could not be confirmed.",
		},
		{
			Keys:    []string{"CUES", "NOTES", "TERMS", "EXAMPLES"},
			Request: "Write concrete cue keywords and questions (CUES), notes (NOTES), concepts and terms (TERMS) and worked examples (EXAMPLES).",
		},
		{
			Keys:    []string{"SUMMARY", "QUESTIONS", "NEXT_ACTIONS"},
			Request: "Write the summary (SUMMARY), follow-up questions (QUESTIONS) and assignments or next actions (NEXT_ACTIONS).",
		},
	},
	LabReport: {
		{
			Keys:    []string{"TITLE", "COURSE", "INSTRUCTOR", "EXPERIMENT_NAME", "EXPERIMENT_DATE", "SUBMIT_DATE", "DEPARTMENT", "STUDENT_ID", "STUDENT_NAME"},
			Request: "Write the cover information (title, course, instructor, experiment name, experiment date, submission date, department, student id, name). Mark anything unknown as not confirmed by the material.",
		},
		{
			Keys:    []string{"OBJECTIVE", "BACKGROUND", "MATERIALS_EQUIPMENT", "METHODS"},
			Request: "Write the objective (OBJECTIVE), theory and background (BACKGROUND), materials and equipment (MATERIALS_EQUIPMENT) and procedure (METHODS).",
		},
		{
			Keys:    []string{"RAW_DATA", "PROCESSED_RESULTS", "DISCUSSION", "CONCLUSION", "REFERENCES", "APPENDIX"},
			Request: "Write raw data and observations (RAW_DATA), processed results (PROCESSED_RESULTS), discussion (DISCUSSION), conclusion (CONCLUSION), references (REFERENCES) and appendix (APPENDIX). Use TABLE_1 to TABLE_3 when a table is needed.",
		},
	},
	Thesis: {
		{
			Keys:    []string{"PAPER_TITLE_KO", "PAPER_TITLE_EN", "AUTHORS", "AFFILIATIONS", "ABSTRACT", "KEYWORDS"},
			Request: "Write the paper metadata: Korean and English titles, authors, affiliations, abstract and keywords.",
		},
		{
			Keys:    []string{"INTRODUCTION", "METHODS", "RESULTS", "DISCUSSION"},
			Request: "Write the introduction, methods, results and discussion. Use TABLE_1 to TABLE_3 if the results need a table.",
		},
		{
			Keys:    []string{"CONCLUSION", "REFERENCES", "APPENDIX"},
			Request: "Write the conclusion, references and appendix.",
		},
	},
	Review: {
		{
			Keys:    []string{"TITLE", "COURSE", "INSTRUCTOR", "SUBMIT_DATE", "DEPARTMENT", "STUDENT_ID", "STUDENT_NAME", "RESEARCH_QUESTION", "SCOPE_DEFINITIONS"},
			Request: "Write the review title, course, instructor, submission date, department, student id and name, plus the research question (RESEARCH_QUESTION) and scope and definitions (SCOPE_DEFINITIONS).",
		},
		{
			Keys:    []string{"DATABASES", "SEARCH_QUERY", "FILTERS", "INCLUSION_CRITERIA", "EXCLUSION_CRITERIA", "SCREENING_LOG"},
			Request: "Write the search strategy: databases, search query, filters, inclusion criteria, exclusion criteria and screening log.",
		},
		{
			Keys:    []string{"THEMES_SUMMARY", "GAP_IMPLICATIONS", "REFERENCES", "APPENDIX"},
			Request: "Write the theme synthesis (THEMES_SUMMARY), research gaps and implications (GAP_IMPLICATIONS), references and appendix. Fill the literature matrix cells (PAPER_n_m) only where the material supports them.",
		},
	},
	Report: {
		{
			Keys:    []string{"TITLE", "ABSTRACT", "TOC", "INTRODUCTION"},
			Request: "Write the title, an abstract of at least ten lines, the table of contents and the introduction.",
		},
		{
			Keys:    []string{"BODY_1"},
			Request: "Write the first body section on the first key topic, at least 1000 characters. Add a summary table in TABLE_1 if useful.",
		},
		{
			Keys:    []string{"BODY_2"},
			Request: "Write the second body section on the second key topic, at least 1000 characters. Add a comparison table in TABLE_2 if useful.",
		},
		{
			Keys:    []string{"BODY_3"},
			Request: "Write the third body section on the third key topic, at least 1000 characters. Add an overview table in TABLE_3 if useful.",
		},
		{
			Keys:    []string{"CONCLUSION", "REFERENCES", "APPENDIX", "INSTRUCTOR", "COURSE", "DEPARTMENT", "STUDENT_ID", "STUDENT_NAME"},
			Request: "Write the conclusion, references, a prose appendix and the author details (mark unclear details as not confirmed by the material). Put any appendix table in TABLE_9.",
		},
	},
}

// Plan returns the ordered generation steps for c.
func Plan(c Category) []Step {
	p, ok := plans[c]
	if !ok {
		p = plans[Report]
	}
	out := make([]Step, len(p))
	copy(out, p)
	return out
}
