package template

import (
	"regexp"
	"strings"
)

// Intent is what a free-text feedback message appears to ask for.
type Intent struct {
	Targets          []string
	WantsRewrite     bool
	WantsRemoveTable bool
	// TableMentions lists TABLE_n keys named verbatim in the feedback.
	TableMentions []string
}

type keywordRule struct {
	key      string
	keywords []string
}

// Rules are checked against the feedback with whitespace removed and lower-cased.
var feedbackRules = []keywordRule{
	{"INTRODUCTION", []string{"서론", "introduction"}},
	{"CONCLUSION", []string{"결론", "conclusion"}},
	{"REFERENCES", []string{"참고문헌", "references"}},
	{"APPENDIX", []string{"부록", "appendix"}},

	{"TOC", []string{"목차", "toc"}},
	{"ABSTRACT", []string{"요약", "abstract"}},
	{"TITLE", []string{"제목", "title"}},
	{"BODY_1", []string{"본론1", "body_1"}},
	{"BODY_2", []string{"본론2", "body_2"}},
	{"BODY_3", []string{"본론3", "body_3"}},

	{"COURSE", []string{"과목"}},
	{"DATE", []string{"날짜"}},
	{"TOPIC", []string{"주제"}},
	{"LECTURER", []string{"강의자", "교수"}},
	{"CUES", []string{"키워드", "질문"}},
	{"NOTES", []string{"노트", "필기"}},
	{"LEARNING_OBJECTIVES", []string{"학습목표"}},
	{"KEY_POINTS", []string{"핵심", "포인트"}},
	{"TERMS", []string{"개념", "용어"}},
	{"EXAMPLES", []string{"예시", "문제", "풀이"}},
	{"QUESTIONS", []string{"추가확인"}},
	{"NEXT_ACTIONS", []string{"다음", "액션", "과제"}},
	{"SUMMARY", []string{"요약"}},

	{"EXPERIMENT_NAME", []string{"실험명"}},
	{"EXPERIMENT_DATE", []string{"실험일"}},
	{"SUBMIT_DATE", []string{"제출일"}},
	{"OBJECTIVE", []string{"목적", "objective"}},
	{"BACKGROUND", []string{"이론", "배경"}},
	{"MATERIALS_EQUIPMENT", []string{"재료", "기기"}},
	{"METHODS", []string{"방법", "절차"}},
	{"RAW_DATA", []string{"원자료", "관찰"}},
	{"PROCESSED_RESULTS", []string{"결과", "표", "그래프"}},
	{"DISCUSSION", []string{"고찰", "discussion"}},
}

var (
	tableMentionRe = regexp.MustCompile(`(?i)TABLE_\d+`)
	removeTableKo  = regexp.MustCompile(`표.*(없애|삭제|제거)`)
	removeTableEn  = regexp.MustCompile(`(?i)(table).*(remove|delete)`)
	rewriteRe      = regexp.MustCompile(`(?i)(다시|재작성|새로|rewrite)`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// InferFeedback guesses the target sections of a feedback message from
// keyword heuristics and detects rewrite and table-removal requests.
func InferFeedback(feedback string) Intent {
	flat := strings.ToLower(spaceRe.ReplaceAllString(feedback, ""))
	seen := NewKeySet()

	var mentions []string
	for _, m := range tableMentionRe.FindAllString(feedback, -1) {
		m = strings.ToUpper(m)
		seen.Add(m)
		mentions = append(mentions, m)
	}
	for _, r := range feedbackRules {
		for _, kw := range r.keywords {
			if strings.Contains(flat, kw) {
				seen.Add(r.key)
				break
			}
		}
	}

	removeTable := removeTableKo.MatchString(feedback) || removeTableEn.MatchString(feedback)
	return Intent{
		Targets:          seen.Keys(),
		WantsRewrite:     rewriteRe.MatchString(feedback) && !removeTable,
		WantsRemoveTable: removeTable,
		TableMentions:    NewKeySet(mentions).Keys(),
	}
}
