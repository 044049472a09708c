package workspace

import (
	"errors"
	"fmt"
	"html"

	"github.com/thywilljoshua/repot-ai/internal/patch"
)

// Role is the author of a chat message.
type Role string

const (
	RoleAI   Role = "ai"
	RoleUser Role = "user"
)

// ChatMessage is one line of the workspace conversation.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

const (
	msgGenerateStart    = "PDF 분석 시작. 섹션별로 순차 작성합니다."
	msgGenerateDone     = "완료. 오른쪽 문서에서 직접 수정도 가능합니다."
	msgGenerateFail     = "생성 중 오류가 발생했습니다. 다시 시도해주세요."
	msgPDFFail          = "PDF 읽기 실패. 텍스트를 추출할 수 없는 파일입니다."
	msgApplied          = "반영 완료. 오른쪽 문서에서 확인해보세요."
	msgParseFail        = "피드백을 JSON으로 해석하지 못했습니다. 더 구체적으로 말해줘요."
	msgEmptyPatch       = "피드백 패치가 비어있거나 형식이 올바르지 않습니다. 다시 말해줘요."
	msgTransportFail    = "통신 오류로 반영에 실패했습니다."
	msgUnexpected       = "처리 중 예기치 못한 오류가 발생했습니다. 다시 시도해주세요."
	msgFeedbackProgress = "피드백 반영 중..."
	msgTemplateLoad     = "템플릿 로딩..."
)

func welcome(label string) string {
	return fmt.Sprintf("[%s] 양식으로 시작합니다. PDF 업로드 → 자동 채움 → 피드백 반영까지 지원합니다.", label)
}

func progressFor(section string) string { return section + " 작성 중..." }

// errPanic marks a recovered panic.
var errPanic = errors.New("workspace: unexpected failure")

// generateMessage is the chat text for a failed generation step.
func generateMessage(section string, err error) string {
	switch {
	case errors.Is(err, errPanic):
		return msgUnexpected
	case errors.Is(err, patch.ErrMalformed):
		return fmt.Sprintf("%s 응답을 JSON으로 해석하지 못했습니다. 다시 시도해주세요.", section)
	case errors.Is(err, patch.ErrEmpty):
		return fmt.Sprintf("%s 응답에 반영할 항목이 없습니다. 다시 시도해주세요.", section)
	}
	return msgGenerateFail
}

// feedbackMessage is the chat text for a failed feedback round.
func feedbackMessage(err error) string {
	switch {
	case errors.Is(err, errPanic):
		return msgUnexpected
	case errors.Is(err, patch.ErrMalformed):
		return msgParseFail
	case errors.Is(err, patch.ErrEmpty):
		return msgEmptyPatch
	}
	return msgTransportFail
}

func loadingBlock(label, name string) string {
	return fmt.Sprintf(`<div style="color:#334155;font-weight:800;">%s</div>`+
		`<div style="margin-top:8px;color:#475569;font-size:13px;line-height:1.6;">`+
		`선택한 양식: <b>%s</b><br/>템플릿: <code>%s</code></div>`,
		msgTemplateLoad, html.EscapeString(label), html.EscapeString(name))
}

func errorBlock(title, detail string) string {
	return fmt.Sprintf(`<div style="color:#b91c1c;font-weight:800;">%s</div>`+
		`<div style="margin-top:10px;color:#334155;line-height:1.6;">%s</div>`,
		html.EscapeString(title), html.EscapeString(detail))
}
