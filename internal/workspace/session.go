// Package workspace drives one document from template to finished draft:
// loading the template, filling it step by step from a source PDF and
// applying free-text feedback. All output goes through the editor bridge.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/thywilljoshua/repot-ai/internal/ai"
	"github.com/thywilljoshua/repot-ai/internal/bridge"
	"github.com/thywilljoshua/repot-ai/internal/docx"
	"github.com/thywilljoshua/repot-ai/internal/logging"
	"github.com/thywilljoshua/repot-ai/internal/patch"
	"github.com/thywilljoshua/repot-ai/internal/pdftext"
	"github.com/thywilljoshua/repot-ai/internal/reconcile"
	"github.com/thywilljoshua/repot-ai/internal/template"
	"github.com/thywilljoshua/repot-ai/internal/token"
)

var (
	// ErrBusy is returned when a generation or feedback round is already running.
	ErrBusy = errors.New("workspace: busy")
	// ErrNoFeedback is returned for blank feedback text.
	ErrNoFeedback = errors.New("workspace: empty feedback")
	// ErrTemplate wraps template load failures. The document then shows an
	// inline error block.
	ErrTemplate = errors.New("workspace: template unavailable")
)

// State is a read-only view of a session.
type State struct {
	ID        string        `json:"id"`
	Category  string        `json:"category"`
	Label     string        `json:"label"`
	Template  string        `json:"template,omitempty"`
	HTML      string        `json:"html"`
	Source    bridge.Source `json:"source"`
	Focus     string        `json:"focusBlock,omitempty"`
	Keys      []string      `json:"keys"`
	Fields    patch.Fields  `json:"fields"`
	Messages  []ChatMessage `json:"messages"`
	Progress  string        `json:"progress,omitempty"`
	Busy      bool          `json:"busy"`
	HasSource bool          `json:"hasSource"`
}

// Session is one workspace. It owns the document HTML and is the bridge
// host for every editor surface showing it.
type Session struct {
	ID   string
	info template.Info
	gen  ai.Generator
	hub  *bridge.Hub
	log  *slog.Logger

	mu       sync.Mutex
	tmpl     string
	allowed  *template.KeySet
	html     string
	source   bridge.Source
	focus    string
	fields   patch.Fields
	text     string
	messages []ChatMessage
	progress string
	busy     bool
}

// NewSession creates a session for the category named by labelOrName.
// A nil gen disables generation; a nil hub gets a private one.
func NewSession(id, labelOrName string, gen ai.Generator, hub *bridge.Hub, log *slog.Logger) *Session {
	log = logging.Or(log)
	info := template.Lookup(labelOrName)
	if gen == nil {
		gen = ai.Noop{}
	}
	if hub == nil {
		hub = bridge.NewHub(log)
	}
	return &Session{
		ID:       id,
		info:     info,
		gen:      gen,
		hub:      hub,
		log:      log.With("session", id, "category", string(info.Category)),
		allowed:  template.NewKeySet(template.DefaultKeys(info.Category)),
		source:   bridge.SourceTemplate,
		fields:   patch.Fields{},
		messages: []ChatMessage{{Role: RoleAI, Text: welcome(info.Label)}},
	}
}

func (s *Session) Info() template.Info { return s.info }

// Hub is the bridge the session pushes snapshots through.
func (s *Session) Hub() *bridge.Hub { return s.hub }

// Allowed returns the session's allow-list in order.
func (s *Session) Allowed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allowed.Keys()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:        s.ID,
		Category:  string(s.info.Category),
		Label:     s.info.Label,
		Template:  s.tmpl,
		HTML:      s.html,
		Source:    s.source,
		Focus:     s.focus,
		Keys:      s.allowed.Keys(),
		Fields:    s.fields.Merge(nil),
		Messages:  append([]ChatMessage(nil), s.messages...),
		Progress:  s.progress,
		Busy:      s.busy,
		HasSource: strings.TrimSpace(s.text) != "",
	}
}

// Current implements bridge.Host.
func (s *Session) Current() bridge.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bridge.Snapshot(s.html, s.source, "")
}

// Edited implements bridge.Host.
func (s *Session) Edited(html string) { s.Edit(html) }

// Edit replaces the document with a user snapshot. Surfaces are not echoed.
func (s *Session) Edit(html string) {
	s.mu.Lock()
	s.html = html
	s.source = bridge.SourceUser
	s.focus = ""
	s.mu.Unlock()
}

// ApplyPatch merges p into the field data, reconciles the document and
// pushes the result.
func (s *Session) ApplyPatch(p *patch.Patch, source bridge.Source, focus string) reconcile.Result {
	s.mu.Lock()
	s.fields = s.fields.Merge(p)
	res := reconcile.Apply(s.html, p, focus)
	s.html = res.HTML
	s.source = source
	s.focus = res.Focus
	s.mu.Unlock()

	s.hub.Push(bridge.Snapshot(res.HTML, source, res.Focus))
	if !s.log.Enabled(context.Background(), slog.LevelDebug) {
		return res
	}
	s.log.Debug("patch applied",
		"source", string(source),
		"keys", p.Keys(),
		"deleted", p.Delete,
		"blocks", reconcile.BlockKeys(res.HTML),
		"surfaces", s.hub.Clients(),
	)
	return res
}

func (s *Session) setDocument(html string, source bridge.Source) {
	s.mu.Lock()
	s.html = html
	s.source = source
	s.focus = ""
	s.mu.Unlock()
	s.hub.Push(bridge.Snapshot(html, source, ""))
}

func (s *Session) say(role Role, text string) {
	s.mu.Lock()
	s.messages = append(s.messages, ChatMessage{Role: role, Text: text})
	s.mu.Unlock()
}

func (s *Session) setProgress(p string) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.progress = ""
	s.mu.Unlock()
}

// panicked logs a recovered panic and converts it into errPanic.
func (s *Session) panicked(r any) error {
	s.log.Error("workspace operation panicked", "panic", r)
	return fmt.Errorf("%w: %v", errPanic, r)
}

// LoadTemplate converts a DOCX template and makes it the document. The
// placeholders found in it join the allow-list. Failures leave an inline
// error block in the document.
func (s *Session) LoadTemplate(ctx context.Context, name string, data []byte) (err error) {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()
	defer func() {
		if r := recover(); r != nil {
			err = s.panicked(r)
		}
		if errors.Is(err, errPanic) {
			s.setDocument(errorBlock("템플릿 로드/변환 오류 발생", name), bridge.SourceTemplate)
		}
	}()

	s.setDocument(loadingBlock(s.info.Label, name), bridge.SourceTemplate)

	if len(data) == 0 {
		s.setDocument(errorBlock("템플릿 로드 실패: "+name, "템플릿 파일을 찾을 수 없습니다."), bridge.SourceTemplate)
		return fmt.Errorf("%w: %s is missing", ErrTemplate, name)
	}

	html, err := docx.ToHTML(data)
	if err == nil {
		html = strings.TrimSpace(token.NormalizeTemplate(html))
		if html == "" {
			err = docx.ErrEmpty
		}
	}
	switch {
	case errors.Is(err, docx.ErrEmpty):
		s.setDocument(errorBlock("템플릿 변환 결과가 비어 있습니다.", name+"가 빈 문서인지 확인하세요."), bridge.SourceTemplate)
		return fmt.Errorf("%w: %w", ErrTemplate, err)
	case err != nil:
		s.log.Warn("template conversion failed", "template", name, "error", err)
		s.setDocument(errorBlock("템플릿 로드/변환 오류 발생", err.Error()), bridge.SourceTemplate)
		return fmt.Errorf("%w: %w", ErrTemplate, err)
	}

	keys := token.Extract(html)
	s.mu.Lock()
	s.tmpl = name
	s.allowed = template.NewKeySet(template.DefaultKeys(s.info.Category), keys)
	s.fields = patch.Fields{}
	s.mu.Unlock()
	s.setDocument(html, bridge.SourceTemplate)
	s.log.Info("template loaded", "template", name, "placeholders", len(keys))
	return nil
}

// readSource extracts the source text, falling back to the model when the
// PDF has no text layer and the provider can read PDFs itself.
func (s *Session) readSource(ctx context.Context, pdf []byte) (string, error) {
	doc, err := pdftext.Extract(pdf)
	if err == nil {
		s.log.Debug("pdf text extracted", "pages", doc.Pages, "sampled", doc.Sampled, "chars", len(doc.Text))
		return doc.Text, nil
	}
	r, ok := s.gen.(ai.PDFReader)
	if !ok {
		return "", err
	}
	s.log.Info("local pdf extraction failed, asking model", "error", err)
	text, rerr := r.ReadPDF(ctx, pdf)
	if rerr != nil {
		return "", fmt.Errorf("read pdf: %w", rerr)
	}
	if strings.TrimSpace(text) == "" {
		return "", pdftext.ErrNoText
	}
	return text, nil
}

// runStep performs one generation round-trip for step.
func (s *Session) runStep(ctx context.Context, step template.Step, source, focus string) error {
	section := step.Section()
	s.setProgress(progressFor(section))

	s.mu.Lock()
	allowed := template.NewKeySet(s.allowed.Keys())
	written := make(map[string]string, len(s.fields))
	for k := range s.fields {
		written[k] = s.fields.Text(k)
	}
	s.mu.Unlock()

	raw, err := s.gen.Generate(ctx, ai.Request{
		System: ai.SystemPrompt(s.info.Label),
		Prompt: ai.StepPrompt(s.info.Label, step, source, written),
	})
	if err != nil {
		return fmt.Errorf("generate %s: %w", section, err)
	}

	p, err := patch.ParseAndNormalize(raw, allowed, step.Keys)
	if err != nil {
		return fmt.Errorf("%s: %w", section, err)
	}
	s.ApplyPatch(p, bridge.SourceAI, focus)
	return nil
}

// Generate fills the document from a source PDF, running the category's
// steps strictly in order. The first failing step stops the plan.
func (s *Session) Generate(ctx context.Context, pdf []byte) (err error) {
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()
	defer func() {
		if r := recover(); r != nil {
			err = s.panicked(r)
		}
		if errors.Is(err, errPanic) {
			s.say(RoleAI, msgUnexpected)
		}
	}()

	s.say(RoleAI, msgGenerateStart)
	text, err := s.readSource(ctx, pdf)
	if err != nil {
		s.log.Warn("pdf read failed", "error", err)
		s.say(RoleAI, msgPDFFail)
		return err
	}
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()

	for _, step := range template.Plan(s.info.Category) {
		if err := s.runStep(ctx, step, text, ""); err != nil {
			s.log.Warn("generation step failed", "section", step.Section(), "error", err)
			s.say(RoleAI, generateMessage(step.Section(), err))
			return err
		}
	}
	s.say(RoleAI, msgGenerateDone)
	return nil
}

// Feedback applies a free-text correction. A rewrite request naming one
// section reruns that section against the source; anything else becomes a
// single corrective patch over the whole allow-list.
func (s *Session) Feedback(ctx context.Context, text string) (err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrNoFeedback
	}
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()
	defer func() {
		if r := recover(); r != nil {
			err = s.panicked(r)
		}
		if err != nil {
			s.log.Warn("feedback failed", "error", err)
			s.say(RoleAI, feedbackMessage(err))
		}
	}()

	s.say(RoleUser, text)
	s.setProgress(msgFeedbackProgress)

	intent := template.InferFeedback(text)
	s.mu.Lock()
	source := s.text
	allowed := template.NewKeySet(s.allowed.Keys())
	s.mu.Unlock()

	if intent.WantsRewrite && len(intent.Targets) == 1 && strings.TrimSpace(source) != "" {
		section := intent.Targets[0]
		step := template.Step{
			Keys:    []string{section},
			Request: fmt.Sprintf("Rewrite %s following the user's feedback. Feedback: %s", section, text),
		}
		if err := s.runStep(ctx, step, source, section); err != nil {
			return err
		}
		s.say(RoleAI, msgApplied)
		return nil
	}

	var hinted []string
	if intent.WantsRemoveTable {
		hinted = intent.TableMentions
	}
	raw, err := s.gen.Generate(ctx, ai.Request{
		System: ai.SystemPrompt(s.info.Label),
		Prompt: ai.FeedbackPrompt(s.info.Label, text, allowed.Keys(), hinted),
	})
	if err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	p, err := patch.ParseAndNormalize(raw, allowed, nil)
	if err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	p.AddDelete(hinted...)

	focus := ""
	for _, t := range intent.Targets {
		if !template.IsTableKey(t) {
			focus = t
			break
		}
	}
	if focus == "" && len(p.Delete) > 0 {
		focus = p.Delete[0]
	}
	s.ApplyPatch(p, bridge.SourceAI, focus)
	s.say(RoleAI, msgApplied)
	return nil
}
