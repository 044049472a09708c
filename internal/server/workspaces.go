package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/thywilljoshua/repot-ai/internal/bridge"
	"github.com/thywilljoshua/repot-ai/internal/patch"
	"github.com/thywilljoshua/repot-ai/internal/store"
	"github.com/thywilljoshua/repot-ai/internal/template"
	"github.com/thywilljoshua/repot-ai/internal/workspace"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *workspace.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
		if !ok {
			writeErr(w, http.StatusNotFound, "workspace not found")
			return
		}
		h(w, r, sess)
	}
}

// bundledTemplate reads <category>.docx from the templates folder. A
// missing file yields no data, which the session renders as an error block.
func (s *Server) bundledTemplate(info template.Info) []byte {
	if s.templatesDir == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(s.templatesDir, info.DOCX))
	if err != nil {
		s.log.Warn("bundled template unavailable", "template", info.DOCX, "error", err)
		return nil
	}
	return data
}

// opStatus maps a session operation error to a status code. Failures the
// session already reported in its chat or document return 200 with the state.
func opStatus(err error) int {
	switch {
	case errors.Is(err, workspace.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrNoFeedback):
		return http.StatusBadRequest
	}
	return http.StatusOK
}

func (s *Server) writeState(w http.ResponseWriter, code int, sess *workspace.Session) {
	writeJSON(w, code, sess.Snapshot())
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type       string `json:"type"`
		TemplateID string `json:"templateId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	var name string
	var data []byte
	info := template.Lookup(req.Type)
	if req.TemplateID != "" {
		rec, buf, err := s.store.Get(r.Context(), req.TemplateID)
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "template not found")
			return
		}
		if err != nil {
			s.log.Error("get template failed", "error", err)
			writeErr(w, http.StatusInternalServerError, "read failed")
			return
		}
		name, data = rec.Name, buf
	} else {
		name, data = info.DOCX, s.bundledTemplate(info)
	}

	sess := s.sessions.Create(req.Type)
	if err := sess.LoadTemplate(r.Context(), name, data); err != nil {
		s.log.Warn("workspace template failed", "session", sess.ID, "error", err)
	}
	s.writeState(w, http.StatusCreated, sess)
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"workspaces": s.sessions.IDs()})
}

func (s *Server) handleWorkspaceState(w http.ResponseWriter, r *http.Request, sess *workspace.Session) {
	s.writeState(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Remove(chi.URLParam(r, "id")) {
		writeErr(w, http.StatusNotFound, "workspace not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSource runs the full generation plan against an uploaded PDF. The
// request returns once every step has finished; surfaces see each step as
// it lands.
func (s *Server) handleSource(w http.ResponseWriter, r *http.Request, sess *workspace.Session) {
	data, _, err := s.formFile(w, r, "file")
	if err != nil {
		writeErr(w, uploadStatus(err), "file is required")
		return
	}
	err = sess.Generate(context.WithoutCancel(r.Context()), data)
	s.writeState(w, opStatus(err), sess)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, sess *workspace.Session) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	err := sess.Feedback(context.WithoutCancel(r.Context()), req.Text)
	if errors.Is(err, workspace.ErrNoFeedback) {
		writeErr(w, http.StatusBadRequest, "text is required")
		return
	}
	s.writeState(w, opStatus(err), sess)
}

func (s *Server) handleReloadTemplate(w http.ResponseWriter, r *http.Request, sess *workspace.Session) {
	data, hdr, err := s.formFile(w, r, "file")
	if err != nil {
		writeErr(w, uploadStatus(err), "file is required")
		return
	}
	err = sess.LoadTemplate(r.Context(), store.CleanName(hdr.Filename), data)
	s.writeState(w, opStatus(err), sess)
}

// handlePatch applies a patch supplied directly by the client.
func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request, sess *workspace.Session) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		writeErr(w, uploadStatus(err), "invalid body")
		return
	}
	p, err := patch.ParseAndNormalize(string(body), template.NewKeySet(sess.Allowed()), nil)
	switch {
	case errors.Is(err, patch.ErrMalformed):
		writeErr(w, http.StatusBadRequest, "patch is not a JSON object")
		return
	case errors.Is(err, patch.ErrEmpty):
		writeErr(w, http.StatusUnprocessableEntity, "patch has no applicable keys")
		return
	case err != nil:
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.ApplyPatch(p, bridge.SourceUser, r.URL.Query().Get("focus"))
	s.writeState(w, http.StatusOK, sess)
}

func (s *Server) handleEditorSocket(w http.ResponseWriter, r *http.Request, sess *workspace.Session) {
	if err := sess.Hub().Serve(w, r, sess); err != nil {
		s.log.Warn("editor connection failed", "session", sess.ID, "error", err)
	}
}

func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request, sess *workspace.Session) {
	if err := bridge.ServeSurface(w, "/api/workspaces/"+sess.ID+"/editor"); err != nil {
		s.log.Error("render editor surface failed", "error", err)
	}
}
