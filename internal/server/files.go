package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/thywilljoshua/repot-ai/internal/ai"
	"github.com/thywilljoshua/repot-ai/internal/store"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// handleGenerate is the raw completion proxy: {prompt, type} in, {result} out.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
		Type   string `json:"type"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Prompt) == "" || strings.TrimSpace(req.Type) == "" {
		writeErr(w, http.StatusBadRequest, "요청 데이터가 올바르지 않습니다.")
		return
	}
	out, err := s.gen.Generate(r.Context(), ai.Request{
		System: ai.SystemPrompt(req.Type),
		Prompt: req.Prompt,
	})
	if err != nil {
		s.log.Error("generate failed", "type", req.Type, "error", err)
		writeErr(w, http.StatusInternalServerError, "AI 연결 실패")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": out})
}

// handleCallback receives save notifications from the document editing
// service and stores the edited file.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	name := store.CleanName(r.URL.Query().Get("file"))
	if name == "" {
		writeErr(w, http.StatusBadRequest, "file is required")
		return
	}
	var payload struct {
		Status int    `json:"status"`
		URL    string `json:"url"`
		Key    string `json:"key"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	// 2: ready for saving, 6: force save.
	if (payload.Status == 2 || payload.Status == 6) && payload.URL != "" {
		if err := s.uploads.Download(r.Context(), payload.URL, name); err != nil {
			s.log.Warn("callback download failed", "file", name, "key", payload.Key, "error", err)
			writeErr(w, http.StatusBadGateway, "download failed")
			return
		}
		s.log.Info("document saved from callback", "file", name, "status", payload.Status)
	}
	writeJSON(w, http.StatusOK, map[string]any{"error": 0})
}

// handleUpload writes a file into the public uploads folder.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, hdr, err := s.formFile(w, r, "file")
	if err != nil {
		writeErr(w, uploadStatus(err), "file is required")
		return
	}
	name, err := s.uploads.Save(hdr.Filename, data)
	if err != nil {
		s.log.Error("upload failed", "file", hdr.Filename, "error", err)
		writeErr(w, http.StatusInternalServerError, "upload failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"publicUrl": s.uploads.PublicURL(name, r.Header.Get("Origin")),
	})
}

// handleSaveTemplate stores a DOCX template record. With publish=true the
// file is also written to the uploads folder.
func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	data, hdr, err := s.formFile(w, r, "file")
	if err != nil {
		writeErr(w, uploadStatus(err), "file is required")
		return
	}
	var publicURL string
	if r.FormValue("publish") == "true" {
		name, err := s.uploads.Save(hdr.Filename, data)
		if err != nil {
			s.log.Error("publish template failed", "file", hdr.Filename, "error", err)
			writeErr(w, http.StatusInternalServerError, "upload failed")
			return
		}
		publicURL = s.uploads.PublicURL(name, r.Header.Get("Origin"))
	}
	rec, err := s.store.Save(r.Context(), store.CleanName(hdr.Filename), data, publicURL)
	if err != nil {
		s.log.Error("save template failed", "error", err)
		writeErr(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("list templates failed", "error", err)
		writeErr(w, http.StatusInternalServerError, "list failed")
		return
	}
	if list == nil {
		list = []store.Template{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": list})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	rec, data, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "template not found")
		return
	}
	if err != nil {
		s.log.Error("get template failed", "error", err)
		writeErr(w, http.StatusInternalServerError, "read failed")
		return
	}
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
