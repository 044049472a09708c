// Package server exposes the HTTP API: the generate proxy, template uploads,
// the editing service callback and the workspace endpoints.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thywilljoshua/repot-ai/internal/ai"
	"github.com/thywilljoshua/repot-ai/internal/logging"
	"github.com/thywilljoshua/repot-ai/internal/store"
	"github.com/thywilljoshua/repot-ai/internal/template"
	"github.com/thywilljoshua/repot-ai/internal/workspace"
)

// DefaultMaxUpload is used when Options.MaxUploadBytes is zero.
const DefaultMaxUpload = 25 << 20

// Options wires the server's collaborators. Nil Generator, Store and
// Sessions get inert or in-memory defaults.
type Options struct {
	Generator      ai.Generator
	Store          store.Store
	Uploads        *store.Uploads
	Sessions       *workspace.Manager
	TemplatesDir   string
	MaxUploadBytes int64
	Log            *slog.Logger
}

type Server struct {
	gen          ai.Generator
	store        store.Store
	uploads      *store.Uploads
	sessions     *workspace.Manager
	templatesDir string
	maxUpload    int64
	log          *slog.Logger
}

func New(opts Options) *Server {
	s := &Server{
		gen:          opts.Generator,
		store:        opts.Store,
		uploads:      opts.Uploads,
		sessions:     opts.Sessions,
		templatesDir: opts.TemplatesDir,
		maxUpload:    opts.MaxUploadBytes,
		log:          logging.Or(opts.Log),
	}
	if s.gen == nil {
		s.gen = ai.Noop{}
	}
	if s.store == nil {
		s.store = store.NewMemory()
	}
	if s.uploads == nil {
		s.uploads = &store.Uploads{Dir: "public/uploads"}
	}
	if s.sessions == nil {
		s.sessions = workspace.NewManager(s.gen, s.log)
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUpload
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"categories": template.All()})
	})
	r.Post("/api/generate", s.handleGenerate)
	r.Post("/api/onlyoffice/callback", s.handleCallback)

	r.Route("/api/templates", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/", s.handleListTemplates)
		r.Post("/", s.handleSaveTemplate)
		r.Get("/{id}", s.handleGetTemplate)
	})

	r.Route("/api/workspaces", func(r chi.Router) {
		r.Get("/", s.handleListWorkspaces)
		r.Post("/", s.handleCreateWorkspace)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.withSession(s.handleWorkspaceState))
			r.Delete("/", s.handleDeleteWorkspace)
			r.Post("/source", s.withSession(s.handleSource))
			r.Post("/feedback", s.withSession(s.handleFeedback))
			r.Post("/template", s.withSession(s.handleReloadTemplate))
			r.Post("/patch", s.withSession(s.handlePatch))
			r.Get("/editor", s.withSession(s.handleEditorSocket))
		})
	})
	r.Get("/editor/{id}", s.withSession(s.handleSurface))

	r.Handle("/uploads/*", http.StripPrefix(store.UploadsPath, http.FileServer(http.Dir(s.uploads.Dir))))
	if s.templatesDir != "" {
		r.Handle("/templates/*", http.StripPrefix("/templates/", http.FileServer(http.Dir(s.templatesDir))))
	}
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// formFile reads the multipart field name into memory.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request, name string) ([]byte, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	f, hdr, err := r.FormFile(name)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read upload: %w", err)
	}
	return data, hdr, nil
}

// uploadStatus maps a formFile error to a status code.
func uploadStatus(err error) int {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
