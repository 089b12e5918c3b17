package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/jobtracker/internal/blob"
	"github.com/example/jobtracker/internal/classify"
	"github.com/example/jobtracker/internal/config"
	"github.com/example/jobtracker/internal/store"
)

type Server struct {
	Store     *store.Store
	Blobs     blob.LocalFS
	Generator classify.Generator // nil when no AI provider is configured
	Config    config.Config

	mu      sync.Mutex
	syncing map[string]bool // owners with a sync in flight
}

func NewServer(st *store.Store, blobs blob.LocalFS, gen classify.Generator, cfg config.Config) *Server {
	return &Server{
		Store:     st,
		Blobs:     blobs,
		Generator: gen,
		Config:    cfg,
		syncing:   make(map[string]bool),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/applications", func(r chi.Router) {
			r.Get("/", s.handleListApplications)
			r.Post("/", s.handleCreateApplication)
			r.Get("/{id}", s.handleGetApplication)
			r.Put("/{id}", s.handleUpdateApplication)
			r.Delete("/{id}", s.handleDeleteApplication)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Put("/{id}", s.handleUpdateTask)
			r.Delete("/{id}", s.handleDeleteTask)
		})

		r.Get("/stats", s.handleStats)
		r.Get("/achievements", s.handleAchievements)
		r.Post("/reset", s.handleReset)

		r.Route("/email", func(r chi.Router) {
			r.Post("/sync", s.handleEmailSync)
			r.Get("/sync-status", s.handleSyncStatus)
		})

		r.Route("/ai", func(r chi.Router) {
			r.Post("/chat", s.handleAIChat)
			r.Get("/status", s.handleAIStatus)
		})

		r.Route("/resumes", func(r chi.Router) {
			r.Get("/", s.handleListResumes)
			r.Post("/", s.handleUploadResume)
			r.Get("/active", s.handleActiveResume)
			r.Post("/extract-text", s.handleExtractText)
			r.Get("/{id}", s.handleDownloadResume)
			r.Delete("/{id}", s.handleDeleteResume)
			r.Post("/{id}/activate", s.handleActivateResume)
			r.Post("/{id}/analyze-ats", s.handleAnalyzeATS)
		})
	})

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Owner")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// owner resolves the acting owner: the X-Owner header when supplied,
// otherwise the configured default (single-user mode).
func (s *Server) owner(r *http.Request) string {
	if v := r.Header.Get("X-Owner"); v != "" {
		return v
	}
	return s.Config.DefaultOwner
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
