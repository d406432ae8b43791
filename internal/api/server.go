package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/dgallion1/docoutline/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DocumentStore is the catalogue behind the /api/documents endpoints.
type DocumentStore interface {
	Get(ctx context.Context, id string) (*doctree.Document, error)
	List(ctx context.Context, limit int) ([]store.Summary, error)
	Delete(ctx context.Context, id string) error
}

// Remover deletes a document from a secondary sink such as the pathstore
// mirror.
type Remover interface {
	Name() string
	Delete(ctx context.Context, id string) error
}

// Server is the HTTP API server for docoutline.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	docs         DocumentStore
	removers     []Remover
	builder      *outline.Builder
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. docs may be nil, in
// which case the document endpoints answer 503.
func NewServer(orch *pipeline.Orchestrator, docs DocumentStore, removers []Remover, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		docs:         docs,
		removers:     removers,
		builder:      outline.NewBuilder(outline.DefaultRules()),
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.OutlineAPIKey, s.log))

		r.Post("/api/outline", s.handleOutline)
		r.Post("/api/outline/batch", s.handleBatchOutline)
		r.Post("/api/outline/blocks", s.handleOutlineBlocks)
		r.Get("/api/outline/{jobID}", s.handleOutlineResult)
		r.Get("/api/outline/{jobID}/status", s.handleOutlineStatus)
		r.Get("/api/outline/{jobID}/blocks", s.handleJobBlocks)
		r.Get("/api/outline/{jobID}/sections", s.handleJobSections)
		r.Get("/api/stats", s.handleStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
