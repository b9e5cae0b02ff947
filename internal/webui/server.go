// Package webui serves the JSON API behind the field editor and a small
// index page.
//
// Routes:
//
//	GET    /                     → index page listing the operations
//	GET    /health               → liveness
//	GET    /api/operations       → operation catalog
//	POST   /api/fields?name=     → infer fields of the JSONL body, bind saved config
//	GET    /api/config           → ids with a saved configuration
//	DELETE /api/config           → forget every saved configuration
//	GET    /api/config/{fileID}  → saved configuration
//	PUT    /api/config/{fileID}  → replace the saved configuration
//	DELETE /api/config/{fileID}  → forget the saved configuration
//	POST   /api/run              → run the pipeline, return generated files
package webui

import (
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"jsonlkit/internal/errs"
	"jsonlkit/internal/pipeline"
	"jsonlkit/internal/storage"
)

// DefaultMaxUploadBytes caps request bodies.
const DefaultMaxUploadBytes = 100 << 20

// Config controls server startup.
type Config struct {
	Addr string
	// Store persists field configurations. Nil disables persistence.
	Store storage.Store
	// AllowedOrigins enables CORS for browser front ends.
	AllowedOrigins []string
	MaxUploadBytes int64
	// Job labels metrics for runs started through the API.
	Job string
}

// Server holds the router and its dependencies.
type Server struct {
	cfg    Config
	router chi.Router
	tmpl   *template.Template
}

// NewServer constructs a Server with routes and the embedded template.
func NewServer(cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Job == "" {
		cfg.Job = "jsonlkit-web"
	}
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		tmpl:   template.Must(template.New("index").Parse(indexHTML)),
	}
	s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/", s.handleIndex)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/operations", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, pipeline.Catalog())
		})
		r.Post("/fields", s.handleFields)
		r.Post("/run", s.handleRun)
		r.Route("/config", func(r chi.Router) {
			r.Get("/", s.handleListConfigs)
			r.Delete("/", s.handleClearAll)
			r.Get("/{fileID}", s.handleGetConfig)
			r.Put("/{fileID}", s.handlePutConfig)
			r.Delete("/{fileID}", s.handleDeleteConfig)
		})
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, pipeline.Catalog()); err != nil {
		log.Printf("webui: template error err=%v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps error classes to status codes: input and configuration
// problems are the caller's, anything else is ours.
func writeError(w http.ResponseWriter, err error) {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error(), Kind: "input"})
	case errs.IsInput(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Kind: "input"})
	case errs.IsConfig(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "config"})
	default:
		log.Printf("webui: internal error err=%v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: "internal"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("webui: encode response err=%v", err)
	}
}

// indexHTML is the embedded landing page.
//
//go:embed index.tmpl.html
var indexHTML string
