// Package server exposes the download pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"igfetch/pkg/logger"
	"igfetch/pkg/metrics"
	"igfetch/pkg/storage"
	"igfetch/pkg/strategy"
)

// Service identity reported by / and /health
const (
	ServiceName = "igfetch"
	banner      = "Instagram Video Downloader API"
	bannerNote  = "Multiple fallback methods, no login required"
)

// Submitter runs one pipeline job and waits for it. *worker.Pool satisfies it.
type Submitter interface {
	Submit(ctx context.Context, id, rawURL string) (*strategy.Result, error)
}

// QueueStats is implemented by submitters that can report their load.
// *worker.Pool satisfies it; /health includes the numbers when present.
type QueueStats interface {
	QueueSize() int
	ActiveWorkers() int
}

// Options wires a Server to its collaborators
type Options struct {
	Jobs           Submitter
	Storage        *storage.Manager
	Strategies     []strategy.Name
	Metrics        *metrics.Metrics
	Logger         logger.Logger
	RequestTimeout time.Duration
	Version        string

	// Now is used for /health timestamps; defaults to time.Now
	Now func() time.Time
}

// Server wires HTTP handlers to the worker pool and the output directory.
type Server struct {
	router chi.Router
	opts   Options
	logger logger.Logger
}

// New constructs a Server with middleware and routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Version == "" {
		opts.Version = logger.Version
	}

	s := &Server{opts: opts, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(opts.Metrics.Middleware)
	r.Use(s.recoverMiddleware)
	r.Use(corsMiddleware)

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Handle("/metrics", opts.Metrics.Handler())
	r.Post("/download", s.download)
	r.Get("/downloads/{filename}", s.serveVideo)
	r.Head("/downloads/{filename}", s.serveVideo)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
