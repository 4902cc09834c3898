// Package server exposes the bot over HTTP for long-running deployments.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jankiebot/jankie/internal/concurrency"
	"github.com/jankiebot/jankie/internal/logging"
	"github.com/jankiebot/jankie/internal/scanner"
)

// ErrBusy is returned by TryRun while another pass is in progress.
var ErrBusy = errors.New("scan already running")

// Runner performs one pass.
type Runner interface {
	Run(ctx context.Context) (*scanner.Result, error)
}

// Info is reported by GET /.
type Info struct {
	Subreddit string
	DryRun    bool
}

// Server serves /run, /health, /metrics and / for a single Runner.
type Server struct {
	runner    Runner
	info      Info
	logger    logging.Logger
	metrics   http.Handler
	jwtSecret []byte
	guard     *concurrency.Manager
}

// New creates a Server for runner.
func New(runner Runner, info Info, logger logging.Logger) *Server {
	return &Server{runner: runner, info: info, logger: logger, guard: concurrency.NewManager()}
}

// WithMetrics serves h on GET /metrics.
func (s *Server) WithMetrics(h http.Handler) *Server {
	s.metrics = h
	return s
}

// WithJWTSecret requires an HS256 bearer token on POST /run.
func (s *Server) WithJWTSecret(secret string) *Server {
	s.jwtSecret = []byte(secret)
	return s
}

// TryRun runs one pass unless one is already in progress.
func (s *Server) TryRun(ctx context.Context) (*scanner.Result, error) {
	if !s.guard.TryAcquire(s.info.Subreddit) {
		return nil, ErrBusy
	}
	defer s.guard.Release(s.info.Subreddit)
	return s.runner.Run(ctx)
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/run", s.requireToken(s.handleRun)).Methods("POST")

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods("GET")
	}

	// Root endpoint with info
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":   "jankie",
			"status":    "running",
			"subreddit": s.info.Subreddit,
			"dry_run":   s.info.DryRun,
		})
	}).Methods("GET")

	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.TryRun(r.Context())
	switch {
	case errors.Is(err, ErrBusy):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
