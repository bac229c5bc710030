// Package server implements the dtsfetch HTTP API.
//
// Routes:
//
//	POST /v1/acquire     acquire declarations for {"source": "..."}
//	GET  /v1/runs/{id}   a stored run
//	GET  /healthz        liveness
//	GET  /metrics        Prometheus metrics, when enabled
//
// Every acquisition gets a fresh session, so requests never share resolved
// modules; registry responses are shared through the client's cache.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/dtsfetch/internal/metrics"
	"github.com/matzehuels/dtsfetch/pkg/acquire"
	"github.com/matzehuels/dtsfetch/pkg/buildinfo"
	dterrors "github.com/matzehuels/dtsfetch/pkg/errors"
	"github.com/matzehuels/dtsfetch/pkg/store"
)

const (
	DefaultAddr           = ":8080"
	DefaultMaxSourceBytes = 1 << 20
	shutdownTimeout       = 10 * time.Second
)

// Options configures a [Server].
type Options struct {
	Addr           string           // Default: DefaultAddr
	Logger         *log.Logger      // Default: log.Default()
	Metrics        *metrics.Metrics // Serves /metrics when set
	Runs           store.Loader     // Required
	Acquire        acquire.Config   // Template for each request; Delegate is replaced
	MaxSourceBytes int64            // Default: DefaultMaxSourceBytes
}

// Server serves acquisitions over HTTP.
type Server struct {
	opts    Options
	log     *log.Logger
	metrics *metrics.Metrics
	runs    store.Loader
	router  chi.Router
}

// New creates a Server and its routes.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxSourceBytes <= 0 {
		opts.MaxSourceBytes = DefaultMaxSourceBytes
	}
	s := &Server{
		opts:    opts,
		log:     opts.Logger,
		metrics: opts.Metrics,
		runs:    opts.Runs,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.logMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/acquire", s.handleAcquire)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

type acquireRequest struct {
	Source   string `json:"source"`
	MaxDepth *int   `json:"max_depth,omitempty"`
}

type acquireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type acquireResponse struct {
	ID     string            `json:"id"`
	Files  map[string]string `json:"files"`
	Errors []acquireError    `json:"errors"`
}

func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	var req acquireRequest
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxSourceBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "source too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	if req.MaxDepth != nil && *req.MaxDepth < 0 {
		writeError(w, http.StatusBadRequest, "max_depth must not be negative")
		return
	}

	errs := []acquireError{}
	cfg := s.opts.Acquire
	cfg.Logger = s.log.With("request_id", RequestID(r.Context()))
	cfg.Delegate = acquire.Delegate{
		ErrorMessage: func(msg string, err error) {
			errs = append(errs, acquireError{Code: string(dterrors.GetCode(err)), Message: msg})
		},
	}
	// Requests may lower the depth bound but not raise it.
	if d := req.MaxDepth; d != nil && *d < cfg.DepthLimit() {
		cfg.MaxDepth = *d
		if *d == 0 {
			cfg.MaxDepth = acquire.RootOnly
		}
	}

	sess := acquire.New(cfg)
	if err := sess.Run(r.Context(), req.Source); err != nil {
		if r.Context().Err() != nil {
			// The client went away.
			return
		}
		writeError(w, http.StatusInternalServerError, dterrors.UserMessage(err))
		return
	}

	run := store.NewRun(req.Source, sess.Files())
	if err := s.runs.Save(r.Context(), run); err != nil {
		s.log.Error("store run", "id", run.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "could not store run")
		return
	}

	writeJSON(w, http.StatusOK, acquireResponse{ID: run.ID, Files: run.Files, Errors: errs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.runs.Load(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.log.Error("load run", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

// =============================================================================
// Responses
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
