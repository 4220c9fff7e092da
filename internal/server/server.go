// Package server exposes the simulation engine over HTTP: synchronous and
// asynchronous run endpoints, run control (cancel/pause/resume), and a
// WebSocket progress stream.
package server

import (
	"log"
	"net/http"
	"os"
	"sync"

	"risklab/internal/engine"
	"risklab/internal/observability"
	"risklab/internal/storage"
)

// Options configures a Server. ScenarioStore and RunStore are required;
// OutcomeStore is optional and enables per-iteration outcome persistence for
// runs configured with retain_outcomes.
type Options struct {
	ScenarioStore storage.ScenarioStore
	RunStore      storage.SimulationRunStore
	OutcomeStore  storage.OutcomeSampleStore
	Logger        *log.Logger
}

// Server routes simulation requests to the engine and tracks in-flight runs.
type Server struct {
	scenarioStore storage.ScenarioStore
	runStore      storage.SimulationRunStore
	outcomeStore  storage.OutcomeSampleStore
	logger        *log.Logger

	mu   sync.RWMutex
	runs map[string]*engine.Run // in-flight and recently finished handles
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)
	}

	return &Server{
		scenarioStore: opts.ScenarioStore,
		runStore:      opts.RunStore,
		outcomeStore:  opts.OutcomeStore,
		logger:        logger,
		runs:          make(map[string]*engine.Run),
	}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("POST /api/v1/simulate", s.handleSimulate)
	mux.HandleFunc("POST /api/v1/runs", s.handleStartRun)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("POST /api/v1/runs/{id}/cancel", s.handleControl("cancel"))
	mux.HandleFunc("POST /api/v1/runs/{id}/pause", s.handleControl("pause"))
	mux.HandleFunc("POST /api/v1/runs/{id}/resume", s.handleControl("resume"))
	mux.HandleFunc("GET /api/v1/runs/{id}/progress", s.handleProgress)

	return mux
}

// register tracks an in-flight run handle.
func (s *Server) register(r *engine.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID()] = r
}

// lookup returns the handle for an in-flight run, or nil.
func (s *Server) lookup(id string) *engine.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs[id]
}

// unregister drops a handle once its result has been persisted.
func (s *Server) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
}
