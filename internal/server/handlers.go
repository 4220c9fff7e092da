package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"risklab/internal/domain"
	"risklab/internal/engine"
	"risklab/internal/storage"
)

// SimulateRequest is the request body for POST /api/v1/simulate and
// POST /api/v1/runs. Scenarios may be inlined or referenced by id; when both
// are empty the full stored scenario set is simulated.
type SimulateRequest struct {
	Scenarios   []*domain.RiskScenario       `json:"scenarios,omitempty"`
	ScenarioIDs []string                     `json:"scenario_ids,omitempty"`
	Parameters  *domain.SimulationParameters `json:"parameters,omitempty"`
}

// RunStatusResponse describes an in-flight run.
type RunStatusResponse struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	Seed       int64  `json:"seed"`
	Iterations int    `json:"iterations"`
	Paused     bool   `json:"paused"`
}

// statusRunning marks a run that has not reached a terminal status yet.
const statusRunning = "RUNNING"

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// handleSimulate runs a simulation synchronously and returns the result.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	scenarios, params, ok := s.decodeSimulateRequest(w, r)
	if !ok {
		return
	}

	result, err := engine.RunSync(r.Context(), scenarios, params)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.persist(r.Context(), result)
	s.writeJSON(w, http.StatusOK, result)
}

// handleStartRun launches a simulation asynchronously and returns its id.
// The run outlives the request; its result is persisted on completion.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	scenarios, params, ok := s.decodeSimulateRequest(w, r)
	if !ok {
		return
	}

	run, err := engine.Start(context.Background(), scenarios, params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.register(run)

	go func() {
		result, err := run.Wait(context.Background())
		if err != nil {
			return
		}
		s.persist(context.Background(), result)
		s.unregister(run.ID())
	}()

	s.writeJSON(w, http.StatusAccepted, RunStatusResponse{
		RunID:      run.ID(),
		Status:     statusRunning,
		Seed:       run.Seed(),
		Iterations: params.Iterations,
	})
}

// handleGetRun returns an in-flight run's status or a finished run's result.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if run := s.lookup(id); run != nil {
		if result := run.Result(); result != nil {
			s.writeJSON(w, http.StatusOK, result)
			return
		}
		s.writeJSON(w, http.StatusOK, RunStatusResponse{
			RunID:  run.ID(),
			Status: statusRunning,
			Seed:   run.Seed(),
			Paused: run.Paused(),
		})
		return
	}

	result, err := s.runStore.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleControl returns a handler applying one control action to a run.
// Control actions are idempotent, mirroring the engine's semantics.
func (s *Server) handleControl(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		run := s.lookup(id)
		if run == nil {
			// A persisted run is finished; control is meaningless.
			if _, err := s.runStore.GetByID(r.Context(), id); err == nil {
				s.writeJSON(w, http.StatusConflict, errorResponse{Error: "run already finished"})
				return
			}
			s.writeError(w, storage.ErrNotFound)
			return
		}

		switch action {
		case "cancel":
			run.Cancel()
		case "pause":
			run.Pause()
		case "resume":
			run.Resume()
		}

		s.writeJSON(w, http.StatusOK, RunStatusResponse{
			RunID:  run.ID(),
			Status: statusRunning,
			Seed:   run.Seed(),
			Paused: run.Paused(),
		})
	}
}

// decodeSimulateRequest parses the request body and resolves scenarios and
// parameters. On failure the error response has been written and ok is false.
func (s *Server) decodeSimulateRequest(w http.ResponseWriter, r *http.Request) ([]*domain.RiskScenario, domain.SimulationParameters, bool) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return nil, domain.SimulationParameters{}, false
	}

	scenarios, err := s.resolveScenarios(r.Context(), &req)
	if err != nil {
		s.writeError(w, err)
		return nil, domain.SimulationParameters{}, false
	}

	params := domain.DefaultParameters()
	if req.Parameters != nil {
		params = *req.Parameters
	}

	return scenarios, params, true
}

// resolveScenarios picks the scenario set: inline scenarios win, then
// referenced ids, then the whole store.
func (s *Server) resolveScenarios(ctx context.Context, req *SimulateRequest) ([]*domain.RiskScenario, error) {
	if len(req.Scenarios) > 0 {
		return req.Scenarios, nil
	}

	if len(req.ScenarioIDs) > 0 {
		scenarios := make([]*domain.RiskScenario, 0, len(req.ScenarioIDs))
		for _, id := range req.ScenarioIDs {
			sc, err := s.scenarioStore.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			scenarios = append(scenarios, sc)
		}
		return scenarios, nil
	}

	return s.scenarioStore.GetAll(ctx)
}

// persist stores the run result, and its outcome sample when retained and an
// outcome store is configured. Persistence failures are logged, not fatal:
// the result already reached the caller.
func (s *Server) persist(ctx context.Context, result *domain.SimulationResult) {
	if err := s.runStore.Insert(ctx, result); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		s.logger.Printf("persist run %s: %v", result.RunID, err)
		return
	}

	if s.outcomeStore == nil || len(result.Outcomes) == 0 {
		return
	}

	// The merged outcome slice is ordered by global iteration index.
	outcomes := make([]*domain.IterationOutcome, len(result.Outcomes))
	for i, loss := range result.Outcomes {
		outcomes[i] = &domain.IterationOutcome{
			RunID:     result.RunID,
			Iteration: i,
			Loss:      loss,
		}
	}
	if err := s.outcomeStore.InsertBulk(ctx, outcomes); err != nil {
		s.logger.Printf("persist outcomes for run %s: %v", result.RunID, err)
	}
}

// writeError maps domain and storage errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidScenario),
		errors.Is(err, domain.ErrInvalidParameters),
		errors.Is(err, storage.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}
