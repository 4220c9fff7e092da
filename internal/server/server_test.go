package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"risklab/internal/domain"
	"risklab/internal/storage/memory"
)

func int64Ptr(v int64) *int64 { return &v }

type testEnv struct {
	server        *Server
	http          *httptest.Server
	scenarioStore *memory.ScenarioStore
	runStore      *memory.SimulationRunStore
	outcomeStore  *memory.OutcomeSampleStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		scenarioStore: memory.NewScenarioStore(),
		runStore:      memory.NewSimulationRunStore(),
		outcomeStore:  memory.NewOutcomeSampleStore(),
	}
	env.server = New(Options{
		ScenarioStore: env.scenarioStore,
		RunStore:      env.runStore,
		OutcomeStore:  env.outcomeStore,
	})
	env.http = httptest.NewServer(env.server.Handler())
	t.Cleanup(env.http.Close)
	return env
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(e.http.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.http.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func testRequest(iterations int, seed int64) SimulateRequest {
	return SimulateRequest{
		Scenarios: []*domain.RiskScenario{
			{
				ScenarioID:        "s-breach",
				Name:              "Data breach",
				ProbabilityAnnual: 0.3,
				Impact:            domain.ImpactEstimate{Min: 10_000, Likely: 75_000, Max: 500_000},
			},
			{
				ScenarioID:        "s-outage",
				Name:              "Extended outage",
				ProbabilityAnnual: 0.6,
				Impact:            domain.ImpactEstimate{Min: 5_000, Likely: 20_000, Max: 90_000},
			},
		},
		Parameters: &domain.SimulationParameters{
			Iterations:                iterations,
			ConfidenceLevels:          []float64{50, 95, 99},
			TimeHorizonYears:          3,
			DiscountRate:              0.05,
			Seed:                      int64Ptr(seed),
			CatastrophicLossThreshold: 200_000,
		},
	}
}

// waitTerminal polls GET /api/v1/runs/{id} until the run leaves RUNNING.
func (e *testEnv) waitTerminal(t *testing.T, runID string) *domain.SimulationResult {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp := e.get(t, "/api/v1/runs/"+runID)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.Fatalf("GET run status = %d", resp.StatusCode)
		}
		result := decodeJSON[*domain.SimulationResult](t, resp)
		if result.Status != statusRunning {
			return result
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal status")
	return nil
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/healthz")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestSimulate_Sync(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/v1/simulate", testRequest(10_000, 42))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	result := decodeJSON[*domain.SimulationResult](t, resp)

	if result.Status != domain.StatusComplete {
		t.Errorf("status = %s, want COMPLETE", result.Status)
	}
	if result.IterationsCompleted != 10_000 {
		t.Errorf("iterations completed = %d, want 10000", result.IterationsCompleted)
	}
	if result.Seed != 42 {
		t.Errorf("seed = %d, want 42", result.Seed)
	}

	// The result is persisted before the response is written.
	stored, err := env.runStore.GetByID(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("stored run lookup: %v", err)
	}
	if stored.Status != domain.StatusComplete {
		t.Errorf("stored status = %s, want COMPLETE", stored.Status)
	}
}

func TestSimulate_PersistsOutcomes(t *testing.T) {
	env := newTestEnv(t)

	req := testRequest(2_000, 7)
	req.Parameters.RetainOutcomes = true

	resp := env.post(t, "/api/v1/simulate", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	result := decodeJSON[*domain.SimulationResult](t, resp)

	outcomes, err := env.outcomeStore.GetByRunID(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("outcome lookup: %v", err)
	}
	if len(outcomes) != 2_000 {
		t.Errorf("persisted outcomes = %d, want 2000", len(outcomes))
	}
}

func TestSimulate_StoredScenarios(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, s := range testRequest(1, 0).Scenarios {
		if err := env.scenarioStore.Insert(ctx, s); err != nil {
			t.Fatalf("seed scenario: %v", err)
		}
	}

	// No inline scenarios: the stored set is simulated.
	req := SimulateRequest{Parameters: testRequest(5_000, 9).Parameters}
	resp := env.post(t, "/api/v1/simulate", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	result := decodeJSON[*domain.SimulationResult](t, resp)
	if result.ScenarioCount != 2 {
		t.Errorf("scenario count = %d, want 2", result.ScenarioCount)
	}

	// Referencing a missing scenario id is a 404.
	req = SimulateRequest{
		ScenarioIDs: []string{"no-such-scenario"},
		Parameters:  testRequest(1_000, 9).Parameters,
	}
	resp = env.post(t, "/api/v1/simulate", req)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing scenario status = %d, want 404", resp.StatusCode)
	}
}

func TestSimulate_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	req := testRequest(1_000, 1)
	req.Scenarios[0].ProbabilityAnnual = 1.5
	resp := env.post(t, "/api/v1/simulate", req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid scenario status = %d, want 400", resp.StatusCode)
	}

	req = testRequest(0, 1)
	resp = env.post(t, "/api/v1/simulate", req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid parameters status = %d, want 400", resp.StatusCode)
	}

	httpResp, err := http.Post(env.http.URL+"/api/v1/simulate", "application/json",
		strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", httpResp.StatusCode)
	}
}

func TestStartRun_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/v1/runs", testRequest(50_000, 11))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	status := decodeJSON[RunStatusResponse](t, resp)
	if status.RunID == "" {
		t.Fatal("empty run_id")
	}
	if status.Status != statusRunning {
		t.Errorf("status = %s, want RUNNING", status.Status)
	}
	if status.Seed != 11 {
		t.Errorf("seed = %d, want 11", status.Seed)
	}

	result := env.waitTerminal(t, status.RunID)
	if result.Status != domain.StatusComplete {
		t.Errorf("terminal status = %s, want COMPLETE", result.Status)
	}
	if result.RunID != status.RunID {
		t.Errorf("result run_id = %s, want %s", result.RunID, status.RunID)
	}
	if result.IterationsCompleted != 50_000 {
		t.Errorf("iterations completed = %d, want 50000", result.IterationsCompleted)
	}
}

func TestRunControl(t *testing.T) {
	env := newTestEnv(t)

	// Large enough that the run is still in flight while we drive it.
	req := testRequest(5_000_000, 13)
	req.Parameters.Workers = 2
	req.Parameters.BatchSize = 1_000

	resp := env.post(t, "/api/v1/runs", req)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start status = %d, want 202", resp.StatusCode)
	}
	status := decodeJSON[RunStatusResponse](t, resp)
	runID := status.RunID

	resp = env.post(t, "/api/v1/runs/"+runID+"/pause", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pause status = %d, want 200", resp.StatusCode)
	}
	paused := decodeJSON[RunStatusResponse](t, resp)
	if !paused.Paused {
		t.Error("run not paused after pause")
	}

	resp = env.post(t, "/api/v1/runs/"+runID+"/resume", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resume status = %d, want 200", resp.StatusCode)
	}
	resumed := decodeJSON[RunStatusResponse](t, resp)
	if resumed.Paused {
		t.Error("run still paused after resume")
	}

	resp = env.post(t, "/api/v1/runs/"+runID+"/cancel", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	result := env.waitTerminal(t, runID)
	if result.Status != domain.StatusPartial {
		t.Errorf("terminal status = %s, want PARTIAL", result.Status)
	}
	if result.IterationsCompleted >= 5_000_000 {
		t.Errorf("iterations completed = %d, want < requested", result.IterationsCompleted)
	}
}

func TestRunControl_UnknownAndFinished(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/v1/runs/no-such-run/cancel", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown run status = %d, want 404", resp.StatusCode)
	}

	// A finished, persisted run cannot be controlled.
	resp = env.post(t, "/api/v1/simulate", testRequest(1_000, 3))
	result := decodeJSON[*domain.SimulationResult](t, resp)

	resp = env.post(t, "/api/v1/runs/"+result.RunID+"/pause", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("finished run status = %d, want 409", resp.StatusCode)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/v1/runs/no-such-run")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestProgressStream(t *testing.T) {
	env := newTestEnv(t)

	// Long enough that the stream attaches before the final frame.
	resp := env.post(t, "/api/v1/runs", testRequest(10_000_000, 17))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start status = %d, want 202", resp.StatusCode)
	}
	status := decodeJSON[RunStatusResponse](t, resp)

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") +
		"/api/v1/runs/" + status.RunID + "/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial progress stream: %v", err)
	}
	defer conn.Close()

	var final domain.ProgressUpdate
	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		var update domain.ProgressUpdate
		if err := conn.ReadJSON(&update); err != nil {
			t.Fatalf("read progress frame: %v", err)
		}
		if update.TotalIterations != 10_000_000 {
			t.Errorf("total iterations = %d, want 10000000", update.TotalIterations)
		}
		if update.Final {
			final = update
			break
		}
	}

	if final.Result == nil {
		t.Fatal("final frame missing result")
	}
	if final.Result.Status != domain.StatusComplete {
		t.Errorf("final status = %s, want COMPLETE", final.Result.Status)
	}
	if final.IterationsCompleted != 10_000_000 {
		t.Errorf("final iterations = %d, want 10000000", final.IterationsCompleted)
	}

	// After the final frame the server closes the socket normally.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected close after final frame")
	}
}

func TestProgressStream_FinishedRun(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/v1/simulate", testRequest(1_000, 5))
	result := decodeJSON[*domain.SimulationResult](t, resp)

	resp = env.get(t, "/api/v1/runs/"+result.RunID+"/progress")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("finished run progress status = %d, want 409", resp.StatusCode)
	}
}
