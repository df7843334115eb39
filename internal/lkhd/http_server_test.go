package lkhd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, &buf))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "invalid json %q", rr.Body.String())
	return rr, out
}

func TestHTTPServerHealthz(t *testing.T) {
	store, executor, _ := newTestExecutor(t, fakeSolver, 1)
	srv := NewHTTPServer(store, executor)

	rr, body := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestHTTPServerRunLifecycle(t *testing.T) {
	store, executor, _ := newTestExecutor(t, fakeSolver, 1)
	h := NewHTTPServer(store, executor).Handler()

	rr, body := doJSON(t, h, http.MethodPost, "/v1/runs", map[string]any{
		"run_id":     "square-1",
		"problem":    squareInput().Problem,
		"precision":  1,
		"parameters": map[string]string{"runs": "2"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, "%v", body)
	run := body["run"].(map[string]any)
	assert.Equal(t, "square-1", run["id"])

	waitForStatus(t, store, "square-1", StatusCompleted)

	rr, body = doJSON(t, h, http.MethodGet, "/v1/runs/square-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, string(StatusCompleted), body["run"].(map[string]any)["status"])

	rr, body = doJSON(t, h, http.MethodGet, "/v1/runs/square-1/tour", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	ids := body["tour"].(map[string]any)["node_ids"].([]any)
	require.Len(t, ids, 4)
	assert.Equal(t, "a", ids[0])

	rr, body = doJSON(t, h, http.MethodGet, "/v1/runs?limit=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, body["count"])

	// Completed runs cannot be stopped.
	rr, _ = doJSON(t, h, http.MethodPost, "/v1/runs/square-1:stop", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHTTPServerNumericParameters(t *testing.T) {
	store, executor, workRoot := newTestExecutor(t, fakeSolver, 1)
	executor.cfg.KeepRunDirs = true
	h := NewHTTPServer(store, executor).Handler()

	rr, body := doJSON(t, h, http.MethodPost, "/v1/runs", map[string]any{
		"run_id":     "numeric",
		"problem":    squareInput().Problem,
		"parameters": map[string]any{"max_trials": 100, "backtracking": true},
	})
	require.Equal(t, http.StatusCreated, rr.Code, "%v", body)
	waitForStatus(t, store, "numeric", StatusCompleted)

	par, err := os.ReadFile(filepath.Join(workRoot, "numeric", "square.par"))
	require.NoError(t, err)
	assert.Contains(t, string(par), "MAX_TRIALS = 100\n")
	assert.Contains(t, string(par), "BACKTRACKING = YES\n")
}

func TestHTTPServerStopRun(t *testing.T) {
	store, executor, _ := newTestExecutor(t, sleepySolver, 1)
	h := NewHTTPServer(store, executor).Handler()

	rr, body := doJSON(t, h, http.MethodPost, "/v1/runs", map[string]any{
		"run_id":  "slow",
		"problem": squareInput().Problem,
	})
	require.Equal(t, http.StatusCreated, rr.Code, "%v", body)
	waitForStatus(t, store, "slow", StatusRunning)

	rr, _ = doJSON(t, h, http.MethodGet, "/v1/runs/slow/tour", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code, "no tour before the run ends")

	rr, body = doJSON(t, h, http.MethodPost, "/v1/runs/slow:stop", nil)
	require.Equal(t, http.StatusOK, rr.Code, "%v", body)
	assert.Equal(t, string(StatusCancelled), body["run"].(map[string]any)["status"])
}

func TestHTTPServerErrors(t *testing.T) {
	store, executor, _ := newTestExecutor(t, fakeSolver, 1)
	h := NewHTTPServer(store, executor).Handler()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown run", http.MethodGet, "/v1/runs/missing", nil, http.StatusNotFound},
		{"unknown tour", http.MethodGet, "/v1/runs/missing/tour", nil, http.StatusNotFound},
		{"stop unknown", http.MethodPost, "/v1/runs/missing:stop", nil, http.StatusNotFound},
		{"stop via get", http.MethodGet, "/v1/runs/missing:stop", nil, http.StatusMethodNotAllowed},
		{"delete runs", http.MethodDelete, "/v1/runs", nil, http.StatusMethodNotAllowed},
		{"empty id", http.MethodGet, "/v1/runs/", nil, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/v1/runs?status=done", nil, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/runs", map[string]any{"input": 1}, http.StatusBadRequest},
		{"bad problem", http.MethodPost, "/v1/runs", map[string]any{"problem": map[string]any{"name": "x", "type": "vrp"}}, http.StatusBadRequest},
		{"unknown parameter", http.MethodPost, "/v1/runs", map[string]any{
			"problem":    squareInput().Problem,
			"parameters": map[string]string{"bogus": "1"},
		}, http.StatusBadRequest},
		{"object parameter", http.MethodPost, "/v1/runs", map[string]any{
			"problem":    squareInput().Problem,
			"parameters": map[string]any{"runs": map[string]any{"n": 1}},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := doJSON(t, h, tt.method, tt.path, tt.body)
			require.Equal(t, tt.want, rr.Code, "%v", body)
			assert.NotNil(t, body["error"])
		})
	}

	// Duplicate IDs conflict.
	rr, _ := doJSON(t, h, http.MethodPost, "/v1/runs", map[string]any{"run_id": "dup", "problem": squareInput().Problem})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr, _ = doJSON(t, h, http.MethodPost, "/v1/runs", map[string]any{"run_id": "dup", "problem": squareInput().Problem})
	assert.Equal(t, http.StatusConflict, rr.Code)
}
