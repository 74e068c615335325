package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsync/internal/consolidate"
	"marketsync/internal/record"
	"marketsync/internal/selection"
	"marketsync/internal/service"
	"marketsync/internal/sheet"
	"marketsync/internal/sheetsync"
)

type stubSnapshots struct {
	snap      *service.Snapshot
	err       error
	refreshes int
}

func (s *stubSnapshots) Latest(ctx context.Context) (*service.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubSnapshots) Refresh(ctx context.Context) (*service.Snapshot, error) {
	s.refreshes++
	return s.snap, s.err
}

type stubRunner struct {
	result *service.RunResult
	err    error
	opts   []service.RunOptions
}

func (s *stubRunner) Run(ctx context.Context, opts service.RunOptions) (*service.RunResult, error) {
	s.opts = append(s.opts, opts)
	return s.result, s.err
}

func testSnapshot() *service.Snapshot {
	return &service.Snapshot{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Markets: &record.Set{
			Columns: []string{"question", "min_size"},
			Records: []*record.Record{
				record.FromPairs("question", "Will BTC close above 100k?", "min_size", 50),
				record.FromPairs("question", "Will ETH flip BTC?", "min_size", 100),
				record.FromPairs("question", "Election turnout over 60%?", "min_size", 20),
			},
		},
		Hyperparameters: consolidate.Hyperparameters{
			"mid": {"stop_loss_threshold": record.Number(-7), "note": record.Text("x")},
		},
	}
}

func newEngine(handlers ...interface{ Register(*gin.Engine) }) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	for _, h := range handlers {
		h.Register(r)
	}
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string) (int, apiResponse, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	return w.Code, resp, raw
}

func TestHealth(t *testing.T) {
	h := &HealthHandler{Checks: map[string]Pinger{
		"store": PingFunc(func(ctx context.Context) error { return nil }),
	}}
	r := newEngine(h)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	h.Checks["cache"] = PingFunc(func(ctx context.Context) error { return errors.New("dial tcp: refused") })
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "refused")
}

func TestSnapshot_Hyperparameters(t *testing.T) {
	r := newEngine(&SnapshotHandler{Service: &stubSnapshots{snap: testSnapshot()}})

	code, resp, raw := do(t, r, http.MethodGet, "/api/hyperparameters")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "run-1", resp.Meta["run_id"])
	assert.JSONEq(t, `{"mid":{"stop_loss_threshold":-7,"note":"x"}}`, string(raw["data"]))

	code, _, raw = do(t, r, http.MethodGet, "/api/hyperparameters/mid")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"stop_loss_threshold":-7,"note":"x"}`, string(raw["data"]))

	code, _, _ = do(t, r, http.MethodGet, "/api/hyperparameters/aggressive")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSnapshot_Markets(t *testing.T) {
	r := newEngine(&SnapshotHandler{Service: &stubSnapshots{snap: testSnapshot()}})

	code, resp, raw := do(t, r, http.MethodGet, "/api/markets?question=btc")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, resp.Meta["total"])
	assert.JSONEq(t, `[{"question":"Will BTC close above 100k?","min_size":50},{"question":"Will ETH flip BTC?","min_size":100}]`, string(raw["data"]))

	code, resp, raw = do(t, r, http.MethodGet, "/api/markets?offset=1&limit=1")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, resp.Meta["total"])
	assert.JSONEq(t, `[{"question":"Will ETH flip BTC?","min_size":100}]`, string(raw["data"]))

	_, _, raw = do(t, r, http.MethodGet, "/api/markets?offset=10")
	assert.JSONEq(t, `[]`, string(raw["data"]))
}

func TestSnapshot_SourceUnavailable(t *testing.T) {
	err := &service.StageError{Stage: service.StageLoad, Err: fmt.Errorf("%w: load %q", sheet.ErrSourceUnavailable, "All Markets")}
	stub := &stubSnapshots{err: err}
	r := newEngine(&SnapshotHandler{Service: stub})

	code, resp, _ := do(t, r, http.MethodGet, "/api/hyperparameters")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "load", resp.Meta["stage"])

	code, _, _ = do(t, r, http.MethodPost, "/api/snapshot/refresh")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, 1, stub.refreshes)
}

func TestSelection_Run(t *testing.T) {
	runner := &stubRunner{result: &service.RunResult{RunID: "r", Partial: true, DryRun: true}}
	r := newEngine(&SelectionHandler{Service: runner})

	code, resp, _ := do(t, r, http.MethodPost, "/api/selection/run?dry_run=true")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp.Meta["partial"])
	require.Len(t, runner.opts, 1)
	assert.True(t, runner.opts[0].DryRun)
}

func TestSelection_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty", &service.StageError{Stage: service.StageSelect, Err: selection.ErrEmptySelection}, http.StatusUnprocessableEntity},
		{"busy", service.ErrRunInProgress, http.StatusConflict},
		{"sync", &service.StageError{Stage: service.StageSync, Err: fmt.Errorf("%w: append", sheetsync.ErrSyncWrite)}, http.StatusBadGateway},
		{"credentials", &service.StageError{Stage: service.StageConnect, Err: sheet.ErrCredentialsUnavailable}, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(&SelectionHandler{Service: &stubRunner{err: tt.err}})
			code, resp, raw := do(t, r, http.MethodPost, "/api/selection/run")
			assert.Equal(t, tt.want, code)
			assert.Equal(t, tt.want, resp.Code)
			_, hasData := raw["data"]
			assert.False(t, hasData)
		})
	}
}
