package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	auditerrors "github.com/kubegov/kubegov-auditor/internal/errors"
	"github.com/kubegov/kubegov-auditor/internal/observability"
)

// --- Mock implementations ---

type mockReadiness struct {
	ready bool
}

func (m *mockReadiness) IsReady() bool { return m.ready }

type mockReports struct {
	data interface{}
}

func (m *mockReports) LatestReport() interface{} { return m.data }

type mockErrorStates struct {
	active []auditerrors.EngineError
}

func (m *mockErrorStates) Active() []auditerrors.EngineError { return m.active }

// --- Helper to build a test server's mux ---

func newTestServer(ready bool, report interface{}, active []auditerrors.EngineError) *Server {
	metrics := observability.NewMetrics()
	r := &mockReadiness{ready: ready}
	p := &mockReports{data: report}
	e := &mockErrorStates{active: active}
	return NewServer(0, metrics, r, p, e, true) // enableDebug=true for tests that check debug endpoints
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	srv := newTestServer(true, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result["status"] != "ok" {
		t.Fatalf("expected status=ok, got %s", result["status"])
	}
}

func TestReadyzReady(t *testing.T) {
	srv := newTestServer(true, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]bool
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !result["ready"] {
		t.Fatal("expected ready=true")
	}
}

func TestReadyzNotReady(t *testing.T) {
	srv := newTestServer(false, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]bool
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result["ready"] {
		t.Fatal("expected ready=false")
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(true, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "kubegov_auditor_") {
		t.Fatal("expected Prometheus metrics containing kubegov_auditor_ prefix")
	}
}

func TestDebugErrorsActiveStates(t *testing.T) {
	active := []auditerrors.EngineError{
		{Code: "CAPACITY_UNKNOWN", Message: "node listing failed", Component: "inventory"},
	}
	srv := newTestServer(true, nil, active)
	req := httptest.NewRequest(http.MethodGet, "/debug/errors", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result []auditerrors.EngineError
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 active error, got %d", len(result))
	}
	if result[0].Code != "CAPACITY_UNKNOWN" {
		t.Fatalf("expected code CAPACITY_UNKNOWN, got %s", result[0].Code)
	}
	if result[0].Component != "inventory" {
		t.Fatalf("expected component inventory, got %s", result[0].Component)
	}
}

func TestDebugReportNoData(t *testing.T) {
	srv := newTestServer(true, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/debug/report", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestDebugReportWithData(t *testing.T) {
	report := map[string]interface{}{
		"report_id": "r-123",
		"workloads": 3,
	}
	srv := newTestServer(true, report, nil)
	req := httptest.NewRequest(http.MethodGet, "/debug/report", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result["report_id"] != "r-123" {
		t.Fatalf("expected report_id=r-123, got %v", result["report_id"])
	}
}

func TestDebugEndpointsDisabled(t *testing.T) {
	metrics := observability.NewMetrics()
	r := &mockReadiness{ready: true}
	p := &mockReports{data: map[string]string{"key": "val"}}
	e := &mockErrorStates{}

	srv := NewServer(0, metrics, r, p, e, false)

	// /debug/report should 404 when debug is disabled
	req := httptest.NewRequest(http.MethodGet, "/debug/report", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for /debug/report when debug disabled, got %d", w.Result().StatusCode)
	}

	// /debug/errors should 404 when debug is disabled
	req = httptest.NewRequest(http.MethodGet, "/debug/errors", nil)
	w = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for /debug/errors when debug disabled, got %d", w.Result().StatusCode)
	}

	// /healthz should still work
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for /healthz, got %d", w.Result().StatusCode)
	}
}

func TestServerStartStop(t *testing.T) {
	metrics := observability.NewMetrics()
	r := &mockReadiness{ready: true}
	p := &mockReports{}
	e := &mockErrorStates{}

	srv := NewServer(0, metrics, r, p, e, false)

	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	// Give server a moment to start
	time.Sleep(50 * time.Millisecond)

	// Verify server is responding
	addr := srv.httpServer.Addr
	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("failed to reach server: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("failed to stop server: %v", err)
	}
}
