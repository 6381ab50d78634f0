package admin_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"go.triggerstore.dev/internal/admin"
	"go.triggerstore.dev/internal/common/health"
	"go.triggerstore.dev/internal/triggerstore"
	"go.triggerstore.dev/internal/triggerstore/catalog"
	"go.triggerstore.dev/internal/triggerstore/delegate/sqlite"
	"go.triggerstore.dev/internal/triggerstore/executing"
	"go.triggerstore.dev/internal/triggerstore/filterbus"
	"go.triggerstore.dev/internal/triggerstore/jobtypes"
)

func newTestServer(t *testing.T) *admin.Server {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	d := sqlite.New(db)
	if err := d.CreateSchema(context.Background()); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	cfg := triggerstore.DefaultConfig()
	store := triggerstore.New(cfg, d, catalog.New(), filterbus.New(), executing.New(), jobtypes.New(), nil, nil)

	checker := health.NewChecker()
	checker.AddReadinessCheck(func() health.Check {
		return health.Check{Name: "db", Status: health.StatusUp}
	})

	return admin.New(store, checker, []string{"*"})
}

func TestHealthz_Returns200(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestMetrics_Returns200(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAPIQueueState_ReturnsJSON(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/queue-state", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var qs triggerstore.QueueStateContext
	if err := json.NewDecoder(w.Body).Decode(&qs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if qs.WaitingCount != 0 {
		t.Errorf("expected 0 waiting triggers on an empty store, got %d", qs.WaitingCount)
	}
}

func TestAPIJobs_ReturnsEmptyListsOnEmptyStore(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Executing []triggerstore.ExecutingEntry `json:"executing"`
		Queued    []*triggerstore.Trigger       `json:"queued"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Executing) != 0 || len(body.Queued) != 0 {
		t.Errorf("expected empty lists, got executing=%d queued=%d", len(body.Executing), len(body.Queued))
	}
}

func TestAPIJobCounts_ReturnsJSON(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/job-counts", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var counts map[string]int64
	if err := json.NewDecoder(w.Body).Decode(&counts); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCORSHeaders_Present(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS headers on a cross-origin request")
	}
}
