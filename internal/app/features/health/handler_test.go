package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/mdregistry/internal/app/features/health"
	"github.com/dalemusser/mdregistry/internal/app/store/memstore"
	"go.uber.org/zap"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type response struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Error    string `json:"error"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, resp
}

func TestServe_StorageConnected(t *testing.T) {
	rec, resp := serve(t, health.NewHandler(memstore.New(), "memory", zap.NewNop()))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if resp.Status != "ok" || resp.Database != "connected" || resp.Backend != "memory" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestServe_StorageDown(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("no reachable servers") })
	rec, resp := serve(t, health.NewHandler(down, "mongo", zap.NewNop()))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if resp.Status != "error" || resp.Database != "disconnected" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Error != "no reachable servers" {
		t.Errorf("error: got %q", resp.Error)
	}
}
