package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"crm-sync/internal/core/domain"
)

type fakeSyncRunner struct {
	calls    []string
	fullSync []bool
	err      error
}

func (f *fakeSyncRunner) Execute(ctx context.Context, feedURL string, format domain.FeedFormat, fullSync bool) error {
	f.calls = append(f.calls, feedURL)
	f.fullSync = append(f.fullSync, fullSync)
	return f.err
}

func newTestServer(t *testing.T, runner SyncRunner) *Server {
	t.Helper()
	s, err := NewServer(runner, ":0", "http://feed/day", "http://feed/all", domain.FeedFormatJSON)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func doRequest(t *testing.T, s *Server, url string) (int, map[string]string) {
	t.Helper()
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, url, nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal body %q: %v", body, err)
	}
	return resp.StatusCode, payload
}

func TestHandleSyncDay(t *testing.T) {
	runner := &fakeSyncRunner{}
	s := newTestServer(t, runner)

	status, payload := doRequest(t, s, "/crm/sync?type=day")
	if status != http.StatusOK {
		t.Fatalf("status = %d; want 200", status)
	}
	if payload["message"] != "Sync complete: day" {
		t.Errorf("message = %q", payload["message"])
	}
	if len(runner.calls) != 1 || runner.calls[0] != "http://feed/day" || runner.fullSync[0] {
		t.Errorf("runner calls = %v, full = %v", runner.calls, runner.fullSync)
	}
}

func TestHandleSyncAll(t *testing.T) {
	runner := &fakeSyncRunner{}
	s := newTestServer(t, runner)

	status, payload := doRequest(t, s, "/crm/sync?type=all")
	if status != http.StatusOK {
		t.Fatalf("status = %d; want 200", status)
	}
	if payload["message"] != "Sync complete: all" {
		t.Errorf("message = %q", payload["message"])
	}
	if len(runner.calls) != 1 || runner.calls[0] != "http://feed/all" || !runner.fullSync[0] {
		t.Errorf("runner calls = %v, full = %v", runner.calls, runner.fullSync)
	}
}

func TestHandleSyncDefaultsToDay(t *testing.T) {
	runner := &fakeSyncRunner{}
	s := newTestServer(t, runner)

	status, _ := doRequest(t, s, "/crm/sync")
	if status != http.StatusOK {
		t.Fatalf("status = %d; want 200", status)
	}
	if len(runner.calls) != 1 || runner.fullSync[0] {
		t.Errorf("missing type must default to incremental, got %v", runner.fullSync)
	}
}

func TestHandleSyncUnknownType(t *testing.T) {
	runner := &fakeSyncRunner{}
	s := newTestServer(t, runner)

	status, payload := doRequest(t, s, "/crm/sync?type=weekly")
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", status)
	}
	if payload["error"] == "" {
		t.Error("expected an error message")
	}
	if len(runner.calls) != 0 {
		t.Error("unknown type must not trigger a sync")
	}
}

func TestHandleSyncFailure(t *testing.T) {
	runner := &fakeSyncRunner{err: errors.New("store down")}
	s := newTestServer(t, runner)

	status, payload := doRequest(t, s, "/crm/sync?type=all")
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", status)
	}
	if payload["error"] == "" {
		t.Error("expected an error message")
	}
}
