package annotation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	cfg := resilience.DefaultConfig()
	cfg.BreakerEnabled = false
	cfg.RetryMaxAttempts = 1
	return resilience.NewExecutor(cfg)
}

func TestApplySendsAllFixesAndReturnsPath(t *testing.T) {
	var req applyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/apply" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"fixed_path":"fixed/doc-1.pdf"}`))
	}))
	defer server.Close()

	client := New(server.URL, testExecutor())
	fixed, err := client.Apply(context.Background(), "doc-1.pdf", []domain.RemediationPayload{
		{IssueID: "is-1", IssueType: domain.IssueMissingAltText},
		{IssueID: "is-2", IssueType: domain.IssueMissingTitle},
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if fixed != "fixed/doc-1.pdf" {
		t.Fatalf("unexpected fixed path %q", fixed)
	}
	if req.DocumentPath != "doc-1.pdf" || len(req.Fixes) != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestApplyEmptyPathMeansInPlace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"fixed_path":""}`))
	}))
	defer server.Close()

	client := New(server.URL, testExecutor())
	fixed, err := client.Apply(context.Background(), "doc-1.pdf", nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if fixed != "" {
		t.Fatalf("expected empty path, got %q", fixed)
	}
}

func TestApplyWrapsOutageAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "worker pool exhausted", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, testExecutor())
	_, err := client.Apply(context.Background(), "doc-1.pdf", nil)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
