package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

const testToken = "test-token"

type docServiceFake struct {
	doc *domain.Document
	err error
}

func (f *docServiceFake) Upload(_ context.Context, ownerID, filename, mimeType string, size int64, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &domain.Document{
		ID:        "doc-1",
		OwnerID:   ownerID,
		Filename:  filename,
		MimeType:  mimeType,
		FileSize:  size,
		Status:    domain.StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (f *docServiceFake) Get(_ context.Context, _, _ string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *docServiceFake) List(_ context.Context, _ string) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc == nil {
		return nil, nil
	}
	return []domain.Document{*f.doc}, nil
}

func (f *docServiceFake) Delete(_ context.Context, _, _ string) error {
	return f.err
}

type analysisServiceFake struct {
	result       *domain.AnalysisResult
	issues       []domain.Issue
	lastSeverity domain.Severity
	err          error
}

func (f *analysisServiceFake) Trigger(_ context.Context, _, _ string) error {
	return f.err
}

func (f *analysisServiceFake) Result(_ context.Context, _, _ string) (*domain.AnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *analysisServiceFake) Issues(_ context.Context, _, _ string, severity domain.Severity) ([]domain.Issue, error) {
	f.lastSeverity = severity
	if f.err != nil {
		return nil, f.err
	}
	return f.issues, nil
}

func (f *analysisServiceFake) Reports(_ context.Context, _, _ string) ([]domain.AnalysisReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

type remediationServiceFake struct {
	plan          *domain.RemediationPlan
	lastApproved  bool
	lastAutoApply bool
	err           error
}

func (f *remediationServiceFake) Generate(_ context.Context, _, _ string) (*domain.RemediationPlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

func (f *remediationServiceFake) Get(_ context.Context, _, _ string) (*domain.RemediationPlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

func (f *remediationServiceFake) Approve(_ context.Context, _, _ string, approved, autoApply bool) (*domain.RemediationPlan, error) {
	f.lastApproved = approved
	f.lastAutoApply = autoApply
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

type bulkServiceFake struct {
	job        *domain.BulkJob
	counts     domain.BulkCounts
	lastFilter domain.IssueFilter
	lastPlans  []string
	lastDocs   []string
	err        error
}

func (f *bulkServiceFake) Generate(_ context.Context, _ string, filter domain.IssueFilter) (*domain.BulkJob, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func (f *bulkServiceFake) Approve(_ context.Context, _ string, planIDs []string, _ bool) (domain.BulkCounts, error) {
	f.lastPlans = planIDs
	if f.err != nil {
		return domain.BulkCounts{}, f.err
	}
	return f.counts, nil
}

func (f *bulkServiceFake) Implement(_ context.Context, _ string, documentIDs []string) (*domain.BulkJob, error) {
	f.lastDocs = documentIDs
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

func (f *bulkServiceFake) JobStatus(_ context.Context, _, _ string) (*domain.BulkJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

type routerFakes struct {
	docs        *docServiceFake
	analysis    *analysisServiceFake
	remediation *remediationServiceFake
	bulk        *bulkServiceFake
}

func newTestRouter(t *testing.T, fakes routerFakes) http.Handler {
	t.Helper()
	if fakes.docs == nil {
		fakes.docs = &docServiceFake{}
	}
	if fakes.analysis == nil {
		fakes.analysis = &analysisServiceFake{}
	}
	if fakes.remediation == nil {
		fakes.remediation = &remediationServiceFake{}
	}
	if fakes.bulk == nil {
		fakes.bulk = &bulkServiceFake{}
	}

	rt, err := NewRouter(context.Background(), RouterConfig{
		Documents:      fakes.docs,
		Analysis:       fakes.analysis,
		Remediation:    fakes.remediation,
		Bulk:           fakes.bulk,
		Tokens:         map[string]string{testToken: "owner-1"},
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return rt.Handler()
}

func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	handler := newTestRouter(t, routerFakes{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestOpenAPIDocumentIsServed(t *testing.T) {
	handler := newTestRouter(t, routerFakes{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var doc map[string]any
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode openapi: %v", err)
	}
	if doc["openapi"] != "3.0.3" {
		t.Fatalf("expected openapi version field, got %v", doc)
	}
}

func TestAPIRejectsMissingToken(t *testing.T) {
	handler := newTestRouter(t, routerFakes{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestAPIRejectsUnknownToken(t *testing.T) {
	handler := newTestRouter(t, routerFakes{})
	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	handler := newTestRouter(t, routerFakes{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "report.pdf")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.7")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := authedRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	var docResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&docResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if docResp["id"] != "doc-1" {
		t.Fatalf("unexpected response: %+v", docResp)
	}
	if docResp["owner_id"] != "owner-1" {
		t.Fatalf("expected token owner to be attached, got %+v", docResp)
	}
}

func TestUploadDocumentMissingMultipartField(t *testing.T) {
	handler := newTestRouter(t, routerFakes{})

	req := authedRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetDocumentMapsNotFound(t *testing.T) {
	fakes := routerFakes{docs: &docServiceFake{
		err: domain.WrapError(domain.ErrNotFound, "get document", io.EOF),
	}}
	handler := newTestRouter(t, fakes)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodGet, "/v1/documents/doc-404", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestTriggerAnalysisAccepted(t *testing.T) {
	handler := newTestRouter(t, routerFakes{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodPost, "/v1/documents/doc-1/analyze", nil))

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
}

func TestTriggerAnalysisConflict(t *testing.T) {
	fakes := routerFakes{analysis: &analysisServiceFake{
		err: domain.WrapError(domain.ErrConflict, "begin analysis", io.EOF),
	}}
	handler := newTestRouter(t, fakes)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodPost, "/v1/documents/doc-1/analyze", nil))

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestListIssuesForwardsSeverityFilter(t *testing.T) {
	analysis := &analysisServiceFake{}
	handler := newTestRouter(t, routerFakes{analysis: analysis})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(http.MethodGet, "/v1/documents/doc-1/issues?severity=high", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if analysis.lastSeverity != domain.SeverityHigh {
		t.Fatalf("expected severity high to be forwarded, got %q", analysis.lastSeverity)
	}
	if body := res.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty json array, got %q", body)
	}
}
