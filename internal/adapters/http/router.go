package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
	"github.com/a11yomatic/a11y-engine/internal/core/ports"
	"github.com/a11yomatic/a11y-engine/internal/observability/metrics"
)

type RouterConfig struct {
	Documents   ports.DocumentService
	Analysis    ports.AnalysisService
	Remediation ports.RemediationService
	Bulk        ports.BulkService

	// Tokens maps bearer tokens to owner ids.
	Tokens map[string]string

	RateLimitRPS   int
	RateLimitBurst int

	Metrics *metrics.HTTPServerMetrics
	Logger  *slog.Logger
}

type Router struct {
	documents   ports.DocumentService
	analysis    ports.AnalysisService
	remediation ports.RemediationService
	bulk        ports.BulkService

	tokens  map[string]string
	limiter *rateLimiter
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger

	openAPIJSON []byte
}

const serviceName = "api"

func NewRouter(ctx context.Context, cfg RouterConfig) (*Router, error) {
	rendered, err := loadOpenAPIJSON(ctx)
	if err != nil {
		return nil, fmt.Errorf("openapi contract: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		documents:   cfg.Documents,
		analysis:    cfg.Analysis,
		remediation: cfg.Remediation,
		bulk:        cfg.Bulk,
		tokens:      cfg.Tokens,
		limiter:     newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		metrics:     cfg.Metrics,
		logger:      logger,
		openAPIJSON: rendered,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/documents", rt.uploadDocument)
	api.HandleFunc("GET /v1/documents", rt.listDocuments)
	api.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	api.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	api.HandleFunc("POST /v1/documents/{id}/analyze", rt.triggerAnalysis)
	api.HandleFunc("GET /v1/documents/{id}/analysis", rt.getAnalysis)
	api.HandleFunc("GET /v1/documents/{id}/issues", rt.listIssues)
	api.HandleFunc("GET /v1/documents/{id}/reports", rt.listReports)
	api.HandleFunc("POST /v1/issues/{id}/remediation", rt.generatePlan)
	api.HandleFunc("GET /v1/issues/{id}/remediation", rt.getPlan)
	api.HandleFunc("POST /v1/issues/{id}/remediation/approve", rt.approvePlan)
	api.HandleFunc("POST /v1/remediation/bulk/generate", rt.bulkGenerate)
	api.HandleFunc("POST /v1/remediation/bulk/approve", rt.bulkApprove)
	api.HandleFunc("POST /v1/remediation/bulk/implement", rt.bulkImplement)
	api.HandleFunc("GET /v1/remediation/bulk/jobs/{id}", rt.getBulkJob)

	onReject := func() {
		if rt.metrics != nil {
			rt.metrics.RecordRateLimited(serviceName)
		}
	}
	protected := authMiddleware(rt.tokens, rt.limiter.middleware(onReject, api))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.json", openAPIHandler(rt.openAPIJSON))
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", protected)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.documents.Upload(
		r.Context(),
		ownerFromContext(r.Context()),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, extensionOf(fileHeader.Filename), fileHeader.Size)
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.documents.List(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.documents.Get(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.documents.Delete(r.Context(), ownerFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) triggerAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := rt.analysis.Trigger(r.Context(), ownerFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request) {
	result, err := rt.analysis.Result(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listIssues(w http.ResponseWriter, r *http.Request) {
	severity := domain.Severity(r.URL.Query().Get("severity"))
	issues, err := rt.analysis.Issues(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"), severity)
	if err != nil {
		writeError(w, err)
		return
	}
	if issues == nil {
		issues = []domain.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

func (rt *Router) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := rt.analysis.Reports(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if reports == nil {
		reports = []domain.AnalysisReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (rt *Router) generatePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := rt.remediation.Generate(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordPlanServed(serviceName, "generate")
	}
	writeJSON(w, http.StatusOK, plan)
}

func (rt *Router) getPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := rt.remediation.Get(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordPlanServed(serviceName, "lookup")
	}
	writeJSON(w, http.StatusOK, plan)
}

func (rt *Router) approvePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approved  bool `json:"approved"`
		AutoApply bool `json:"auto_apply"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	plan, err := rt.remediation.Approve(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"), req.Approved, req.AutoApply)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordApproval(serviceName, req.Approved)
	}
	writeJSON(w, http.StatusOK, plan)
}

func (rt *Router) bulkGenerate(w http.ResponseWriter, r *http.Request) {
	var filter domain.IssueFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	job, err := rt.bulk.Generate(r.Context(), ownerFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) bulkApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanIDs  []string `json:"plan_ids"`
		Approved bool     `json:"approved"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	counts, err := rt.bulk.Approve(r.Context(), ownerFromContext(r.Context()), req.PlanIDs, req.Approved)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (rt *Router) bulkImplement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentIDs []string `json:"document_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	job, err := rt.bulk.Implement(r.Context(), ownerFromContext(r.Context()), req.DocumentIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getBulkJob(w http.ResponseWriter, r *http.Request) {
	job, err := rt.bulk.JobStatus(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func extensionOf(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
