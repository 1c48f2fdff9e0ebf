package ports

import (
	"context"
	"io"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

// DocumentService is the inbound contract for document lifecycle operations.
type DocumentService interface {
	Upload(ctx context.Context, ownerID, filename, mimeType string, size int64, body io.Reader) (*domain.Document, error)
	Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error)
	List(ctx context.Context, ownerID string) ([]domain.Document, error)
	Delete(ctx context.Context, ownerID, documentID string) error
}

// AnalysisService triggers analysis runs and serves their results.
type AnalysisService interface {
	Trigger(ctx context.Context, ownerID, documentID string) error
	Result(ctx context.Context, ownerID, documentID string) (*domain.AnalysisResult, error)
	Issues(ctx context.Context, ownerID, documentID string, severity domain.Severity) ([]domain.Issue, error)
	Reports(ctx context.Context, ownerID, documentID string) ([]domain.AnalysisReport, error)
}

// AnalysisRunner is the worker-side contract for executing a queued analysis.
type AnalysisRunner interface {
	Run(ctx context.Context, documentID string) error
}

// RemediationService manages the per-issue suggestion/approval lifecycle.
type RemediationService interface {
	Generate(ctx context.Context, ownerID, issueID string) (*domain.RemediationPlan, error)
	Get(ctx context.Context, ownerID, issueID string) (*domain.RemediationPlan, error)
	Approve(ctx context.Context, ownerID, issueID string, approved, autoApply bool) (*domain.RemediationPlan, error)
}

// BulkService manages filtered multi-item remediation runs.
type BulkService interface {
	Generate(ctx context.Context, ownerID string, filter domain.IssueFilter) (*domain.BulkJob, error)
	Approve(ctx context.Context, ownerID string, planIDs []string, approved bool) (domain.BulkCounts, error)
	Implement(ctx context.Context, ownerID string, documentIDs []string) (*domain.BulkJob, error)
	JobStatus(ctx context.Context, ownerID, jobID string) (*domain.BulkJob, error)
}

// BulkRunner is the worker-side contract for executing a queued bulk job.
type BulkRunner interface {
	RunJob(ctx context.Context, jobID string) error
}
