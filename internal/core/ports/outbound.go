package ports

import (
	"context"
	"io"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error)
	// BeginAnalysis atomically moves the document into the analyzing state.
	// Returns ErrConflict when an analysis is already in progress.
	BeginAnalysis(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	UpdateStoragePath(ctx context.Context, id, storagePath string) error
	Delete(ctx context.Context, id string) error
}

// IssueRepository reads issues; creation happens through AnalysisResultWriter.
type IssueRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Issue, error)
	ListByDocument(ctx context.Context, documentID string, severity domain.Severity) ([]domain.Issue, error)
	// ListUnplanned selects the owner's unresolved issues that have no
	// remediation plan yet, narrowed by the filter.
	ListUnplanned(ctx context.Context, ownerID string, filter domain.IssueFilter) ([]domain.Issue, error)
}

// ReportRepository reads analysis reports.
type ReportRepository interface {
	LatestByDocument(ctx context.Context, documentID string) (*domain.AnalysisReport, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.AnalysisReport, error)
}

// AnalysisResultWriter persists one completed analysis run as a unit: the
// document's extracted facts and completed status, the issue batch, and the
// report commit together or not at all.
type AnalysisResultWriter interface {
	SaveResult(ctx context.Context, doc *domain.Document, meta domain.DocumentMetadata, issues []domain.Issue, report *domain.AnalysisReport) error
}

// PlanRepository persists remediation plans.
type PlanRepository interface {
	// Create inserts a plan; a second plan for the same issue fails with
	// ErrConflict so callers can fall back to the existing one.
	Create(ctx context.Context, plan *domain.RemediationPlan) error
	GetByIssueID(ctx context.Context, issueID string) (*domain.RemediationPlan, error)
	UpdateDecision(ctx context.Context, planID string, approved bool, status domain.PlanStatus) error
	// ListOwnedByIDs returns only those of the given plans whose document
	// belongs to the owner; foreign ids are silently absent.
	ListOwnedByIDs(ctx context.Context, ownerID string, planIDs []string) ([]domain.RemediationPlan, error)
	// ListForImplementation selects approved and pending_implementation plans
	// joined with their issue and document, scoped to the owner.
	ListForImplementation(ctx context.Context, ownerID string, documentIDs []string) ([]domain.ImplementationItem, error)
	// MarkImplemented transitions a document group's plans to implemented,
	// flags their issues resolved, and records the fixed artifact path when
	// one was produced, all in one transaction.
	MarkImplemented(ctx context.Context, planIDs, issueIDs []string, documentID, fixedPath string) error
}

// BulkJobRepository persists durable bulk-run records.
type BulkJobRepository interface {
	Create(ctx context.Context, job *domain.BulkJob) error
	GetByID(ctx context.Context, id string) (*domain.BulkJob, error)
	MarkRunning(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, total, successful, failed int, errMessage string) error
}

// ObjectStorage stores source documents and fixed artifacts.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// ContentSource reads structural metadata and per-page content from a stored
// document. Metadata never fails hard; it degrades (see DocumentMetadata).
type ContentSource interface {
	Metadata(ctx context.Context, storagePath string) domain.DocumentMetadata
	Extract(ctx context.Context, storagePath string) (*domain.DocumentContent, error)
}

// SuggestionGenerator is the opaque text-generation capability.
type SuggestionGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// FixApplier is the opaque annotation-application capability. It stamps a
// document's remediation payloads in one pass and returns the fixed artifact
// path, which may be empty when the source was annotated in place.
type FixApplier interface {
	Apply(ctx context.Context, documentPath string, fixes []domain.RemediationPayload) (string, error)
}

// JobQueue dispatches background work to the worker process.
type JobQueue interface {
	PublishAnalyze(ctx context.Context, documentID string) error
	PublishBulk(ctx context.Context, jobID string) error
	SubscribeAnalyze(ctx context.Context, handler func(context.Context, string) error) error
	SubscribeBulk(ctx context.Context, handler func(context.Context, string) error) error
}
