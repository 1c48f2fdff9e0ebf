package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
	"github.com/a11yomatic/a11y-engine/internal/core/ports"
)

// AnalyzeUseCase owns the document status machine and the extraction →
// detection → scoring pipeline. Trigger runs on the API side; Run executes on
// the worker after the job is dequeued.
type AnalyzeUseCase struct {
	docs    ports.DocumentRepository
	issues  ports.IssueRepository
	reports ports.ReportRepository
	writer  ports.AnalysisResultWriter
	content ports.ContentSource
	queue   ports.JobQueue
}

func NewAnalyzeUseCase(
	docs ports.DocumentRepository,
	issues ports.IssueRepository,
	reports ports.ReportRepository,
	writer ports.AnalysisResultWriter,
	content ports.ContentSource,
	queue ports.JobQueue,
) *AnalyzeUseCase {
	return &AnalyzeUseCase{
		docs:    docs,
		issues:  issues,
		reports: reports,
		writer:  writer,
		content: content,
		queue:   queue,
	}
}

// Trigger moves the document into the analyzing state and enqueues the run.
// The transition is persisted before the job is published so a crash leaves
// the document observably in progress. A document already analyzing is
// rejected, not queued.
func (uc *AnalyzeUseCase) Trigger(ctx context.Context, ownerID, documentID string) error {
	if _, err := uc.ownedDocument(ctx, ownerID, documentID); err != nil {
		return err
	}
	if err := uc.docs.BeginAnalysis(ctx, documentID); err != nil {
		return fmt.Errorf("begin analysis: %w", err)
	}
	if err := uc.queue.PublishAnalyze(ctx, documentID); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("publish analyze job: %w", err)
	}
	return nil
}

// Run executes one analysis. On success exactly one report plus the issue
// batch are persisted atomically and the document completes; on failure the
// document moves to failed and no partial records from this run survive.
func (uc *AnalyzeUseCase) Run(ctx context.Context, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	issues, report, meta, err := uc.analyzePipeline(ctx, doc)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.writer.SaveResult(ctx, doc, meta, issues, report); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("persist analysis result: %w", err)
	}
	return nil
}

func (uc *AnalyzeUseCase) analyzePipeline(ctx context.Context, doc *domain.Document) ([]domain.Issue, *domain.AnalysisReport, domain.DocumentMetadata, error) {
	// Metadata extraction degrades instead of failing; a broken info
	// dictionary must not abort the run.
	meta := uc.content.Metadata(ctx, doc.StoragePath)

	content, err := uc.content.Extract(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, meta, fmt.Errorf("extract content: %w", err)
	}

	drafts := DetectIssues(content, meta)
	now := time.Now().UTC()
	issues := make([]domain.Issue, 0, len(drafts))
	for _, draft := range drafts {
		draft.ID = uuid.NewString()
		draft.DocumentID = doc.ID
		draft.CreatedAt = now
		issues = append(issues, draft)
	}

	report := uc.buildReport(doc.ID, issues, meta, now)
	return issues, report, meta, nil
}

func (uc *AnalyzeUseCase) buildReport(documentID string, issues []domain.Issue, meta domain.DocumentMetadata, now time.Time) *domain.AnalysisReport {
	score, tier := Score(issues, meta)
	critical, high, medium, low := severityCounts(issues)
	return &domain.AnalysisReport{
		ID:             uuid.NewString(),
		DocumentID:     documentID,
		OverallScore:   score,
		TotalIssues:    len(issues),
		CriticalIssues: critical,
		HighIssues:     high,
		MediumIssues:   medium,
		LowIssues:      low,
		ComplianceTier: tier,
		ReportData: map[string]any{
			"metadata": meta,
		},
		GeneratedAt: now,
	}
}

// Result returns the latest report with the document's issues.
func (uc *AnalyzeUseCase) Result(ctx context.Context, ownerID, documentID string) (*domain.AnalysisResult, error) {
	if _, err := uc.ownedDocument(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	report, err := uc.reports.LatestByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch latest report: %w", err)
	}
	issues, err := uc.issues.ListByDocument(ctx, documentID, "")
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}
	return &domain.AnalysisResult{
		DocumentID: documentID,
		Report:     *report,
		Issues:     issues,
	}, nil
}

func (uc *AnalyzeUseCase) Issues(ctx context.Context, ownerID, documentID string, severity domain.Severity) ([]domain.Issue, error) {
	if _, err := uc.ownedDocument(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	if severity != "" && !severity.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list issues", fmt.Errorf("unknown severity %q", severity))
	}
	issues, err := uc.issues.ListByDocument(ctx, documentID, severity)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}
	return issues, nil
}

func (uc *AnalyzeUseCase) Reports(ctx context.Context, ownerID, documentID string) ([]domain.AnalysisReport, error) {
	if _, err := uc.ownedDocument(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	reports, err := uc.reports.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch reports: %w", err)
	}
	return reports, nil
}

func (uc *AnalyzeUseCase) ownedDocument(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	if doc.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrForbidden, "access document", fmt.Errorf("document %s", documentID))
	}
	return doc, nil
}

func (uc *AnalyzeUseCase) markFailed(ctx context.Context, documentID string, cause error) error {
	if cause == nil {
		return nil
	}
	return uc.docs.UpdateStatus(ctx, documentID, domain.StatusFailed, cause.Error())
}
