package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
	"github.com/a11yomatic/a11y-engine/internal/core/ports"
)

// BulkUseCase runs multi-item remediation operations. Generation and
// implementation are asynchronous with a durable job record; approval is
// synchronous. One item's failure never aborts the rest, and at completion
// successful+failed equals total.
type BulkUseCase struct {
	issues      ports.IssueRepository
	plans       ports.PlanRepository
	jobs        ports.BulkJobRepository
	queue       ports.JobQueue
	applier     ports.FixApplier
	remediation *RemediationUseCase
	logger      *slog.Logger
}

func NewBulkUseCase(
	issues ports.IssueRepository,
	plans ports.PlanRepository,
	jobs ports.BulkJobRepository,
	queue ports.JobQueue,
	applier ports.FixApplier,
	remediation *RemediationUseCase,
	logger *slog.Logger,
) *BulkUseCase {
	return &BulkUseCase{
		issues:      issues,
		plans:       plans,
		jobs:        jobs,
		queue:       queue,
		applier:     applier,
		remediation: remediation,
		logger:      logger,
	}
}

// Generate enqueues plan generation for every unplanned issue matching the
// filter. The matching set is resolved when the worker runs, not now, so the
// returned job carries no total yet.
func (uc *BulkUseCase) Generate(ctx context.Context, ownerID string, filter domain.IssueFilter) (*domain.BulkJob, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	filters, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	return uc.enqueue(ctx, ownerID, domain.BulkKindGenerate, filters)
}

// Implement enqueues implementation of all approved plans for the given
// documents.
func (uc *BulkUseCase) Implement(ctx context.Context, ownerID string, documentIDs []string) (*domain.BulkJob, error) {
	if len(documentIDs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "bulk implement", fmt.Errorf("no document ids given"))
	}
	filters, err := json.Marshal(domain.IssueFilter{DocumentIDs: documentIDs})
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	return uc.enqueue(ctx, ownerID, domain.BulkKindImplement, filters)
}

func (uc *BulkUseCase) enqueue(ctx context.Context, ownerID string, kind domain.BulkJobKind, filters json.RawMessage) (*domain.BulkJob, error) {
	now := time.Now().UTC()
	job := &domain.BulkJob{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Kind:      kind,
		Status:    domain.BulkJobQueued,
		Filters:   filters,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("persist bulk job: %w", err)
	}
	if err := uc.queue.PublishBulk(ctx, job.ID); err != nil {
		if completeErr := uc.jobs.Complete(ctx, job.ID, 0, 0, 0, err.Error()); completeErr != nil {
			return nil, fmt.Errorf("%w; mark job completed: %v", err, completeErr)
		}
		return nil, fmt.Errorf("publish bulk job: %w", err)
	}
	return job, nil
}

// Approve applies one decision to many plans synchronously. Plan ids that do
// not resolve to the owner's plans are silently excluded from the processed
// set; they never show up in the counts or reveal whether they exist.
func (uc *BulkUseCase) Approve(ctx context.Context, ownerID string, planIDs []string, approved bool) (domain.BulkCounts, error) {
	if len(planIDs) == 0 {
		return domain.BulkCounts{}, domain.WrapError(domain.ErrInvalidInput, "bulk approve", fmt.Errorf("no plan ids given"))
	}

	plans, err := uc.plans.ListOwnedByIDs(ctx, ownerID, planIDs)
	if err != nil {
		return domain.BulkCounts{}, fmt.Errorf("fetch plans: %w", err)
	}

	counts := domain.BulkCounts{Total: len(plans)}
	status := domain.PlanRejected
	if approved {
		status = domain.PlanApproved
	}
	for _, plan := range plans {
		if plan.Status == domain.PlanImplemented {
			counts.Failed++
			continue
		}
		if err := uc.plans.UpdateDecision(ctx, plan.ID, approved, status); err != nil {
			uc.logger.Warn("bulk approve item failed",
				slog.String("plan_id", plan.ID), slog.Any("error", err))
			counts.Failed++
			continue
		}
		counts.Successful++
	}
	return counts, nil
}

func (uc *BulkUseCase) JobStatus(ctx context.Context, ownerID, jobID string) (*domain.BulkJob, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch bulk job: %w", err)
	}
	if job.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrForbidden, "access bulk job", fmt.Errorf("job %s", jobID))
	}
	return job, nil
}

// RunJob executes one dequeued bulk job to completion. The job record always
// ends in the completed state, with the error field set when the run itself
// could not proceed.
func (uc *BulkUseCase) RunJob(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch bulk job: %w", err)
	}
	if job.Status == domain.BulkJobCompleted {
		return nil
	}
	if err := uc.jobs.MarkRunning(ctx, jobID); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	var counts domain.BulkCounts
	var runErr error
	switch job.Kind {
	case domain.BulkKindGenerate:
		counts, runErr = uc.runGenerate(ctx, job)
	case domain.BulkKindImplement:
		counts, runErr = uc.runImplement(ctx, job)
	default:
		runErr = fmt.Errorf("unknown bulk job kind %q", job.Kind)
	}

	errMessage := ""
	if runErr != nil {
		errMessage = runErr.Error()
	}
	if err := uc.jobs.Complete(ctx, jobID, counts.Total, counts.Successful, counts.Failed, errMessage); err != nil {
		return fmt.Errorf("complete bulk job: %w", err)
	}
	return runErr
}

// runGenerate resolves the filter against the current unplanned issue set and
// generates a plan per issue. A plan that already exists counts as success.
func (uc *BulkUseCase) runGenerate(ctx context.Context, job *domain.BulkJob) (domain.BulkCounts, error) {
	var filter domain.IssueFilter
	if len(job.Filters) > 0 {
		if err := json.Unmarshal(job.Filters, &filter); err != nil {
			return domain.BulkCounts{}, fmt.Errorf("decode job filter: %w", err)
		}
	}

	issues, err := uc.issues.ListUnplanned(ctx, job.OwnerID, filter)
	if err != nil {
		return domain.BulkCounts{}, fmt.Errorf("select unplanned issues: %w", err)
	}

	counts := domain.BulkCounts{Total: len(issues)}
	for i := range issues {
		issue := &issues[i]
		plan := uc.remediation.buildPlan(ctx, issue)
		if err := uc.plans.Create(ctx, plan); err != nil {
			if domain.IsKind(err, domain.ErrConflict) {
				counts.Successful++
				continue
			}
			uc.logger.Warn("bulk generate item failed",
				slog.String("issue_id", issue.ID), slog.Any("error", err))
			counts.Failed++
			continue
		}
		counts.Successful++
	}
	return counts, nil
}

// runImplement groups eligible plans by document and applies each group as one
// unit: either every plan for a document lands, or none of them do.
func (uc *BulkUseCase) runImplement(ctx context.Context, job *domain.BulkJob) (domain.BulkCounts, error) {
	var filter domain.IssueFilter
	if len(job.Filters) > 0 {
		if err := json.Unmarshal(job.Filters, &filter); err != nil {
			return domain.BulkCounts{}, fmt.Errorf("decode job filter: %w", err)
		}
	}

	items, err := uc.plans.ListForImplementation(ctx, job.OwnerID, filter.DocumentIDs)
	if err != nil {
		return domain.BulkCounts{}, fmt.Errorf("select plans for implementation: %w", err)
	}

	groups := make(map[string][]domain.ImplementationItem)
	var order []string
	for _, item := range items {
		if _, seen := groups[item.DocumentID]; !seen {
			order = append(order, item.DocumentID)
		}
		groups[item.DocumentID] = append(groups[item.DocumentID], item)
	}

	counts := domain.BulkCounts{Total: len(items)}
	for _, documentID := range order {
		group := groups[documentID]
		if err := uc.implementGroup(ctx, documentID, group); err != nil {
			uc.logger.Warn("bulk implement group failed",
				slog.String("document_id", documentID),
				slog.Int("plans", len(group)),
				slog.Any("error", err))
			counts.Failed += len(group)
			continue
		}
		counts.Successful += len(group)
	}
	return counts, nil
}

func (uc *BulkUseCase) implementGroup(ctx context.Context, documentID string, group []domain.ImplementationItem) error {
	fixes := make([]domain.RemediationPayload, 0, len(group))
	planIDs := make([]string, 0, len(group))
	issueIDs := make([]string, 0, len(group))
	for _, item := range group {
		fixes = append(fixes, domain.RemediationPayload{
			IssueID:          item.IssueID,
			IssueType:        item.IssueType,
			PageNumber:       item.PageNumber,
			Location:         item.Location,
			GeneratedContent: item.Plan.GeneratedContent,
			Steps:            item.Plan.ImplementationSteps,
		})
		planIDs = append(planIDs, item.Plan.ID)
		issueIDs = append(issueIDs, item.IssueID)
	}

	fixedPath, err := uc.applier.Apply(ctx, group[0].DocumentPath, fixes)
	if err != nil {
		return fmt.Errorf("apply fixes: %w", err)
	}
	if err := uc.plans.MarkImplemented(ctx, planIDs, issueIDs, documentID, fixedPath); err != nil {
		return fmt.Errorf("record implementation: %w", err)
	}
	return nil
}

func validateFilter(filter domain.IssueFilter) error {
	for _, t := range filter.Types {
		if !t.Valid() {
			return domain.WrapError(domain.ErrInvalidInput, "bulk generate", fmt.Errorf("unknown issue type %q", t))
		}
	}
	for _, s := range filter.Severities {
		if !s.Valid() {
			return domain.WrapError(domain.ErrInvalidInput, "bulk generate", fmt.Errorf("unknown severity %q", s))
		}
	}
	return nil
}
