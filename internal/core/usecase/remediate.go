package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
	"github.com/a11yomatic/a11y-engine/internal/core/ports"
)

const remediationSystemPrompt = "You are an accessibility remediation assistant. " +
	"You produce concise, WCAG-conformant fixes for document accessibility issues. " +
	"Answer with exactly what is asked for, no preamble."

// RemediationUseCase generates, serves, and approves per-issue fix plans. Plan
// generation is idempotent per issue: the first call creates the plan, every
// later call returns it unchanged.
type RemediationUseCase struct {
	docs      ports.DocumentRepository
	issues    ports.IssueRepository
	plans     ports.PlanRepository
	generator ports.SuggestionGenerator
	logger    *slog.Logger
}

func NewRemediationUseCase(
	docs ports.DocumentRepository,
	issues ports.IssueRepository,
	plans ports.PlanRepository,
	generator ports.SuggestionGenerator,
	logger *slog.Logger,
) *RemediationUseCase {
	return &RemediationUseCase{
		docs:      docs,
		issues:    issues,
		plans:     plans,
		generator: generator,
		logger:    logger,
	}
}

// Generate produces the plan for one issue, or returns the existing one.
func (uc *RemediationUseCase) Generate(ctx context.Context, ownerID, issueID string) (*domain.RemediationPlan, error) {
	issue, err := uc.ownedIssue(ctx, ownerID, issueID)
	if err != nil {
		return nil, err
	}

	existing, err := uc.plans.GetByIssueID(ctx, issueID)
	if err == nil {
		return existing, nil
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("fetch plan by issue: %w", err)
	}

	plan := uc.buildPlan(ctx, issue)
	if err := uc.plans.Create(ctx, plan); err != nil {
		// A concurrent caller won the insert race; their plan is the plan.
		if domain.IsKind(err, domain.ErrConflict) {
			return uc.plans.GetByIssueID(ctx, issueID)
		}
		return nil, fmt.Errorf("persist plan: %w", err)
	}
	return plan, nil
}

func (uc *RemediationUseCase) Get(ctx context.Context, ownerID, issueID string) (*domain.RemediationPlan, error) {
	if _, err := uc.ownedIssue(ctx, ownerID, issueID); err != nil {
		return nil, err
	}
	plan, err := uc.plans.GetByIssueID(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("fetch plan by issue: %w", err)
	}
	return plan, nil
}

// Approve records the user's decision. Approving with autoApply queues the
// plan for implementation; rejecting moves it to rejected. An implemented plan
// is final and cannot be re-decided.
func (uc *RemediationUseCase) Approve(ctx context.Context, ownerID, issueID string, approved, autoApply bool) (*domain.RemediationPlan, error) {
	if _, err := uc.ownedIssue(ctx, ownerID, issueID); err != nil {
		return nil, err
	}
	plan, err := uc.plans.GetByIssueID(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("fetch plan by issue: %w", err)
	}
	if plan.Status == domain.PlanImplemented {
		return nil, domain.WrapError(domain.ErrConflict, "approve plan", fmt.Errorf("plan %s already implemented", plan.ID))
	}

	status := domain.PlanRejected
	if approved {
		status = domain.PlanApproved
		if autoApply {
			status = domain.PlanPendingImplementation
		}
	}
	if err := uc.plans.UpdateDecision(ctx, plan.ID, approved, status); err != nil {
		return nil, fmt.Errorf("update plan decision: %w", err)
	}
	plan.UserApproved = approved
	plan.Status = status
	plan.UpdatedAt = time.Now().UTC()
	return plan, nil
}

// buildPlan dispatches on the issue type. Advisory types get static guidance
// with no generation call; content-bearing types ask the generator and degrade
// to a placeholder when it is unavailable.
func (uc *RemediationUseCase) buildPlan(ctx context.Context, issue *domain.Issue) *domain.RemediationPlan {
	var (
		content json.RawMessage
		steps   []string
		notes   string
	)

	switch issue.Type {
	case domain.IssueMissingAltText:
		content, notes = uc.generateAltText(ctx, issue)
		steps = []string{
			"Review the suggested alternative text for accuracy.",
			"Open the document and select the flagged image.",
			"Set the image's alternative text to the approved description.",
			"Save and re-analyze the document.",
		}
	case domain.IssueTableMissingHeaders:
		content, notes = uc.generateTableFix(ctx, issue)
		steps = []string{
			"Review the suggested header row, caption, and summary.",
			"Mark the first row of the table as a header row.",
			"Add the caption and summary to the table properties.",
			"Save and re-analyze the document.",
		}
	case domain.IssueMissingHeadingStructure:
		content, notes = uc.generateHeadings(ctx, issue)
		steps = []string{
			"Review the suggested heading outline.",
			"Tag the matching text runs with heading levels H1-H6.",
			"Verify heading levels do not skip.",
			"Save and re-analyze the document.",
		}
	case domain.IssueMissingTitle:
		content, notes = uc.generateTitle(ctx, issue)
		steps = []string{
			"Review the suggested document title.",
			"Set the title in the document's metadata properties.",
			"Enable 'display document title' in the viewer preferences if available.",
			"Save and re-analyze the document.",
		}
	case domain.IssueMissingText:
		steps = []string{
			"Run OCR over the flagged page to recover a text layer.",
			"Proofread the recognized text against the page image.",
			"If the page is decorative, mark it as an artifact instead.",
			"Save and re-analyze the document.",
		}
		notes = "Image-only pages need a text layer before any other fix applies."
	case domain.IssueComplexTable:
		steps = []string{
			"Consider splitting the table into smaller, simpler tables.",
			"Add a summary describing the table's organization.",
			"Ensure header cells are associated with their data cells.",
			"Save and re-analyze the document.",
		}
	case domain.IssueMissingLanguage:
		steps = []string{
			"Open the document's properties and check the language field.",
			"Set the primary language to match the document's text.",
			"Tag passages in other languages with their own language.",
		}
	case domain.IssuePotentialContrast:
		steps = []string{
			"Measure the contrast ratio of text over the flagged area.",
			"Ensure normal text reaches at least 4.5:1 against its background.",
			"Darken the text or lighten the background where it falls short.",
		}
	default:
		guideline := "the relevant WCAG guideline"
		if issue.WCAGCriterion != "" {
			guideline = "WCAG criterion " + issue.WCAGCriterion
		}
		steps = []string{
			"Consult " + guideline + " for the applicable technique.",
			"Review the issue manually and apply the appropriate fix.",
		}
	}

	now := time.Now().UTC()
	return &domain.RemediationPlan{
		ID:                  uuid.NewString(),
		IssueID:             issue.ID,
		GeneratedContent:    content,
		ImplementationSteps: steps,
		Notes:               notes,
		UserApproved:        false,
		Status:              domain.PlanPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (uc *RemediationUseCase) generateAltText(ctx context.Context, issue *domain.Issue) (json.RawMessage, string) {
	prompt := fmt.Sprintf(
		"An image in a document was flagged as missing alternative text.\nContext: %s\n"+
			"Write one alternative text description for this image, under 125 characters, "+
			"describing its likely content and purpose. Respond with the description only.",
		issue.Description,
	)
	text, err := uc.generator.Generate(ctx, domain.GenerationRequest{
		System: remediationSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		uc.logger.Warn("alt text generation unavailable, using placeholder",
			slog.String("issue_id", issue.ID), slog.Any("error", err))
		return mustJSON(map[string]string{
			"alt_text": "Image requiring description. Please provide alternative text describing this image's content and purpose.",
		}), "Suggestion service unavailable; placeholder inserted. Edit before approving."
	}
	return mustJSON(map[string]string{"alt_text": strings.TrimSpace(text)}), ""
}

func (uc *RemediationUseCase) generateTableFix(ctx context.Context, issue *domain.Issue) (json.RawMessage, string) {
	prompt := fmt.Sprintf(
		"A data table in a document was flagged as missing proper headers.\nContext: %s\n"+
			"Respond with a JSON object with keys \"headers\" (array of short column header strings), "+
			"\"caption\" (one sentence), and \"summary\" (one or two sentences describing the table's organization). "+
			"Respond with JSON only.",
		issue.Description,
	)
	text, err := uc.generator.Generate(ctx, domain.GenerationRequest{
		System:   remediationSystemPrompt,
		Prompt:   prompt,
		WantJSON: true,
	})
	if err != nil {
		uc.logger.Warn("table fix generation unavailable, using placeholder",
			slog.String("issue_id", issue.ID), slog.Any("error", err))
		return mustJSON(map[string]any{
			"headers": []string{},
			"caption": "Table caption required.",
			"summary": "Describe how this table is organized so screen reader users can navigate it.",
		}), "Suggestion service unavailable; placeholder inserted. Edit before approving."
	}
	if raw, ok := validJSONObject(text); ok {
		return raw, ""
	}
	// Model ignored the JSON instruction; keep its answer as the summary.
	return mustJSON(map[string]any{
		"headers": []string{},
		"caption": "",
		"summary": strings.TrimSpace(text),
	}), "Generated response was not structured; review before approving."
}

func (uc *RemediationUseCase) generateHeadings(ctx context.Context, issue *domain.Issue) (json.RawMessage, string) {
	prompt := fmt.Sprintf(
		"A document page was flagged as lacking heading structure.\nContext: %s\n"+
			"Respond with a JSON array of objects, each with keys \"level\" (1-6) and \"text\", "+
			"proposing a plausible heading outline for such a page. Respond with JSON only.",
		issue.Description,
	)
	text, err := uc.generator.Generate(ctx, domain.GenerationRequest{
		System:   remediationSystemPrompt,
		Prompt:   prompt,
		WantJSON: true,
	})
	if err != nil {
		uc.logger.Warn("heading generation unavailable, using placeholder",
			slog.String("issue_id", issue.ID), slog.Any("error", err))
		return mustJSON([]map[string]any{
			{"level": 1, "text": "Document title heading required."},
		}), "Suggestion service unavailable; placeholder inserted. Edit before approving."
	}
	if raw, ok := validJSONArray(text); ok {
		return raw, ""
	}
	return mustJSON([]map[string]any{
		{"level": 1, "text": strings.TrimSpace(text)},
	}), "Generated response was not structured; review before approving."
}

func (uc *RemediationUseCase) generateTitle(ctx context.Context, issue *domain.Issue) (json.RawMessage, string) {
	prompt := fmt.Sprintf(
		"A document was flagged as missing a title in its metadata.\nContext: %s\n"+
			"Write one short, descriptive document title. Respond with the title only.",
		issue.Description,
	)
	text, err := uc.generator.Generate(ctx, domain.GenerationRequest{
		System: remediationSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		uc.logger.Warn("title generation unavailable, using placeholder",
			slog.String("issue_id", issue.ID), slog.Any("error", err))
		return mustJSON(map[string]string{
			"title": "Untitled document. Please provide a descriptive title.",
		}), "Suggestion service unavailable; placeholder inserted. Edit before approving."
	}
	return mustJSON(map[string]string{"title": strings.TrimSpace(strings.Trim(strings.TrimSpace(text), `"`))}), ""
}

func (uc *RemediationUseCase) ownedIssue(ctx context.Context, ownerID, issueID string) (*domain.Issue, error) {
	issue, err := uc.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("fetch issue by id: %w", err)
	}
	doc, err := uc.docs.GetByID(ctx, issue.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("fetch issue document: %w", err)
	}
	if doc.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrForbidden, "access issue", fmt.Errorf("issue %s", issueID))
	}
	return issue, nil
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal static remediation content: %v", err))
	}
	return raw
}

func validJSONObject(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return nil, false
	}
	return json.RawMessage(trimmed), true
}

func validJSONArray(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	var decoded []any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return nil, false
	}
	return json.RawMessage(trimmed), true
}
