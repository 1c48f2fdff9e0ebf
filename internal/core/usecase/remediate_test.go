package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

func remediationFixtures(issue *domain.Issue, gen *generatorFake) (*planRepoFake, *RemediationUseCase) {
	docs := newDocRepoFake(&domain.Document{ID: issue.DocumentID, OwnerID: "owner-1"})
	issues := newIssueRepoFake(issue)
	plans := newPlanRepoFake()
	uc := NewRemediationUseCase(docs, issues, plans, gen, testLogger())
	return plans, uc
}

func altIssue() *domain.Issue {
	page := 2
	idx := 0
	return &domain.Issue{
		ID:         "is-1",
		DocumentID: "doc-1",
		Type:       domain.IssueMissingAltText,
		Severity:   domain.SeverityHigh,
		PageNumber: &page,
		Location:   domain.IssueLocation{Page: page, ImageIndex: &idx},
	}
}

func TestGenerateCreatesPlanWithSuggestedContent(t *testing.T) {
	plans, uc := remediationFixtures(altIssue(), &generatorFake{text: "A bar chart of quarterly revenue."})

	plan, err := uc.Generate(context.Background(), "owner-1", "is-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if plan.Status != domain.PlanPending || plan.UserApproved {
		t.Fatalf("new plan must be pending and unapproved, got %+v", plan)
	}
	var content map[string]string
	if err := json.Unmarshal(plan.GeneratedContent, &content); err != nil {
		t.Fatalf("content not valid JSON: %v", err)
	}
	if content["alt_text"] != "A bar chart of quarterly revenue." {
		t.Fatalf("unexpected alt text: %q", content["alt_text"])
	}
	if len(plan.ImplementationSteps) == 0 {
		t.Fatalf("expected implementation steps")
	}
	if len(plans.createdPlans) != 1 {
		t.Fatalf("expected one persisted plan, got %d", len(plans.createdPlans))
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	gen := &generatorFake{text: "desc"}
	plans, uc := remediationFixtures(altIssue(), gen)

	first, err := uc.Generate(context.Background(), "owner-1", "is-1")
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	second, err := uc.Generate(context.Background(), "owner-1", "is-1")
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same plan, got %s and %s", first.ID, second.ID)
	}
	if gen.calls != 1 {
		t.Fatalf("generator must run once, ran %d times", gen.calls)
	}
	if len(plans.createdPlans) != 1 {
		t.Fatalf("expected one persisted plan, got %d", len(plans.createdPlans))
	}
}

func TestGenerateUnhandledTypeFallsBackToGuidelineSteps(t *testing.T) {
	gen := &generatorFake{text: "unused"}
	issue := &domain.Issue{
		ID:            "is-1",
		DocumentID:    "doc-1",
		Type:          "future_check",
		Severity:      domain.SeverityMedium,
		WCAGCriterion: "1.3.1",
	}
	_, uc := remediationFixtures(issue, gen)

	plan, err := uc.Generate(context.Background(), "owner-1", "is-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(plan.ImplementationSteps) == 0 {
		t.Fatalf("fallback plan must carry steps")
	}
	if !strings.Contains(plan.ImplementationSteps[0], "1.3.1") {
		t.Fatalf("fallback steps must reference the WCAG criterion, got %v", plan.ImplementationSteps)
	}
	if gen.calls != 0 {
		t.Fatalf("fallback must not call the generator, ran %d times", gen.calls)
	}
}

func TestGenerateDegradesToPlaceholderWhenGeneratorDown(t *testing.T) {
	_, uc := remediationFixtures(altIssue(), &generatorFake{err: errors.New("connection refused")})

	plan, err := uc.Generate(context.Background(), "owner-1", "is-1")
	if err != nil {
		t.Fatalf("Generate() must degrade, got error %v", err)
	}
	var content map[string]string
	if err := json.Unmarshal(plan.GeneratedContent, &content); err != nil {
		t.Fatalf("content not valid JSON: %v", err)
	}
	if !strings.Contains(content["alt_text"], "Please provide") {
		t.Fatalf("expected placeholder, got %q", content["alt_text"])
	}
	if plan.Notes == "" {
		t.Fatalf("degraded plan must carry a note")
	}
}

func TestGenerateAdvisoryTypeSkipsGenerator(t *testing.T) {
	issue := &domain.Issue{
		ID:         "is-2",
		DocumentID: "doc-1",
		Type:       domain.IssueMissingLanguage,
		Severity:   domain.SeverityMedium,
	}
	gen := &generatorFake{text: "unused"}
	_, uc := remediationFixtures(issue, gen)

	plan, err := uc.Generate(context.Background(), "owner-1", "is-2")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("advisory plan must not call generator, called %d times", gen.calls)
	}
	if len(plan.ImplementationSteps) == 0 {
		t.Fatalf("expected static steps")
	}
}

func TestGenerateTableFixWrapsUnstructuredAnswer(t *testing.T) {
	issue := &domain.Issue{
		ID:         "is-3",
		DocumentID: "doc-1",
		Type:       domain.IssueTableMissingHeaders,
		Severity:   domain.SeverityHigh,
	}
	_, uc := remediationFixtures(issue, &generatorFake{text: "just use headers"})

	plan, err := uc.Generate(context.Background(), "owner-1", "is-3")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	var content map[string]any
	if err := json.Unmarshal(plan.GeneratedContent, &content); err != nil {
		t.Fatalf("content not valid JSON: %v", err)
	}
	if content["summary"] != "just use headers" {
		t.Fatalf("expected answer preserved as summary, got %v", content["summary"])
	}
	if plan.Notes == "" {
		t.Fatalf("unstructured answer must carry a review note")
	}
}

func TestGenerateForbiddenForForeignIssue(t *testing.T) {
	_, uc := remediationFixtures(altIssue(), &generatorFake{text: "x"})

	_, err := uc.Generate(context.Background(), "owner-2", "is-1")
	if !domain.IsKind(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestApproveTransitions(t *testing.T) {
	plans, uc := remediationFixtures(altIssue(), &generatorFake{text: "x"})
	if _, err := uc.Generate(context.Background(), "owner-1", "is-1"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	plan, err := uc.Approve(context.Background(), "owner-1", "is-1", true, false)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if plan.Status != domain.PlanApproved || !plan.UserApproved {
		t.Fatalf("expected approved, got %+v", plan)
	}

	plan, err = uc.Approve(context.Background(), "owner-1", "is-1", true, true)
	if err != nil {
		t.Fatalf("Approve(autoApply) error = %v", err)
	}
	if plan.Status != domain.PlanPendingImplementation {
		t.Fatalf("expected pending_implementation, got %s", plan.Status)
	}

	plan, err = uc.Approve(context.Background(), "owner-1", "is-1", false, false)
	if err != nil {
		t.Fatalf("Approve(reject) error = %v", err)
	}
	if plan.Status != domain.PlanRejected || plan.UserApproved {
		t.Fatalf("expected rejected, got %+v", plan)
	}
	if len(plans.decisions) != 3 {
		t.Fatalf("expected 3 recorded decisions, got %d", len(plans.decisions))
	}
}

func TestApproveImplementedPlanIsFinal(t *testing.T) {
	plans, uc := remediationFixtures(altIssue(), &generatorFake{text: "x"})
	if _, err := uc.Generate(context.Background(), "owner-1", "is-1"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	plans.byIssue["is-1"].Status = domain.PlanImplemented

	_, err := uc.Approve(context.Background(), "owner-1", "is-1", false, false)
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
