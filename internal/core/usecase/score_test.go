package usecase

import (
	"testing"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

func issuesWithSeverities(severities ...domain.Severity) []domain.Issue {
	issues := make([]domain.Issue, 0, len(severities))
	for _, s := range severities {
		issues = append(issues, domain.Issue{Severity: s})
	}
	return issues
}

func TestScorePerfectDocument(t *testing.T) {
	score, tier := Score(nil, domain.DocumentMetadata{Tagged: true, Title: "Report"})
	if score != 100 {
		t.Fatalf("bonuses must not push past 100, got %d", score)
	}
	if tier != domain.TierAAA {
		t.Fatalf("expected AAA, got %s", tier)
	}
}

func TestScoreNeverNegative(t *testing.T) {
	severities := make([]domain.Severity, 10)
	for i := range severities {
		severities[i] = domain.SeverityCritical
	}
	score, tier := Score(issuesWithSeverities(severities...), domain.DocumentMetadata{})
	if score != 0 {
		t.Fatalf("expected clamp to 0, got %d", score)
	}
	if tier != domain.TierNonCompliant {
		t.Fatalf("expected Non-compliant, got %s", tier)
	}
}

func TestScoreBonusesApplyBeforeClamp(t *testing.T) {
	// 100 - 15 - 10 = 75, then +10 tagged +5 titled = 90.
	score, tier := Score(
		issuesWithSeverities(domain.SeverityCritical, domain.SeverityHigh),
		domain.DocumentMetadata{Tagged: true, Title: "Budget"},
	)
	if score != 90 {
		t.Fatalf("expected 90, got %d", score)
	}
	if tier != domain.TierAAA {
		t.Fatalf("expected AAA at boundary, got %s", tier)
	}
}

func TestScoreBlankTitleEarnsNoBonus(t *testing.T) {
	score, _ := Score(nil, domain.DocumentMetadata{Title: "  "})
	if score != 100 {
		t.Fatalf("expected 100, got %d", score)
	}
	score, _ = Score(issuesWithSeverities(domain.SeverityLow), domain.DocumentMetadata{Title: " "})
	if score != 98 {
		t.Fatalf("blank title must not add the bonus, got %d", score)
	}
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  domain.ComplianceTier
	}{
		{100, domain.TierAAA},
		{90, domain.TierAAA},
		{89, domain.TierAA},
		{75, domain.TierAA},
		{74, domain.TierA},
		{60, domain.TierA},
		{59, domain.TierNonCompliant},
		{0, domain.TierNonCompliant},
	}
	for _, tc := range cases {
		if got := tierFor(tc.score); got != tc.want {
			t.Fatalf("tierFor(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestSeverityCountsSumToTotal(t *testing.T) {
	issues := issuesWithSeverities(
		domain.SeverityCritical,
		domain.SeverityHigh, domain.SeverityHigh,
		domain.SeverityMedium,
		domain.SeverityLow, domain.SeverityLow, domain.SeverityLow,
	)
	critical, high, medium, low := severityCounts(issues)
	if critical != 1 || high != 2 || medium != 1 || low != 3 {
		t.Fatalf("unexpected counts: %d/%d/%d/%d", critical, high, medium, low)
	}
	if critical+high+medium+low != len(issues) {
		t.Fatalf("counts must sum to total")
	}
}
