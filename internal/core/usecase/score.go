package usecase

import (
	"strings"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

const (
	baselineScore  = 100
	taggedBonus    = 10
	titledBonus    = 5
	tierAAAFloor   = 90
	tierAAFloor    = 75
	tierAFloor     = 60
)

// Score converts an issue set and document metadata into a 0-100 score and a
// compliance tier. Clamping happens once, after all penalties and bonuses.
func Score(issues []domain.Issue, meta domain.DocumentMetadata) (int, domain.ComplianceTier) {
	score := baselineScore
	for _, issue := range issues {
		score -= issue.Severity.Penalty()
	}
	if meta.Tagged {
		score += taggedBonus
	}
	if strings.TrimSpace(meta.Title) != "" {
		score += titledBonus
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, tierFor(score)
}

// tierFor maps a clamped score onto a tier; boundary scores belong to the
// higher tier.
func tierFor(score int) domain.ComplianceTier {
	switch {
	case score >= tierAAAFloor:
		return domain.TierAAA
	case score >= tierAAFloor:
		return domain.TierAA
	case score >= tierAFloor:
		return domain.TierA
	default:
		return domain.TierNonCompliant
	}
}

// severityCounts tallies issues by severity for the report invariant that the
// four counts sum to the total.
func severityCounts(issues []domain.Issue) (critical, high, medium, low int) {
	for _, issue := range issues {
		switch issue.Severity {
		case domain.SeverityCritical:
			critical++
		case domain.SeverityHigh:
			high++
		case domain.SeverityMedium:
			medium++
		case domain.SeverityLow:
			low++
		}
	}
	return critical, high, medium, low
}
