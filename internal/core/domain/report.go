package domain

import "time"

type ComplianceTier string

const (
	TierAAA          ComplianceTier = "AAA"
	TierAA           ComplianceTier = "AA"
	TierA            ComplianceTier = "A"
	TierNonCompliant ComplianceTier = "Non-compliant"
)

// AnalysisReport is one immutable scoring snapshot. The current report for a
// document is the one with the latest GeneratedAt.
type AnalysisReport struct {
	ID             string         `json:"id"`
	DocumentID     string         `json:"document_id"`
	OverallScore   int            `json:"overall_score"`
	TotalIssues    int            `json:"total_issues"`
	CriticalIssues int            `json:"critical_issues"`
	HighIssues     int            `json:"high_issues"`
	MediumIssues   int            `json:"medium_issues"`
	LowIssues      int            `json:"low_issues"`
	ComplianceTier ComplianceTier `json:"compliance_tier"`
	ReportData     map[string]any `json:"report_data,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// AnalysisResult is the read model returned to callers: the latest report
// together with the document's issues.
type AnalysisResult struct {
	DocumentID string         `json:"document_id"`
	Report     AnalysisReport `json:"report"`
	Issues     []Issue        `json:"issues"`
}
