package domain

import "time"

type IssueType string

const (
	IssueMissingText             IssueType = "missing_text"
	IssueMissingAltText          IssueType = "missing_alt_text"
	IssueTableMissingHeaders     IssueType = "table_missing_headers"
	IssueComplexTable            IssueType = "complex_table"
	IssueMissingHeadingStructure IssueType = "missing_heading_structure"
	IssueMissingTitle            IssueType = "missing_title"
	IssueMissingLanguage         IssueType = "missing_language"
	IssuePotentialContrast       IssueType = "potential_contrast_issue"
)

func (t IssueType) Valid() bool {
	switch t {
	case IssueMissingText, IssueMissingAltText, IssueTableMissingHeaders,
		IssueComplexTable, IssueMissingHeadingStructure, IssueMissingTitle,
		IssueMissingLanguage, IssuePotentialContrast:
		return true
	default:
		return false
	}
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// Penalty is the score deduction one issue of this severity causes.
func (s Severity) Penalty() int {
	switch s {
	case SeverityCritical:
		return 15
	case SeverityHigh:
		return 10
	case SeverityMedium:
		return 5
	case SeverityLow:
		return 2
	default:
		return 0
	}
}

// IssueLocation pins an issue to an element on a page. Indexes are pointers
// because index 0 is meaningful.
type IssueLocation struct {
	Page       int  `json:"page,omitempty"`
	TableIndex *int `json:"table_index,omitempty"`
	ImageIndex *int `json:"image_index,omitempty"`
}

// Issue is one detected accessibility defect. Immutable after creation except
// for the Resolved flag, which flips when a fix lands.
type Issue struct {
	ID            string        `json:"id"`
	DocumentID    string        `json:"document_id"`
	Type          IssueType     `json:"issue_type"`
	Severity      Severity      `json:"severity"`
	PageNumber    *int          `json:"page_number,omitempty"`
	Description   string        `json:"description"`
	WCAGCriterion string        `json:"wcag_criterion,omitempty"`
	Location      IssueLocation `json:"location"`
	Resolved      bool          `json:"resolved"`
	CreatedAt     time.Time     `json:"created_at"`
}

// IssueFilter narrows issue selection for bulk operations. Empty slices mean
// no restriction on that dimension.
type IssueFilter struct {
	DocumentIDs []string   `json:"document_ids,omitempty"`
	Types       []IssueType `json:"issue_types,omitempty"`
	Severities  []Severity  `json:"severities,omitempty"`
}
