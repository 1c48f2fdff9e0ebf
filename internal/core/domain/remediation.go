package domain

import (
	"encoding/json"
	"time"
)

type PlanStatus string

const (
	PlanPending               PlanStatus = "pending"
	PlanApproved              PlanStatus = "approved"
	PlanRejected              PlanStatus = "rejected"
	PlanPendingImplementation PlanStatus = "pending_implementation"
	PlanImplemented           PlanStatus = "implemented"
)

// RemediationPlan is the single proposed fix for one issue. At most one plan
// exists per issue; generating again returns the existing plan.
type RemediationPlan struct {
	ID                  string          `json:"id"`
	IssueID             string          `json:"issue_id"`
	GeneratedContent    json.RawMessage `json:"generated_content,omitempty"`
	ImplementationSteps []string        `json:"implementation_steps"`
	Notes               string          `json:"notes,omitempty"`
	UserApproved        bool            `json:"user_approved"`
	Status              PlanStatus      `json:"implementation_status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// GenerationRequest is the structured prompt handed to the text-generation
// capability.
type GenerationRequest struct {
	System   string
	Prompt   string
	WantJSON bool
}

// RemediationPayload is what the annotation capability receives for one plan
// when fixes are stamped into a document.
type RemediationPayload struct {
	IssueID          string          `json:"issue_id"`
	IssueType        IssueType       `json:"issue_type"`
	PageNumber       *int            `json:"page_number,omitempty"`
	Location         IssueLocation   `json:"location"`
	GeneratedContent json.RawMessage `json:"generated_content,omitempty"`
	Steps            []string        `json:"implementation_steps,omitempty"`
}

// ImplementationItem joins a plan with the issue and document it belongs to,
// as selected for the bulk implementation phase.
type ImplementationItem struct {
	Plan         RemediationPlan
	IssueID      string
	IssueType    IssueType
	PageNumber   *int
	Location     IssueLocation
	DocumentID   string
	DocumentPath string
}

type BulkJobKind string

const (
	BulkKindGenerate  BulkJobKind = "generate"
	BulkKindImplement BulkJobKind = "implement"
)

type BulkJobStatus string

const (
	BulkJobQueued    BulkJobStatus = "queued"
	BulkJobRunning   BulkJobStatus = "running"
	BulkJobCompleted BulkJobStatus = "completed"
)

// BulkJob is the durable record of one bulk run. Counts are finalized by the
// worker; successful+failed always equals total at completion.
type BulkJob struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"owner_id"`
	Kind       BulkJobKind     `json:"kind"`
	Status     BulkJobStatus   `json:"status"`
	Filters    json.RawMessage `json:"filters,omitempty"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// BulkCounts is the aggregate outcome of a synchronous bulk operation.
type BulkCounts struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}
