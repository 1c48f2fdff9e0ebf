package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

type IssueRepository struct {
	db *sql.DB
}

func NewIssueRepository(db *sql.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

const issueColumns = `id, document_id, issue_type, severity, page_number, description, wcag_criterion, location, resolved, created_at`

func (r *IssueRepository) GetByID(ctx context.Context, id string) (*domain.Issue, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+issueColumns+`
FROM issues
WHERE id = $1
`, id)

	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get issue", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan issue: %w", err)
	}
	return issue, nil
}

func (r *IssueRepository) ListByDocument(ctx context.Context, documentID string, severity domain.Severity) ([]domain.Issue, error) {
	query := `
SELECT ` + issueColumns + `
FROM issues
WHERE document_id = $1
`
	args := []any{documentID}
	if severity != "" {
		query += ` AND severity = $2`
		args = append(args, string(severity))
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()
	return collectIssues(rows)
}

// ListUnplanned selects the owner's unresolved issues that have no plan yet.
func (r *IssueRepository) ListUnplanned(ctx context.Context, ownerID string, filter domain.IssueFilter) ([]domain.Issue, error) {
	query := `
SELECT i.id, i.document_id, i.issue_type, i.severity, i.page_number, i.description, i.wcag_criterion, i.location, i.resolved, i.created_at
FROM issues i
JOIN documents d ON d.id = i.document_id
LEFT JOIN remediation_plans p ON p.issue_id = i.id
WHERE d.owner_id = $1 AND p.id IS NULL AND NOT i.resolved
`
	args := []any{ownerID}

	if len(filter.DocumentIDs) > 0 {
		query += ` AND i.document_id IN (` + placeholders(len(args)+1, len(filter.DocumentIDs)) + `)`
		for _, id := range filter.DocumentIDs {
			args = append(args, id)
		}
	}
	if len(filter.Types) > 0 {
		query += ` AND i.issue_type IN (` + placeholders(len(args)+1, len(filter.Types)) + `)`
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if len(filter.Severities) > 0 {
		query += ` AND i.severity IN (` + placeholders(len(args)+1, len(filter.Severities)) + `)`
		for _, s := range filter.Severities {
			args = append(args, string(s))
		}
	}
	query += ` ORDER BY i.created_at, i.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unplanned issues: %w", err)
	}
	defer rows.Close()
	return collectIssues(rows)
}

func collectIssues(rows *sql.Rows) ([]domain.Issue, error) {
	var issues []domain.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, *issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return issues, nil
}

func scanIssue(row rowScanner) (*domain.Issue, error) {
	var issue domain.Issue
	var issueType, severity string
	var locationRaw []byte

	err := row.Scan(
		&issue.ID, &issue.DocumentID, &issueType, &severity, &issue.PageNumber,
		&issue.Description, &issue.WCAGCriterion, &locationRaw, &issue.Resolved, &issue.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(locationRaw) > 0 {
		if err := json.Unmarshal(locationRaw, &issue.Location); err != nil {
			return nil, fmt.Errorf("unmarshal location: %w", err)
		}
	}
	issue.Type = domain.IssueType(issueType)
	issue.Severity = domain.Severity(severity)
	return &issue, nil
}
