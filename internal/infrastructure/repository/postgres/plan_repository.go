package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

type PlanRepository struct {
	db *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, issue_id, generated_content, implementation_steps, notes, user_approved, status, created_at, updated_at`

// Create inserts a plan. The unique constraint on issue_id turns a concurrent
// duplicate into ErrConflict for the caller to resolve.
func (r *PlanRepository) Create(ctx context.Context, plan *domain.RemediationPlan) error {
	stepsJSON, err := json.Marshal(plan.ImplementationSteps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO remediation_plans (`+planColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		plan.ID, plan.IssueID, nullableRaw(plan.GeneratedContent), stepsJSON, plan.Notes,
		plan.UserApproved, string(plan.Status), plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.WrapError(domain.ErrConflict, "create plan", fmt.Errorf("issue %s already planned", plan.IssueID))
		}
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) GetByIssueID(ctx context.Context, issueID string) (*domain.RemediationPlan, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+planColumns+`
FROM remediation_plans
WHERE issue_id = $1
`, issueID)

	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get plan", fmt.Errorf("issue %s", issueID))
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	return plan, nil
}

func (r *PlanRepository) UpdateDecision(ctx context.Context, planID string, approved bool, status domain.PlanStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE remediation_plans
SET user_approved = $2, status = $3, updated_at = $4
WHERE id = $1
`, planID, approved, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update plan decision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "update plan decision", fmt.Errorf("id %s", planID))
	}
	return nil
}

func (r *PlanRepository) ListOwnedByIDs(ctx context.Context, ownerID string, planIDs []string) ([]domain.RemediationPlan, error) {
	if len(planIDs) == 0 {
		return nil, nil
	}
	query := `
SELECT p.id, p.issue_id, p.generated_content, p.implementation_steps, p.notes, p.user_approved, p.status, p.created_at, p.updated_at
FROM remediation_plans p
JOIN issues i ON i.id = p.issue_id
JOIN documents d ON d.id = i.document_id
WHERE d.owner_id = $1 AND p.id IN (` + placeholders(2, len(planIDs)) + `)
`
	args := make([]any, 0, len(planIDs)+1)
	args = append(args, ownerID)
	for _, id := range planIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.RemediationPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return plans, nil
}

// ListForImplementation selects plans ready to be stamped, joined with the
// issue and document they belong to.
func (r *PlanRepository) ListForImplementation(ctx context.Context, ownerID string, documentIDs []string) ([]domain.ImplementationItem, error) {
	query := `
SELECT p.id, p.issue_id, p.generated_content, p.implementation_steps, p.notes, p.user_approved, p.status, p.created_at, p.updated_at,
       i.issue_type, i.page_number, i.location,
       d.id, d.storage_path
FROM remediation_plans p
JOIN issues i ON i.id = p.issue_id
JOIN documents d ON d.id = i.document_id
WHERE d.owner_id = $1
  AND p.status IN ($2, $3)
  AND p.user_approved
`
	args := []any{ownerID, string(domain.PlanApproved), string(domain.PlanPendingImplementation)}
	if len(documentIDs) > 0 {
		query += ` AND d.id IN (` + placeholders(4, len(documentIDs)) + `)`
		for _, id := range documentIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY d.id, p.created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query implementation items: %w", err)
	}
	defer rows.Close()

	var items []domain.ImplementationItem
	for rows.Next() {
		var item domain.ImplementationItem
		var contentRaw, stepsRaw, locationRaw []byte
		var planStatus, issueType string

		err := rows.Scan(
			&item.Plan.ID, &item.Plan.IssueID, &contentRaw, &stepsRaw, &item.Plan.Notes,
			&item.Plan.UserApproved, &planStatus, &item.Plan.CreatedAt, &item.Plan.UpdatedAt,
			&issueType, &item.PageNumber, &locationRaw,
			&item.DocumentID, &item.DocumentPath,
		)
		if err != nil {
			return nil, fmt.Errorf("scan implementation item: %w", err)
		}
		item.Plan.Status = domain.PlanStatus(planStatus)
		item.Plan.GeneratedContent = json.RawMessage(contentRaw)
		if len(stepsRaw) > 0 {
			if err := json.Unmarshal(stepsRaw, &item.Plan.ImplementationSteps); err != nil {
				return nil, fmt.Errorf("unmarshal steps: %w", err)
			}
		}
		if len(locationRaw) > 0 {
			if err := json.Unmarshal(locationRaw, &item.Location); err != nil {
				return nil, fmt.Errorf("unmarshal location: %w", err)
			}
		}
		item.IssueID = item.Plan.IssueID
		item.IssueType = domain.IssueType(issueType)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate implementation items: %w", err)
	}
	return items, nil
}

// MarkImplemented finishes one document group atomically: plans become
// implemented, their issues resolve, and the fixed artifact path lands on the
// document when the applier produced a new file.
func (r *PlanRepository) MarkImplemented(ctx context.Context, planIDs, issueIDs []string, documentID, fixedPath string) error {
	if len(planIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin implement tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()

	query := `
UPDATE remediation_plans
SET status = $1, updated_at = $2
WHERE id IN (` + placeholders(3, len(planIDs)) + `)`
	args := []any{string(domain.PlanImplemented), now}
	for _, id := range planIDs {
		args = append(args, id)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark plans implemented: %w", err)
	}

	if len(issueIDs) > 0 {
		query = `UPDATE issues SET resolved = TRUE WHERE id IN (` + placeholders(1, len(issueIDs)) + `)`
		args = args[:0]
		for _, id := range issueIDs {
			args = append(args, id)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("resolve issues: %w", err)
		}
	}

	if fixedPath != "" {
		if _, err := tx.ExecContext(ctx, `
UPDATE documents SET storage_path = $2, updated_at = $3 WHERE id = $1
`, documentID, fixedPath, now); err != nil {
			return fmt.Errorf("update document path: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit implement tx: %w", err)
	}
	return nil
}

func scanPlan(row rowScanner) (*domain.RemediationPlan, error) {
	var plan domain.RemediationPlan
	var contentRaw, stepsRaw []byte
	var status string

	err := row.Scan(
		&plan.ID, &plan.IssueID, &contentRaw, &stepsRaw, &plan.Notes,
		&plan.UserApproved, &status, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	plan.GeneratedContent = json.RawMessage(contentRaw)
	if len(stepsRaw) > 0 {
		if err := json.Unmarshal(stepsRaw, &plan.ImplementationSteps); err != nil {
			return nil, fmt.Errorf("unmarshal steps: %w", err)
		}
	}
	plan.Status = domain.PlanStatus(status)
	return &plan, nil
}

func nullableRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
