package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

// ResultWriter persists one completed analysis run in a single transaction.
// Issues from earlier runs are replaced; reports accumulate as history.
type ResultWriter struct {
	db *sql.DB
}

func NewResultWriter(db *sql.DB) *ResultWriter {
	return &ResultWriter{db: db}
}

func (w *ResultWriter) SaveResult(ctx context.Context, doc *domain.Document, meta domain.DocumentMetadata, issues []domain.Issue, report *domain.AnalysisReport) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin result tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	// A degraded extraction never produced a count; the column stays NULL.
	var pageCount *int
	if meta.ExtractError == "" || meta.PageCount > 0 {
		pageCount = &meta.PageCount
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = '', page_count = $3, metadata = $4, updated_at = $5
WHERE id = $1
`, doc.ID, string(domain.StatusCompleted), pageCount, metaJSON, time.Now().UTC()); err != nil {
		return fmt.Errorf("complete document: %w", err)
	}

	// Plans hanging off stale issues go with them via the cascade.
	if _, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("clear previous issues: %w", err)
	}

	for i := range issues {
		issue := &issues[i]
		locationJSON, err := json.Marshal(issue.Location)
		if err != nil {
			return fmt.Errorf("marshal location: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO issues (`+issueColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
			issue.ID, issue.DocumentID, string(issue.Type), string(issue.Severity), issue.PageNumber,
			issue.Description, issue.WCAGCriterion, locationJSON, issue.Resolved, issue.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert issue: %w", err)
		}
	}

	reportData, err := marshalNullable(report.ReportData)
	if err != nil {
		return fmt.Errorf("marshal report data: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO analysis_reports (`+reportColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		report.ID, report.DocumentID, report.OverallScore, report.TotalIssues,
		report.CriticalIssues, report.HighIssues, report.MediumIssues, report.LowIssues,
		string(report.ComplianceTier), reportData, report.GeneratedAt,
	); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result tx: %w", err)
	}
	return nil
}
