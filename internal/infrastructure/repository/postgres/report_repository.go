package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/a11yomatic/a11y-engine/internal/core/domain"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, document_id, overall_score, total_issues, critical_issues, high_issues, medium_issues, low_issues, compliance_tier, report_data, generated_at`

func (r *ReportRepository) LatestByDocument(ctx context.Context, documentID string) (*domain.AnalysisReport, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+reportColumns+`
FROM analysis_reports
WHERE document_id = $1
ORDER BY generated_at DESC
LIMIT 1
`, documentID)

	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get latest report", fmt.Errorf("document %s", documentID))
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return report, nil
}

func (r *ReportRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.AnalysisReport, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+reportColumns+`
FROM analysis_reports
WHERE document_id = $1
ORDER BY generated_at DESC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.AnalysisReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

func scanReport(row rowScanner) (*domain.AnalysisReport, error) {
	var report domain.AnalysisReport
	var tier string
	var dataRaw []byte

	err := row.Scan(
		&report.ID, &report.DocumentID, &report.OverallScore, &report.TotalIssues,
		&report.CriticalIssues, &report.HighIssues, &report.MediumIssues, &report.LowIssues,
		&tier, &dataRaw, &report.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(dataRaw) > 0 {
		if err := json.Unmarshal(dataRaw, &report.ReportData); err != nil {
			return nil, fmt.Errorf("unmarshal report data: %w", err)
		}
	}
	report.ComplianceTier = domain.ComplianceTier(tier)
	return &report, nil
}
