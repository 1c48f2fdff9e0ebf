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

type BulkJobRepository struct {
	db *sql.DB
}

func NewBulkJobRepository(db *sql.DB) *BulkJobRepository {
	return &BulkJobRepository{db: db}
}

const bulkJobColumns = `id, owner_id, kind, status, filters, total, successful, failed, error_message, created_at, updated_at`

func (r *BulkJobRepository) Create(ctx context.Context, job *domain.BulkJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO bulk_jobs (`+bulkJobColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		job.ID, job.OwnerID, string(job.Kind), string(job.Status), nullableRaw(job.Filters),
		job.Total, job.Successful, job.Failed, job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bulk job: %w", err)
	}
	return nil
}

func (r *BulkJobRepository) GetByID(ctx context.Context, id string) (*domain.BulkJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+bulkJobColumns+`
FROM bulk_jobs
WHERE id = $1
`, id)

	var job domain.BulkJob
	var kind, status string
	var filtersRaw []byte

	err := row.Scan(
		&job.ID, &job.OwnerID, &kind, &status, &filtersRaw,
		&job.Total, &job.Successful, &job.Failed, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get bulk job", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan bulk job: %w", err)
	}
	job.Kind = domain.BulkJobKind(kind)
	job.Status = domain.BulkJobStatus(status)
	job.Filters = json.RawMessage(filtersRaw)
	return &job, nil
}

func (r *BulkJobRepository) MarkRunning(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE bulk_jobs
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(domain.BulkJobRunning), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark bulk job running: %w", err)
	}
	return nil
}

func (r *BulkJobRepository) Complete(ctx context.Context, id string, total, successful, failed int, errMessage string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE bulk_jobs
SET status = $2, total = $3, successful = $4, failed = $5, error_message = $6, updated_at = $7
WHERE id = $1
`, id, string(domain.BulkJobCompleted), total, successful, failed, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("complete bulk job: %w", err)
	}
	return nil
}
