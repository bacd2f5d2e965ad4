package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

const generationRunColumns = `id, college_id, version, status, entries_created, seed, meta, created_at, updated_at`

// GenerationRunRepository persists versioned timetable generation runs.
type GenerationRunRepository struct {
	db *sqlx.DB
}

// NewGenerationRunRepository constructs repository.
func NewGenerationRunRepository(db *sqlx.DB) *GenerationRunRepository {
	return &GenerationRunRepository{db: db}
}

func (r *GenerationRunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// maxVersionAttempts bounds retries when a concurrent insert claims the same
// (college_id, version) pair.
const maxVersionAttempts = 3

const uniqueViolation = "23505"

// CreateVersioned inserts a run assigning the next version for the college.
// The version is computed inside the insert and the unique
// (college_id, version) index rejects a duplicate, in which case the insert
// is retried. Inside a transaction each attempt runs under a savepoint so a
// rejected insert does not abort the caller's transaction.
func (r *GenerationRunRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.GenerationRun) error {
	if run == nil {
		return fmt.Errorf("generation run payload is nil")
	}
	if run.CollegeID == "" {
		return fmt.Errorf("college_id is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.GenerationRunStatusPending
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	target := r.exec(exec)
	inTx := exec != nil

	var err error
	for attempt := 1; attempt <= maxVersionAttempts; attempt++ {
		err = insertNextVersion(ctx, target, run, inTx)
		if err == nil || !isUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("insert generation run: %w", err)
	}
	return nil
}

func insertNextVersion(ctx context.Context, target sqlx.ExtContext, run *models.GenerationRun, inTx bool) error {
	const insertQuery = `
INSERT INTO generation_runs (` + generationRunColumns + `)
SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4, $5, $6, $7, $8
FROM generation_runs WHERE college_id = $2
RETURNING version`

	if inTx {
		if _, err := target.ExecContext(ctx, `SAVEPOINT generation_run_version`); err != nil {
			return err
		}
	}
	err := sqlx.GetContext(ctx, target, &run.Version, insertQuery,
		run.ID, run.CollegeID, run.Status, run.EntriesCreated, run.Seed, run.Meta, run.CreatedAt, run.UpdatedAt)
	if !inTx {
		return err
	}
	if err != nil {
		if _, rbErr := target.ExecContext(ctx, `ROLLBACK TO SAVEPOINT generation_run_version`); rbErr != nil {
			return rbErr
		}
		return err
	}
	_, err = target.ExecContext(ctx, `RELEASE SAVEPOINT generation_run_version`)
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// ListByCollege returns a page of runs, newest version first, and the total count.
func (r *GenerationRunRepository) ListByCollege(ctx context.Context, collegeID string, limit, offset int) ([]models.GenerationRun, int, error) {
	const countQuery = `SELECT COUNT(*) FROM generation_runs WHERE college_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, collegeID); err != nil {
		return nil, 0, fmt.Errorf("count generation runs: %w", err)
	}

	const query = `SELECT ` + generationRunColumns + ` FROM generation_runs WHERE college_id = $1 ORDER BY version DESC LIMIT $2 OFFSET $3`
	var runs []models.GenerationRun
	if err := r.db.SelectContext(ctx, &runs, query, collegeID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list generation runs: %w", err)
	}
	return runs, total, nil
}

// FindByID loads a run of the college.
func (r *GenerationRunRepository) FindByID(ctx context.Context, collegeID, id string) (*models.GenerationRun, error) {
	const query = `SELECT ` + generationRunColumns + ` FROM generation_runs WHERE id = $1 AND college_id = $2`
	var run models.GenerationRun
	if err := r.db.GetContext(ctx, &run, query, id, collegeID); err != nil {
		return nil, err
	}
	return &run, nil
}

// UpdateStatus records a lifecycle transition together with the entry count
// and, when provided, the outcome report.
func (r *GenerationRunRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.GenerationRunStatus, entriesCreated int, meta types.JSONText) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	var (
		query string
		args  []interface{}
	)
	if len(meta) > 0 {
		query = `UPDATE generation_runs SET status = $1, entries_created = $2, meta = $3, updated_at = $4 WHERE id = $5`
		args = []interface{}{status, entriesCreated, meta, now, id}
	} else {
		query = `UPDATE generation_runs SET status = $1, entries_created = $2, updated_at = $3 WHERE id = $4`
		args = []interface{}{status, entriesCreated, now, id}
	}
	result, err := target.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update generation run status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("generation run status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
