package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// FacultyRepository reads teaching staff.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// ListByCollege returns the college's faculty ordered by id.
func (r *FacultyRepository) ListByCollege(ctx context.Context, collegeID string) ([]models.Faculty, error) {
	const query = `SELECT id, college_id, name, employee_id, initials, department, created_at, updated_at
FROM faculties WHERE college_id = $1 ORDER BY id ASC`
	var faculty []models.Faculty
	if err := r.db.SelectContext(ctx, &faculty, query, collegeID); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	return faculty, nil
}
