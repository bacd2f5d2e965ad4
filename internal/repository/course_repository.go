package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// CourseRepository reads courses offered by a college.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListByCollege returns the college's courses ordered by abbreviation.
func (r *CourseRepository) ListByCollege(ctx context.Context, collegeID string) ([]models.Course, error) {
	const query = `SELECT id, college_id, name, abbreviation, total_semesters, created_at, updated_at
FROM courses WHERE college_id = $1 ORDER BY abbreviation ASC, id ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, collegeID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}
