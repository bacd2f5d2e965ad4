package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SubjectRepository reads subjects joined to their course.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByCollege returns every subject of every course the college offers.
func (r *SubjectRepository) ListByCollege(ctx context.Context, collegeID string) ([]models.Subject, error) {
	const query = `SELECT s.id, s.course_id, c.abbreviation AS course_abbreviation, s.subject_code, s.subject_name,
s.semester, s.subject_type, s.credit_point, s.classes_per_week, s.priority, s.created_at, s.updated_at
FROM subjects s JOIN courses c ON c.id = s.course_id
WHERE c.college_id = $1 ORDER BY c.abbreviation ASC, s.semester ASC, s.subject_code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, collegeID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}
