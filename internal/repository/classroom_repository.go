package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ClassroomRepository reads rooms and labs.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// ListByCollege returns the college's rooms ordered by room number.
func (r *ClassroomRepository) ListByCollege(ctx context.Context, collegeID string) ([]models.Classroom, error) {
	const query = `SELECT id, college_id, room_number, type, capacity, created_at, updated_at
FROM classrooms WHERE college_id = $1 ORDER BY room_number ASC, id ASC`
	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query, collegeID); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return rooms, nil
}
