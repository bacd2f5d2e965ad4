package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const timetableEntryColumns = `id, section, day_of_week, start_time, end_time, classroom_id, subject_id, faculty_id, course_id, college_id, created_at, updated_at`

const weekdayOrder = `array_position(ARRAY['Monday','Tuesday','Wednesday','Thursday','Friday','Saturday','Sunday']::text[], te.day_of_week::text)`

// TimetableEntryRepository persists generated and edited timetable entries.
type TimetableEntryRepository struct {
	db *sqlx.DB
}

// NewTimetableEntryRepository constructs repository.
func NewTimetableEntryRepository(db *sqlx.DB) *TimetableEntryRepository {
	return &TimetableEntryRepository{db: db}
}

func (r *TimetableEntryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceForCollege removes the college's entries, including attendance rows
// that reference them, and inserts the new set. Callers pass a transaction so
// the swap is atomic.
func (r *TimetableEntryRepository) ReplaceForCollege(ctx context.Context, exec sqlx.ExtContext, collegeID string, entries []models.TimetableEntry) error {
	if collegeID == "" {
		return fmt.Errorf("college_id is required")
	}
	target := r.exec(exec)

	deletes := []struct {
		label string
		query string
	}{
		{"attendances", `DELETE FROM attendances WHERE college_id = $1`},
		{"attendance submissions", `DELETE FROM attendance_submissions WHERE college_id = $1`},
		{"timetable entries", `DELETE FROM timetable_entries WHERE college_id = $1`},
	}
	for _, stmt := range deletes {
		if _, err := target.ExecContext(ctx, stmt.query, collegeID); err != nil {
			return fmt.Errorf("delete %s: %w", stmt.label, err)
		}
	}

	now := time.Now().UTC()
	const insertQuery = `INSERT INTO timetable_entries (` + timetableEntryColumns + `)
VALUES (:id, :section, :day_of_week, :start_time, :end_time, :classroom_id, :subject_id, :faculty_id, :course_id, :college_id, :created_at, :updated_at)`
	for i := range entries {
		payload := entries[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.CollegeID = collegeID
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, &payload); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
		entries[i] = payload
	}
	return nil
}

// ListDetailed returns entries joined with room, course, subject and faculty
// labels, ordered by section, weekday and start time.
func (r *TimetableEntryRepository) ListDetailed(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntryDetail, error) {
	var (
		conditions = []string{"te.college_id = $1"}
		args       = []interface{}{filter.CollegeID}
	)
	if filter.Section != "" {
		args = append(args, filter.Section)
		conditions = append(conditions, fmt.Sprintf("te.section = $%d", len(args)))
	}

	query := `SELECT te.id, te.section, te.day_of_week, te.start_time, te.end_time, te.classroom_id, te.subject_id, te.faculty_id,
te.course_id, te.college_id, te.created_at, te.updated_at,
cr.room_number, c.abbreviation AS course_abbreviation,
s.subject_code, s.subject_name, f.name AS faculty_name, f.initials AS faculty_initials
FROM timetable_entries te
JOIN classrooms cr ON cr.id = te.classroom_id
JOIN courses c ON c.id = te.course_id
LEFT JOIN subjects s ON s.id = te.subject_id
LEFT JOIN faculties f ON f.id = te.faculty_id
WHERE ` + strings.Join(conditions, " AND ") + `
ORDER BY te.section ASC, ` + weekdayOrder + ` ASC, te.start_time ASC`

	var entries []models.TimetableEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

// FindByID loads an entry of the college.
func (r *TimetableEntryRepository) FindByID(ctx context.Context, collegeID, id string) (*models.TimetableEntry, error) {
	const query = `SELECT ` + timetableEntryColumns + ` FROM timetable_entries WHERE id = $1 AND college_id = $2`
	var entry models.TimetableEntry
	if err := r.db.GetContext(ctx, &entry, query, id, collegeID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindOverlapping returns the college's entries on the given day whose time
// range overlaps [startTime, endTime), excluding one entry id (the one being
// moved). Touching ranges do not overlap.
func (r *TimetableEntryRepository) FindOverlapping(ctx context.Context, collegeID, day, startTime, endTime, excludeID string) ([]models.TimetableEntry, error) {
	const query = `SELECT ` + timetableEntryColumns + ` FROM timetable_entries
WHERE college_id = $1 AND day_of_week = $2 AND start_time < $3 AND end_time > $4 AND id <> $5`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, collegeID, day, endTime, startTime, excludeID); err != nil {
		return nil, fmt.Errorf("find overlapping timetable entries: %w", err)
	}
	return entries, nil
}

// UpdateSlot moves an entry to a new day and time.
func (r *TimetableEntryRepository) UpdateSlot(ctx context.Context, collegeID, id, day, startTime, endTime string) error {
	const query = `UPDATE timetable_entries SET day_of_week = $1, start_time = $2, end_time = $3, updated_at = $4 WHERE id = $5 AND college_id = $6`
	result, err := r.db.ExecContext(ctx, query, day, startTime, endTime, time.Now().UTC(), id, collegeID)
	if err != nil {
		return fmt.Errorf("update timetable entry slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable entry rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
