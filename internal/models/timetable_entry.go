package models

import "time"

// TimetableEntry is one committed class or library hour of a section.
// SubjectID and FacultyID are both nil for a library hour.
type TimetableEntry struct {
	ID          string    `db:"id" json:"id"`
	Section     string    `db:"section" json:"section"`
	DayOfWeek   string    `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	SubjectID   *string   `db:"subject_id" json:"subject_id"`
	FacultyID   *string   `db:"faculty_id" json:"faculty_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	CollegeID   string    `db:"college_id" json:"college_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// IsLibraryHour reports whether the entry is a self-study slot.
func (e TimetableEntry) IsLibraryHour() bool {
	return e.SubjectID == nil
}

// TimetableEntryDetail is an entry joined with the labels needed for rendering.
type TimetableEntryDetail struct {
	TimetableEntry
	RoomNumber         string  `db:"room_number" json:"room_number"`
	CourseAbbreviation string  `db:"course_abbreviation" json:"course_abbreviation"`
	SubjectCode        *string `db:"subject_code" json:"subject_code,omitempty"`
	SubjectName        *string `db:"subject_name" json:"subject_name,omitempty"`
	FacultyName        *string `db:"faculty_name" json:"faculty_name,omitempty"`
	FacultyInitials    *string `db:"faculty_initials" json:"faculty_initials,omitempty"`
}

// TimetableFilter narrows timetable reads.
type TimetableFilter struct {
	CollegeID string
	Section   string
}

// Conflict dimensions reported by manual moves.
const (
	ConflictDimensionSection   = "SECTION"
	ConflictDimensionFaculty   = "FACULTY"
	ConflictDimensionClassroom = "CLASSROOM"
)

// TimetableConflict describes an existing entry blocking a move.
type TimetableConflict struct {
	EntryID     string  `json:"entry_id"`
	Section     string  `json:"section"`
	DayOfWeek   string  `json:"day_of_week"`
	StartTime   string  `json:"start_time"`
	ClassroomID string  `json:"classroom_id"`
	FacultyID   *string `json:"faculty_id,omitempty"`
	Dimension   string  `json:"dimension"`
}

// TimetableConflictError is returned when a move collides with an existing entry.
type TimetableConflictError struct {
	Type     string            `json:"type"`
	Message  string            `json:"message"`
	Conflict TimetableConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *TimetableConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
