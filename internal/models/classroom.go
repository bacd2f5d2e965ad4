package models

import "time"

// ClassroomType distinguishes regular rooms from labs.
type ClassroomType string

const (
	ClassroomTypeClassroom ClassroomType = "Classroom"
	ClassroomTypeLab       ClassroomType = "Lab"
)

// Classroom represents a bookable room.
type Classroom struct {
	ID         string        `db:"id" json:"id" yaml:"id"`
	CollegeID  string        `db:"college_id" json:"college_id" yaml:"college_id"`
	RoomNumber string        `db:"room_number" json:"room_number" yaml:"room_number"`
	Type       ClassroomType `db:"type" json:"type" yaml:"type"`
	Capacity   int           `db:"capacity" json:"capacity" yaml:"capacity"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at" yaml:"-"`
}
