package models

import "time"

// Faculty represents a teaching staff member. Department is matched against
// course abbreviations to decide which sections the member can teach.
type Faculty struct {
	ID         string    `db:"id" json:"id" yaml:"id"`
	CollegeID  string    `db:"college_id" json:"college_id" yaml:"college_id"`
	Name       string    `db:"name" json:"name" yaml:"name"`
	EmployeeID string    `db:"employee_id" json:"employee_id" yaml:"employee_id"`
	Initials   string    `db:"initials" json:"initials" yaml:"initials"`
	Department string    `db:"department" json:"department" yaml:"department"`
	CreatedAt  time.Time `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at" yaml:"-"`
}
