package models

import "time"

// Course represents an academic programme offered by a college.
type Course struct {
	ID             string    `db:"id" json:"id" yaml:"id"`
	CollegeID      string    `db:"college_id" json:"college_id" yaml:"college_id"`
	Name           string    `db:"name" json:"name" yaml:"name"`
	Abbreviation   string    `db:"abbreviation" json:"abbreviation" yaml:"abbreviation"`
	TotalSemesters int       `db:"total_semesters" json:"total_semesters" yaml:"total_semesters"`
	CreatedAt      time.Time `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at" yaml:"-"`
}
