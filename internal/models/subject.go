package models

import "time"

// SubjectType distinguishes lecture subjects from lab subjects.
type SubjectType string

const (
	SubjectTypeTheory SubjectType = "Theory"
	SubjectTypeLab    SubjectType = "Lab"
)

// SubjectPriority is the scheduling tier of a subject.
type SubjectPriority string

const (
	PriorityMajor             SubjectPriority = "Major"
	PriorityMinor             SubjectPriority = "Minor"
	PriorityInterdisciplinary SubjectPriority = "Interdisciplinary"
	PriorityValueAdded        SubjectPriority = "Value Added"
)

// PriorityOrder lists tiers in the order the generator places them.
var PriorityOrder = []SubjectPriority{
	PriorityMajor,
	PriorityMinor,
	PriorityInterdisciplinary,
	PriorityValueAdded,
}

// Subject represents a subject taught in one semester of a course.
type Subject struct {
	ID                 string          `db:"id" json:"id" yaml:"id"`
	CourseID           string          `db:"course_id" json:"course_id" yaml:"course_id"`
	CourseAbbreviation string          `db:"course_abbreviation" json:"course_abbreviation,omitempty" yaml:"-"`
	Code               string          `db:"subject_code" json:"subject_code" yaml:"code"`
	Name               string          `db:"subject_name" json:"subject_name" yaml:"name"`
	Semester           int             `db:"semester" json:"semester" yaml:"semester"`
	Type               SubjectType     `db:"subject_type" json:"subject_type" yaml:"type"`
	CreditPoint        int             `db:"credit_point" json:"credit_point" yaml:"credit_point"`
	ClassesPerWeek     int             `db:"classes_per_week" json:"classes_per_week" yaml:"classes_per_week"`
	Priority           SubjectPriority `db:"priority" json:"priority" yaml:"priority"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at" yaml:"-"`
}
