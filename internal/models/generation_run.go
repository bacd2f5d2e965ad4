package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// GenerationRunStatus represents lifecycle phases of a timetable generation.
type GenerationRunStatus string

const (
	GenerationRunStatusPending   GenerationRunStatus = "PENDING"
	GenerationRunStatusRunning   GenerationRunStatus = "RUNNING"
	GenerationRunStatusSucceeded GenerationRunStatus = "SUCCEEDED"
	GenerationRunStatusFailed    GenerationRunStatus = "FAILED"
)

// GenerationRun records one invocation of the generator for a college.
// Meta carries the placement outcome report.
type GenerationRun struct {
	ID             string              `db:"id" json:"id"`
	CollegeID      string              `db:"college_id" json:"college_id"`
	Version        int                 `db:"version" json:"version"`
	Status         GenerationRunStatus `db:"status" json:"status"`
	EntriesCreated int                 `db:"entries_created" json:"entries_created"`
	Seed           int64               `db:"seed" json:"seed"`
	Meta           types.JSONText      `db:"meta" json:"meta"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}
