package dto

import (
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// GenerateTimetableRequest triggers generation for the caller's college.
// Seed pins the shuffle for reproducible output; DryRun previews without
// replacing the stored timetable.
type GenerateTimetableRequest struct {
	Seed   *int64 `json:"seed" validate:"omitempty"`
	DryRun bool   `json:"dryRun"`
}

// GenerateTimetableResponse reports a finished generation.
type GenerateTimetableResponse struct {
	Success        bool                    `json:"success"`
	EntriesCreated int                     `json:"entriesCreated"`
	Message        string                  `json:"message"`
	RunID          string                  `json:"runId,omitempty"`
	Version        int                     `json:"version,omitempty"`
	DryRun         bool                    `json:"dryRun"`
	Seed           int64                   `json:"seed"`
	Report         scheduler.Report        `json:"report"`
	Entries        []models.TimetableEntry `json:"entries,omitempty"`
}

// GenerationRunQuery pages through generation history.
type GenerationRunQuery struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// TimetableQuery filters timetable reads.
type TimetableQuery struct {
	Section string `form:"section" validate:"omitempty,max=32"`
}

// MoveEntryRequest relocates one entry to another weekday and period.
type MoveEntryRequest struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// ExportTimetableQuery selects the rendering of a timetable download.
type ExportTimetableQuery struct {
	Section string `form:"section" validate:"omitempty,max=32"`
	Format  string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ExportedFile is a rendered timetable ready for download.
type ExportedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
