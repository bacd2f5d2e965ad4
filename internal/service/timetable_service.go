package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
)

type timetableEntryStore interface {
	ListDetailed(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntryDetail, error)
	FindByID(ctx context.Context, collegeID, id string) (*models.TimetableEntry, error)
	FindOverlapping(ctx context.Context, collegeID, day, startTime, endTime, excludeID string) ([]models.TimetableEntry, error)
	UpdateSlot(ctx context.Context, collegeID, id, day, startTime, endTime string) error
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type titledRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// TimetableServiceConfig governs the read API.
type TimetableServiceConfig struct {
	CacheTTL time.Duration
}

// TimetableService serves reads, manual moves and exports of stored timetables.
type TimetableService struct {
	entries   timetableEntryStore
	cache     *CacheService
	metrics   *MetricsService
	csv       datasetRenderer
	pdf       titledRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig
}

// NewTimetableService constructs the timetable service.
func NewTimetableService(
	entries timetableEntryStore,
	cache *CacheService,
	metrics *MetricsService,
	csv datasetRenderer,
	pdf titledRenderer,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewLandscapePDFExporter()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		entries:   entries,
		cache:     cache,
		metrics:   metrics,
		csv:       csv,
		pdf:       pdf,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

func timetableCacheKey(collegeID, section string) string {
	if section == "" {
		section = "all"
	}
	return fmt.Sprintf("timetable:%s:%s", collegeID, section)
}

func timetableCachePattern(collegeID string) string {
	return fmt.Sprintf("timetable:%s:*", collegeID)
}

// List returns the college's entries with display labels. The second return
// reports whether the cache served the read.
func (s *TimetableService) List(ctx context.Context, collegeID string, query dto.TimetableQuery) ([]models.TimetableEntryDetail, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}
	section := strings.TrimSpace(query.Section)

	var entries []models.TimetableEntryDetail
	hit, err := s.cache.Remember(ctx, timetableCacheKey(collegeID, section), s.cfg.CacheTTL, &entries, func(ctx context.Context) error {
		loaded, err := s.load(ctx, collegeID, section)
		if err != nil {
			return err
		}
		entries = loaded
		return nil
	})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if entries == nil {
		entries = []models.TimetableEntryDetail{}
	}
	return entries, hit, nil
}

func (s *TimetableService) load(ctx context.Context, collegeID, section string) ([]models.TimetableEntryDetail, error) {
	start := time.Now()
	entries, err := s.entries.ListDetailed(ctx, models.TimetableFilter{CollegeID: collegeID, Section: section})
	s.metrics.ObserveDBQuery("timetable_entries.list", time.Since(start))
	return entries, err
}

// MoveEntry relocates one entry after checking every entry whose time range
// overlaps the destination. The section must be free; faculty and classroom
// must be free unless the entry is a library hour.
func (s *TimetableService) MoveEntry(ctx context.Context, collegeID, entryID string, req dto.MoveEntryRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "New day and start/end times are required.")
	}
	day, ok := canonicalWeekday(req.Day)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", req.Day))
	}
	startTime, startAt, err := normalizeClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	endTime, endAt, err := normalizeClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if !endAt.After(startAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	entry, err := s.entries.FindByID(ctx, collegeID, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Timetable entry not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}

	occupants, err := s.entries.FindOverlapping(ctx, collegeID, day, startTime, endTime, entry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check destination slot")
	}
	if conflict := detectMoveConflict(*entry, occupants); conflict != nil {
		return nil, appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Message)
	}

	if err := s.entries.UpdateSlot(ctx, collegeID, entry.ID, day, startTime, endTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Timetable entry not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable entry")
	}
	_ = s.cache.Invalidate(ctx, timetableCachePattern(collegeID))

	s.logger.Info("timetable entry moved",
		zap.String("college_id", collegeID),
		zap.String("entry_id", entry.ID),
		zap.String("from", entry.DayOfWeek+" "+entry.StartTime),
		zap.String("to", day+" "+startTime),
	)

	entry.DayOfWeek = day
	entry.StartTime = startTime
	entry.EndTime = endTime
	return entry, nil
}

func detectMoveConflict(entry models.TimetableEntry, occupants []models.TimetableEntry) *models.TimetableConflictError {
	for _, other := range occupants {
		if other.Section == entry.Section {
			return moveConflict(models.ConflictDimensionSection, other,
				fmt.Sprintf("Conflict: Section %s already has a class scheduled at this time.", entry.Section))
		}
	}
	if entry.IsLibraryHour() {
		return nil
	}
	for _, other := range occupants {
		if other.FacultyID != nil && entry.FacultyID != nil && *other.FacultyID == *entry.FacultyID {
			return moveConflict(models.ConflictDimensionFaculty, other,
				"Conflict: The assigned faculty is already teaching another class at this time.")
		}
	}
	for _, other := range occupants {
		if other.ClassroomID == entry.ClassroomID {
			return moveConflict(models.ConflictDimensionClassroom, other,
				"Conflict: Classroom is already in use by another section at this time.")
		}
	}
	return nil
}

func moveConflict(dimension string, other models.TimetableEntry, message string) *models.TimetableConflictError {
	return &models.TimetableConflictError{
		Type:    dimension,
		Message: message,
		Conflict: models.TimetableConflict{
			EntryID:     other.ID,
			Section:     other.Section,
			DayOfWeek:   other.DayOfWeek,
			StartTime:   other.StartTime,
			ClassroomID: other.ClassroomID,
			FacultyID:   other.FacultyID,
			Dimension:   dimension,
		},
	}
}

func canonicalWeekday(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.EqualFold(day.String(), raw) {
			return day.String(), true
		}
	}
	return "", false
}

// normalizeClock accepts HH:MM or HH:MM:SS and returns the HH:MM:SS form.
func normalizeClock(raw string) (string, time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format("15:04:05"), parsed, nil
		}
	}
	return "", time.Time{}, fmt.Errorf("time %q is not HH:MM or HH:MM:SS", raw)
}

// Export renders the college's timetable, or one section of it, as CSV or PDF.
func (s *TimetableService) Export(ctx context.Context, collegeID string, query dto.ExportTimetableQuery) (*dto.ExportedFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, "invalid export query")
	}
	format := query.Format
	if format == "" {
		format = "csv"
	}
	section := strings.TrimSpace(query.Section)

	entries, err := s.load(ctx, collegeID, section)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	dataset := BuildTimetableDataset(entries)

	base := "timetable"
	if section != "" {
		base = "timetable-" + section
	}
	switch format {
	case "csv":
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable csv")
		}
		return &dto.ExportedFile{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
	case "pdf":
		title := "Timetable"
		if section != "" {
			title = "Timetable " + section
		}
		body, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable pdf")
		}
		return &dto.ExportedFile{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "")
	}
}

// TimetableExportHeaders are the columns of exported timetables.
var TimetableExportHeaders = []string{"Section", "Day", "Start", "End", "Room", "Subject", "Faculty"}

// BuildTimetableDataset tabulates entries for export. Library hours render
// as "Library" with no faculty.
func BuildTimetableDataset(entries []models.TimetableEntryDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		subject := "Library"
		if entry.SubjectCode != nil {
			subject = *entry.SubjectCode
			if entry.SubjectName != nil && *entry.SubjectName != "" {
				subject += " " + *entry.SubjectName
			}
		}
		faculty := ""
		if entry.FacultyInitials != nil && *entry.FacultyInitials != "" {
			faculty = *entry.FacultyInitials
		} else if entry.FacultyName != nil {
			faculty = *entry.FacultyName
		}
		rows = append(rows, map[string]string{
			"Section": entry.Section,
			"Day":     entry.DayOfWeek,
			"Start":   shortClock(entry.StartTime),
			"End":     shortClock(entry.EndTime),
			"Room":    entry.RoomNumber,
			"Subject": subject,
			"Faculty": faculty,
		})
	}
	return export.Dataset{Headers: TimetableExportHeaders, Rows: rows}
}

func shortClock(value string) string {
	if len(value) == len("15:04:05") {
		return value[:5]
	}
	return value
}
