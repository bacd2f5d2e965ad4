package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type entryStoreStub struct {
	details    []models.TimetableEntryDetail
	listCalls  int
	lastFilter models.TimetableFilter
	entries    map[string]models.TimetableEntry
	updated    []string
}

func (s *entryStoreStub) ListDetailed(_ context.Context, filter models.TimetableFilter) ([]models.TimetableEntryDetail, error) {
	s.listCalls++
	s.lastFilter = filter
	return s.details, nil
}

func (s *entryStoreStub) FindByID(_ context.Context, _ string, id string) (*models.TimetableEntry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &entry, nil
}

// FindOverlapping compares zero-padded HH:MM:SS strings, which order like times.
func (s *entryStoreStub) FindOverlapping(_ context.Context, _ string, day, startTime, endTime, excludeID string) ([]models.TimetableEntry, error) {
	var out []models.TimetableEntry
	for id, entry := range s.entries {
		if id != excludeID && entry.DayOfWeek == day && entry.StartTime < endTime && entry.EndTime > startTime {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *entryStoreStub) UpdateSlot(_ context.Context, _ string, id, day, startTime, endTime string) error {
	entry, ok := s.entries[id]
	if !ok {
		return sql.ErrNoRows
	}
	entry.DayOfWeek, entry.StartTime, entry.EndTime = day, startTime, endTime
	s.entries[id] = entry
	s.updated = append(s.updated, id)
	return nil
}

func strRef(v string) *string { return &v }

// periodEnd returns start plus one 55 minute period.
func periodEnd(start string) string {
	at, err := time.Parse("15:04:05", start)
	if err != nil {
		panic(err)
	}
	return at.Add(55 * time.Minute).Format("15:04:05")
}

func classEntry(id, section, day, start, room, faculty string) models.TimetableEntry {
	return models.TimetableEntry{
		ID: id, Section: section, DayOfWeek: day, StartTime: start, EndTime: periodEnd(start),
		ClassroomID: room, SubjectID: strRef("sub-" + id), FacultyID: strRef(faculty),
		CourseID: "course-bca", CollegeID: "college-1",
	}
}

func libraryEntry(id, section, day, start, room string) models.TimetableEntry {
	return models.TimetableEntry{
		ID: id, Section: section, DayOfWeek: day, StartTime: start, EndTime: periodEnd(start),
		ClassroomID: room, CourseID: "course-bca", CollegeID: "college-1",
	}
}

func newTimetableServiceFixture(store *entryStoreStub) (*TimetableService, *memoryCacheRepo) {
	cacheRepo := &memoryCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	return NewTimetableService(store, cacheSvc, nil, nil, nil, nil, zap.NewNop(), TimetableServiceConfig{CacheTTL: time.Minute}), cacheRepo
}

func sampleDetails() []models.TimetableEntryDetail {
	return []models.TimetableEntryDetail{
		{
			TimetableEntry:     classEntry("e1", "BCA1A", "Monday", "09:15:00", "room-1", "fac-1"),
			RoomNumber:         "101",
			CourseAbbreviation: "BCA",
			SubjectCode:        strRef("DS101"),
			SubjectName:        strRef("Data Structures"),
			FacultyName:        strRef("Ada Lovelace"),
			FacultyInitials:    strRef("AL"),
		},
		{
			TimetableEntry:     libraryEntry("e2", "BCA1A", "Monday", "12:40:00", "room-1"),
			RoomNumber:         "101",
			CourseAbbreviation: "BCA",
		},
	}
}

func TestTimetableServiceListCaches(t *testing.T) {
	store := &entryStoreStub{details: sampleDetails()}
	svc, _ := newTimetableServiceFixture(store)

	first, hit, err := svc.List(context.Background(), "college-1", dto.TimetableQuery{Section: "BCA1A"})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, first, 2)
	assert.Equal(t, models.TimetableFilter{CollegeID: "college-1", Section: "BCA1A"}, store.lastFilter)

	second, hit, err := svc.List(context.Background(), "college-1", dto.TimetableQuery{Section: "BCA1A"})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.listCalls)
}

func TestTimetableServiceListEmpty(t *testing.T) {
	svc, _ := newTimetableServiceFixture(&entryStoreStub{})

	entries, _, err := svc.List(context.Background(), "college-1", dto.TimetableQuery{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestTimetableServiceMoveEntry(t *testing.T) {
	store := &entryStoreStub{entries: map[string]models.TimetableEntry{
		"e1": classEntry("e1", "BCA1A", "Monday", "09:15:00", "room-1", "fac-1"),
	}}
	svc, cacheRepo := newTimetableServiceFixture(store)

	moved, err := svc.MoveEntry(context.Background(), "college-1", "e1", dto.MoveEntryRequest{Day: "tuesday", StartTime: "10:10", EndTime: "11:05"})
	require.NoError(t, err)
	assert.Equal(t, "Tuesday", moved.DayOfWeek)
	assert.Equal(t, "10:10:00", moved.StartTime)
	assert.Equal(t, "11:05:00", moved.EndTime)
	assert.Equal(t, []string{"e1"}, store.updated)
	assert.Equal(t, []string{"timetable:college-1:*"}, cacheRepo.invalidated)
}

func TestTimetableServiceMoveEntryConflicts(t *testing.T) {
	cases := []struct {
		name      string
		moving    models.TimetableEntry
		occupant  models.TimetableEntry
		dimension string
	}{
		{
			name:      "section busy",
			moving:    classEntry("e1", "BCA1A", "Monday", "09:15:00", "room-1", "fac-1"),
			occupant:  classEntry("e2", "BCA1A", "Tuesday", "10:10:00", "room-9", "fac-9"),
			dimension: models.ConflictDimensionSection,
		},
		{
			name:      "faculty busy",
			moving:    classEntry("e1", "BCA1A", "Monday", "09:15:00", "room-1", "fac-1"),
			occupant:  classEntry("e2", "BCA1B", "Tuesday", "10:10:00", "room-9", "fac-1"),
			dimension: models.ConflictDimensionFaculty,
		},
		{
			name:      "classroom busy",
			moving:    classEntry("e1", "BCA1A", "Monday", "09:15:00", "room-1", "fac-1"),
			occupant:  classEntry("e2", "BCA1B", "Tuesday", "10:10:00", "room-1", "fac-2"),
			dimension: models.ConflictDimensionClassroom,
		},
		{
			name:      "library hour still needs a free section",
			moving:    libraryEntry("e1", "BCA1A", "Monday", "12:40:00", "room-1"),
			occupant:  libraryEntry("e2", "BCA1A", "Tuesday", "10:10:00", "room-1"),
			dimension: models.ConflictDimensionSection,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &entryStoreStub{entries: map[string]models.TimetableEntry{"e1": tc.moving, "e2": tc.occupant}}
			svc, _ := newTimetableServiceFixture(store)

			_, err := svc.MoveEntry(context.Background(), "college-1", "e1", dto.MoveEntryRequest{Day: "Tuesday", StartTime: "10:10:00", EndTime: "11:05:00"})
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

			var conflictErr *models.TimetableConflictError
			require.True(t, errors.As(err, &conflictErr))
			assert.Equal(t, tc.dimension, conflictErr.Conflict.Dimension)
			assert.Equal(t, "e2", conflictErr.Conflict.EntryID)
			assert.Empty(t, store.updated)
		})
	}
}

func TestTimetableServiceMoveEntryRejectsOverlap(t *testing.T) {
	store := &entryStoreStub{entries: map[string]models.TimetableEntry{
		"e1": classEntry("e1", "BCA1A", "Monday", "09:15:00", "room-1", "fac-1"),
		"e2": classEntry("e2", "BCA1A", "Wednesday", "11:05:00", "room-1", "fac-1"),
	}}
	svc, _ := newTimetableServiceFixture(store)

	_, err := svc.MoveEntry(context.Background(), "college-1", "e2", dto.MoveEntryRequest{Day: "Monday", StartTime: "09:30", EndTime: "10:25"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	var conflictErr *models.TimetableConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Equal(t, models.ConflictDimensionSection, conflictErr.Conflict.Dimension)
	assert.Equal(t, "e1", conflictErr.Conflict.EntryID)
	assert.Empty(t, store.updated)
	assert.Equal(t, "Wednesday", store.entries["e2"].DayOfWeek)
}

func TestTimetableServiceMoveEntryAllowsAdjacentRange(t *testing.T) {
	store := &entryStoreStub{entries: map[string]models.TimetableEntry{
		"e1": classEntry("e1", "BCA1A", "Monday", "09:15:00", "room-1", "fac-1"),
		"e2": classEntry("e2", "BCA1A", "Wednesday", "11:05:00", "room-1", "fac-1"),
	}}
	svc, _ := newTimetableServiceFixture(store)

	moved, err := svc.MoveEntry(context.Background(), "college-1", "e2", dto.MoveEntryRequest{Day: "Monday", StartTime: "10:10", EndTime: "11:05"})
	require.NoError(t, err)
	assert.Equal(t, "10:10:00", moved.StartTime)
	assert.Equal(t, []string{"e2"}, store.updated)
}

func TestTimetableServiceMoveLibraryIgnoresRoomAndFaculty(t *testing.T) {
	store := &entryStoreStub{entries: map[string]models.TimetableEntry{
		"lib": libraryEntry("lib", "BCA1A", "Monday", "12:40:00", "room-1"),
		"e2":  classEntry("e2", "BCA1B", "Tuesday", "12:40:00", "room-1", "fac-1"),
	}}
	svc, _ := newTimetableServiceFixture(store)

	_, err := svc.MoveEntry(context.Background(), "college-1", "lib", dto.MoveEntryRequest{Day: "Tuesday", StartTime: "12:40", EndTime: "13:35"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib"}, store.updated)
}

func TestTimetableServiceMoveEntryValidation(t *testing.T) {
	store := &entryStoreStub{entries: map[string]models.TimetableEntry{}}
	svc, _ := newTimetableServiceFixture(store)

	cases := []dto.MoveEntryRequest{
		{},
		{Day: "Someday", StartTime: "09:15", EndTime: "10:10"},
		{Day: "Monday", StartTime: "9am", EndTime: "10:10"},
		{Day: "Monday", StartTime: "10:10", EndTime: "09:15"},
	}
	for _, req := range cases {
		_, err := svc.MoveEntry(context.Background(), "college-1", "e1", req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, "request %+v", req)
	}

	_, err := svc.MoveEntry(context.Background(), "college-1", "missing", dto.MoveEntryRequest{Day: "Monday", StartTime: "09:15", EndTime: "10:10"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceExport(t *testing.T) {
	store := &entryStoreStub{details: sampleDetails()}
	svc, _ := newTimetableServiceFixture(store)

	file, err := svc.Export(context.Background(), "college-1", dto.ExportTimetableQuery{Section: "BCA1A"})
	require.NoError(t, err)
	assert.Equal(t, "timetable-BCA1A.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "Section,Day,Start,End,Room,Subject,Faculty\n"+
		"BCA1A,Monday,09:15,10:10,101,DS101 Data Structures,AL\n"+
		"BCA1A,Monday,12:40,13:35,101,Library,\n", string(file.Body))

	pdf, err := svc.Export(context.Background(), "college-1", dto.ExportTimetableQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "timetable.pdf", pdf.Filename)
	assert.Equal(t, "%PDF", string(pdf.Body[:4]))

	_, err = svc.Export(context.Background(), "college-1", dto.ExportTimetableQuery{Format: "xlsx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Code, appErrors.FromError(err).Code)
}
