package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	require.Len(t, catalog, 40)
	assert.Equal(t, Slot{Day: "Monday", Start: "09:15", End: "10:10"}, catalog[0])
	assert.Equal(t, Slot{Day: "Friday", Start: "16:10", End: "17:00"}, catalog[39])
	for _, slot := range catalog {
		assert.NotEqual(t, "12:00", slot.Start, "lunch is never bookable")
	}
}

func TestSlotHelpers(t *testing.T) {
	slot := Slot{Day: "Tuesday", Start: "12:40", End: "13:35"}

	assert.Equal(t, "Tuesday-12:40", slot.Key())
	assert.Equal(t, 12, slot.StartHour())
	assert.Equal(t, "12:40:00", slot.StartTime())
	assert.Equal(t, "13:35:00", slot.EndTime())
	assert.Equal(t, -1, Slot{Start: "noon"}.StartHour())
}

func TestFindSlot(t *testing.T) {
	catalog := DefaultCatalog()

	slot, ok := FindSlot(catalog, "wednesday", "14:30:00")
	require.True(t, ok)
	assert.Equal(t, "Wednesday", slot.Day)
	assert.Equal(t, "15:20", slot.End)

	_, ok = FindSlot(catalog, "Saturday", "09:15")
	assert.False(t, ok)
	_, ok = FindSlot(catalog, "Monday", "12:00")
	assert.False(t, ok)
}

func TestGridIsFreeAndCommit(t *testing.T) {
	catalog := DefaultCatalog()
	grid := NewGrid(catalog)
	slot := catalog[0]

	require.True(t, grid.IsFree(slot, "fac-1", "room-1", "BCA1A"))
	grid.Commit(slot, "fac-1", "room-1", "BCA1A")

	assert.False(t, grid.IsFree(slot, "fac-1", "room-2", "BCA1B"), "faculty busy")
	assert.False(t, grid.IsFree(slot, "fac-2", "room-1", "BCA1B"), "room busy")
	assert.False(t, grid.IsFree(slot, "fac-2", "room-2", "BCA1A"), "section busy")
	assert.True(t, grid.IsFree(slot, "fac-2", "room-2", "BCA1B"))
	assert.True(t, grid.IsFree(catalog[1], "fac-1", "room-1", "BCA1A"))
	assert.True(t, grid.SectionBusy(slot, "BCA1A"))
	assert.False(t, grid.SectionBusy(slot, "BCA1B"))
}

func TestGridLibraryHourHasNoFaculty(t *testing.T) {
	catalog := DefaultCatalog()
	grid := NewGrid(catalog)
	slot := catalog[3]

	grid.Commit(slot, "", "room-1", "BCA1A")

	assert.True(t, grid.IsFree(slot, "fac-1", "room-2", "BCA1B"))
	assert.True(t, grid.IsFree(slot, "", "room-2", "BCA1B"))
	assert.False(t, grid.IsFree(slot, "", "room-1", "BCA1B"))
}

func TestDefaultSectionPolicy(t *testing.T) {
	courses := []models.Course{
		{ID: "c-2", Abbreviation: "BCA", TotalSemesters: 4},
		{ID: "c-1", Abbreviation: "BBA", TotalSemesters: 1},
	}

	sections := DefaultSectionPolicy().Sections(courses)

	var names []string
	for _, section := range sections {
		names = append(names, section.Name)
	}
	assert.Equal(t, []string{"BBA1A", "BBA1B", "BCA1A", "BCA1B", "BCA3A", "BCA3B"}, names)
	assert.Equal(t, 3, sections[4].Semester)
	assert.Equal(t, "c-2", sections[4].Course.ID)
}

func TestSemesterSplitPolicyZeroValue(t *testing.T) {
	courses := []models.Course{{ID: "c-1", Abbreviation: "MCA", TotalSemesters: 0}}

	assert.Empty(t, SemesterSplitPolicy{}.Sections(courses))
	assert.Len(t, SemesterSplitPolicy{}.Sections([]models.Course{{ID: "c", Abbreviation: "MCA", TotalSemesters: 3}}), 4)
}

func TestDepartmentEligibility(t *testing.T) {
	faculty := []models.Faculty{
		{ID: "f-3", Department: "B C A"},
		{ID: "f-1", Department: "bca"},
		{ID: "f-2", Department: "BBA"},
	}
	eligibility := NewDepartmentEligibility(faculty)

	candidates := eligibility.Candidates(models.Course{Abbreviation: " Bca "})
	require.Len(t, candidates, 2)
	assert.Equal(t, "f-1", candidates[0].ID)
	assert.Equal(t, "f-3", candidates[1].ID)

	candidates[0].ID = "mutated"
	assert.Equal(t, "f-1", eligibility.Candidates(models.Course{Abbreviation: "BCA"})[0].ID)
	assert.Empty(t, eligibility.Candidates(models.Course{Abbreviation: "XYZ"}))
}

func TestBuildPlanAssignsHomeRoomsRoundRobin(t *testing.T) {
	in := Inputs{
		Courses: []models.Course{{ID: "c-1", Abbreviation: "BCA", TotalSemesters: 3}},
		Classrooms: []models.Classroom{
			{ID: "r-b", RoomNumber: "202", Type: models.ClassroomTypeClassroom},
			{ID: "lab", RoomNumber: "L1", Type: models.ClassroomTypeLab},
			{ID: "r-a", RoomNumber: "101", Type: models.ClassroomTypeClassroom},
		},
	}

	plan := BuildPlan(in, nil, nil)

	require.Len(t, plan.Sections, 4)
	assert.Equal(t, "r-a", plan.HomeRooms["BCA1A"].ID)
	assert.Equal(t, "r-b", plan.HomeRooms["BCA1B"].ID)
	assert.Equal(t, "r-a", plan.HomeRooms["BCA3A"].ID)
	assert.Equal(t, "r-b", plan.HomeRooms["BCA3B"].ID)
	require.Len(t, plan.LabRooms, 1)
	assert.Equal(t, "lab", plan.LabRooms[0].ID)
}

func TestSeededShufflerIsReproducible(t *testing.T) {
	a := shuffledSlots(NewSeededShuffler(99), DefaultCatalog())
	b := shuffledSlots(NewSeededShuffler(99), DefaultCatalog())

	assert.Equal(t, a, b)
	assert.Equal(t, DefaultCatalog(), shuffledSlots(identityShuffler{}, DefaultCatalog()))
}
