package scheduler

import (
	"fmt"
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Section is a cohort sharing one weekly schedule.
type Section struct {
	Name     string
	Course   models.Course
	Semester int
	Group    string
}

// SectionPolicy derives the sections to schedule from the courses of a college.
type SectionPolicy interface {
	Sections(courses []models.Course) []Section
}

// SemesterSplitPolicy emits one section per group for every Step-th semester
// starting at 1. The zero value behaves like DefaultSectionPolicy.
type SemesterSplitPolicy struct {
	Step   int
	Groups []string
}

// DefaultSectionPolicy schedules odd semesters split into groups A and B.
func DefaultSectionPolicy() SemesterSplitPolicy {
	return SemesterSplitPolicy{Step: 2, Groups: []string{"A", "B"}}
}

// Sections orders courses by abbreviation (then id) and emits, per course,
// semesters ascending and groups in the configured order. Home-room
// assignment depends on this order.
func (p SemesterSplitPolicy) Sections(courses []models.Course) []Section {
	step := p.Step
	if step <= 0 {
		step = 2
	}
	groups := p.Groups
	if len(groups) == 0 {
		groups = []string{"A", "B"}
	}

	ordered := make([]models.Course, len(courses))
	copy(ordered, courses)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Abbreviation == ordered[j].Abbreviation {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Abbreviation < ordered[j].Abbreviation
	})

	var sections []Section
	for _, course := range ordered {
		for sem := 1; sem <= course.TotalSemesters; sem += step {
			for _, group := range groups {
				sections = append(sections, Section{
					Name:     SectionName(course.Abbreviation, sem, group),
					Course:   course,
					Semester: sem,
					Group:    group,
				})
			}
		}
	}
	return sections
}

// SectionName formats "<abbreviation><semester><group>", e.g. "BCA1A".
func SectionName(abbreviation string, semester int, group string) string {
	return fmt.Sprintf("%s%d%s", abbreviation, semester, group)
}
