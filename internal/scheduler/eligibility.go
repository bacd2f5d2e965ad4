package scheduler

import (
	"sort"
	"strings"
	"unicode"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Eligibility resolves which faculty members may teach the subjects of a course.
// The engine copies the returned slice before reordering it, so
// implementations may return shared slices.
type Eligibility interface {
	Candidates(course models.Course) []models.Faculty
}

// DepartmentEligibility matches a faculty member's department against the
// course abbreviation after normalisation (whitespace removed, upper-cased).
type DepartmentEligibility struct {
	byDepartment map[string][]models.Faculty
}

// NewDepartmentEligibility groups faculty by normalised department.
func NewDepartmentEligibility(faculty []models.Faculty) *DepartmentEligibility {
	byDepartment := make(map[string][]models.Faculty)
	for _, member := range faculty {
		key := NormalizeTag(member.Department)
		byDepartment[key] = append(byDepartment[key], member)
	}
	for key := range byDepartment {
		members := byDepartment[key]
		sort.SliceStable(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	}
	return &DepartmentEligibility{byDepartment: byDepartment}
}

// Candidates returns a copy of the faculty pool for the course.
func (d *DepartmentEligibility) Candidates(course models.Course) []models.Faculty {
	pool := d.byDepartment[NormalizeTag(course.Abbreviation)]
	out := make([]models.Faculty, len(pool))
	copy(out, pool)
	return out
}

// NormalizeTag strips whitespace and upper-cases a department or abbreviation.
func NormalizeTag(raw string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw))
}
