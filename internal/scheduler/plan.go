package scheduler

import (
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Inputs are the read-only collections a generation run consumes, all scoped
// to one college.
type Inputs struct {
	CollegeID  string
	Courses    []models.Course
	Subjects   []models.Subject
	Faculty    []models.Faculty
	Classrooms []models.Classroom
}

// Plan holds the static lookup tables derived once per run.
type Plan struct {
	CollegeID   string
	Sections    []Section
	TheoryRooms []models.Classroom
	LabRooms    []models.Classroom
	HomeRooms   map[string]models.Classroom

	eligibility Eligibility
	subjects    map[subjectGroupKey][]models.Subject
}

type subjectGroupKey struct {
	courseID string
	semester int
}

// BuildPlan derives sections, room pools, home rooms and subject groups.
// Nil policy or eligibility fall back to the defaults.
func BuildPlan(in Inputs, policy SectionPolicy, eligibility Eligibility) *Plan {
	if policy == nil {
		policy = DefaultSectionPolicy()
	}
	if eligibility == nil {
		eligibility = NewDepartmentEligibility(in.Faculty)
	}

	plan := &Plan{
		CollegeID:   in.CollegeID,
		Sections:    policy.Sections(in.Courses),
		HomeRooms:   make(map[string]models.Classroom),
		eligibility: eligibility,
		subjects:    make(map[subjectGroupKey][]models.Subject),
	}

	for _, room := range sortedRooms(in.Classrooms) {
		switch room.Type {
		case models.ClassroomTypeClassroom:
			plan.TheoryRooms = append(plan.TheoryRooms, room)
		case models.ClassroomTypeLab:
			plan.LabRooms = append(plan.LabRooms, room)
		}
	}

	if len(plan.TheoryRooms) > 0 {
		for i, section := range plan.Sections {
			plan.HomeRooms[section.Name] = plan.TheoryRooms[i%len(plan.TheoryRooms)]
		}
	}

	for _, subject := range in.Subjects {
		key := subjectGroupKey{courseID: subject.CourseID, semester: subject.Semester}
		plan.subjects[key] = append(plan.subjects[key], subject)
	}
	return plan
}

// HomeRoom returns the section's assigned theory room, if any.
func (p *Plan) HomeRoom(section string) (models.Classroom, bool) {
	room, ok := p.HomeRooms[section]
	return room, ok
}

// SubjectsFor returns the subjects of the section's course and semester.
func (p *Plan) SubjectsFor(section Section) []models.Subject {
	return p.subjects[subjectGroupKey{courseID: section.Course.ID, semester: section.Semester}]
}

// SubjectsForTier returns the section's subjects in one priority tier.
func (p *Plan) SubjectsForTier(section Section, tier models.SubjectPriority) []models.Subject {
	var out []models.Subject
	for _, subject := range p.SubjectsFor(section) {
		if subject.Priority == tier {
			out = append(out, subject)
		}
	}
	return out
}

// Candidates returns the faculty eligible for the section's course.
func (p *Plan) Candidates(section Section) []models.Faculty {
	return p.eligibility.Candidates(section.Course)
}

func sortedRooms(rooms []models.Classroom) []models.Classroom {
	out := make([]models.Classroom, len(rooms))
	copy(out, rooms)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RoomNumber == out[j].RoomNumber {
			return out[i].ID < out[j].ID
		}
		return out[i].RoomNumber < out[j].RoomNumber
	})
	return out
}
