package scheduler

import (
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

const (
	// DefaultFillerCap bounds the weekly sessions of one subject per section
	// in the filler pass.
	DefaultFillerCap = 4
	// DefaultLibraryMinHour is the earliest start hour for library hours.
	DefaultLibraryMinHour = 12
	// maxSubjectsPerTeacher bounds distinct subjects one faculty member
	// teaches to the same section.
	maxSubjectsPerTeacher = 2
)

// Options tunes an engine run. Zero values fall back to defaults.
// LibraryMinHour is a pointer so that 0 (library hours all day) can be told
// apart from unset.
type Options struct {
	Catalog        []Slot
	FillerCap      int
	LibraryMinHour *int
	Tiers          []models.SubjectPriority
}

// Hour returns a pointer for Options.LibraryMinHour.
func Hour(h int) *int { return &h }

func (o Options) withDefaults() Options {
	if len(o.Catalog) == 0 {
		o.Catalog = DefaultCatalog()
	}
	if o.FillerCap <= 0 {
		o.FillerCap = DefaultFillerCap
	}
	if o.LibraryMinHour == nil {
		o.LibraryMinHour = Hour(DefaultLibraryMinHour)
	}
	if len(o.Tiers) == 0 {
		o.Tiers = models.PriorityOrder
	}
	return o
}

type sectionSubjectKey struct {
	section   string
	subjectID string
}

type teacherSectionKey struct {
	facultyID string
	section   string
}

// Engine is the greedy, non-backtracking placement engine. One Engine serves
// exactly one run; it owns its grid and counters.
type Engine struct {
	plan *Plan
	opts Options
	rng  Shuffler
	grid *Grid

	entries         []models.TimetableEntry
	libraryHours    int
	classCount      map[sectionSubjectKey]int
	teacherSubjects map[teacherSectionKey]map[string]struct{}
	outcomes        *outcomeBook
}

// NewEngine prepares a run over the plan. A nil rng keeps candidate order.
func NewEngine(plan *Plan, opts Options, rng Shuffler) *Engine {
	if rng == nil {
		rng = identityShuffler{}
	}
	opts = opts.withDefaults()
	return &Engine{
		plan:            plan,
		opts:            opts,
		rng:             rng,
		grid:            NewGrid(opts.Catalog),
		classCount:      make(map[sectionSubjectKey]int),
		teacherSubjects: make(map[teacherSectionKey]map[string]struct{}),
		outcomes:        newOutcomeBook(),
	}
}

// Generate builds a plan from inputs and runs a fresh engine over it.
func Generate(in Inputs, policy SectionPolicy, eligibility Eligibility, opts Options, rng Shuffler) *Result {
	return NewEngine(BuildPlan(in, policy, eligibility), opts, rng).Run()
}

// Run executes library-hour seeding, tiered placement and the filler pass,
// in that order, and returns the committed entries.
func (e *Engine) Run() *Result {
	for _, section := range e.plan.Sections {
		for _, subject := range e.plan.SubjectsFor(section) {
			e.outcomes.get(section.Name, subject)
		}
	}

	e.seedLibraryHours()
	e.placeByPriority()
	e.fillRemaining()

	sections := make([]string, 0, len(e.plan.Sections))
	for _, section := range e.plan.Sections {
		sections = append(sections, section.Name)
	}
	return &Result{
		Entries:      e.entries,
		Outcomes:     e.outcomes.list(),
		Sections:     sections,
		LibraryHours: e.libraryHours,
	}
}

func (e *Engine) afternoonSlots(day string) []Slot {
	var out []Slot
	for _, slot := range e.opts.Catalog {
		if slot.Day == day && slot.StartHour() >= *e.opts.LibraryMinHour {
			out = append(out, slot)
		}
	}
	return out
}

func (e *Engine) catalogDays() []string {
	var days []string
	seen := make(map[string]bool)
	for _, slot := range e.opts.Catalog {
		if !seen[slot.Day] {
			seen[slot.Day] = true
			days = append(days, slot.Day)
		}
	}
	return days
}

// seedLibraryHours reserves at most one afternoon slot per section per day in
// the section's home room. Days without a free candidate are skipped.
func (e *Engine) seedLibraryHours() {
	days := e.catalogDays()
	for _, section := range e.plan.Sections {
		home, ok := e.plan.HomeRoom(section.Name)
		if !ok {
			continue
		}
		for _, day := range days {
			for _, slot := range shuffledSlots(e.rng, e.afternoonSlots(day)) {
				if !e.grid.IsFree(slot, "", home.ID, section.Name) {
					continue
				}
				e.grid.Commit(slot, "", home.ID, section.Name)
				e.entries = append(e.entries, models.TimetableEntry{
					Section:     section.Name,
					DayOfWeek:   slot.Day,
					StartTime:   slot.StartTime(),
					EndTime:     slot.EndTime(),
					ClassroomID: home.ID,
					CourseID:    section.Course.ID,
					CollegeID:   e.plan.CollegeID,
				})
				e.libraryHours++
				break
			}
		}
	}
}

// placeByPriority attempts ClassesPerWeek placements per subject, tier by tier.
// Failed attempts are dropped and show up as shortfall in the outcome report.
func (e *Engine) placeByPriority() {
	for _, tier := range e.opts.Tiers {
		for _, section := range e.plan.Sections {
			for _, subject := range e.plan.SubjectsForTier(section, tier) {
				for i := 0; i < subject.ClassesPerWeek; i++ {
					if e.placeClass(section, subject, e.shuffledCandidates(section)) {
						e.outcomes.get(section.Name, subject).PriorityPlaced++
					}
				}
			}
		}
	}
}

// fillRemaining walks every slot and section still free there and places the
// least-scheduled subject below the filler cap.
func (e *Engine) fillRemaining() {
	for _, slot := range e.opts.Catalog {
		for _, section := range e.plan.Sections {
			if e.grid.SectionBusy(slot, section.Name) {
				continue
			}
			subjects := append([]models.Subject(nil), e.plan.SubjectsFor(section)...)
			sort.SliceStable(subjects, func(i, j int) bool {
				return e.placedCount(section, subjects[i]) < e.placedCount(section, subjects[j])
			})
			for _, subject := range subjects {
				if e.placedCount(section, subject) >= e.opts.FillerCap {
					continue
				}
				if e.placeClass(section, subject, e.shuffledCandidates(section)) {
					e.outcomes.get(section.Name, subject).FillerPlaced++
					break
				}
			}
		}
	}
}

func (e *Engine) placedCount(section Section, subject models.Subject) int {
	return e.classCount[sectionSubjectKey{section: section.Name, subjectID: subject.ID}]
}

// shuffledCandidates shuffles a private copy; Eligibility implementations may
// hand out their own slices.
func (e *Engine) shuffledCandidates(section Section) []models.Faculty {
	candidates := append([]models.Faculty(nil), e.plan.Candidates(section)...)
	e.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	return candidates
}

func (e *Engine) classroomPool(section Section, subject models.Subject) ([]models.Classroom, bool) {
	if subject.Type == models.SubjectTypeLab {
		return e.plan.LabRooms, len(e.plan.LabRooms) > 0
	}
	home, ok := e.plan.HomeRoom(section.Name)
	if !ok {
		return nil, false
	}
	return []models.Classroom{home}, true
}

// placeClass commits the first free (faculty, classroom, slot) combination,
// trying faculty in the given order, rooms in pool order and slots in catalog
// order.
func (e *Engine) placeClass(section Section, subject models.Subject, candidates []models.Faculty) bool {
	rooms, ok := e.classroomPool(section, subject)
	if !ok {
		return false
	}
	for _, faculty := range candidates {
		loadKey := teacherSectionKey{facultyID: faculty.ID, section: section.Name}
		taught := e.teacherSubjects[loadKey]
		if _, already := taught[subject.ID]; !already && len(taught) >= maxSubjectsPerTeacher {
			continue
		}
		for _, room := range rooms {
			for _, slot := range e.opts.Catalog {
				if !e.grid.IsFree(slot, faculty.ID, room.ID, section.Name) {
					continue
				}
				e.commitClass(section, subject, faculty, room, slot)
				return true
			}
		}
	}
	return false
}

func (e *Engine) commitClass(section Section, subject models.Subject, faculty models.Faculty, room models.Classroom, slot Slot) {
	e.grid.Commit(slot, faculty.ID, room.ID, section.Name)

	loadKey := teacherSectionKey{facultyID: faculty.ID, section: section.Name}
	if e.teacherSubjects[loadKey] == nil {
		e.teacherSubjects[loadKey] = make(map[string]struct{})
	}
	e.teacherSubjects[loadKey][subject.ID] = struct{}{}

	subjectID := subject.ID
	facultyID := faculty.ID
	e.entries = append(e.entries, models.TimetableEntry{
		Section:     section.Name,
		DayOfWeek:   slot.Day,
		StartTime:   slot.StartTime(),
		EndTime:     slot.EndTime(),
		ClassroomID: room.ID,
		SubjectID:   &subjectID,
		FacultyID:   &facultyID,
		CourseID:    subject.CourseID,
		CollegeID:   e.plan.CollegeID,
	})
	e.classCount[sectionSubjectKey{section: section.Name, subjectID: subject.ID}]++
}
