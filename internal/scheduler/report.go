package scheduler

import (
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SubjectOutcome compares requested and placed weekly sessions of one subject
// for one section.
type SubjectOutcome struct {
	Section        string                 `json:"section"`
	SubjectID      string                 `json:"subjectId"`
	SubjectCode    string                 `json:"subjectCode"`
	Priority       models.SubjectPriority `json:"priority"`
	Requested      int                    `json:"requested"`
	PriorityPlaced int                    `json:"priorityPlaced"`
	FillerPlaced   int                    `json:"fillerPlaced"`
}

// Placed is the total number of committed sessions.
func (o SubjectOutcome) Placed() int {
	return o.PriorityPlaced + o.FillerPlaced
}

// Shortfall is how many requested sessions the priority pass could not place
// and the filler pass did not make up for.
func (o SubjectOutcome) Shortfall() int {
	missing := o.Requested - o.Placed()
	if missing < 0 {
		return 0
	}
	return missing
}

// Result is the output of one engine run.
type Result struct {
	Entries      []models.TimetableEntry
	Outcomes     []SubjectOutcome
	Sections     []string
	LibraryHours int
}

// SubjectEntries counts entries carrying a subject.
func (r *Result) SubjectEntries() int {
	return len(r.Entries) - r.LibraryHours
}

// Shortfalls returns outcomes that did not reach their weekly quota.
func (r *Result) Shortfalls() []SubjectOutcome {
	var out []SubjectOutcome
	for _, outcome := range r.Outcomes {
		if outcome.Shortfall() > 0 {
			out = append(out, outcome)
		}
	}
	return out
}

// UnplacedSessions sums shortfalls across all outcomes.
func (r *Result) UnplacedSessions() int {
	total := 0
	for _, outcome := range r.Outcomes {
		total += outcome.Shortfall()
	}
	return total
}

// Report is the serialisable summary stored with a generation run.
type Report struct {
	Sections         int              `json:"sections"`
	EntriesCreated   int              `json:"entriesCreated"`
	LibraryHours     int              `json:"libraryHours"`
	SubjectSessions  int              `json:"subjectSessions"`
	UnplacedSessions int              `json:"unplacedSessions"`
	Outcomes         []SubjectOutcome `json:"outcomes"`
}

// Report builds the summary.
func (r *Result) Report() Report {
	return Report{
		Sections:         len(r.Sections),
		EntriesCreated:   len(r.Entries),
		LibraryHours:     r.LibraryHours,
		SubjectSessions:  r.SubjectEntries(),
		UnplacedSessions: r.UnplacedSessions(),
		Outcomes:         r.Outcomes,
	}
}

type outcomeKey struct {
	section   string
	subjectID string
}

type outcomeBook struct {
	order []outcomeKey
	items map[outcomeKey]*SubjectOutcome
}

func newOutcomeBook() *outcomeBook {
	return &outcomeBook{items: make(map[outcomeKey]*SubjectOutcome)}
}

func (b *outcomeBook) get(section string, subject models.Subject) *SubjectOutcome {
	key := outcomeKey{section: section, subjectID: subject.ID}
	item, ok := b.items[key]
	if !ok {
		item = &SubjectOutcome{
			Section:     section,
			SubjectID:   subject.ID,
			SubjectCode: subject.Code,
			Priority:    subject.Priority,
			Requested:   subject.ClassesPerWeek,
		}
		b.items[key] = item
		b.order = append(b.order, key)
	}
	return item
}

func (b *outcomeBook) list() []SubjectOutcome {
	out := make([]SubjectOutcome, 0, len(b.order))
	for _, key := range b.order {
		out = append(out, *b.items[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Section == out[j].Section {
			return out[i].SubjectCode < out[j].SubjectCode
		}
		return out[i].Section < out[j].Section
	})
	return out
}
