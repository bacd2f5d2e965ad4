package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// dataset is the YAML document the planner reads.
type dataset struct {
	CollegeID  string             `yaml:"college_id"`
	Courses    []models.Course    `yaml:"courses"`
	Subjects   []models.Subject   `yaml:"subjects"`
	Faculty    []models.Faculty   `yaml:"faculty"`
	Classrooms []models.Classroom `yaml:"classrooms"`
}

func loadDataset(path string) (*dataset, error) {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var ds dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if ds.CollegeID == "" {
		ds.CollegeID = "offline"
	}
	return &ds, nil
}

func (d *dataset) inputs() scheduler.Inputs {
	return scheduler.Inputs{
		CollegeID:  d.CollegeID,
		Courses:    d.Courses,
		Subjects:   d.Subjects,
		Faculty:    d.Faculty,
		Classrooms: d.Classrooms,
	}
}

var weekdayOrder = map[string]int{
	"Monday": 1, "Tuesday": 2, "Wednesday": 3, "Thursday": 4,
	"Friday": 5, "Saturday": 6, "Sunday": 7,
}

// label joins generated entries with the dataset's names, ordered the way the
// read API orders them.
func (d *dataset) label(entries []models.TimetableEntry) []models.TimetableEntryDetail {
	rooms := make(map[string]string, len(d.Classrooms))
	for _, room := range d.Classrooms {
		rooms[room.ID] = room.RoomNumber
	}
	courses := make(map[string]string, len(d.Courses))
	for _, course := range d.Courses {
		courses[course.ID] = course.Abbreviation
	}
	subjects := make(map[string]models.Subject, len(d.Subjects))
	for _, subject := range d.Subjects {
		subjects[subject.ID] = subject
	}
	faculty := make(map[string]models.Faculty, len(d.Faculty))
	for _, member := range d.Faculty {
		faculty[member.ID] = member
	}

	out := make([]models.TimetableEntryDetail, 0, len(entries))
	for _, entry := range entries {
		detail := models.TimetableEntryDetail{
			TimetableEntry:     entry,
			RoomNumber:         rooms[entry.ClassroomID],
			CourseAbbreviation: courses[entry.CourseID],
		}
		if entry.SubjectID != nil {
			if subject, ok := subjects[*entry.SubjectID]; ok {
				code, name := subject.Code, subject.Name
				detail.SubjectCode, detail.SubjectName = &code, &name
			}
		}
		if entry.FacultyID != nil {
			if member, ok := faculty[*entry.FacultyID]; ok {
				name, initials := member.Name, member.Initials
				detail.FacultyName, detail.FacultyInitials = &name, &initials
			}
		}
		out = append(out, detail)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if weekdayOrder[a.DayOfWeek] != weekdayOrder[b.DayOfWeek] {
			return weekdayOrder[a.DayOfWeek] < weekdayOrder[b.DayOfWeek]
		}
		return a.StartTime < b.StartTime
	})
	return out
}
