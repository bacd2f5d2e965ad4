package scheduler

import (
	"strconv"
	"strings"
)

// Weekdays are the teaching days, in catalog order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// dailyPeriods are the bookable periods of every weekday. 12:00-12:40 is lunch.
var dailyPeriods = [][2]string{
	{"09:15", "10:10"},
	{"10:10", "11:05"},
	{"11:05", "12:00"},
	{"12:40", "13:35"},
	{"13:35", "14:30"},
	{"14:30", "15:20"},
	{"15:20", "16:10"},
	{"16:10", "17:00"},
}

// Slot is one bookable (day, start) unit of the week.
type Slot struct {
	Day   string
	Start string
	End   string
}

// Key identifies the slot inside a Grid.
func (s Slot) Key() string {
	return s.Day + "-" + s.Start
}

// StartHour returns the hour component of the start time, or -1 if malformed.
func (s Slot) StartHour() int {
	hour, _, ok := strings.Cut(s.Start, ":")
	if !ok {
		return -1
	}
	value, err := strconv.Atoi(hour)
	if err != nil {
		return -1
	}
	return value
}

// StartTime returns the start formatted as a SQL TIME literal.
func (s Slot) StartTime() string {
	return s.Start + ":00"
}

// EndTime returns the end formatted as a SQL TIME literal.
func (s Slot) EndTime() string {
	return s.End + ":00"
}

// DefaultCatalog returns the fixed weekly catalog: Monday to Friday, eight
// periods a day, ordered by day then period.
func DefaultCatalog() []Slot {
	slots := make([]Slot, 0, len(Weekdays)*len(dailyPeriods))
	for _, day := range Weekdays {
		for _, period := range dailyPeriods {
			slots = append(slots, Slot{Day: day, Start: period[0], End: period[1]})
		}
	}
	return slots
}

// FindSlot looks up a catalog slot by day and start time. The start may carry
// seconds ("09:15:00").
func FindSlot(catalog []Slot, day, start string) (Slot, bool) {
	start = trimSeconds(start)
	for _, slot := range catalog {
		if strings.EqualFold(slot.Day, day) && slot.Start == start {
			return slot, true
		}
	}
	return Slot{}, false
}

func trimSeconds(value string) string {
	if len(value) == len("15:04:05") && strings.Count(value, ":") == 2 {
		return value[:5]
	}
	return value
}
