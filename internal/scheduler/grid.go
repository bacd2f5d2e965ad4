package scheduler

type slotUsage struct {
	faculty    map[string]struct{}
	classrooms map[string]struct{}
	sections   map[string]struct{}
}

func newSlotUsage() *slotUsage {
	return &slotUsage{
		faculty:    make(map[string]struct{}),
		classrooms: make(map[string]struct{}),
		sections:   make(map[string]struct{}),
	}
}

// Grid tracks, per slot, the faculty, classrooms and sections already
// committed. It only grows during a generation run and is not safe for
// concurrent use.
type Grid struct {
	usage map[string]*slotUsage
}

// NewGrid builds an empty grid covering the catalog.
func NewGrid(catalog []Slot) *Grid {
	g := &Grid{usage: make(map[string]*slotUsage, len(catalog))}
	for _, slot := range catalog {
		g.usage[slot.Key()] = newSlotUsage()
	}
	return g
}

func (g *Grid) slot(slot Slot) *slotUsage {
	usage, ok := g.usage[slot.Key()]
	if !ok {
		usage = newSlotUsage()
		g.usage[slot.Key()] = usage
	}
	return usage
}

// IsFree reports whether the classroom and section are unused at the slot and,
// when facultyID is non-empty, the faculty member is too. An empty facultyID
// stands for "no faculty" (library hours).
func (g *Grid) IsFree(slot Slot, facultyID, classroomID, section string) bool {
	usage := g.slot(slot)
	if _, taken := usage.classrooms[classroomID]; taken {
		return false
	}
	if _, taken := usage.sections[section]; taken {
		return false
	}
	if facultyID != "" {
		if _, taken := usage.faculty[facultyID]; taken {
			return false
		}
	}
	return true
}

// Commit records the booking. Callers must check IsFree first.
func (g *Grid) Commit(slot Slot, facultyID, classroomID, section string) {
	usage := g.slot(slot)
	if facultyID != "" {
		usage.faculty[facultyID] = struct{}{}
	}
	usage.classrooms[classroomID] = struct{}{}
	usage.sections[section] = struct{}{}
}

// SectionBusy reports whether the section already attends something at the slot.
func (g *Grid) SectionBusy(slot Slot, section string) bool {
	_, taken := g.slot(slot).sections[section]
	return taken
}
