package service

import (
	"math/rand"

	"github.com/deptsched/timetable-api/internal/models"
)

// masterData is the read-only snapshot a generation run operates on.
type masterData struct {
	Sections        []models.Section
	Subjects        map[string]models.Subject
	SectionSubjects map[string][]models.SectionSubject
	Labs            []models.Lab
	Teachers        []models.Teacher
	Classrooms      []models.Classroom
	LabRooms        []models.LabRoom
}

// labsForSemester filters the snapshot's labs for one semester.
func (m masterData) labsForSemester(semester int) []models.Lab {
	var labs []models.Lab
	for _, lab := range m.Labs {
		if lab.Semester == semester {
			labs = append(labs, lab)
		}
	}
	return labs
}

// teacherByID resolves a teacher from the snapshot.
func (m masterData) teacherByID(id string) (models.Teacher, bool) {
	for _, t := range m.Teachers {
		if t.ID == id {
			return t, true
		}
	}
	return models.Teacher{}, false
}

// generationState is the mutable state of one run. It is created fresh per
// run and owned by exactly one stage at a time; stages read what earlier
// stages committed and append their own records.
type generationState struct {
	year   string
	parity models.Parity
	seed   int64
	rng    *rand.Rand

	data masterData

	roomAssignments []models.LabRoomAssignment
	labSlots        map[string][]models.LabSlot
	theorySlots     map[string][]models.TheorySlot
	meta            map[string]*models.GenerationMetadata

	// roomUsage is the global per-room assignment counter used to keep lab
	// room utilization even across sections.
	roomUsage map[string]int

	workload          []models.TeacherWorkload
	rebalanceSpread   int
	rebalanceAttempts int
	rebalanceBounded  bool
}

func newGenerationState(year string, parity models.Parity, seed int64, data masterData) *generationState {
	return &generationState{
		year:        year,
		parity:      parity,
		seed:        seed,
		rng:         rand.New(rand.NewSource(seed)),
		data:        data,
		labSlots:    make(map[string][]models.LabSlot),
		theorySlots: make(map[string][]models.TheorySlot),
		meta:        make(map[string]*models.GenerationMetadata),
		roomUsage:   make(map[string]int),
	}
}

// injectFixedSlots commits externally mandated sessions into the run state
// before any stage executes. Lab round placement and greedy theory placement
// both read committed theory slots, so everything downstream treats these
// windows as booked.
func (g *generationState) injectFixedSlots() {
	for _, section := range g.data.Sections {
		for _, link := range g.data.SectionSubjects[section.ID] {
			subject, ok := g.data.Subjects[link.SubjectID]
			if !ok || !subject.HasFixedSchedule {
				continue
			}
			for _, entry := range subject.FixedSlots {
				g.theorySlots[section.ID] = append(g.theorySlots[section.ID], models.TheorySlot{
					SubjectID:   subject.ID,
					Day:         entry.Day,
					StartMinute: entry.StartMinute,
					EndMinute:   entry.EndMinute,
					TeacherID:   link.TeacherID,
					Fixed:       true,
				})
			}
		}
	}
}

// sectionMeta returns the metadata accumulator for a section, creating it
// on first use.
func (g *generationState) sectionMeta(sectionID string) *models.GenerationMetadata {
	if m, ok := g.meta[sectionID]; ok {
		return m
	}
	m := &models.GenerationMetadata{Seed: g.seed}
	g.meta[sectionID] = m
	return m
}

// labRoomTracker rebuilds lab room occupancy from the rounds committed so
// far, so the stage can be re-entered without corrupting earlier bookings.
func (g *generationState) labRoomTracker() *occupancyTracker {
	tracker := newOccupancyTracker()
	for sectionID, slots := range g.labSlots {
		for _, slot := range slots {
			for _, act := range slot.Activities {
				tracker.Reserve(act.RoomID, slot.Day, slot.StartMinute, slot.EndMinute, sectionID)
			}
		}
	}
	return tracker
}

// teacherTracker rebuilds teacher occupancy from every committed theory and
// lab commitment.
func (g *generationState) teacherTracker() *occupancyTracker {
	tracker := newOccupancyTracker()
	for sectionID, slots := range g.theorySlots {
		for _, slot := range slots {
			if slot.TeacherID != nil {
				tracker.Reserve(*slot.TeacherID, slot.Day, slot.StartMinute, slot.EndMinute, sectionID)
			}
		}
	}
	for sectionID, slots := range g.labSlots {
		for _, slot := range slots {
			for _, act := range slot.Activities {
				if act.Teacher1 != nil {
					tracker.Reserve(*act.Teacher1, slot.Day, slot.StartMinute, slot.EndMinute, sectionID)
				}
				if act.Teacher2 != nil {
					tracker.Reserve(*act.Teacher2, slot.Day, slot.StartMinute, slot.EndMinute, sectionID)
				}
			}
		}
	}
	return tracker
}

// sectionBlocked returns the lab intervals blocking theory placement for a
// section on one day.
func (g *generationState) sectionBlocked(sectionID string, day models.Day) []blockedInterval {
	var blocked []blockedInterval
	for _, slot := range g.labSlots[sectionID] {
		if slot.Day == day {
			blocked = append(blocked, blockedInterval{Start: slot.StartMinute, End: slot.EndMinute})
		}
	}
	for _, slot := range g.theorySlots[sectionID] {
		if slot.Day == day {
			blocked = append(blocked, blockedInterval{Start: slot.StartMinute, End: slot.EndMinute})
		}
	}
	return blocked
}

// shuffleDays returns the working days in randomized order.
func (g *generationState) shuffleDays() []models.Day {
	days := make([]models.Day, len(models.WorkingDays))
	copy(days, models.WorkingDays)
	g.rng.Shuffle(len(days), func(i, j int) { days[i], days[j] = days[j], days[i] })
	return days
}
