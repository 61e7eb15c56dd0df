package service

import (
	"sort"

	"go.uber.org/zap"

	"github.com/deptsched/timetable-api/internal/models"
)

// classroomAssigner gives every non-fixed, non-project theory slot a
// classroom, first-fit over a name-sorted room list. Project subjects need
// no room; the explicit IsProject flag is the only signal for that.
type classroomAssigner struct {
	logger *zap.Logger
}

func newClassroomAssigner(logger *zap.Logger) *classroomAssigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &classroomAssigner{logger: logger}
}

func (a *classroomAssigner) run(state *generationState) error {
	rooms := make([]models.Classroom, len(state.data.Classrooms))
	copy(rooms, state.data.Classrooms)
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })

	tracker := newOccupancyTracker()
	for _, section := range state.data.Sections {
		meta := state.sectionMeta(section.ID)
		slots := state.theorySlots[section.ID]
		for i := range slots {
			slot := &slots[i]
			if slot.Fixed {
				continue
			}
			if subject, ok := state.data.Subjects[slot.SubjectID]; ok && subject.IsProject {
				continue
			}
			meta.Classrooms.Planned++
			roomID := a.firstFree(tracker, rooms, slot.Day, slot.StartMinute, slot.EndMinute)
			if roomID == "" {
				meta.Classrooms.Failed++
				a.logger.Warn("no classroom free for theory slot",
					zap.String("section", section.Name()),
					zap.String("subject", slot.SubjectID),
					zap.String("day", string(slot.Day)),
					zap.String("start", models.FormatClock(slot.StartMinute)))
				continue
			}
			tracker.Reserve(roomID, slot.Day, slot.StartMinute, slot.EndMinute, section.ID)
			slot.ClassroomID = &roomID
			meta.Classrooms.Scheduled++
		}
		state.theorySlots[section.ID] = slots
		meta.CompletedStages = append(meta.CompletedStages, "classrooms")
	}
	return nil
}

func (a *classroomAssigner) firstFree(tracker *occupancyTracker, rooms []models.Classroom, day models.Day, start, end int) string {
	for _, room := range rooms {
		if tracker.IsFree(room.ID, day, start, end) {
			return room.ID
		}
	}
	return ""
}
