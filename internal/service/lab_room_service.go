package service

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/deptsched/timetable-api/internal/models"
	appErrors "github.com/deptsched/timetable-api/pkg/errors"
)

// labBlock is a candidate 2-hour window for a synchronized lab round.
type labBlock struct {
	Start int
	End   int
}

// candidateLabBlocks are tried in order for every round. The 10:00 and
// 15:00 blocks overlap a default break, which is then suppressed for the
// section on that day.
var candidateLabBlocks = []labBlock{
	{Start: 8 * 60, End: 10 * 60},
	{Start: 10 * 60, End: 12 * 60},
	{Start: 14 * 60, End: 16 * 60},
	{Start: 15 * 60, End: 17 * 60},
}

// labRoomAssigner runs the rotation-round room assignment stage: every
// batch of a section performs every lab exactly once across L rounds, and
// within a round no two batches share a room.
type labRoomAssigner struct {
	logger *zap.Logger
}

func newLabRoomAssigner(logger *zap.Logger) *labRoomAssigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &labRoomAssigner{logger: logger}
}

// batchPlacement pairs a batch with its chosen room for one round.
type batchPlacement struct {
	Batch  string
	Lab    models.Lab
	RoomID string
}

// run assigns rooms and round times for every section. A lab with zero
// equipment-compatible rooms anywhere is fatal; a round running out of
// rooms for some batch is a recorded shortfall.
func (a *labRoomAssigner) run(state *generationState) error {
	if err := a.checkRoomCoverage(state); err != nil {
		return err
	}

	tracker := state.labRoomTracker()
	for _, section := range state.data.Sections {
		labs := state.data.labsForSemester(section.Semester)
		if len(labs) == 0 {
			continue
		}
		a.assignSection(state, tracker, section, labs)
	}
	for _, section := range state.data.Sections {
		state.sectionMeta(section.ID).CompletedStages = append(state.sectionMeta(section.ID).CompletedStages, "lab_rooms")
	}
	return nil
}

func (a *labRoomAssigner) checkRoomCoverage(state *generationState) error {
	for _, lab := range state.data.Labs {
		supported := false
		for _, room := range state.data.LabRooms {
			if room.Supports(lab.ID) {
				supported = true
				break
			}
		}
		if !supported {
			return appErrors.Clone(appErrors.ErrInfeasible,
				fmt.Sprintf("no lab room supports lab %s (%s)", lab.Code, lab.ID))
		}
	}
	return nil
}

func (a *labRoomAssigner) assignSection(state *generationState, tracker *occupancyTracker, section models.Section, labs []models.Lab) {
	meta := state.sectionMeta(section.ID)
	batches := section.Batches()
	rounds := len(labs)

	for round := 0; round < rounds; round++ {
		meta.LabRooms.Planned += len(batches)

		day, block, placements := a.placeRound(state, tracker, section, labs, batches, round)
		if day == "" {
			meta.LabRooms.Failed += len(batches)
			a.logger.Warn("no free window for lab round",
				zap.String("section", section.Name()),
				zap.Int("round", round+1))
			continue
		}

		slot := models.LabSlot{
			Day:         day,
			StartMinute: block.Start,
			EndMinute:   block.End,
			Round:       round + 1,
		}
		for _, p := range placements {
			tracker.Reserve(p.RoomID, day, block.Start, block.End, section.ID)
			state.roomUsage[p.RoomID]++
			slot.Activities = append(slot.Activities, models.BatchActivity{
				Batch:  p.Batch,
				LabID:  p.Lab.ID,
				RoomID: p.RoomID,
			})
			state.roomAssignments = append(state.roomAssignments, models.LabRoomAssignment{
				AcademicYear: state.year,
				Parity:       state.parity,
				SectionID:    section.ID,
				Batch:        p.Batch,
				LabID:        p.Lab.ID,
				RoomID:       p.RoomID,
				Round:        round + 1,
			})
			meta.LabRooms.Scheduled++
		}
		shortfall := len(batches) - len(placements)
		if shortfall > 0 {
			meta.LabRooms.Failed += shortfall
			a.logger.Warn("lab room capacity shortfall within round",
				zap.String("section", section.Name()),
				zap.Int("round", round+1),
				zap.Int("unplaced_batches", shortfall))
		}
		state.labSlots[section.ID] = append(state.labSlots[section.ID], slot)
	}
}

// placeRound tries every (day, block) candidate and keeps the one placing
// the most batches, preferring a full placement and days on which the
// section has no lab yet.
func (a *labRoomAssigner) placeRound(state *generationState, tracker *occupancyTracker, section models.Section, labs []models.Lab, batches []string, round int) (models.Day, labBlock, []batchPlacement) {
	var bestDay models.Day
	var bestBlock labBlock
	var best []batchPlacement

	for _, day := range a.dayOrder(state, section) {
		for _, block := range candidateLabBlocks {
			if !a.sectionFree(state, section.ID, day, block) {
				continue
			}
			placements := a.placeBatches(state, tracker, labs, batches, round, day, block)
			if len(placements) > len(best) {
				bestDay, bestBlock, best = day, block, placements
			}
			if len(best) == len(batches) {
				return bestDay, bestBlock, best
			}
		}
	}
	return bestDay, bestBlock, best
}

// dayOrder lists working days with lab-free days for the section first, so
// rounds spread across the week.
func (a *labRoomAssigner) dayOrder(state *generationState, section models.Section) []models.Day {
	used := make(map[models.Day]bool)
	for _, slot := range state.labSlots[section.ID] {
		used[slot.Day] = true
	}
	order := make([]models.Day, 0, len(models.WorkingDays))
	for _, day := range models.WorkingDays {
		if !used[day] {
			order = append(order, day)
		}
	}
	for _, day := range models.WorkingDays {
		if used[day] {
			order = append(order, day)
		}
	}
	return order
}

// sectionFree rejects windows colliding with the section's own committed
// lab rounds or fixed theory slots.
func (a *labRoomAssigner) sectionFree(state *generationState, sectionID string, day models.Day, block labBlock) bool {
	for _, slot := range state.labSlots[sectionID] {
		if slot.Day == day && models.Overlaps(slot.StartMinute, slot.EndMinute, block.Start, block.End) {
			return false
		}
	}
	for _, slot := range state.theorySlots[sectionID] {
		if slot.Day == day && models.Overlaps(slot.StartMinute, slot.EndMinute, block.Start, block.End) {
			return false
		}
	}
	return true
}

func (a *labRoomAssigner) placeBatches(state *generationState, tracker *occupancyTracker, labs []models.Lab, batches []string, round int, day models.Day, block labBlock) []batchPlacement {
	usedRooms := make(map[string]bool)
	var placements []batchPlacement
	for b, batch := range batches {
		lab := labs[(round+b)%len(labs)]
		roomID := a.pickRoom(state, tracker, lab, usedRooms, day, block)
		if roomID == "" {
			continue
		}
		usedRooms[roomID] = true
		placements = append(placements, batchPlacement{Batch: batch, Lab: lab, RoomID: roomID})
	}
	return placements
}

// pickRoom selects the least globally used compatible room that is free for
// the window and unused in this round.
func (a *labRoomAssigner) pickRoom(state *generationState, tracker *occupancyTracker, lab models.Lab, usedRooms map[string]bool, day models.Day, block labBlock) string {
	var candidates []models.LabRoom
	for _, room := range state.data.LabRooms {
		if !room.Supports(lab.ID) || usedRooms[room.ID] {
			continue
		}
		if !tracker.IsFree(room.ID, day, block.Start, block.End) {
			continue
		}
		candidates = append(candidates, room)
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		ui, uj := state.roomUsage[candidates[i].ID], state.roomUsage[candidates[j].ID]
		if ui == uj {
			return candidates[i].Name < candidates[j].Name
		}
		return ui < uj
	})
	return candidates[0].ID
}
