package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptsched/timetable-api/internal/models"
	appErrors "github.com/deptsched/timetable-api/pkg/errors"
)

// committedRound drops a synchronized round into state, as the room stage
// would have left it.
func committedRound(state *generationState, sectionID string, round int, day models.Day, start int, batches ...string) {
	slot := models.LabSlot{
		Day:         day,
		StartMinute: start,
		EndMinute:   start + 120,
		Round:       round,
	}
	for i, batch := range batches {
		slot.Activities = append(slot.Activities, models.BatchActivity{
			Batch:  batch,
			LabID:  state.data.Labs[(round-1+i)%len(state.data.Labs)].ID,
			RoomID: state.data.LabRooms[i%len(state.data.LabRooms)].ID,
		})
	}
	state.labSlots[sectionID] = append(state.labSlots[sectionID], slot)
}

func singleLabData(teachers ...models.Teacher) masterData {
	return masterData{
		Sections:        []models.Section{fixtureSection("sec-3a", 3, "A", 1)},
		Subjects:        map[string]models.Subject{},
		SectionSubjects: map[string][]models.SectionSubject{},
		Labs:            []models.Lab{fixtureLab("lab-ds", "DS", 3, true)},
		LabRooms:        []models.LabRoom{fixtureLabRoom("room-1", "Lab Room 1", "lab-ds")},
		Teachers:        teachers,
	}
}

func TestLabTeacherAssignerStaffsTwoTeachers(t *testing.T) {
	data := singleLabData(
		fixtureTeacher("prof-1", models.RankProfessor, "lab-ds"),
		fixtureTeacher("asst-1", models.RankAssistantProfessor, "lab-ds"),
	)
	state := fixtureState(data)
	committedRound(state, "sec-3a", 1, models.Monday, 480, "3A1")

	require.NoError(t, newLabTeacherAssigner(nil, 0).run(state))

	act := state.labSlots["sec-3a"][0].Activities[0]
	require.NotNil(t, act.Teacher1)
	require.NotNil(t, act.Teacher2)
	assert.NotEqual(t, *act.Teacher1, *act.Teacher2, "both slots never land on one person")

	meta := state.sectionMeta("sec-3a")
	assert.Equal(t, 1, meta.BatchesTwoTeachers)
	assert.Zero(t, meta.BatchesOneTeacher)
	assert.Zero(t, meta.BatchesZeroTeachers)
}

func TestLabTeacherAssignerSeniorsFirst(t *testing.T) {
	data := singleLabData(
		fixtureTeacher("prof-1", models.RankProfessor, "lab-ds"),
		fixtureTeacher("assoc-1", models.RankAssociateProfessor, "lab-ds"),
		fixtureTeacher("asst-1", models.RankAssistantProfessor, "lab-ds"),
	)
	state := fixtureState(data)
	committedRound(state, "sec-3a", 1, models.Monday, 480, "3A1")

	require.NoError(t, newLabTeacherAssigner(nil, 0).run(state))

	act := state.labSlots["sec-3a"][0].Activities[0]
	staffed := map[string]bool{*act.Teacher1: true, *act.Teacher2: true}
	assert.True(t, staffed["prof-1"], "the professor leads the hierarchy")
	assert.True(t, staffed["assoc-1"], "the associate fills the second slot before any assistant")
}

func TestLabTeacherAssignerHonoursCeilings(t *testing.T) {
	prof := fixtureTeacher("prof-1", models.RankProfessor, "lab-ds")
	asst := fixtureTeacher("asst-1", models.RankAssistantProfessor, "lab-ds")
	data := singleLabData(prof, asst)
	data.Labs[0].RequiresTwoTeachers = false
	state := fixtureState(data)
	// Four single-teacher activities at distinct times.
	committedRound(state, "sec-3a", 1, models.Monday, 480, "3A1")
	committedRound(state, "sec-3a", 1, models.Tuesday, 480, "3A1")
	committedRound(state, "sec-3a", 1, models.Wednesday, 480, "3A1")
	committedRound(state, "sec-3a", 1, models.Thursday, 480, "3A1")

	require.NoError(t, newLabTeacherAssigner(nil, 0).run(state))

	counts := make(map[string]int)
	for _, slot := range state.labSlots["sec-3a"] {
		require.NotNil(t, slot.Activities[0].Teacher1)
		counts[*slot.Activities[0].Teacher1]++
	}
	assert.LessOrEqual(t, counts["prof-1"], 2, "professor ceiling is two lab batches")
	assert.Equal(t, 4, counts["prof-1"]+counts["asst-1"])
}

func TestLabTeacherAssignerCustomCeilingOverride(t *testing.T) {
	prof := fixtureTeacher("prof-1", models.RankProfessor, "lab-ds")
	prof.OddCeiling = intPtr(1)
	asst := fixtureTeacher("asst-1", models.RankAssistantProfessor, "lab-ds")
	data := singleLabData(prof, asst)
	data.Labs[0].RequiresTwoTeachers = false
	state := fixtureState(data)
	committedRound(state, "sec-3a", 1, models.Monday, 480, "3A1")
	committedRound(state, "sec-3a", 1, models.Tuesday, 480, "3A1")

	require.NoError(t, newLabTeacherAssigner(nil, 0).run(state))

	counts := make(map[string]int)
	for _, slot := range state.labSlots["sec-3a"] {
		counts[*slot.Activities[0].Teacher1]++
	}
	assert.Equal(t, 1, counts["prof-1"], "per-parity override beats the rank default")
}

func TestLabTeacherAssignerFallbackIgnoresCeilings(t *testing.T) {
	// A single qualified assistant and seven single-teacher activities:
	// strict phase stops at the ceiling of six, fallback staffs the rest.
	asst := fixtureTeacher("asst-only", models.RankAssistantProfessor, "lab-ds")
	data := singleLabData(asst)
	data.Labs[0].RequiresTwoTeachers = false
	state := fixtureState(data)
	days := []models.Day{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday}
	for i := 0; i < 7; i++ {
		committedRound(state, "sec-3a", 1, days[i%5], 480+(i/5)*180, "3A1")
	}

	require.NoError(t, newLabTeacherAssigner(nil, 0).run(state))

	staffed := 0
	for _, slot := range state.labSlots["sec-3a"] {
		if slot.Activities[0].Teacher1 != nil {
			staffed++
		}
	}
	assert.Equal(t, 7, staffed, "assistants absorb overflow beyond their ceiling")

	require.Len(t, state.workload, 1)
	assert.True(t, state.workload[0].OverCeiling)
}

func TestLabTeacherAssignerZeroQualifiedIsFatal(t *testing.T) {
	data := singleLabData(fixtureTeacher("prof-1", models.RankProfessor, "lab-other"))
	state := fixtureState(data)
	committedRound(state, "sec-3a", 1, models.Monday, 480, "3A1")

	err := newLabTeacherAssigner(nil, 0).run(state)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInfeasible.Code, appErrors.FromError(err).Code)
}

func TestLabTeacherAssignerSingleQualifiedIsShortfall(t *testing.T) {
	// The lab needs two teachers but only one person is qualified: the run
	// proceeds and the batch surfaces as understaffed.
	data := singleLabData(fixtureTeacher("asst-1", models.RankAssistantProfessor, "lab-ds"))
	state := fixtureState(data)
	committedRound(state, "sec-3a", 1, models.Monday, 480, "3A1")

	require.NoError(t, newLabTeacherAssigner(nil, 0).run(state))

	act := state.labSlots["sec-3a"][0].Activities[0]
	require.NotNil(t, act.Teacher1)
	assert.Nil(t, act.Teacher2)

	meta := state.sectionMeta("sec-3a")
	assert.Equal(t, 1, meta.BatchesOneTeacher)
	assert.Zero(t, meta.BatchesTwoTeachers)
}

func TestLabTeacherAssignerNeverDoubleBooks(t *testing.T) {
	data := masterData{
		Sections: []models.Section{fixtureSection("sec-3a", 3, "A", 3)},
		Subjects: map[string]models.Subject{},
		SectionSubjects: map[string][]models.SectionSubject{},
		Labs: []models.Lab{
			fixtureLab("lab-ds", "DS", 3, true),
			fixtureLab("lab-os", "OS", 3, true),
			fixtureLab("lab-cn", "CN", 3, true),
		},
		LabRooms: []models.LabRoom{
			fixtureLabRoom("room-1", "Lab Room 1", "lab-ds", "lab-os", "lab-cn"),
			fixtureLabRoom("room-2", "Lab Room 2", "lab-ds", "lab-os", "lab-cn"),
			fixtureLabRoom("room-3", "Lab Room 3", "lab-ds", "lab-os", "lab-cn"),
		},
		Teachers: []models.Teacher{
			fixtureTeacher("t-1", models.RankAssistantProfessor, "lab-ds", "lab-os", "lab-cn"),
			fixtureTeacher("t-2", models.RankAssistantProfessor, "lab-ds", "lab-os", "lab-cn"),
			fixtureTeacher("t-3", models.RankAssistantProfessor, "lab-ds", "lab-os", "lab-cn"),
			fixtureTeacher("t-4", models.RankAssistantProfessor, "lab-ds", "lab-os", "lab-cn"),
			fixtureTeacher("t-5", models.RankAssistantProfessor, "lab-ds", "lab-os", "lab-cn"),
			fixtureTeacher("t-6", models.RankAssistantProfessor, "lab-ds", "lab-os", "lab-cn"),
		},
	}
	state := fixtureState(data)
	committedRound(state, "sec-3a", 1, models.Monday, 480, "3A1", "3A2", "3A3")
	committedRound(state, "sec-3a", 2, models.Tuesday, 480, "3A1", "3A2", "3A3")
	committedRound(state, "sec-3a", 3, models.Wednesday, 480, "3A1", "3A2", "3A3")

	require.NoError(t, newLabTeacherAssigner(nil, 0).run(state))

	tracker := newOccupancyTracker()
	for _, slot := range state.labSlots["sec-3a"] {
		for _, act := range slot.Activities {
			for _, id := range []*string{act.Teacher1, act.Teacher2} {
				if id == nil {
					continue
				}
				require.True(t, tracker.IsFree(*id, slot.Day, slot.StartMinute, slot.EndMinute),
					"teacher %s double-booked on %s", *id, slot.Day)
				tracker.Reserve(*id, slot.Day, slot.StartMinute, slot.EndMinute, "sec-3a")
			}
		}
	}
}

func TestLabTeacherAssignerRebalanceNarrowsSpread(t *testing.T) {
	data := singleLabData(
		fixtureTeacher("asst-1", models.RankAssistantProfessor, "lab-ds"),
		fixtureTeacher("asst-2", models.RankAssistantProfessor, "lab-ds"),
	)
	data.Labs[0].RequiresTwoTeachers = false
	state := fixtureState(data)
	days := []models.Day{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday}
	for i := 0; i < 5; i++ {
		committedRound(state, "sec-3a", 1, days[i], 480, "3A1")
	}

	require.NoError(t, newLabTeacherAssigner(nil, 0).run(state))

	assert.LessOrEqual(t, state.rebalanceSpread, 2, "final spread among loaded assistants is bounded")
	assert.False(t, state.rebalanceBounded)
}

func TestLabTeacherAssignerWorkloadReport(t *testing.T) {
	data := singleLabData(
		fixtureTeacher("prof-1", models.RankProfessor, "lab-ds"),
		fixtureTeacher("asst-1", models.RankAssistantProfessor, "lab-ds"),
	)
	state := fixtureState(data)
	committedRound(state, "sec-3a", 1, models.Monday, 480, "3A1")

	require.NoError(t, newLabTeacherAssigner(nil, 0).run(state))

	require.Len(t, state.workload, 2)
	for _, row := range state.workload {
		assert.Equal(t, 1, row.Assigned)
		assert.False(t, row.OverCeiling)
		assert.Equal(t, models.DefaultCeiling(row.Rank), row.Ceiling)
	}
	assert.Equal(t, state.workload, state.sectionMeta("sec-3a").Workload)
}
