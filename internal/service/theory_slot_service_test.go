package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptsched/timetable-api/internal/models"
)

func theoryOnlyData(sections []models.Section, subjects []models.Subject, links map[string][]models.SectionSubject) masterData {
	data := masterData{
		Sections:        sections,
		Subjects:        make(map[string]models.Subject, len(subjects)),
		SectionSubjects: links,
	}
	for _, s := range subjects {
		data.Subjects[s.ID] = s
	}
	return data
}

func TestTheorySchedulerSplitsWeeklyHours(t *testing.T) {
	subject := fixtureSubject("sub-se", "SE", 3, 4, 2)
	data := theoryOnlyData(
		[]models.Section{fixtureSection("sec-3a", 3, "A", 3)},
		[]models.Subject{subject},
		map[string][]models.SectionSubject{
			"sec-3a": {{SectionID: "sec-3a", SubjectID: "sub-se", TeacherID: strPtr("t-1")}},
		},
	)
	state := fixtureState(data)

	require.NoError(t, newTheoryScheduler(nil).run(state))

	slots := state.theorySlots["sec-3a"]
	require.Len(t, slots, 2, "4 weekly hours capped at 2 per day split into two sessions")

	days := make(map[models.Day]bool)
	total := 0
	for _, slot := range slots {
		assert.Equal(t, 120, slot.EndMinute-slot.StartMinute)
		assert.False(t, days[slot.Day], "sessions of one subject land on distinct days")
		days[slot.Day] = true
		total += (slot.EndMinute - slot.StartMinute) / 60
		for _, b := range models.DefaultBreaks() {
			assert.False(t, models.Overlaps(slot.StartMinute, slot.EndMinute, b.StartMinute, b.EndMinute),
				"session must not cross a break")
		}
	}
	assert.Equal(t, 4, total)

	meta := state.sectionMeta("sec-3a")
	assert.Equal(t, 4, meta.Theory.Planned)
	assert.Equal(t, 4, meta.Theory.Scheduled)
	assert.Zero(t, meta.Theory.Failed)
}

func TestTheorySchedulerNeverDoubleBooksTeacher(t *testing.T) {
	// One teacher carries the same subject in two sections.
	subject := fixtureSubject("sub-db", "DB", 3, 3, 2)
	data := theoryOnlyData(
		[]models.Section{
			fixtureSection("sec-3a", 3, "A", 3),
			fixtureSection("sec-3b", 3, "B", 3),
		},
		[]models.Subject{subject},
		map[string][]models.SectionSubject{
			"sec-3a": {{SectionID: "sec-3a", SubjectID: "sub-db", TeacherID: strPtr("t-shared")}},
			"sec-3b": {{SectionID: "sec-3b", SubjectID: "sub-db", TeacherID: strPtr("t-shared")}},
		},
	)
	state := fixtureState(data)

	require.NoError(t, newTheoryScheduler(nil).run(state))

	tracker := newOccupancyTracker()
	for sectionID, slots := range state.theorySlots {
		for _, slot := range slots {
			require.True(t, tracker.IsFree("t-shared", slot.Day, slot.StartMinute, slot.EndMinute),
				"teacher double-booked in section %s", sectionID)
			tracker.Reserve("t-shared", slot.Day, slot.StartMinute, slot.EndMinute, sectionID)
		}
	}
}

func TestTheorySchedulerAvoidsCommittedLabWindows(t *testing.T) {
	subject := fixtureSubject("sub-os", "OS", 3, 6, 2)
	data := theoryOnlyData(
		[]models.Section{fixtureSection("sec-3a", 3, "A", 3)},
		[]models.Subject{subject},
		map[string][]models.SectionSubject{
			"sec-3a": {{SectionID: "sec-3a", SubjectID: "sub-os", TeacherID: strPtr("t-1")}},
		},
	)
	state := fixtureState(data)
	// A lab round already sits on Monday morning.
	state.labSlots["sec-3a"] = []models.LabSlot{
		{Day: models.Monday, StartMinute: 480, EndMinute: 600, Round: 1},
	}

	require.NoError(t, newTheoryScheduler(nil).run(state))

	for _, slot := range state.theorySlots["sec-3a"] {
		if slot.Day == models.Monday {
			assert.False(t, models.Overlaps(slot.StartMinute, slot.EndMinute, 480, 600),
				"theory must not collide with the section's lab round")
		}
	}
}

func TestTheorySchedulerInjectsFixedSlotsFirst(t *testing.T) {
	fixed := fixtureSubject("sub-eng", "ENG", 3, 2, 2)
	fixed.HasFixedSchedule = true
	fixed.FixedSlots = []models.FixedSlotEntry{
		{SubjectID: "sub-eng", Day: models.Wednesday, StartMinute: 600, EndMinute: 720},
	}
	other := fixtureSubject("sub-se", "SE", 3, 2, 2)

	data := theoryOnlyData(
		[]models.Section{fixtureSection("sec-3a", 3, "A", 3)},
		[]models.Subject{fixed, other},
		map[string][]models.SectionSubject{
			"sec-3a": {
				{SectionID: "sec-3a", SubjectID: "sub-eng", TeacherID: strPtr("t-fixed")},
				{SectionID: "sec-3a", SubjectID: "sub-se", TeacherID: strPtr("t-fixed")},
			},
		},
	)
	state := fixtureState(data)
	state.injectFixedSlots()

	require.NoError(t, newTheoryScheduler(nil).run(state))

	var fixedSlot *models.TheorySlot
	for i, slot := range state.theorySlots["sec-3a"] {
		if slot.SubjectID == "sub-eng" {
			fixedSlot = &state.theorySlots["sec-3a"][i]
		} else if slot.Day == models.Wednesday {
			assert.False(t, models.Overlaps(slot.StartMinute, slot.EndMinute, 600, 720),
				"greedy placement must respect the injected fixed slot")
		}
	}
	require.NotNil(t, fixedSlot)
	assert.True(t, fixedSlot.Fixed)
	assert.Equal(t, models.Wednesday, fixedSlot.Day)
	assert.Equal(t, 600, fixedSlot.StartMinute)
	assert.Equal(t, 720, fixedSlot.EndMinute)
}

func TestTheorySchedulerRecordsShortfallWhenWeekIsFull(t *testing.T) {
	// 5 days x 8 cells = 40 schedulable hours; demand 44 with one subject
	// over 11 days' worth cannot fully fit.
	var subjects []models.Subject
	links := map[string][]models.SectionSubject{}
	for i := 0; i < 11; i++ {
		s := fixtureSubject(string(rune('a'+i)), string(rune('A'+i)), 3, 4, 2)
		subjects = append(subjects, s)
		links["sec-3a"] = append(links["sec-3a"], models.SectionSubject{
			SectionID: "sec-3a", SubjectID: s.ID,
		})
	}
	data := theoryOnlyData([]models.Section{fixtureSection("sec-3a", 3, "A", 3)}, subjects, links)
	state := fixtureState(data)

	require.NoError(t, newTheoryScheduler(nil).run(state))

	meta := state.sectionMeta("sec-3a")
	assert.Equal(t, 44, meta.Theory.Planned)
	assert.Positive(t, meta.Theory.Failed, "demand beyond the weekly grid must surface as shortfall")
	assert.Equal(t, meta.Theory.Planned, meta.Theory.Scheduled+meta.Theory.Failed)
}

func TestTheorySchedulerProjectSubjectsPlacedLast(t *testing.T) {
	project := fixtureSubject("sub-proj", "PROJ", 3, 2, 2)
	project.IsProject = true
	project.RequiresTeacher = false
	taught := fixtureSubject("sub-ds", "DS", 3, 2, 2)

	data := theoryOnlyData(
		[]models.Section{fixtureSection("sec-3a", 3, "A", 3)},
		[]models.Subject{project, taught},
		map[string][]models.SectionSubject{
			"sec-3a": {
				{SectionID: "sec-3a", SubjectID: "sub-proj"},
				{SectionID: "sec-3a", SubjectID: "sub-ds", TeacherID: strPtr("t-1")},
			},
		},
	)
	state := fixtureState(data)
	work := newTheoryScheduler(nil).collectWork(state)

	require.Len(t, work, 2)
	assert.Equal(t, "sub-ds", work[0].Subject.ID, "taught subject ranks ahead of project placeholder")
	assert.Equal(t, 3, work[1].Tier)
}
