package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptsched/timetable-api/internal/models"
)

func classroomData() masterData {
	project := fixtureSubject("sub-proj", "PROJ", 3, 2, 2)
	project.IsProject = true
	return masterData{
		Sections: []models.Section{
			fixtureSection("sec-3a", 3, "A", 3),
			fixtureSection("sec-3b", 3, "B", 3),
		},
		Subjects: map[string]models.Subject{
			"sub-se":   fixtureSubject("sub-se", "SE", 3, 2, 2),
			"sub-proj": project,
		},
		SectionSubjects: map[string][]models.SectionSubject{},
		Classrooms: []models.Classroom{
			{ID: "cr-1", Name: "CR-1", Capacity: 60},
		},
	}
}

func TestClassroomAssignerFirstFit(t *testing.T) {
	data := classroomData()
	data.Classrooms = append(data.Classrooms, models.Classroom{ID: "cr-2", Name: "CR-2", Capacity: 60})
	state := fixtureState(data)
	state.theorySlots["sec-3a"] = []models.TheorySlot{
		{SubjectID: "sub-se", Day: models.Monday, StartMinute: 480, EndMinute: 600},
	}
	state.theorySlots["sec-3b"] = []models.TheorySlot{
		{SubjectID: "sub-se", Day: models.Monday, StartMinute: 480, EndMinute: 600},
	}

	require.NoError(t, newClassroomAssigner(nil).run(state))

	slotA := state.theorySlots["sec-3a"][0]
	slotB := state.theorySlots["sec-3b"][0]
	require.NotNil(t, slotA.ClassroomID)
	require.NotNil(t, slotB.ClassroomID)
	assert.Equal(t, "cr-1", *slotA.ClassroomID, "name-sorted first fit")
	assert.Equal(t, "cr-2", *slotB.ClassroomID, "same window forces the next room")
}

func TestClassroomAssignerExhaustionIsShortfall(t *testing.T) {
	state := fixtureState(classroomData())
	state.theorySlots["sec-3a"] = []models.TheorySlot{
		{SubjectID: "sub-se", Day: models.Monday, StartMinute: 480, EndMinute: 600},
	}
	state.theorySlots["sec-3b"] = []models.TheorySlot{
		{SubjectID: "sub-se", Day: models.Monday, StartMinute: 480, EndMinute: 600},
	}

	require.NoError(t, newClassroomAssigner(nil).run(state))

	assigned := 0
	for _, sectionID := range []string{"sec-3a", "sec-3b"} {
		if state.theorySlots[sectionID][0].ClassroomID != nil {
			assigned++
		}
	}
	assert.Equal(t, 1, assigned, "one room cannot host two simultaneous sessions")

	failed := state.sectionMeta("sec-3a").Classrooms.Failed + state.sectionMeta("sec-3b").Classrooms.Failed
	assert.Equal(t, 1, failed)
}

func TestClassroomAssignerSkipsProjectAndFixedSlots(t *testing.T) {
	state := fixtureState(classroomData())
	state.theorySlots["sec-3a"] = []models.TheorySlot{
		{SubjectID: "sub-proj", Day: models.Monday, StartMinute: 480, EndMinute: 600},
		{SubjectID: "sub-se", Day: models.Tuesday, StartMinute: 480, EndMinute: 600, Fixed: true},
		{SubjectID: "sub-se", Day: models.Wednesday, StartMinute: 480, EndMinute: 600},
	}

	require.NoError(t, newClassroomAssigner(nil).run(state))

	slots := state.theorySlots["sec-3a"]
	assert.Nil(t, slots[0].ClassroomID, "project sessions need no classroom")
	assert.Nil(t, slots[1].ClassroomID, "fixed sessions keep their external room")
	require.NotNil(t, slots[2].ClassroomID)

	meta := state.sectionMeta("sec-3a")
	assert.Equal(t, 1, meta.Classrooms.Planned)
	assert.Equal(t, 1, meta.Classrooms.Scheduled)
}
