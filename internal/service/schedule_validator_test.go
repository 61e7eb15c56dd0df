package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptsched/timetable-api/internal/models"
	appErrors "github.com/deptsched/timetable-api/pkg/errors"
)

type timetableReaderStub struct {
	timetables []models.Timetable
	err        error
}

func (s timetableReaderStub) ListByKey(_ context.Context, _ string, _ models.Parity) ([]models.Timetable, error) {
	return s.timetables, s.err
}

type labReaderStub struct {
	labs []models.Lab
}

func (s labReaderStub) ListByParity(_ context.Context, _ models.Parity) ([]models.Lab, error) {
	return s.labs, nil
}

func cleanTimetable() models.Timetable {
	return models.Timetable{
		SectionID: "sec-3a",
		TheorySlots: []models.TheorySlot{
			{SubjectID: "sub-se", Day: models.Monday, StartMinute: 480, EndMinute: 600, TeacherID: strPtr("t-1"), ClassroomID: strPtr("cr-1")},
			{SubjectID: "sub-db", Day: models.Monday, StartMinute: 600, EndMinute: 660, TeacherID: strPtr("t-1"), ClassroomID: strPtr("cr-1")},
		},
		LabSlots: []models.LabSlot{
			{
				Day: models.Tuesday, StartMinute: 480, EndMinute: 600, Round: 1,
				Activities: []models.BatchActivity{
					{Batch: "3A1", LabID: "lab-ds", RoomID: "room-1", Teacher1: strPtr("t-1"), Teacher2: strPtr("t-2")},
					{Batch: "3A2", LabID: "lab-os", RoomID: "room-2", Teacher1: strPtr("t-3"), Teacher2: strPtr("t-4")},
				},
			},
		},
	}
}

func validatorLabs() []models.Lab {
	return []models.Lab{
		fixtureLab("lab-ds", "DS", 3, true),
		fixtureLab("lab-os", "OS", 3, true),
	}
}

func TestScheduleValidatorCleanSchedule(t *testing.T) {
	v := NewScheduleValidator(timetableReaderStub{timetables: []models.Timetable{cleanTimetable()}}, labReaderStub{labs: validatorLabs()}, nil)

	report, err := v.Validate(context.Background(), "2026/2027", models.ParityOdd)
	require.NoError(t, err)
	assert.True(t, report.Clean)
	assert.Zero(t, report.Total())
}

func TestScheduleValidatorNoRecords(t *testing.T) {
	v := NewScheduleValidator(timetableReaderStub{}, labReaderStub{}, nil)

	_, err := v.Validate(context.Background(), "2026/2027", models.ParityOdd)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleValidatorDetectsTeacherConflict(t *testing.T) {
	tt := cleanTimetable()
	// The same teacher also appears in a second section at the same time.
	other := models.Timetable{
		SectionID: "sec-3b",
		TheorySlots: []models.TheorySlot{
			{SubjectID: "sub-se", Day: models.Monday, StartMinute: 480, EndMinute: 600, TeacherID: strPtr("t-1")},
		},
	}
	v := NewScheduleValidator(timetableReaderStub{timetables: []models.Timetable{tt, other}}, labReaderStub{labs: validatorLabs()}, nil)

	report, err := v.Validate(context.Background(), "2026/2027", models.ParityOdd)
	require.NoError(t, err)
	assert.False(t, report.Clean)
	require.Len(t, report.TeacherConflicts, 1)
	assert.Equal(t, "t-1", report.TeacherConflicts[0].ResourceID)
	assert.Equal(t, models.Monday, report.TeacherConflicts[0].Day)
}

func TestScheduleValidatorDetectsRoundRoomReuse(t *testing.T) {
	tt := cleanTimetable()
	tt.LabSlots[0].Activities[1].RoomID = "room-1"
	v := NewScheduleValidator(timetableReaderStub{timetables: []models.Timetable{tt}}, labReaderStub{labs: validatorLabs()}, nil)

	report, err := v.Validate(context.Background(), "2026/2027", models.ParityOdd)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RoundViolations)
}

func TestScheduleValidatorFlagsUnderstaffedTwoTeacherLab(t *testing.T) {
	tt := cleanTimetable()
	tt.LabSlots[0].Activities[0].Teacher2 = nil
	v := NewScheduleValidator(timetableReaderStub{timetables: []models.Timetable{tt}}, labReaderStub{labs: validatorLabs()}, nil)

	report, err := v.Validate(context.Background(), "2026/2027", models.ParityOdd)
	require.NoError(t, err)
	require.Len(t, report.TeacherSlotShortages, 1)
	assert.Equal(t, "lab-ds", report.TeacherSlotShortages[0].ResourceID)
}

func TestScheduleValidatorAcceptsSingleTeacherLab(t *testing.T) {
	labs := validatorLabs()
	labs[0].RequiresTwoTeachers = false
	tt := cleanTimetable()
	tt.LabSlots[0].Activities[0].Teacher2 = nil

	v := NewScheduleValidator(timetableReaderStub{timetables: []models.Timetable{tt}}, labReaderStub{labs: labs}, nil)

	report, err := v.Validate(context.Background(), "2026/2027", models.ParityOdd)
	require.NoError(t, err)
	assert.Empty(t, report.TeacherSlotShortages, "a single-teacher lab with one teacher is fully staffed")
}
