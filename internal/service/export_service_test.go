package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptsched/timetable-api/internal/models"
)

func exportFixtureNames() exportNames {
	return exportNames{
		sections: map[string]string{"sec-3a": "3A"},
		subjects: map[string]string{"sub-se": "Software Engineering"},
		labs:     map[string]string{"lab-ds": "Data Structures Lab"},
		teachers: map[string]string{"t-1": "Dr. Rao", "t-2": "Prof. Iyer"},
	}
}

func TestBuildExportDatasetOrdersRowsChronologically(t *testing.T) {
	timetable := &models.Timetable{
		SectionID: "sec-3a",
		TheorySlots: []models.TheorySlot{
			{
				SubjectID:   "sub-se",
				Day:         models.Tuesday,
				StartMinute: 480,
				EndMinute:   600,
				TeacherID:   strPtr("t-1"),
				ClassroomID: strPtr("CR-1"),
			},
			{
				SubjectID:   "sub-se",
				Day:         models.Monday,
				StartMinute: 600,
				EndMinute:   660,
				TeacherID:   strPtr("t-1"),
				ClassroomID: strPtr("CR-1"),
			},
		},
		LabSlots: []models.LabSlot{
			{
				Day:         models.Monday,
				StartMinute: 480,
				EndMinute:   600,
				Round:       1,
				Activities: []models.BatchActivity{
					{
						Batch:    "3A1",
						LabID:    "lab-ds",
						RoomID:   "room-1",
						Teacher1: strPtr("t-1"),
						Teacher2: strPtr("t-2"),
					},
				},
			},
		},
	}

	dataset := buildExportDataset(timetable, exportFixtureNames())

	assert.Equal(t, exportHeaders, dataset.Headers)
	require.Len(t, dataset.Rows, 3)

	assert.Equal(t, "MONDAY", dataset.Rows[0]["Day"])
	assert.Equal(t, "LAB R1", dataset.Rows[0]["Type"])
	assert.Equal(t, "Data Structures Lab", dataset.Rows[0]["Activity"])
	assert.Equal(t, "3A1", dataset.Rows[0]["Batch"])
	assert.Equal(t, "Dr. Rao, Prof. Iyer", dataset.Rows[0]["Teachers"])
	assert.Equal(t, "room-1", dataset.Rows[0]["Room"])
	assert.Equal(t, "8:00 AM", dataset.Rows[0]["Start"])
	assert.Equal(t, "10:00 AM", dataset.Rows[0]["End"])

	assert.Equal(t, "MONDAY", dataset.Rows[1]["Day"])
	assert.Equal(t, "THEORY", dataset.Rows[1]["Type"])
	assert.Equal(t, "Software Engineering", dataset.Rows[1]["Activity"])
	assert.Equal(t, "10:00 AM", dataset.Rows[1]["Start"])

	assert.Equal(t, "TUESDAY", dataset.Rows[2]["Day"], "Tuesday sorts after Monday regardless of input order")
}

func TestBuildExportDatasetHandlesUnstaffedActivity(t *testing.T) {
	timetable := &models.Timetable{
		LabSlots: []models.LabSlot{
			{
				Day:         models.Friday,
				StartMinute: 840,
				EndMinute:   960,
				Round:       3,
				Activities: []models.BatchActivity{
					{Batch: "3A2", LabID: "lab-ds", RoomID: "room-2"},
				},
			},
		},
	}

	dataset := buildExportDataset(timetable, exportFixtureNames())

	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "LAB R3", dataset.Rows[0]["Type"])
	assert.Empty(t, dataset.Rows[0]["Teachers"])
	assert.Equal(t, "2:00 PM", dataset.Rows[0]["Start"])
	assert.Equal(t, "4:00 PM", dataset.Rows[0]["End"])
}

func TestBuildExportDatasetOrdersAfternoonAfterMorning(t *testing.T) {
	timetable := &models.Timetable{
		TheorySlots: []models.TheorySlot{
			{SubjectID: "sub-se", Day: models.Monday, StartMinute: 810, EndMinute: 870},
			{SubjectID: "sub-se", Day: models.Monday, StartMinute: 480, EndMinute: 600},
		},
	}

	dataset := buildExportDataset(timetable, exportFixtureNames())

	require.Len(t, dataset.Rows, 2)
	assert.Equal(t, "8:00 AM", dataset.Rows[0]["Start"])
	assert.Equal(t, "1:30 PM", dataset.Rows[1]["Start"], "rows sort by minute offset, not rendered text")
}
