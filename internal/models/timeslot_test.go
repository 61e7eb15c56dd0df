package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		raw    string
		minute int
		ok     bool
	}{
		{"08:00", 480, true},
		{"17:00", 1020, true},
		{"  09:30 ", 570, true},
		{"00:00", 0, true},
		{"24:00", 0, false},
		{"10:60", 0, false},
		{"1000", 0, false},
		{"ten:30", 0, false},
	}
	for _, tc := range cases {
		minute, err := ParseClock(tc.raw)
		if !tc.ok {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.minute, minute, tc.raw)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "08:00", FormatClock(480))
	assert.Equal(t, "13:30", FormatClock(810))
	assert.Equal(t, "8:00 AM", FormatClock12(480))
	assert.Equal(t, "12:30 PM", FormatClock12(750))
	assert.Equal(t, "1:30 PM", FormatClock12(810))
	assert.Equal(t, "12:05 AM", FormatClock12(5))
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps(480, 600, 540, 660))
	assert.True(t, Overlaps(540, 660, 480, 600))
	assert.False(t, Overlaps(480, 600, 600, 720), "touching intervals do not overlap")
	assert.False(t, Overlaps(480, 540, 600, 660))
}

func TestParseDay(t *testing.T) {
	d, ok := ParseDay(" monday ")
	assert.True(t, ok)
	assert.Equal(t, Monday, d)

	_, ok = ParseDay("SUNDAY")
	assert.False(t, ok)

	assert.Equal(t, 1, DayIndex(Monday))
	assert.Equal(t, 5, DayIndex(Friday))
	assert.Equal(t, 0, DayIndex(Day("SUNDAY")))
}

func TestParityForSemester(t *testing.T) {
	assert.Equal(t, ParityOdd, ParityForSemester(3))
	assert.Equal(t, ParityEven, ParityForSemester(4))
	assert.True(t, ParityOdd.Valid())
	assert.False(t, Parity("WEEKLY").Valid())
}

func TestSectionNameAndBatches(t *testing.T) {
	section := Section{Semester: 3, Label: "A", BatchCount: 3}
	assert.Equal(t, "3A", section.Name())
	assert.Equal(t, []string{"3A1", "3A2", "3A3"}, section.Batches())
}

func TestTeacherCeiling(t *testing.T) {
	override := 1
	teacher := Teacher{Rank: RankProfessor, OddCeiling: &override}

	assert.Equal(t, 1, teacher.Ceiling(ParityOdd), "per-parity override wins")
	assert.Equal(t, 2, teacher.Ceiling(ParityEven), "rank default when no override")

	assistant := Teacher{Rank: RankAssistantProfessor}
	assert.Equal(t, 6, assistant.Ceiling(ParityOdd))
}

func TestDefaultBreaks(t *testing.T) {
	breaks := DefaultBreaks()
	require.Len(t, breaks, 2)
	assert.Equal(t, 660, breaks[0].StartMinute)
	assert.Equal(t, 690, breaks[0].EndMinute)
	assert.Equal(t, 810, breaks[1].StartMinute)
	assert.Equal(t, 840, breaks[1].EndMinute)
}
