package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Day identifies a working day. The scheduler only operates Monday-Friday.
type Day string

const (
	Monday    Day = "MONDAY"
	Tuesday   Day = "TUESDAY"
	Wednesday Day = "WEDNESDAY"
	Thursday  Day = "THURSDAY"
	Friday    Day = "FRIDAY"
)

// WorkingDays lists the schedulable days in week order.
var WorkingDays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

// Scheduling day bounds and default breaks, in minutes since midnight.
const (
	DayStartMinute = 8 * 60  // 08:00
	DayEndMinute   = 17 * 60 // 17:00
)

// BreakWindow is a recess interval carved out of every scheduling day.
type BreakWindow struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

// DefaultBreaks returns the standard mid-morning and lunch breaks.
func DefaultBreaks() []BreakWindow {
	return []BreakWindow{
		{StartMinute: 11 * 60, EndMinute: 11*60 + 30},
		{StartMinute: 13*60 + 30, EndMinute: 14 * 60},
	}
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// ParseClock converts a 24-hour "HH:MM" string into minutes since midnight.
func ParseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as a 24-hour "HH:MM" string.
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// FormatClock12 renders minutes since midnight in 12-hour display format.
// Internal arithmetic always uses minute offsets; this exists for exports
// and other human-facing surfaces only.
func FormatClock12(minute int) string {
	hour := minute / 60
	suffix := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		hour -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute%60, suffix)
}

var dayOrder = map[Day]int{
	Monday:    1,
	Tuesday:   2,
	Wednesday: 3,
	Thursday:  4,
	Friday:    5,
}

// DayIndex returns the 1-based week position of a day, 0 when unknown.
func DayIndex(d Day) int {
	return dayOrder[d]
}

// ParseDay normalises a day name; ok is false for non-working days.
func ParseDay(raw string) (Day, bool) {
	d := Day(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := dayOrder[d]
	return d, ok
}
