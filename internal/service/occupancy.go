package service

import (
	"sort"

	"github.com/deptsched/timetable-api/internal/models"
)

// occupancyKey addresses the reservation list of one resource on one day.
type occupancyKey struct {
	Resource string
	Day      models.Day
}

// reservation is a half-open minute interval held by a resource.
type reservation struct {
	Start   int
	End     int
	Context string
}

// occupancyTracker records reservations for one resource class (teachers,
// lab rooms or classrooms) within a single generation run. Callers must
// check IsFree before Reserve; the tracker is single-owner and sequential.
type occupancyTracker struct {
	entries map[occupancyKey][]reservation
	counts  map[string]int
}

func newOccupancyTracker() *occupancyTracker {
	return &occupancyTracker{
		entries: make(map[occupancyKey][]reservation),
		counts:  make(map[string]int),
	}
}

// IsFree reports whether the resource has no reservation overlapping
// [start,end) on the given day.
func (t *occupancyTracker) IsFree(resource string, day models.Day, start, end int) bool {
	for _, r := range t.entries[occupancyKey{Resource: resource, Day: day}] {
		if models.Overlaps(r.Start, r.End, start, end) {
			return false
		}
	}
	return true
}

// Reserve books [start,end) on the given day and bumps the resource's
// reservation counter.
func (t *occupancyTracker) Reserve(resource string, day models.Day, start, end int, context string) {
	key := occupancyKey{Resource: resource, Day: day}
	list := append(t.entries[key], reservation{Start: start, End: end, Context: context})
	sort.Slice(list, func(i, j int) bool { return list[i].Start < list[j].Start })
	t.entries[key] = list
	t.counts[resource]++
}

// Release drops a reservation matching [start,end) exactly. Used by the
// rebalance phase when moving a lab assignment between teachers.
func (t *occupancyTracker) Release(resource string, day models.Day, start, end int) {
	key := occupancyKey{Resource: resource, Day: day}
	list := t.entries[key]
	for i, r := range list {
		if r.Start == start && r.End == end {
			t.entries[key] = append(list[:i], list[i+1:]...)
			if t.counts[resource] > 0 {
				t.counts[resource]--
			}
			return
		}
	}
}

// Count returns how many reservations the resource holds across all days.
func (t *occupancyTracker) Count(resource string) int {
	return t.counts[resource]
}

// dayCell is one schedulable 60-minute cell.
type dayCell struct {
	Start int
	End   int
}

// blockedInterval marks time unavailable for theory placement on one day.
type blockedInterval struct {
	Start int
	End   int
}

// buildDayCells carves the 08:00-17:00 day into 60-minute cells around the
// default breaks and the given blocked intervals (placed labs). A break that
// collides with a blocked interval is dropped for that day rather than
// relocated; relocating adjusted breaks is an open gap inherited from the
// legacy generator.
func buildDayCells(blocked []blockedInterval) []dayCell {
	var carved []blockedInterval
	for _, b := range models.DefaultBreaks() {
		suppressed := false
		for _, iv := range blocked {
			if models.Overlaps(b.StartMinute, b.EndMinute, iv.Start, iv.End) {
				suppressed = true
				break
			}
		}
		if !suppressed {
			carved = append(carved, blockedInterval{Start: b.StartMinute, End: b.EndMinute})
		}
	}
	carved = append(carved, blocked...)
	sort.Slice(carved, func(i, j int) bool { return carved[i].Start < carved[j].Start })

	var cells []dayCell
	cursor := models.DayStartMinute
	for _, iv := range carved {
		cells = append(cells, chopCells(cursor, iv.Start)...)
		if iv.End > cursor {
			cursor = iv.End
		}
	}
	cells = append(cells, chopCells(cursor, models.DayEndMinute)...)
	return cells
}

// chopCells splits [from,to) into full 60-minute cells, dropping any
// remainder shorter than an hour.
func chopCells(from, to int) []dayCell {
	var cells []dayCell
	for from+60 <= to {
		cells = append(cells, dayCell{Start: from, End: from + 60})
		from += 60
	}
	return cells
}

// contiguousRuns returns the starting indices of every run of n cells in
// which consecutive cells touch (no break or lab between them).
func contiguousRuns(cells []dayCell, n int) []int {
	var starts []int
	for i := 0; i+n <= len(cells); i++ {
		ok := true
		for j := i; j < i+n-1; j++ {
			if cells[j].End != cells[j+1].Start {
				ok = false
				break
			}
		}
		if ok {
			starts = append(starts, i)
		}
	}
	return starts
}
