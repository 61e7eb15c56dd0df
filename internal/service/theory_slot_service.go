package service

import (
	"sort"

	"go.uber.org/zap"

	"github.com/deptsched/timetable-api/internal/models"
)

// theoryScheduler places weekly theory demand into day/time cells. Fixed
// externally mandated slots are already committed into the run state before
// any stage runs and are never moved; remaining subjects are placed greedily
// in priority tiers.
type theoryScheduler struct {
	logger *zap.Logger
}

func newTheoryScheduler(logger *zap.Logger) *theoryScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &theoryScheduler{logger: logger}
}

// theoryWork is one subject's placement job for one section.
type theoryWork struct {
	Section models.Section
	Subject models.Subject
	Teacher *string
	Tier    int
}

func (s *theoryScheduler) run(state *generationState) error {
	teachers := state.teacherTracker()

	work := s.collectWork(state)
	for _, item := range work {
		s.scheduleSubject(state, teachers, item)
	}

	for _, section := range state.data.Sections {
		meta := state.sectionMeta(section.ID)
		meta.CompletedStages = append(meta.CompletedStages, "theory")
	}
	return nil
}

// collectWork builds the placement queue: tier 1 subjects taught by an
// internal teacher, tier 2 external-department subjects, tier 3 project
// placeholders. Within a tier, larger weekly demand goes first.
func (s *theoryScheduler) collectWork(state *generationState) []theoryWork {
	var work []theoryWork
	for _, section := range state.data.Sections {
		for _, link := range state.data.SectionSubjects[section.ID] {
			subject, ok := state.data.Subjects[link.SubjectID]
			if !ok || subject.HasFixedSchedule {
				continue
			}
			tier := 2
			switch {
			case subject.IsProject:
				tier = 3
			case link.TeacherID != nil:
				tier = 1
			}
			work = append(work, theoryWork{
				Section: section,
				Subject: subject,
				Teacher: link.TeacherID,
				Tier:    tier,
			})
		}
	}
	sort.SliceStable(work, func(i, j int) bool {
		if work[i].Tier != work[j].Tier {
			return work[i].Tier < work[j].Tier
		}
		if work[i].Subject.WeeklyHours != work[j].Subject.WeeklyHours {
			return work[i].Subject.WeeklyHours > work[j].Subject.WeeklyHours
		}
		return work[i].Subject.Code < work[j].Subject.Code
	})
	return work
}

// scheduleSubject splits the subject's weekly demand into daily sessions
// and places each one, counting unplaceable sessions as shortfalls.
func (s *theoryScheduler) scheduleSubject(state *generationState, teachers *occupancyTracker, item theoryWork) {
	meta := state.sectionMeta(item.Section.ID)
	meta.Theory.Planned += item.Subject.WeeklyHours

	dailyCap := item.Subject.MaxHoursPerDay
	if dailyCap <= 0 {
		dailyCap = 2
	}

	usedDays := make(map[models.Day]bool)
	remaining := item.Subject.WeeklyHours
	for remaining > 0 {
		hours := remaining
		if hours > dailyCap {
			hours = dailyCap
		}
		if s.placeSession(state, teachers, item, hours, usedDays) {
			meta.Theory.Scheduled += hours
		} else {
			meta.Theory.Failed += hours
			s.logger.Warn("theory session left unscheduled",
				zap.String("section", item.Section.Name()),
				zap.String("subject", item.Subject.Code),
				zap.Int("hours", hours))
		}
		remaining -= hours
	}
}

// placeSession tries shuffled days and shuffled contiguous cell runs until
// the session fits and the assigned teacher (if any) is free.
func (s *theoryScheduler) placeSession(state *generationState, teachers *occupancyTracker, item theoryWork, hours int, usedDays map[models.Day]bool) bool {
	for _, day := range state.shuffleDays() {
		if usedDays[day] {
			continue
		}
		cells := buildDayCells(state.sectionBlocked(item.Section.ID, day))
		starts := contiguousRuns(cells, hours)
		state.rng.Shuffle(len(starts), func(i, j int) { starts[i], starts[j] = starts[j], starts[i] })
		for _, idx := range starts {
			start := cells[idx].Start
			end := cells[idx+hours-1].End
			if item.Teacher != nil && !teachers.IsFree(*item.Teacher, day, start, end) {
				continue
			}
			state.theorySlots[item.Section.ID] = append(state.theorySlots[item.Section.ID], models.TheorySlot{
				SubjectID:   item.Subject.ID,
				Day:         day,
				StartMinute: start,
				EndMinute:   end,
				TeacherID:   item.Teacher,
			})
			if item.Teacher != nil {
				teachers.Reserve(*item.Teacher, day, start, end, item.Section.ID)
			}
			usedDays[day] = true
			return true
		}
	}
	return false
}
