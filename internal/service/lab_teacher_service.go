package service

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/deptsched/timetable-api/internal/models"
	appErrors "github.com/deptsched/timetable-api/pkg/errors"
)

const defaultRebalanceBudget = 50

// labActivity addresses one batch's lab session needing teachers.
type labActivity struct {
	SectionID string
	SlotIdx   int
	ActIdx    int
	Lab       models.Lab
	Day       models.Day
	Start     int
	End       int
	Need      int
}

// pendingActivity is an activity Phase 1 could not fully staff, carried
// into Phase 2 together with whatever it did manage to assign.
type pendingActivity struct {
	labActivity
	MissingSlots []int
}

// assignmentRef records which activity slot a teacher holds, for Phase 3.
type assignmentRef struct {
	labActivity
	SlotNo int
}

// labTeacherAssigner staffs every lab activity with two qualified teachers
// in three phases: strict rank-respecting assignment, assistant-professor
// fallback with ceilings ignored, and workload rebalancing among assistants.
type labTeacherAssigner struct {
	logger *zap.Logger
	budget int
}

func newLabTeacherAssigner(logger *zap.Logger, budget int) *labTeacherAssigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if budget <= 0 {
		budget = defaultRebalanceBudget
	}
	return &labTeacherAssigner{logger: logger, budget: budget}
}

// assignerState carries cross-phase bookkeeping for one run of the stage.
type assignerState struct {
	gen         *generationState
	tracker     *occupancyTracker
	counts      map[string]int
	assignments map[string][]assignmentRef
}

func (a *labTeacherAssigner) run(state *generationState) error {
	activities := a.collectActivities(state)

	if err := a.checkTeacherCoverage(state, activities); err != nil {
		return err
	}

	as := &assignerState{
		gen:         state,
		tracker:     state.teacherTracker(),
		counts:      make(map[string]int),
		assignments: make(map[string][]assignmentRef),
	}

	pending := a.phaseStrict(as, activities)
	a.phaseFallback(as, pending)
	a.phaseRebalance(as)

	a.tallyOutcomes(state)
	if err := a.buildWorkloadReport(as); err != nil {
		return err
	}

	for _, section := range state.data.Sections {
		meta := state.sectionMeta(section.ID)
		meta.CompletedStages = append(meta.CompletedStages, "lab_teachers")
	}
	return nil
}

func (a *labTeacherAssigner) collectActivities(state *generationState) []labActivity {
	var activities []labActivity
	for _, section := range state.data.Sections {
		for i, slot := range state.labSlots[section.ID] {
			for j, act := range slot.Activities {
				lab, ok := a.labByID(state, act.LabID)
				if !ok {
					continue
				}
				need := 1
				if lab.RequiresTwoTeachers {
					need = 2
				}
				activities = append(activities, labActivity{
					SectionID: section.ID,
					SlotIdx:   i,
					ActIdx:    j,
					Lab:       lab,
					Day:       slot.Day,
					Start:     slot.StartMinute,
					End:       slot.EndMinute,
					Need:      need,
				})
			}
		}
	}
	return activities
}

func (a *labTeacherAssigner) labByID(state *generationState, id string) (models.Lab, bool) {
	for _, lab := range state.data.Labs {
		if lab.ID == id {
			return lab, true
		}
	}
	return models.Lab{}, false
}

// checkTeacherCoverage aborts the run when some scheduled lab has no
// qualified teacher at all. A single qualified teacher for a two-teacher
// lab is not fatal; it surfaces later as a staffing shortfall.
func (a *labTeacherAssigner) checkTeacherCoverage(state *generationState, activities []labActivity) error {
	seen := make(map[string]bool)
	for _, act := range activities {
		if seen[act.Lab.ID] {
			continue
		}
		seen[act.Lab.ID] = true
		qualified := 0
		for _, t := range state.data.Teachers {
			if t.TeachesLab(act.Lab.ID) {
				qualified++
			}
		}
		if qualified == 0 {
			return appErrors.Clone(appErrors.ErrInfeasible,
				fmt.Sprintf("no teacher is qualified for lab %s (%s)", act.Lab.Code, act.Lab.ID))
		}
	}
	return nil
}

// phaseStrict walks rank tiers senior-first, honouring every ceiling.
// Activities left short of teachers are deferred, keeping whatever slot
// was filled.
func (a *labTeacherAssigner) phaseStrict(as *assignerState, activities []labActivity) []pendingActivity {
	var pending []pendingActivity
	for _, act := range activities {
		var missing []int
		for slotNo := 1; slotNo <= act.Need; slotNo++ {
			teacher, ok := a.pickCandidate(as, act, models.RankPriority, true)
			if !ok {
				missing = append(missing, slotNo)
				continue
			}
			a.commit(as, act, slotNo, teacher)
		}
		if len(missing) > 0 {
			pending = append(pending, pendingActivity{labActivity: act, MissingSlots: missing})
		}
	}
	return pending
}

// phaseFallback retries deferred slots with assistant professors only,
// ceilings ignored. Whatever still fails is left nil and reported.
func (a *labTeacherAssigner) phaseFallback(as *assignerState, pending []pendingActivity) {
	assistantsOnly := []models.TeacherRank{models.RankAssistantProfessor}
	for _, p := range pending {
		for _, slotNo := range p.MissingSlots {
			teacher, ok := a.pickCandidate(as, p.labActivity, assistantsOnly, false)
			if !ok {
				a.logger.Warn("lab activity left understaffed",
					zap.String("section", p.SectionID),
					zap.String("lab", p.Lab.Code),
					zap.String("day", string(p.Day)),
					zap.Int("slot", slotNo))
				continue
			}
			a.commit(as, p.labActivity, slotNo, teacher)
		}
	}
}

// pickCandidate scans the given rank tiers in order. Within a tier,
// candidates are bucketed by current workload, each bucket shuffled, and
// buckets tried in ascending-workload order.
func (a *labTeacherAssigner) pickCandidate(as *assignerState, act labActivity, ranks []models.TeacherRank, honourCeiling bool) (models.Teacher, bool) {
	co := a.coTeachers(as.gen, act)
	for _, rank := range ranks {
		candidates := lo.Filter(as.gen.data.Teachers, func(t models.Teacher, _ int) bool {
			return t.Rank == rank && t.TeachesLab(act.Lab.ID)
		})
		buckets := lo.GroupBy(candidates, func(t models.Teacher) int { return as.counts[t.ID] })
		loads := lo.Keys(buckets)
		sort.Ints(loads)
		for _, load := range loads {
			group := buckets[load]
			as.gen.rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
			for _, teacher := range group {
				if co[teacher.ID] {
					continue
				}
				if honourCeiling && as.counts[teacher.ID] >= teacher.Ceiling(as.gen.parity) {
					continue
				}
				if !as.tracker.IsFree(teacher.ID, act.Day, act.Start, act.End) {
					continue
				}
				return teacher, true
			}
		}
	}
	return models.Teacher{}, false
}

// coTeachers returns the teachers already holding a slot on this activity.
func (a *labTeacherAssigner) coTeachers(state *generationState, act labActivity) map[string]bool {
	co := make(map[string]bool)
	batch := state.labSlots[act.SectionID][act.SlotIdx].Activities[act.ActIdx]
	if batch.Teacher1 != nil {
		co[*batch.Teacher1] = true
	}
	if batch.Teacher2 != nil {
		co[*batch.Teacher2] = true
	}
	return co
}

func (a *labTeacherAssigner) commit(as *assignerState, act labActivity, slotNo int, teacher models.Teacher) {
	batch := &as.gen.labSlots[act.SectionID][act.SlotIdx].Activities[act.ActIdx]
	id := teacher.ID
	if slotNo == 1 {
		batch.Teacher1 = &id
	} else {
		batch.Teacher2 = &id
	}
	as.tracker.Reserve(id, act.Day, act.Start, act.End, act.SectionID)
	as.counts[id]++
	as.assignments[id] = append(as.assignments[id], assignmentRef{labActivity: act, SlotNo: slotNo})
}

// phaseRebalance narrows the workload spread among assistants that hold at
// least one assignment, moving single slots from the most loaded to a less
// loaded qualified assistant until spread <= 2 or the attempt budget runs
// out. The budget only guarantees termination on infeasible inputs.
func (a *labTeacherAssigner) phaseRebalance(as *assignerState) {
	attempts := 0
	for {
		spread, maxID, _ := a.assistantSpread(as)
		as.gen.rebalanceSpread = spread
		as.gen.rebalanceAttempts = attempts
		if spread <= 2 {
			return
		}
		if attempts >= a.budget {
			as.gen.rebalanceBounded = true
			a.logger.Warn("rebalance budget exhausted", zap.Int("spread", spread), zap.Int("attempts", attempts))
			return
		}
		attempts++
		if !a.tryMove(as, maxID) {
			// No legal move exists for the most loaded assistant; a
			// further pass cannot improve the spread.
			as.gen.rebalanceBounded = true
			as.gen.rebalanceAttempts = attempts
			return
		}
	}
}

// assistantSpread computes max-min workload among assistants with >= 1
// assignment and identifies the most loaded one.
func (a *labTeacherAssigner) assistantSpread(as *assignerState) (spread int, maxID, minID string) {
	min, max := -1, -1
	for _, t := range as.gen.data.Teachers {
		if t.Rank != models.RankAssistantProfessor {
			continue
		}
		count := as.counts[t.ID]
		if count == 0 {
			continue
		}
		if max == -1 || count > max {
			max, maxID = count, t.ID
		}
		if min == -1 || count < min {
			min, minID = count, t.ID
		}
	}
	if max == -1 {
		return 0, "", ""
	}
	return max - min, maxID, minID
}

// tryMove reassigns one of the overloaded assistant's slots to a less
// loaded, qualified, time-free assistant. Both teacher slots of one
// activity never land on the same person.
func (a *labTeacherAssigner) tryMove(as *assignerState, overloadedID string) bool {
	refs := as.assignments[overloadedID]
	maxCount := as.counts[overloadedID]

	targets := lo.Filter(as.gen.data.Teachers, func(t models.Teacher, _ int) bool {
		return t.Rank == models.RankAssistantProfessor && t.ID != overloadedID && as.counts[t.ID] < maxCount-1
	})
	sort.Slice(targets, func(i, j int) bool {
		ci, cj := as.counts[targets[i].ID], as.counts[targets[j].ID]
		if ci == cj {
			return targets[i].ID < targets[j].ID
		}
		return ci < cj
	})

	for i, ref := range refs {
		co := a.coTeachers(as.gen, ref.labActivity)
		for _, target := range targets {
			if co[target.ID] || !target.TeachesLab(ref.Lab.ID) {
				continue
			}
			if !as.tracker.IsFree(target.ID, ref.Day, ref.Start, ref.End) {
				continue
			}

			as.tracker.Release(overloadedID, ref.Day, ref.Start, ref.End)
			as.counts[overloadedID]--
			as.assignments[overloadedID] = append(refs[:i:i], refs[i+1:]...)

			a.commit(as, ref.labActivity, ref.SlotNo, target)
			return true
		}
	}
	return false
}

// tallyOutcomes counts, per section, how many batch activities ended with
// two, one or zero teachers.
func (a *labTeacherAssigner) tallyOutcomes(state *generationState) {
	for _, section := range state.data.Sections {
		meta := state.sectionMeta(section.ID)
		for _, slot := range state.labSlots[section.ID] {
			for _, act := range slot.Activities {
				switch {
				case act.Teacher1 != nil && act.Teacher2 != nil:
					meta.BatchesTwoTeachers++
				case act.Teacher1 != nil || act.Teacher2 != nil:
					meta.BatchesOneTeacher++
				default:
					meta.BatchesZeroTeachers++
				}
			}
		}
		meta.RebalanceSpread = state.rebalanceSpread
		meta.RebalanceAttempts = state.rebalanceAttempts
		meta.RebalanceBounded = state.rebalanceBounded
	}
}

// buildWorkloadReport snapshots per-teacher load. A Professor or Associate
// over ceiling can only mean a bug in the phases above and aborts the run.
func (a *labTeacherAssigner) buildWorkloadReport(as *assignerState) error {
	state := as.gen
	state.workload = state.workload[:0]
	for _, t := range state.data.Teachers {
		count := as.counts[t.ID]
		if count == 0 {
			continue
		}
		ceiling := t.Ceiling(state.parity)
		over := count > ceiling
		state.workload = append(state.workload, models.TeacherWorkload{
			TeacherID:   t.ID,
			TeacherName: t.FullName,
			Rank:        t.Rank,
			Assigned:    count,
			Ceiling:     ceiling,
			OverCeiling: over,
		})
		if over && t.Rank != models.RankAssistantProfessor {
			return appErrors.Clone(appErrors.ErrInternal,
				fmt.Sprintf("teacher %s exceeds workload ceiling (%d > %d)", t.ID, count, ceiling))
		}
	}
	for _, section := range state.data.Sections {
		state.sectionMeta(section.ID).Workload = state.workload
	}
	return nil
}
