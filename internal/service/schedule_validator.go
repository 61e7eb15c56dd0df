package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deptsched/timetable-api/internal/models"
	appErrors "github.com/deptsched/timetable-api/pkg/errors"
)

type validatorTimetableReader interface {
	ListByKey(ctx context.Context, academicYear string, parity models.Parity) ([]models.Timetable, error)
}

// ScheduleValidator cross-checks a committed schedule for residual
// conflicts. It never mutates anything.
type ScheduleValidator struct {
	timetables validatorTimetableReader
	labs       labReader
	logger     *zap.Logger
}

// NewScheduleValidator wires the validator.
func NewScheduleValidator(timetables validatorTimetableReader, labs labReader, logger *zap.Logger) *ScheduleValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleValidator{timetables: timetables, labs: labs, logger: logger}
}

// Validate re-reads the committed schedule for a key and reports conflicts.
func (v *ScheduleValidator) Validate(ctx context.Context, academicYear string, parity models.Parity) (*models.ConflictReport, error) {
	timetables, err := v.timetables.ListByKey(ctx, academicYear, parity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetables for validation")
	}
	if len(timetables) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetables found for the requested key")
	}
	labs, err := v.labs.ListByParity(ctx, parity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load labs for validation")
	}
	needTwo := make(map[string]bool, len(labs))
	for _, lab := range labs {
		needTwo[lab.ID] = lab.RequiresTwoTeachers
	}
	report := buildConflictReport(academicYear, parity, timetables, needTwo)
	v.logger.Info("schedule validated",
		zap.String("academic_year", academicYear),
		zap.String("parity", string(parity)),
		zap.Int("conflicts", report.Total()))
	return &report, nil
}

// buildConflictReport replays every reservation through fresh occupancy
// trackers and collects collisions per dimension.
func buildConflictReport(academicYear string, parity models.Parity, timetables []models.Timetable, needTwo map[string]bool) models.ConflictReport {
	report := models.ConflictReport{AcademicYear: academicYear, Parity: parity}

	teachers := newOccupancyTracker()
	labRooms := newOccupancyTracker()
	classrooms := newOccupancyTracker()

	reserveOrReport := func(tracker *occupancyTracker, dimension, resource string, day models.Day, start, end int, detail string, out *[]models.ConflictEntry) {
		if !tracker.IsFree(resource, day, start, end) {
			*out = append(*out, models.ConflictEntry{
				Dimension:  dimension,
				ResourceID: resource,
				Day:        day,
				Start:      models.FormatClock(start),
				End:        models.FormatClock(end),
				Detail:     detail,
			})
			return
		}
		tracker.Reserve(resource, day, start, end, detail)
	}

	for _, tt := range timetables {
		for _, slot := range tt.TheorySlots {
			if slot.TeacherID != nil {
				reserveOrReport(teachers, "TEACHER", *slot.TeacherID, slot.Day, slot.StartMinute, slot.EndMinute,
					fmt.Sprintf("theory %s section %s", slot.SubjectID, tt.SectionID), &report.TeacherConflicts)
			}
			if slot.ClassroomID != nil {
				reserveOrReport(classrooms, "CLASSROOM", *slot.ClassroomID, slot.Day, slot.StartMinute, slot.EndMinute,
					fmt.Sprintf("theory %s section %s", slot.SubjectID, tt.SectionID), &report.ClassroomConflicts)
			}
		}

		for _, slot := range tt.LabSlots {
			roundRooms := make(map[string]string)
			for _, act := range slot.Activities {
				if prev, dup := roundRooms[act.RoomID]; dup {
					report.RoundViolations = append(report.RoundViolations, models.ConflictEntry{
						Dimension:  "ROUND",
						ResourceID: act.RoomID,
						Day:        slot.Day,
						Start:      models.FormatClock(slot.StartMinute),
						End:        models.FormatClock(slot.EndMinute),
						Detail:     fmt.Sprintf("batches %s and %s share a room in round %d", prev, act.Batch, slot.Round),
					})
				}
				roundRooms[act.RoomID] = act.Batch

				reserveOrReport(labRooms, "LAB_ROOM", act.RoomID, slot.Day, slot.StartMinute, slot.EndMinute,
					fmt.Sprintf("lab %s batch %s", act.LabID, act.Batch), &report.LabRoomConflicts)
				for _, teacherID := range []*string{act.Teacher1, act.Teacher2} {
					if teacherID != nil {
						reserveOrReport(teachers, "TEACHER", *teacherID, slot.Day, slot.StartMinute, slot.EndMinute,
							fmt.Sprintf("lab %s batch %s", act.LabID, act.Batch), &report.TeacherConflicts)
					}
				}
				missing := act.Teacher1 == nil
				if needTwo[act.LabID] {
					missing = act.Teacher1 == nil || act.Teacher2 == nil
				}
				if missing {
					report.TeacherSlotShortages = append(report.TeacherSlotShortages, models.ConflictEntry{
						Dimension:  "TEACHER_SLOTS",
						ResourceID: act.LabID,
						Day:        slot.Day,
						Start:      models.FormatClock(slot.StartMinute),
						End:        models.FormatClock(slot.EndMinute),
						Detail:     fmt.Sprintf("batch %s is understaffed", act.Batch),
					})
				}
			}
		}
	}

	report.Clean = report.Total() == 0
	return report
}
