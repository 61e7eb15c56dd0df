package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// LabRoomAssignment fixes the room a batch uses for one lab, per rotation
// round. Regenerated wholesale on every run.
type LabRoomAssignment struct {
	ID           string    `db:"id" json:"id"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Parity       Parity    `db:"parity" json:"parity"`
	SectionID    string    `db:"section_id" json:"section_id"`
	Batch        string    `db:"batch" json:"batch"`
	LabID        string    `db:"lab_id" json:"lab_id"`
	RoomID       string    `db:"room_id" json:"room_id"`
	Round        int       `db:"round" json:"round"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TheorySlot is one placed theory session inside a section's timetable.
// TeacherID is nil for external-department subjects; ClassroomID is nil
// until the classroom stage runs, and stays nil for project subjects or
// when the classroom pool is exhausted.
type TheorySlot struct {
	SubjectID   string  `json:"subject_id"`
	Day         Day     `json:"day"`
	StartMinute int     `json:"start_minute"`
	EndMinute   int     `json:"end_minute"`
	TeacherID   *string `json:"teacher_id,omitempty"`
	ClassroomID *string `json:"classroom_id,omitempty"`
	Fixed       bool    `json:"fixed"`
}

// BatchActivity is one batch's lab session within a synchronized round.
// Teacher slots stay nil when the hierarchy stage could not fill them.
type BatchActivity struct {
	Batch    string  `json:"batch"`
	LabID    string  `json:"lab_id"`
	RoomID   string  `json:"room_id"`
	Teacher1 *string `json:"teacher_1,omitempty"`
	Teacher2 *string `json:"teacher_2,omitempty"`
}

// LabSlot is a synchronized round: all batches of one section running labs
// concurrently in one day/time cell.
type LabSlot struct {
	Day         Day             `json:"day"`
	StartMinute int             `json:"start_minute"`
	EndMinute   int             `json:"end_minute"`
	Round       int             `json:"round"`
	Activities  []BatchActivity `json:"activities"`
}

// Timetable is the per-section output document for one generation key.
type Timetable struct {
	ID           string         `db:"id" json:"id"`
	AcademicYear string         `db:"academic_year" json:"academic_year"`
	Semester     int            `db:"semester" json:"semester"`
	Parity       Parity         `db:"parity" json:"parity"`
	SectionID    string         `db:"section_id" json:"section_id"`
	TheoryJSON   types.JSONText `db:"theory_slots" json:"-"`
	LabJSON      types.JSONText `db:"lab_slots" json:"-"`
	Meta         types.JSONText `db:"meta" json:"-"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`

	TheorySlots []TheorySlot        `db:"-" json:"theory_slots"`
	LabSlots    []LabSlot           `db:"-" json:"lab_slots"`
	Metadata    *GenerationMetadata `db:"-" json:"generation_metadata,omitempty"`
}

// StageSummary aggregates shortfall accounting for one pipeline stage.
type StageSummary struct {
	Planned     int     `json:"planned"`
	Scheduled   int     `json:"scheduled"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// TeacherWorkload is one row of the post-assignment workload report.
type TeacherWorkload struct {
	TeacherID   string      `json:"teacher_id"`
	TeacherName string      `json:"teacher_name"`
	Rank        TeacherRank `json:"rank"`
	Assigned    int         `json:"assigned"`
	Ceiling     int         `json:"ceiling"`
	OverCeiling bool        `json:"over_ceiling"`
}

// GenerationMetadata records which stages completed and their summaries.
type GenerationMetadata struct {
	GeneratedAt     time.Time `json:"generated_at"`
	Seed            int64     `json:"seed"`
	CompletedStages []string  `json:"completed_stages"`

	LabRooms   StageSummary `json:"lab_rooms"`
	Theory     StageSummary `json:"theory"`
	Classrooms StageSummary `json:"classrooms"`

	// Lab-teacher hierarchy accounting: batches grouped by how many of the
	// two required teachers were filled.
	BatchesTwoTeachers  int `json:"batches_two_teachers"`
	BatchesOneTeacher   int `json:"batches_one_teacher"`
	BatchesZeroTeachers int `json:"batches_zero_teachers"`

	RebalanceSpread   int  `json:"rebalance_spread"`
	RebalanceAttempts int  `json:"rebalance_attempts"`
	RebalanceBounded  bool `json:"rebalance_bounded"`

	Workload []TeacherWorkload `json:"workload,omitempty"`
}

// RecordSuccessRates fills the derived rate fields on all stage summaries.
func (m *GenerationMetadata) RecordSuccessRates() {
	for _, s := range []*StageSummary{&m.LabRooms, &m.Theory, &m.Classrooms} {
		if s.Planned > 0 {
			s.SuccessRate = float64(s.Scheduled) / float64(s.Planned)
		}
	}
}

// ConflictReport is the validator's output: residual conflicts by dimension.
type ConflictReport struct {
	AcademicYear         string          `json:"academic_year"`
	Parity               Parity          `json:"parity"`
	TeacherConflicts     []ConflictEntry `json:"teacher_conflicts"`
	LabRoomConflicts     []ConflictEntry `json:"lab_room_conflicts"`
	ClassroomConflicts   []ConflictEntry `json:"classroom_conflicts"`
	RoundViolations      []ConflictEntry `json:"round_violations"`
	TeacherSlotShortages []ConflictEntry `json:"teacher_slot_shortages"`
	Clean                bool            `json:"clean"`
}

// ConflictEntry describes one residual conflict found by the validator.
type ConflictEntry struct {
	Dimension  string `json:"dimension"`
	ResourceID string `json:"resource_id"`
	Day        Day    `json:"day"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Detail     string `json:"detail"`
}

// Total returns the number of conflicts across all dimensions.
func (r ConflictReport) Total() int {
	return len(r.TeacherConflicts) + len(r.LabRoomConflicts) + len(r.ClassroomConflicts) +
		len(r.RoundViolations) + len(r.TeacherSlotShortages)
}
