package models

import "time"

// Subject represents a theory subject taught to a section.
type Subject struct {
	ID               string    `db:"id" json:"id"`
	Code             string    `db:"code" json:"code"`
	Name             string    `db:"name" json:"name"`
	Semester         int       `db:"semester" json:"semester"`
	Parity           Parity    `db:"parity" json:"parity"`
	WeeklyHours      int       `db:"weekly_hours" json:"weekly_hours"`
	MaxHoursPerDay   int       `db:"max_hours_per_day" json:"max_hours_per_day"`
	IsProject        bool      `db:"is_project" json:"is_project"`
	RequiresTeacher  bool      `db:"requires_teacher" json:"requires_teacher"`
	HasFixedSchedule bool      `db:"has_fixed_schedule" json:"has_fixed_schedule"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`

	// FixedSlots is populated for subjects with an externally mandated
	// schedule, ordered by day then start time.
	FixedSlots []FixedSlotEntry `db:"-" json:"fixed_slots,omitempty"`
}

// FixedSlotEntry is one externally mandated (day, start, end) for a subject.
type FixedSlotEntry struct {
	ID          string `db:"id" json:"id"`
	SubjectID   string `db:"subject_id" json:"subject_id"`
	Day         Day    `db:"day" json:"day"`
	StartMinute int    `db:"start_minute" json:"start_minute"`
	EndMinute   int    `db:"end_minute" json:"end_minute"`
}

// SectionSubject links a section to a subject with an optional pre-assigned
// teacher. Subjects owned by another department carry no teacher.
type SectionSubject struct {
	ID        string    `db:"id" json:"id"`
	SectionID string    `db:"section_id" json:"section_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
