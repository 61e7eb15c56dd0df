package models

import "time"

// Lab represents a laboratory course owned by a semester.
type Lab struct {
	ID                  string    `db:"id" json:"id"`
	Code                string    `db:"code" json:"code"`
	Name                string    `db:"name" json:"name"`
	Semester            int       `db:"semester" json:"semester"`
	Parity              Parity    `db:"parity" json:"parity"`
	DurationHours       int       `db:"duration_hours" json:"duration_hours"`
	RequiresTwoTeachers bool      `db:"requires_two_teachers" json:"requires_two_teachers"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// DurationMinutes converts the session length to minutes, defaulting to the
// standard two-hour block when unset.
func (l Lab) DurationMinutes() int {
	if l.DurationHours <= 0 {
		return 120
	}
	return l.DurationHours * 60
}
