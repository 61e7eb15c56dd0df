package models

import "time"

// Classroom is a theory room assignable to non-project theory slots.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LabRoom is an equipped laboratory room.
type LabRoom struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// LabIDs is the capability set: labs this room is equipped for.
	LabIDs []string `db:"-" json:"lab_ids,omitempty"`
}

// Supports reports whether the room's equipment covers the lab.
func (r LabRoom) Supports(labID string) bool {
	for _, id := range r.LabIDs {
		if id == labID {
			return true
		}
	}
	return false
}
