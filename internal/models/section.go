package models

import (
	"fmt"
	"time"
)

// Section represents a class section, e.g. semester 3 section "A".
type Section struct {
	ID         string    `db:"id" json:"id"`
	Semester   int       `db:"semester" json:"semester"`
	Parity     Parity    `db:"parity" json:"parity"`
	Label      string    `db:"label" json:"label"`
	BatchCount int       `db:"batch_count" json:"batch_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Name renders the conventional section name, e.g. "3A".
func (s Section) Name() string {
	return fmt.Sprintf("%d%s", s.Semester, s.Label)
}

// Batches derives the lab batch labels, e.g. ["3A1", "3A2", "3A3"].
func (s Section) Batches() []string {
	labels := make([]string, 0, s.BatchCount)
	for i := 1; i <= s.BatchCount; i++ {
		labels = append(labels, fmt.Sprintf("%s%d", s.Name(), i))
	}
	return labels
}

// SectionFilter captures filtering options for listing sections.
type SectionFilter struct {
	Semester int
	Parity   Parity
	Search   string
	Page     int
	PageSize int
}
