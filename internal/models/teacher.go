package models

import "time"

// TeacherRank is the academic rank of a teacher.
type TeacherRank string

const (
	RankProfessor          TeacherRank = "PROFESSOR"
	RankAssociateProfessor TeacherRank = "ASSOCIATE_PROFESSOR"
	RankAssistantProfessor TeacherRank = "ASSISTANT_PROFESSOR"
)

// RankPriority orders ranks for hierarchical lab assignment, seniors first.
var RankPriority = []TeacherRank{RankProfessor, RankAssociateProfessor, RankAssistantProfessor}

// DefaultCeiling returns the rank-default weekly lab-batch ceiling.
func DefaultCeiling(rank TeacherRank) int {
	switch rank {
	case RankProfessor:
		return 2
	case RankAssociateProfessor:
		return 4
	default:
		return 6
	}
}

// Teacher represents an instructor with qualifications and workload ceilings.
type Teacher struct {
	ID          string      `db:"id" json:"id"`
	FullName    string      `db:"full_name" json:"full_name"`
	Email       string      `db:"email" json:"email"`
	Rank        TeacherRank `db:"rank" json:"rank"`
	OddCeiling  *int        `db:"odd_ceiling" json:"odd_ceiling,omitempty"`
	EvenCeiling *int        `db:"even_ceiling" json:"even_ceiling,omitempty"`
	Active      bool        `db:"active" json:"active"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`

	// Qualification sets, loaded from join tables.
	SubjectIDs []string `db:"-" json:"subject_ids,omitempty"`
	LabIDs     []string `db:"-" json:"lab_ids,omitempty"`
}

// Ceiling resolves the weekly lab-batch ceiling for the given parity,
// falling back to the rank default when no override is set.
func (t Teacher) Ceiling(parity Parity) int {
	if parity == ParityOdd && t.OddCeiling != nil {
		return *t.OddCeiling
	}
	if parity == ParityEven && t.EvenCeiling != nil {
		return *t.EvenCeiling
	}
	return DefaultCeiling(t.Rank)
}

// TeachesLab reports whether the teacher is qualified for the lab.
func (t Teacher) TeachesLab(labID string) bool {
	for _, id := range t.LabIDs {
		if id == labID {
			return true
		}
	}
	return false
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Rank     TeacherRank
	Active   *bool
	Search   string
	Page     int
	PageSize int
}
