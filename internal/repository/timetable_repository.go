package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/deptsched/timetable-api/internal/models"
)

// TimetableRepository manages the generated output documents. All writes
// run against a caller-provided executor so a generation run can replace
// its records atomically.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = "id, academic_year, semester, parity, section_id, theory_slots, lab_slots, meta, created_at"

// DeleteByKey removes every timetable and lab room assignment for the key.
func (r *TimetableRepository) DeleteByKey(ctx context.Context, exec sqlx.ExtContext, academicYear string, parity models.Parity) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM lab_room_assignments WHERE academic_year = $1 AND parity = $2`, academicYear, parity); err != nil {
		return fmt.Errorf("delete lab room assignments: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM timetables WHERE academic_year = $1 AND parity = $2`, academicYear, parity); err != nil {
		return fmt.Errorf("delete timetables: %w", err)
	}
	return nil
}

// InsertAssignments persists the lab room assignment records for a run.
func (r *TimetableRepository) InsertAssignments(ctx context.Context, exec sqlx.ExtContext, items []models.LabRoomAssignment) error {
	const query = `INSERT INTO lab_room_assignments (id, academic_year, parity, section_id, batch, lab_id, room_id, round, created_at) VALUES (:id, :academic_year, :parity, :section_id, :batch, :lab_id, :room_id, :round, :created_at)`
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = time.Now().UTC()
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, query, items[i]); err != nil {
			return fmt.Errorf("insert lab room assignment: %w", err)
		}
	}
	return nil
}

// InsertTimetables persists the per-section documents for a run.
func (r *TimetableRepository) InsertTimetables(ctx context.Context, exec sqlx.ExtContext, items []models.Timetable) error {
	const query = `INSERT INTO timetables (id, academic_year, semester, parity, section_id, theory_slots, lab_slots, meta, created_at) VALUES (:id, :academic_year, :semester, :parity, :section_id, :theory_slots, :lab_slots, :meta, :created_at)`
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = time.Now().UTC()
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, query, items[i]); err != nil {
			return fmt.Errorf("insert timetable: %w", err)
		}
	}
	return nil
}

// ListByKey returns every decoded timetable document for a key.
func (r *TimetableRepository) ListByKey(ctx context.Context, academicYear string, parity models.Parity) ([]models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE academic_year = $1 AND parity = $2 ORDER BY semester, section_id", timetableColumns)
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, academicYear, parity); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	for i := range timetables {
		if err := decodeTimetable(&timetables[i]); err != nil {
			return nil, err
		}
	}
	return timetables, nil
}

// FindBySection returns one section's decoded document for a key.
func (r *TimetableRepository) FindBySection(ctx context.Context, academicYear string, parity models.Parity, sectionID string) (*models.Timetable, error) {
	query := fmt.Sprintf("SELECT %s FROM timetables WHERE academic_year = $1 AND parity = $2 AND section_id = $3", timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, academicYear, parity, sectionID); err != nil {
		return nil, err
	}
	if err := decodeTimetable(&timetable); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ListAssignmentsByKey returns the lab room assignments for a key.
func (r *TimetableRepository) ListAssignmentsByKey(ctx context.Context, academicYear string, parity models.Parity) ([]models.LabRoomAssignment, error) {
	const query = `SELECT id, academic_year, parity, section_id, batch, lab_id, room_id, round, created_at FROM lab_room_assignments WHERE academic_year = $1 AND parity = $2 ORDER BY section_id, round, batch`
	var assignments []models.LabRoomAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, academicYear, parity); err != nil {
		return nil, fmt.Errorf("list lab room assignments: %w", err)
	}
	return assignments, nil
}

func decodeTimetable(t *models.Timetable) error {
	if len(t.TheoryJSON) > 0 {
		if err := json.Unmarshal(t.TheoryJSON, &t.TheorySlots); err != nil {
			return fmt.Errorf("decode theory slots: %w", err)
		}
	}
	if len(t.LabJSON) > 0 {
		if err := json.Unmarshal(t.LabJSON, &t.LabSlots); err != nil {
			return fmt.Errorf("decode lab slots: %w", err)
		}
	}
	if len(t.Meta) > 0 {
		t.Metadata = &models.GenerationMetadata{}
		if err := json.Unmarshal(t.Meta, t.Metadata); err != nil {
			return fmt.Errorf("decode generation metadata: %w", err)
		}
	}
	return nil
}
