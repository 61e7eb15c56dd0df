package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/deptsched/timetable-api/internal/models"
)

// SubjectRepository manages persistence for subjects and their section links.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = "id, code, name, semester, parity, weekly_hours, max_hours_per_day, is_project, requires_teacher, has_fixed_schedule, created_at, updated_at"

// ListByParity returns subjects for the parity with fixed slots attached.
func (r *SubjectRepository) ListByParity(ctx context.Context, parity models.Parity) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE parity = $1 ORDER BY semester, code", subjectColumns)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, parity); err != nil {
		return nil, fmt.Errorf("list subjects by parity: %w", err)
	}
	if err := r.attachFixedSlots(ctx, subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *SubjectRepository) attachFixedSlots(ctx context.Context, subjects []models.Subject) error {
	ids := make([]string, 0, len(subjects))
	index := make(map[string]int, len(subjects))
	for i, subject := range subjects {
		if subject.HasFixedSchedule {
			ids = append(ids, subject.ID)
			index[subject.ID] = i
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`SELECT id, subject_id, day, start_minute, end_minute FROM subject_fixed_slots WHERE subject_id IN (?) ORDER BY subject_id, day, start_minute`, ids)
	if err != nil {
		return fmt.Errorf("build fixed slot query: %w", err)
	}
	var slots []models.FixedSlotEntry
	if err := r.db.SelectContext(ctx, &slots, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("list fixed slots: %w", err)
	}
	for _, slot := range slots {
		if i, ok := index[slot.SubjectID]; ok {
			subjects[i].FixedSlots = append(subjects[i].FixedSlots, slot)
		}
	}
	return nil
}

// ListSectionSubjects returns the subject links for the given sections.
func (r *SubjectRepository) ListSectionSubjects(ctx context.Context, sectionIDs []string) ([]models.SectionSubject, error) {
	if len(sectionIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, section_id, subject_id, teacher_id, created_at FROM section_subjects WHERE section_id IN (?) ORDER BY section_id, subject_id`, sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("build section subject query: %w", err)
	}
	var links []models.SectionSubject
	if err := r.db.SelectContext(ctx, &links, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list section subjects: %w", err)
	}
	return links, nil
}

// FindByID returns a subject record by ID.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = $1", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create persists a subject record.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, code, name, semester, parity, weekly_hours, max_hours_per_day, is_project, requires_teacher, has_fixed_schedule, created_at, updated_at) VALUES (:id, :code, :name, :semester, :parity, :weekly_hours, :max_hours_per_day, :is_project, :requires_teacher, :has_fixed_schedule, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// LinkSection attaches a subject to a section with an optional teacher.
func (r *SubjectRepository) LinkSection(ctx context.Context, link *models.SectionSubject) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO section_subjects (id, section_id, subject_id, teacher_id, created_at) VALUES (:id, :section_id, :subject_id, :teacher_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("link section subject: %w", err)
	}
	return nil
}
