package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/deptsched/timetable-api/internal/models"
)

// TeacherRepository manages persistence for teachers and their
// qualification sets.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a new teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherColumns = "id, full_name, email, rank, odd_ceiling, even_ceiling, active, created_at, updated_at"

// ListActive returns active teachers with subject and lab qualifications
// attached.
func (r *TeacherRepository) ListActive(ctx context.Context) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE active = TRUE ORDER BY full_name", teacherColumns)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	if err := r.attachQualifications(ctx, teachers); err != nil {
		return nil, err
	}
	return teachers, nil
}

type qualificationRow struct {
	TeacherID string `db:"teacher_id"`
	RefID     string `db:"ref_id"`
}

func (r *TeacherRepository) attachQualifications(ctx context.Context, teachers []models.Teacher) error {
	if len(teachers) == 0 {
		return nil
	}
	ids := make([]string, len(teachers))
	index := make(map[string]int, len(teachers))
	for i, teacher := range teachers {
		ids[i] = teacher.ID
		index[teacher.ID] = i
	}

	query, args, err := sqlx.In(`SELECT teacher_id, subject_id AS ref_id FROM teacher_subjects WHERE teacher_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build teacher subject query: %w", err)
	}
	var subjectRows []qualificationRow
	if err := r.db.SelectContext(ctx, &subjectRows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("list teacher subjects: %w", err)
	}
	for _, row := range subjectRows {
		if i, ok := index[row.TeacherID]; ok {
			teachers[i].SubjectIDs = append(teachers[i].SubjectIDs, row.RefID)
		}
	}

	query, args, err = sqlx.In(`SELECT teacher_id, lab_id AS ref_id FROM teacher_labs WHERE teacher_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build teacher lab query: %w", err)
	}
	var labRows []qualificationRow
	if err := r.db.SelectContext(ctx, &labRows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("list teacher labs: %w", err)
	}
	for _, row := range labRows {
		if i, ok := index[row.TeacherID]; ok {
			teachers[i].LabIDs = append(teachers[i].LabIDs, row.RefID)
		}
	}
	return nil
}

// List returns teachers matching filter criteria.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Rank != "" {
		conditions = append(conditions, fmt.Sprintf("rank = $%d", len(args)+1))
		args = append(args, filter.Rank)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY full_name LIMIT %d OFFSET %d", teacherColumns, base, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// Create persists a teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now

	const query = `INSERT INTO teachers (id, full_name, email, rank, odd_ceiling, even_ceiling, active, created_at, updated_at) VALUES (:id, :full_name, :email, :rank, :odd_ceiling, :even_ceiling, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// ReplaceQualifications rewrites the teacher's subject and lab sets.
func (r *TeacherRepository) ReplaceQualifications(ctx context.Context, teacherID string, subjectIDs, labIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin qualification tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_subjects WHERE teacher_id = $1`, teacherID); err != nil {
		err = fmt.Errorf("clear teacher subjects: %w", err)
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_labs WHERE teacher_id = $1`, teacherID); err != nil {
		err = fmt.Errorf("clear teacher labs: %w", err)
		return err
	}
	for _, subjectID := range subjectIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)`, teacherID, subjectID); err != nil {
			err = fmt.Errorf("insert teacher subject: %w", err)
			return err
		}
	}
	for _, labID := range labIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO teacher_labs (teacher_id, lab_id) VALUES ($1, $2)`, teacherID, labID); err != nil {
			err = fmt.Errorf("insert teacher lab: %w", err)
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit qualification tx: %w", err)
		return err
	}
	return nil
}
