package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/deptsched/timetable-api/internal/models"
)

// LabRepository manages persistence for laboratory courses.
type LabRepository struct {
	db *sqlx.DB
}

// NewLabRepository constructs a new lab repository.
func NewLabRepository(db *sqlx.DB) *LabRepository {
	return &LabRepository{db: db}
}

const labColumns = "id, code, name, semester, parity, duration_hours, requires_two_teachers, created_at, updated_at"

// ListByParity returns labs for the parity ordered by semester and code.
func (r *LabRepository) ListByParity(ctx context.Context, parity models.Parity) ([]models.Lab, error) {
	query := fmt.Sprintf("SELECT %s FROM labs WHERE parity = $1 ORDER BY semester, code", labColumns)
	var labs []models.Lab
	if err := r.db.SelectContext(ctx, &labs, query, parity); err != nil {
		return nil, fmt.Errorf("list labs by parity: %w", err)
	}
	return labs, nil
}

// FindByID returns a lab record by ID.
func (r *LabRepository) FindByID(ctx context.Context, id string) (*models.Lab, error) {
	query := fmt.Sprintf("SELECT %s FROM labs WHERE id = $1", labColumns)
	var lab models.Lab
	if err := r.db.GetContext(ctx, &lab, query, id); err != nil {
		return nil, err
	}
	return &lab, nil
}

// Create persists a lab record.
func (r *LabRepository) Create(ctx context.Context, lab *models.Lab) error {
	if lab.ID == "" {
		lab.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lab.CreatedAt.IsZero() {
		lab.CreatedAt = now
	}
	lab.UpdatedAt = now

	const query = `INSERT INTO labs (id, code, name, semester, parity, duration_hours, requires_two_teachers, created_at, updated_at) VALUES (:id, :code, :name, :semester, :parity, :duration_hours, :requires_two_teachers, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lab); err != nil {
		return fmt.Errorf("create lab: %w", err)
	}
	return nil
}
