package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/deptsched/timetable-api/internal/models"
)

// RoomRepository manages persistence for classrooms and lab rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a new room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListClassrooms returns every classroom ordered by name.
func (r *RoomRepository) ListClassrooms(ctx context.Context) ([]models.Classroom, error) {
	const query = `SELECT id, name, capacity, created_at, updated_at FROM classrooms ORDER BY name`
	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return rooms, nil
}

// ListLabRooms returns every lab room with its equipment capability set.
func (r *RoomRepository) ListLabRooms(ctx context.Context) ([]models.LabRoom, error) {
	const query = `SELECT id, name, capacity, created_at, updated_at FROM lab_rooms ORDER BY name`
	var rooms []models.LabRoom
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list lab rooms: %w", err)
	}
	if len(rooms) == 0 {
		return rooms, nil
	}

	ids := make([]string, len(rooms))
	index := make(map[string]int, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID
		index[room.ID] = i
	}
	capQuery, args, err := sqlx.In(`SELECT room_id, lab_id FROM lab_room_capabilities WHERE room_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build capability query: %w", err)
	}
	var capabilities []struct {
		RoomID string `db:"room_id"`
		LabID  string `db:"lab_id"`
	}
	if err := r.db.SelectContext(ctx, &capabilities, r.db.Rebind(capQuery), args...); err != nil {
		return nil, fmt.Errorf("list lab room capabilities: %w", err)
	}
	for _, capability := range capabilities {
		if i, ok := index[capability.RoomID]; ok {
			rooms[i].LabIDs = append(rooms[i].LabIDs, capability.LabID)
		}
	}
	return rooms, nil
}

// CreateClassroom persists a classroom record.
func (r *RoomRepository) CreateClassroom(ctx context.Context, room *models.Classroom) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	const query = `INSERT INTO classrooms (id, name, capacity, created_at, updated_at) VALUES (:id, :name, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// CreateLabRoom persists a lab room and its capability set.
func (r *RoomRepository) CreateLabRoom(ctx context.Context, room *models.LabRoom) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lab room tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO lab_rooms (id, name, capacity, created_at, updated_at) VALUES (:id, :name, :capacity, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, room); err != nil {
		err = fmt.Errorf("create lab room: %w", err)
		return err
	}
	for _, labID := range room.LabIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO lab_room_capabilities (room_id, lab_id) VALUES ($1, $2)`, room.ID, labID); err != nil {
			err = fmt.Errorf("insert lab room capability: %w", err)
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit lab room tx: %w", err)
		return err
	}
	return nil
}
