package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptsched/timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })
	return sqlx.NewDb(rawDB, "postgres"), mock
}

func TestTimetableRepositoryDeleteByKey(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	// Assignments go first: they reference the same generation key.
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM lab_room_assignments WHERE academic_year = $1 AND parity = $2`)).
		WithArgs("2026/2027", models.ParityOdd).
		WillReturnResult(sqlmock.NewResult(0, 9))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM timetables WHERE academic_year = $1 AND parity = $2`)).
		WithArgs("2026/2027", models.ParityOdd).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.DeleteByKey(context.Background(), db, "2026/2027", models.ParityOdd)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryInsertAssignmentsFillsDefaults(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	mock.ExpectExec("INSERT INTO lab_room_assignments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	items := []models.LabRoomAssignment{{
		AcademicYear: "2026/2027",
		Parity:       models.ParityOdd,
		SectionID:    "sec-3a",
		Batch:        "3A1",
		LabID:        "lab-ds",
		RoomID:       "room-1",
		Round:        1,
	}}
	err := repo.InsertAssignments(context.Background(), db, items)
	require.NoError(t, err)
	assert.NotEmpty(t, items[0].ID)
	assert.False(t, items[0].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListByKeyDecodesDocuments(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	theoryJSON := `[{"subject_id":"sub-se","day":"MONDAY","start_minute":480,"end_minute":600,"fixed":false}]`
	labJSON := `[{"day":"TUESDAY","start_minute":480,"end_minute":600,"round":1,"activities":[{"batch":"3A1","lab_id":"lab-ds","room_id":"room-1"}]}]`
	metaJSON := `{"seed":42,"completed_stages":["lab_rooms","theory","classrooms","lab_teachers"]}`

	rows := sqlmock.NewRows([]string{"id", "academic_year", "semester", "parity", "section_id", "theory_slots", "lab_slots", "meta", "created_at"}).
		AddRow("tt-1", "2026/2027", 3, "ODD", "sec-3a", []byte(theoryJSON), []byte(labJSON), []byte(metaJSON), time.Now())

	mock.ExpectQuery("SELECT (.+) FROM timetables WHERE academic_year = \\$1 AND parity = \\$2 ORDER BY semester, section_id").
		WithArgs("2026/2027", models.ParityOdd).
		WillReturnRows(rows)

	timetables, err := repo.ListByKey(context.Background(), "2026/2027", models.ParityOdd)
	require.NoError(t, err)
	require.Len(t, timetables, 1)

	tt := timetables[0]
	require.Len(t, tt.TheorySlots, 1)
	assert.Equal(t, "sub-se", tt.TheorySlots[0].SubjectID)
	assert.Equal(t, models.Monday, tt.TheorySlots[0].Day)
	require.Len(t, tt.LabSlots, 1)
	assert.Equal(t, 1, tt.LabSlots[0].Round)
	require.Len(t, tt.LabSlots[0].Activities, 1)
	assert.Equal(t, "3A1", tt.LabSlots[0].Activities[0].Batch)
	require.NotNil(t, tt.Metadata)
	assert.Equal(t, int64(42), tt.Metadata.Seed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryFindBySectionNoRows(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewTimetableRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM timetables WHERE academic_year = \\$1 AND parity = \\$2 AND section_id = \\$3").
		WithArgs("2026/2027", models.ParityOdd, "sec-9z").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindBySection(context.Background(), "2026/2027", models.ParityOdd, "sec-9z")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
