package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptsched/timetable-api/internal/models"
)

func sectionRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "semester", "parity", "label", "batch_count", "created_at", "updated_at"}).
		AddRow("sec-3a", 3, "ODD", "A", 3, now, now).
		AddRow("sec-5a", 5, "ODD", "A", 2, now, now)
}

func TestSectionRepositoryListByParity(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSectionRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM sections WHERE parity = \\$1 ORDER BY semester, label").
		WithArgs(models.ParityOdd).
		WillReturnRows(sectionRows())

	sections, err := repo.ListByParity(context.Background(), models.ParityOdd)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "3A", sections[0].Name())
	assert.Equal(t, 3, sections[0].BatchCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListWithFilters(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSectionRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM sections WHERE 1=1 AND semester = \\$1 ORDER BY semester, label LIMIT 20 OFFSET 0").
		WithArgs(3).
		WillReturnRows(sectionRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM sections WHERE 1=1 AND semester = \\$1").
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	sections, total, err := repo.List(context.Background(), models.SectionFilter{Semester: 3})
	require.NoError(t, err)
	assert.Len(t, sections, 2)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSectionRepository(db)

	mock.ExpectExec("INSERT INTO sections").
		WillReturnResult(sqlmock.NewResult(0, 1))

	section := &models.Section{Semester: 3, Parity: models.ParityOdd, Label: "A", BatchCount: 3}
	err := repo.Create(context.Background(), section)
	require.NoError(t, err)
	assert.NotEmpty(t, section.ID)
	assert.False(t, section.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
