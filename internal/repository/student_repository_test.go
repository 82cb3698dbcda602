package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pe-portal-api/internal/models"
)

func TestStudentRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE class_id = $1 ORDER BY name ASC, created_at ASC, id ASC")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "class_id", "name", "note1", "note2", "note3", "created_at", "updated_at"}).
			AddRow("st1", "c1", "Ana", 14.0, 16.0, 15.0, now, now))

	students, err := repo.ListByClass(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 16.0, students[0].Note2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpsertReturnsTimestamps(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("(?s)INSERT INTO students.*ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs("st1", "c1", "Ana", 15.0, 0.0, 0.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, time.Now()))

	student := &models.Student{ID: "st1", ClassID: "c1", Name: "Ana", Note1: 15}
	require.NoError(t, repo.Upsert(context.Background(), student))
	assert.Equal(t, created, student.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "gone"), sql.ErrNoRows)
}
