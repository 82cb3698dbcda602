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

func TestActivityRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM activities ORDER BY date ASC, created_at ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "date", "description", "image_url", "pdf_url", "created_at", "updated_at"}).
			AddRow("a1", "Sports day", "2024-05-01", "", "data:image/jpeg;base64,AA==", "", now, now))

	activities, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "Sports day", activities[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryInsertAndUpdate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec("INSERT INTO activities").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE activities SET").WillReturnResult(sqlmock.NewResult(0, 1))

	activity := &models.Activity{Title: "Sports day", Date: "2024-05-01"}
	require.NoError(t, repo.Insert(context.Background(), activity))
	require.NotEmpty(t, activity.ID)

	activity.Title = "Sports week"
	require.NoError(t, repo.Update(context.Background(), activity))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec("DELETE FROM activities").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "gone"), sql.ErrNoRows)
}
