package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbow59216/snatcher/internal/models"
)

func TestCreateSubmittedRecord(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectQuery("INSERT INTO submitted_records").
		WithArgs("1912010304", "me@example.com", "Film Appreciation", "1912010304-Film Appreciation", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	record := &models.SubmittedRecord{
		Username:   "1912010304",
		Email:      "me@example.com",
		CourseName: "Film Appreciation",
		LogKey:     "1912010304-Film Appreciation",
	}
	err := repo.CreateSubmitted(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, int64(7), record.ID)
	assert.False(t, record.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSubmittedRecordSuccess(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectExec("UPDATE submitted_records SET success = TRUE").
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkSuccess(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFailureRecord(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectQuery("INSERT INTO failure_records").
		WithArgs("1912010304", "Film Appreciation", "1912010304-Film Appreciation", "the course is full", "11", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	record := &models.FailureRecord{
		Username:   "1912010304",
		CourseName: "Film Appreciation",
		LogKey:     "1912010304-Film Appreciation",
		Reason:     "the course is full",
		Host:       "11",
	}
	err := repo.CreateFailure(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, int64(3), record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSubmittedRecordsClampsPage(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "email", "course_name", "log_key", "success"}).
		AddRow(2, "1912010304", "me@example.com", "Film Appreciation", "1912010304-Film Appreciation", true)
	mock.ExpectQuery("SELECT (.+) FROM submitted_records WHERE username").
		WithArgs("1912010304", 20, 0).
		WillReturnRows(rows)

	records, err := repo.ListSubmitted(context.Background(), "1912010304", 0, 500)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFailureRecords(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "course_name", "log_key", "reason", "host"}).
		AddRow(3, "1912010304", "Film Appreciation", "1912010304-Film Appreciation", "the course is full", "11")
	mock.ExpectQuery("SELECT (.+) FROM failure_records WHERE username").
		WithArgs("1912010304", 10, 10).
		WillReturnRows(rows)

	records, err := repo.ListFailures(context.Background(), "1912010304", 2, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "11", records[0].Host)
	assert.NoError(t, mock.ExpectationsWereMet())
}
