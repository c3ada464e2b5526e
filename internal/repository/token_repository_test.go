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

	"github.com/rainbow59216/snatcher/internal/models"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestCreateToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectExec("INSERT INTO admission_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.AdmissionToken{
		ID:        "t1",
		Username:  "2024123456",
		Fuel:      "encoded",
		Status:    models.TokenUnused,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindTokenByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "fuel", "status", "created_at"}).
		AddRow("t1", "2024123456", "encoded", string(models.TokenUnused), now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, fuel, status, created_at FROM admission_tokens WHERE id = $1 LIMIT 1")).
		WithArgs("t1").
		WillReturnRows(rows)

	token, err := repo.FindByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "2024123456", token.Username)
	assert.Equal(t, models.TokenUnused, token.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindTokenByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, fuel, status, created_at FROM admission_tokens WHERE id = $1 LIMIT 1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransition(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE admission_tokens SET status = $3 WHERE id = $1 AND status = $2")).
		WithArgs("t1", string(models.TokenUnused), string(models.TokenUsing)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Transition(context.Background(), "t1", models.TokenUnused, models.TokenUsing)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	// Token already moved by a concurrent request: zero rows affected.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE admission_tokens SET status = $3 WHERE id = $1 AND status = $2")).
		WithArgs("t1", string(models.TokenUnused), string(models.TokenUsing)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Transition(context.Background(), "t1", models.TokenUnused, models.TokenUsing)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrIllegalStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
