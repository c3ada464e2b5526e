package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rainbow59216/snatcher/internal/models"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
)

// TokenRepository provides database access for admission tokens.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new instance of TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts a freshly issued token row.
func (r *TokenRepository) Create(ctx context.Context, token *models.AdmissionToken) error {
	const query = `INSERT INTO admission_tokens (id, username, fuel, status, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, token.ID, token.Username, token.Fuel, token.Status, token.CreatedAt); err != nil {
		return fmt.Errorf("create admission token: %w", err)
	}
	return nil
}

// FindByID returns a token by identifier, or ErrNotFound when no row
// matches.
func (r *TokenRepository) FindByID(ctx context.Context, id string) (*models.AdmissionToken, error) {
	const query = `SELECT id, username, fuel, status, created_at FROM admission_tokens WHERE id = $1 LIMIT 1`
	var token models.AdmissionToken
	if err := r.db.GetContext(ctx, &token, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find admission token: %w", err)
	}
	return &token, nil
}

// Transition atomically moves a token from one status to another. The
// conditional update is the linearizable read-modify-write upholding the
// at-most-one-live-attempt invariant; a zero row count means the token was
// not in the expected status.
func (r *TokenRepository) Transition(ctx context.Context, id string, from, to models.TokenStatus) error {
	const query = `UPDATE admission_tokens SET status = $3 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("transition admission token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition admission token: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrIllegalStatus
	}
	return nil
}

// ListByUsername returns a user's tokens, newest first.
func (r *TokenRepository) ListByUsername(ctx context.Context, username string) ([]models.AdmissionToken, error) {
	const query = `SELECT id, username, fuel, status, created_at FROM admission_tokens WHERE username = $1 ORDER BY created_at DESC`
	var tokens []models.AdmissionToken
	if err := r.db.SelectContext(ctx, &tokens, query, username); err != nil {
		return nil, fmt.Errorf("list admission tokens: %w", err)
	}
	return tokens, nil
}

// touchUpdatedAt is shared by record repositories.
func touchUpdatedAt() time.Time { return time.Now().UTC() }
