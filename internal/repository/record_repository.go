package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rainbow59216/snatcher/internal/models"
)

// RecordRepository persists the audit trail of selection attempts.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository creates a new instance of RecordRepository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// CreateSubmitted inserts a pending submitted record for a goal before the
// attempt begins.
func (r *RecordRepository) CreateSubmitted(ctx context.Context, record *models.SubmittedRecord) error {
	const query = `INSERT INTO submitted_records (username, email, course_name, log_key, success, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	now := touchUpdatedAt()
	record.CreatedAt = now
	record.UpdatedAt = now
	err := r.db.QueryRowContext(ctx, query,
		record.Username, record.Email, record.CourseName, record.LogKey, record.Success, record.CreatedAt, record.UpdatedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("create submitted record: %w", err)
	}
	return nil
}

// MarkSuccess flips a submitted record to successful.
func (r *RecordRepository) MarkSuccess(ctx context.Context, id int64) error {
	const query = `UPDATE submitted_records SET success = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, touchUpdatedAt()); err != nil {
		return fmt.Errorf("mark submitted record success: %w", err)
	}
	return nil
}

// CreateFailure records a terminally failed goal with the reason and the
// host that served the final attempt.
func (r *RecordRepository) CreateFailure(ctx context.Context, record *models.FailureRecord) error {
	const query = `INSERT INTO failure_records (username, course_name, log_key, reason, host, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	record.CreatedAt = touchUpdatedAt()
	err := r.db.QueryRowContext(ctx, query,
		record.Username, record.CourseName, record.LogKey, record.Reason, record.Host, record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("create failure record: %w", err)
	}
	return nil
}

// ListSubmitted returns a user's submitted records, newest first.
func (r *RecordRepository) ListSubmitted(ctx context.Context, username string, page, pageSize int) ([]models.SubmittedRecord, error) {
	size, offset := clampPage(page, pageSize)
	const query = `SELECT id, username, email, course_name, log_key, success, created_at, updated_at
		FROM submitted_records WHERE username = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var records []models.SubmittedRecord
	if err := r.db.SelectContext(ctx, &records, query, username, size, offset); err != nil {
		return nil, fmt.Errorf("list submitted records: %w", err)
	}
	return records, nil
}

// ListFailures returns a user's failure records, newest first.
func (r *RecordRepository) ListFailures(ctx context.Context, username string, page, pageSize int) ([]models.FailureRecord, error) {
	size, offset := clampPage(page, pageSize)
	const query = `SELECT id, username, course_name, log_key, reason, host, created_at
		FROM failure_records WHERE username = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var records []models.FailureRecord
	if err := r.db.SelectContext(ctx, &records, query, username, size, offset); err != nil {
		return nil, fmt.Errorf("list failure records: %w", err)
	}
	return records, nil
}

func clampPage(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}
