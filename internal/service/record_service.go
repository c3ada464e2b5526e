package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rainbow59216/snatcher/internal/models"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
)

type recordRepository interface {
	ListSubmitted(ctx context.Context, username string, page, pageSize int) ([]models.SubmittedRecord, error)
	ListFailures(ctx context.Context, username string, page, pageSize int) ([]models.FailureRecord, error)
}

// RecordService reads the attempt audit trail.
type RecordService struct {
	repo   recordRepository
	logger *zap.Logger
}

// NewRecordService constructs RecordService.
func NewRecordService(repo recordRepository, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{repo: repo, logger: logger}
}

// Submitted lists a user's submitted records.
func (s *RecordService) Submitted(ctx context.Context, username string, page, pageSize int) ([]models.SubmittedRecord, error) {
	if username == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username is required")
	}
	return s.repo.ListSubmitted(ctx, username, page, pageSize)
}

// Failures lists a user's failure records.
func (s *RecordService) Failures(ctx context.Context, username string, page, pageSize int) ([]models.FailureRecord, error) {
	if username == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username is required")
	}
	return s.repo.ListFailures(ctx, username, page, pageSize)
}
