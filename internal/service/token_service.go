package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rainbow59216/snatcher/internal/models"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
)

type fuelEncoder interface {
	Encode(id, username string) (string, error)
}

type tokenRepository interface {
	Create(ctx context.Context, token *models.AdmissionToken) error
	ListByUsername(ctx context.Context, username string) ([]models.AdmissionToken, error)
}

// TokenService issues admission tokens and lists a user's holdings.
type TokenService struct {
	repo   tokenRepository
	fuel   fuelEncoder
	logger *zap.Logger
}

// NewTokenService constructs TokenService.
func NewTokenService(repo tokenRepository, fuel fuelEncoder, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{repo: repo, fuel: fuel, logger: logger}
}

// Issue mints a fresh unused token bound to the user. The fuel string is the
// only copy handed out; the row keeps it for auditing.
func (s *TokenService) Issue(ctx context.Context, username string) (*models.AdmissionToken, error) {
	if username == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username is required")
	}

	id := uuid.NewString()
	fuel, err := s.fuel.Encode(id, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "fuel encoding failed")
	}

	token := &models.AdmissionToken{
		ID:        id,
		Username:  username,
		Fuel:      fuel,
		Status:    models.TokenUnused,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "token creation failed")
	}

	s.logger.Info("admission token issued", zap.String("user", username), zap.String("token", id))
	return token, nil
}

// List returns the user's tokens, newest first.
func (s *TokenService) List(ctx context.Context, username string) ([]models.AdmissionToken, error) {
	if username == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username is required")
	}
	return s.repo.ListByUsername(ctx, username)
}
