package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rainbow59216/snatcher/internal/enroll"
	"github.com/rainbow59216/snatcher/internal/models"
	"github.com/rainbow59216/snatcher/pkg/config"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter *models.CourseFilter) ([]models.Course, int, error)
}

// CatalogService serves the local course catalog users build wish lists from.
type CatalogService struct {
	repo   courseRepository
	cfg    config.EnrollConfig
	logger *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo courseRepository, cfg config.EnrollConfig, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cfg: cfg, logger: logger}
}

// List returns catalog entries for the configured academic year and term.
func (s *CatalogService) List(ctx context.Context, filter *models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if filter.Category != "" {
		if _, err := enroll.ByName(filter.Category); err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
	}
	filter.Year = s.cfg.Year
	filter.Term = s.cfg.Term

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "catalog listing failed")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
