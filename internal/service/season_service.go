package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enroll-api/internal/models"
	appErrors "github.com/noah-isme/course-enroll-api/pkg/errors"
)

type seasonRepository interface {
	List(ctx context.Context, filter models.SeasonFilter) ([]models.Season, int, error)
	FindByID(ctx context.Context, id int64) (*models.Season, error)
	FindByCode(ctx context.Context, code string) (*models.Season, error)
	ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error)
	Create(ctx context.Context, season *models.Season) error
	Update(ctx context.Context, season *models.Season) error
	Delete(ctx context.Context, id int64) error
}

// SeasonRequest describes season create/update payloads.
type SeasonRequest struct {
	Code            string    `json:"code" validate:"required"`
	Title           string    `json:"title" validate:"required"`
	EnrollmentOpen  time.Time `json:"enrollment_open" validate:"required"`
	EnrollmentClose time.Time `json:"enrollment_close" validate:"required"`
}

// SeasonService manages the season catalog.
type SeasonService struct {
	repo      seasonRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSeasonService constructs SeasonService.
func NewSeasonService(repo seasonRepository, validate *validator.Validate, logger *zap.Logger) *SeasonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeasonService{repo: repo, validator: validate, logger: logger}
}

// List returns seasons with pagination metadata.
func (s *SeasonService) List(ctx context.Context, filter models.SeasonFilter) ([]models.Season, *models.Pagination, error) {
	seasons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list seasons")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return seasons, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a season by id.
func (s *SeasonService) Get(ctx context.Context, id int64) (*models.Season, error) {
	season, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "season not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load season")
	}
	return season, nil
}

// GetByCode returns a season by its unique code.
func (s *SeasonService) GetByCode(ctx context.Context, code string) (*models.Season, error) {
	season, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "season not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load season")
	}
	return season, nil
}

// Create registers a new season.
func (s *SeasonService) Create(ctx context.Context, req SeasonRequest) (*models.Season, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate season code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "season code already exists")
	}

	season := &models.Season{
		Code:            req.Code,
		Title:           req.Title,
		EnrollmentOpen:  req.EnrollmentOpen,
		EnrollmentClose: req.EnrollmentClose,
	}
	if err := s.repo.Create(ctx, season); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create season")
	}
	return season, nil
}

// Update modifies an existing season.
func (s *SeasonService) Update(ctx context.Context, id int64, req SeasonRequest) (*models.Season, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	season, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate season code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "season code already exists")
	}

	season.Code = req.Code
	season.Title = req.Title
	season.EnrollmentOpen = req.EnrollmentOpen
	season.EnrollmentClose = req.EnrollmentClose
	if err := s.repo.Update(ctx, season); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update season")
	}
	return season, nil
}

// Delete removes a season.
func (s *SeasonService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete season")
	}
	return nil
}

func (s *SeasonService) validate(req SeasonRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid season payload")
	}
	if !req.EnrollmentClose.After(req.EnrollmentOpen) {
		return appErrors.Clone(appErrors.ErrValidation, "enrollment_close must be after enrollment_open")
	}
	return nil
}
