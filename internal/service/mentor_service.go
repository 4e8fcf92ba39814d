package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-mentorship-api/internal/dto"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
	applog "github.com/noah-isme/alumni-mentorship-api/pkg/logger"
)

type mentorStore interface {
	List(ctx context.Context, filter models.MentorFilter) ([]models.MentorProfile, int, error)
	FindByID(ctx context.Context, alumniID string) (*models.MentorProfile, error)
	Upsert(ctx context.Context, mentor *models.MentorProfile) error
	Deactivate(ctx context.Context, alumniID string) error
}

// MentorService maintains the mentor directory.
type MentorService struct {
	repo      mentorStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMentorService constructs a MentorService.
func NewMentorService(repo mentorStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *MentorService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MentorService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns a page of mentor profiles.
func (s *MentorService) List(ctx context.Context, filter models.MentorFilter) ([]models.MentorProfile, *models.Pagination, error) {
	if filter.Availability != "" && !filter.Availability.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown availability")
	}
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, listError(err, "failed to list mentors")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a mentor profile by alumni id.
func (s *MentorService) Get(ctx context.Context, alumniID string) (*models.MentorProfile, error) {
	mentor, err := s.repo.FindByID(ctx, alumniID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor profile")
	}
	return mentor, nil
}

// Upsert creates or replaces the mentor profile of an alumni.
func (s *MentorService) Upsert(ctx context.Context, alumniID string, req dto.UpsertMentorRequest) (*models.MentorProfile, error) {
	alumniID = strings.TrimSpace(alumniID)
	if alumniID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "alumni id is required")
	}
	req.Specializations = trimAll(req.Specializations)
	req.Industries = trimAll(req.Industries)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid mentor payload")
	}

	mentor := &models.MentorProfile{
		AlumniID:          alumniID,
		Specializations:   req.Specializations,
		Industries:        req.Industries,
		YearsOfExperience: req.YearsOfExperience,
		MaxMentees:        req.MaxMentees,
		Availability:      req.Availability,
		MentorshipType:    req.MentorshipType,
		IsActive:          true,
	}
	if mentor.Industries == nil {
		mentor.Industries = []string{}
	}
	if req.IsActive != nil {
		mentor.IsActive = *req.IsActive
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Upsert(ctx, mentor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save mentor profile")
	}
	s.cache.InvalidateSuggestions(ctx)
	applog.WithContext(ctx, s.logger).Info("mentor profile saved", zap.String("alumni_id", alumniID))
	return s.Get(ctx, alumniID)
}

// Deactivate hides a mentor from suggestions. Existing connections are untouched.
func (s *MentorService) Deactivate(ctx context.Context, alumniID string) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Deactivate(ctx, alumniID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "mentor profile not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate mentor")
	}
	s.cache.InvalidateSuggestions(ctx)
	applog.WithContext(ctx, s.logger).Info("mentor profile deactivated", zap.String("alumni_id", alumniID))
	return nil
}
