package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-mentorship-api/internal/dto"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	"github.com/noah-isme/alumni-mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
	applog "github.com/noah-isme/alumni-mentorship-api/pkg/logger"
)

type menteeRequestStore interface {
	Create(ctx context.Context, req *models.MenteeRequest) error
	FindByID(ctx context.Context, id string) (*models.MenteeRequest, error)
	List(ctx context.Context, filter models.MenteeRequestFilter) ([]models.MenteeRequest, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.MenteeRequestStatus) (*models.MenteeRequest, error)
}

// MenteeRequestService handles mentee request submission and review.
type MenteeRequestService struct {
	repo      menteeRequestStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMenteeRequestService constructs a MenteeRequestService.
func NewMenteeRequestService(repo menteeRequestStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *MenteeRequestService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MenteeRequestService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Create stores a new pending request.
func (s *MenteeRequestService) Create(ctx context.Context, req dto.CreateMenteeRequest) (*models.MenteeRequest, error) {
	req.AlumniID = strings.TrimSpace(req.AlumniID)
	req.RequestedSpecializations = trimAll(req.RequestedSpecializations)
	req.PreferredMentorIndustries = trimAll(req.PreferredMentorIndustries)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid mentee request payload")
	}

	request := &models.MenteeRequest{
		AlumniID:                  req.AlumniID,
		RequestedSpecializations:  req.RequestedSpecializations,
		CareerGoals:               strings.TrimSpace(req.CareerGoals),
		CurrentSituation:          strings.TrimSpace(req.CurrentSituation),
		PreferredMentorIndustries: req.PreferredMentorIndustries,
		TimeCommitment:            strings.TrimSpace(req.TimeCommitment),
		Status:                    models.MenteeRequestPending,
	}
	if request.PreferredMentorIndustries == nil {
		request.PreferredMentorIndustries = []string{}
	}
	if err := s.repo.Create(context.WithoutCancel(ctx), request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mentee request")
	}
	applog.WithContext(ctx, s.logger).Info("mentee request submitted", zap.String("mentee_request_id", request.ID), zap.String("alumni_id", request.AlumniID))
	return request, nil
}

// Get returns a request by id.
func (s *MenteeRequestService) Get(ctx context.Context, id string) (*models.MenteeRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentee request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentee request")
	}
	return request, nil
}

// List returns a page of requests.
func (s *MenteeRequestService) List(ctx context.Context, filter models.MenteeRequestFilter) ([]models.MenteeRequest, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", filter.Status))
	}
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, listError(err, "failed to list mentee requests")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Reject closes a pending request without a match.
func (s *MenteeRequestService) Reject(ctx context.Context, id string) (*models.MenteeRequest, error) {
	request, err := s.repo.UpdateStatus(context.WithoutCancel(ctx), id, models.MenteeRequestPending, models.MenteeRequestRejected)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentee request not found")
		case errors.Is(err, repository.ErrRequestNotPending):
			return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "only pending requests can be rejected")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject mentee request")
	}
	s.cache.DropSuggestions(ctx, id)
	applog.WithContext(ctx, s.logger).Info("mentee request rejected", zap.String("mentee_request_id", id))
	return request, nil
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
