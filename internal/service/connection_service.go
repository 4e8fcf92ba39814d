package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/alumni-mentorship-api/internal/dto"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	"github.com/noah-isme/alumni-mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
	applog "github.com/noah-isme/alumni-mentorship-api/pkg/logger"
)

// DefaultConnectionDays is the connection length used when no end date is given.
const DefaultConnectionDays = 182

const dateLayout = "2006-01-02"

type connectionStore interface {
	Create(ctx context.Context, conn *models.MentorshipConnection) error
	FindByID(ctx context.Context, id string) (*models.MentorshipConnection, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.MentorshipConnection, error)
	Update(ctx context.Context, id string, mutate func(*models.MentorshipConnection) error) (*models.MentorshipConnection, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ConnectionFilter) ([]models.MentorshipConnection, int, error)
}

type alumniDirectory interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Alumni, error)
	SearchIDs(ctx context.Context, term string) ([]string, error)
}

// ConnectionService manages the mentorship connection lifecycle.
type ConnectionService struct {
	repo      connectionStore
	requests  menteeRequestReader
	alumni    alumniDirectory
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConnectionService constructs a ConnectionService. cache, metrics and alumni may be nil;
// without an alumni directory names stay blank and searches match nothing.
func NewConnectionService(repo connectionStore, requests menteeRequestReader, alumni alumniDirectory, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ConnectionService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionService{
		repo:      repo,
		requests:  requests,
		alumni:    alumni,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Create opens a pending connection, reserving one slot of the mentor's capacity.
// When RequestID is set the request moves to matched in the same step. A
// repeated idempotency key returns the connection created first.
func (s *ConnectionService) Create(ctx context.Context, req dto.CreateConnectionRequest) (*models.ConnectionView, error) {
	req.MentorID = strings.TrimSpace(req.MentorID)
	req.MenteeID = strings.TrimSpace(req.MenteeID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid connection payload")
	}
	if req.MentorID == req.MenteeID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mentor and mentee must be different alumni")
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid startDate")
	}
	end := start.AddDate(0, 0, DefaultConnectionDays)
	if req.EndDate != nil && strings.TrimSpace(*req.EndDate) != "" {
		if end, err = parseDate(*req.EndDate); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid endDate")
		}
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}

	if req.IdempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			return s.view(ctx, existing)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check idempotency key")
		}
	}

	conn := &models.MentorshipConnection{
		MentorID:  req.MentorID,
		MenteeID:  req.MenteeID,
		Status:    models.ConnectionPending,
		StartDate: start,
		EndDate:   end,
		Notes:     strings.TrimSpace(req.Notes),
	}
	if req.RequestID != nil && strings.TrimSpace(*req.RequestID) != "" {
		requestID := strings.TrimSpace(*req.RequestID)
		request, err := s.requests.FindByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "mentee request not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentee request")
		}
		if request.AlumniID != conn.MenteeID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "mentee request belongs to another alumni")
		}
		conn.RequestID = &requestID
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		conn.IdempotencyKey = &key
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Create(ctx, conn); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateIdempotencyKey):
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if findErr != nil {
				return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load connection")
			}
			return s.view(ctx, existing)
		case errors.Is(err, repository.ErrMentorNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentor profile not found")
		case errors.Is(err, repository.ErrRequestNotFound):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentee request not found")
		case errors.Is(err, repository.ErrCapacityExceeded):
			return nil, appErrors.ErrCapacityExceeded
		case errors.Is(err, repository.ErrRequestNotPending):
			return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "mentee request is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create connection")
	}

	s.metrics.RecordConnectionCreated()
	s.cache.InvalidateSuggestions(ctx)
	applog.WithContext(ctx, s.logger).Info("mentorship connection created",
		zap.String("connection_id", conn.ID),
		zap.String("mentor_id", conn.MentorID),
		zap.String("mentee_id", conn.MenteeID),
	)
	return s.view(ctx, conn)
}

// Update applies a partial change. Status moves follow the connection state
// machine; completed and cancelled connections reject every change.
func (s *ConnectionService) Update(ctx context.Context, id string, req dto.UpdateConnectionRequest) (*models.ConnectionView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid connection payload")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", *req.Status))
	}
	var endDate *time.Time
	if req.EndDate != nil {
		parsed, err := parseDate(*req.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid endDate")
		}
		endDate = &parsed
	}

	var from models.ConnectionStatus
	ctx = context.WithoutCancel(ctx)
	updated, err := s.repo.Update(ctx, id, func(c *models.MentorshipConnection) error {
		from = c.Status
		if req.ExpectedUpdatedAt != nil && !c.UpdatedAt.Equal(*req.ExpectedUpdatedAt) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "connection was modified by another request")
		}
		if c.Status.IsTerminal() {
			return appErrors.Clone(appErrors.ErrInvalidStateTransition, fmt.Sprintf("connection is %s and can no longer change", c.Status))
		}
		if req.Status != nil && *req.Status != c.Status {
			if !c.Status.CanTransitionTo(*req.Status) {
				return appErrors.Clone(appErrors.ErrInvalidStateTransition, fmt.Sprintf("cannot transition from %s to %s", c.Status, *req.Status))
			}
			c.Status = *req.Status
		}
		if req.Notes != nil {
			c.Notes = strings.TrimSpace(*req.Notes)
		}
		if endDate != nil {
			if endDate.Before(c.StartDate) {
				return appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
			}
			c.EndDate = *endDate
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "connection not found")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update connection")
	}

	if updated.Status != from {
		s.metrics.RecordTransition(from, updated.Status)
		if updated.Status.IsTerminal() {
			s.cache.InvalidateSuggestions(ctx)
		}
		applog.WithContext(ctx, s.logger).Info("mentorship connection transitioned",
			zap.String("connection_id", updated.ID),
			zap.String("from", string(from)),
			zap.String("to", string(updated.Status)),
		)
	}
	return s.view(ctx, updated)
}

// Delete removes a connection.
func (s *ConnectionService) Delete(ctx context.Context, id string) error {
	ctx = context.WithoutCancel(ctx)
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "connection not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete connection")
	}
	s.cache.InvalidateSuggestions(ctx)
	applog.WithContext(ctx, s.logger).Info("mentorship connection deleted", zap.String("connection_id", id))
	return nil
}

// Get returns a single connection with participant names.
func (s *ConnectionService) Get(ctx context.Context, id string) (*models.ConnectionView, error) {
	conn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "connection not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load connection")
	}
	return s.view(ctx, conn)
}

// List returns a page of connections. Search matches participant display names.
// Pages past the end are empty rather than an error.
func (s *ConnectionService) List(ctx context.Context, query dto.ConnectionQuery) ([]models.ConnectionView, *models.Pagination, error) {
	if query.Status != "" && !query.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", query.Status))
	}
	page, size := normalizePagination(query.Page, query.PageSize)
	filter := models.ConnectionFilter{
		Status:    query.Status,
		MentorID:  query.MentorID,
		MenteeID:  query.MenteeID,
		Page:      page,
		PageSize:  size,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if term := strings.TrimSpace(query.Search); term != "" {
		filter.ParticipantIDs = []string{}
		if s.alumni != nil {
			ids, err := s.alumni.SearchIDs(ctx, term)
			if err != nil {
				return nil, nil, listError(err, "failed to search alumni")
			}
			if ids != nil {
				filter.ParticipantIDs = ids
			}
		}
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, listError(err, "failed to list connections")
	}
	views, err := s.views(ctx, items)
	if err != nil {
		return nil, nil, listError(err, "failed to resolve alumni names")
	}
	return views, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func listError(err error, message string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *ConnectionService) view(ctx context.Context, conn *models.MentorshipConnection) (*models.ConnectionView, error) {
	views, err := s.views(ctx, []models.MentorshipConnection{*conn})
	if err != nil {
		s.logger.Warn("alumni lookup failed", zap.String("connection_id", conn.ID), zap.Error(err))
		return &models.ConnectionView{MentorshipConnection: *conn}, nil
	}
	return &views[0], nil
}

func (s *ConnectionService) views(ctx context.Context, conns []models.MentorshipConnection) ([]models.ConnectionView, error) {
	views := make([]models.ConnectionView, len(conns))
	if len(conns) == 0 {
		return views, nil
	}
	seen := make(map[string]struct{}, len(conns)*2)
	ids := make([]string, 0, len(conns)*2)
	for _, c := range conns {
		for _, id := range []string{c.MentorID, c.MenteeID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	names := map[string]models.Alumni{}
	if s.alumni != nil {
		found, err := s.alumni.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		names = found
	}
	for i, c := range conns {
		views[i] = models.ConnectionView{
			MentorshipConnection: c,
			MentorName:           names[c.MentorID].FullName,
			MenteeName:           names[c.MenteeID].FullName,
		}
	}
	return views, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func normalizePagination(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	if maxPage := math.MaxInt / size; page > maxPage {
		page = maxPage
	}
	return page, size
}
