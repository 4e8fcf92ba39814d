package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-mentorship-api/internal/dto"
	"github.com/noah-isme/alumni-mentorship-api/internal/middleware"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
	"github.com/noah-isme/alumni-mentorship-api/pkg/response"
)

type menteeRequestService interface {
	Create(ctx context.Context, req dto.CreateMenteeRequest) (*models.MenteeRequest, error)
	Get(ctx context.Context, id string) (*models.MenteeRequest, error)
	List(ctx context.Context, filter models.MenteeRequestFilter) ([]models.MenteeRequest, *models.Pagination, error)
	Reject(ctx context.Context, id string) (*models.MenteeRequest, error)
}

type matchService interface {
	Suggest(ctx context.Context, requestID string) ([]models.MentorMatch, bool, error)
}

// MenteeRequestHandler exposes mentee request endpoints and mentor suggestions.
// Alumni callers only see and submit their own requests.
type MenteeRequestHandler struct {
	service menteeRequestService
	matches matchService
}

// NewMenteeRequestHandler builds a new handler.
func NewMenteeRequestHandler(service menteeRequestService, matches matchService) *MenteeRequestHandler {
	return &MenteeRequestHandler{service: service, matches: matches}
}

// Create godoc
// @Summary Submit a mentee request
// @Tags Mentee Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateMenteeRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /mentorship/requests [post]
func (h *MenteeRequestHandler) Create(c *gin.Context) {
	var req dto.CreateMenteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if !isAdmin(claims) {
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if req.AlumniID == "" {
			req.AlumniID = claims.UserID
		}
		if req.AlumniID != claims.UserID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "alumni may only request mentoring for themselves"))
			return
		}
	}
	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// List godoc
// @Summary List mentee requests
// @Tags Mentee Requests
// @Produce json
// @Param status query string false "pending|matched|rejected"
// @Param alumniId query string false "Requesting alumni ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /mentorship/requests [get]
func (h *MenteeRequestHandler) List(c *gin.Context) {
	page, size := parsePage(c)
	filter := models.MenteeRequestFilter{
		Status:   models.MenteeRequestStatus(c.Query("status")),
		AlumniID: c.Query("alumniId"),
		Page:     page,
		PageSize: size,
	}
	if claims := claimsFromContext(c); !isAdmin(claims) && claims != nil {
		filter.AlumniID = claims.UserID
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a mentee request
// @Tags Mentee Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentorship/requests/{id} [get]
func (h *MenteeRequestHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); !isAdmin(claims) && (claims == nil || claims.UserID != item.AlumniID) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Reject godoc
// @Summary Reject a pending mentee request
// @Tags Mentee Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mentorship/requests/{id}/reject [post]
func (h *MenteeRequestHandler) Reject(c *gin.Context) {
	item, err := h.service.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Suggestions godoc
// @Summary Ranked mentor suggestions for a request
// @Tags Mentee Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentorship/requests/{id}/suggestions [get]
func (h *MenteeRequestHandler) Suggestions(c *gin.Context) {
	start := time.Now()
	matches, cacheHit, err := h.matches.Suggest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, matches, nil, meta)
}
