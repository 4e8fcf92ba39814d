package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-mentorship-api/internal/dto"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
	"github.com/noah-isme/alumni-mentorship-api/pkg/response"
)

// IdempotencyHeader lets clients retry connection creation safely.
const IdempotencyHeader = "Idempotency-Key"

type connectionService interface {
	Create(ctx context.Context, req dto.CreateConnectionRequest) (*models.ConnectionView, error)
	Update(ctx context.Context, id string, req dto.UpdateConnectionRequest) (*models.ConnectionView, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.ConnectionView, error)
	List(ctx context.Context, query dto.ConnectionQuery) ([]models.ConnectionView, *models.Pagination, error)
}

// MentorshipHandler exposes mentorship connection endpoints.
type MentorshipHandler struct {
	service connectionService
}

// NewMentorshipHandler builds a new handler.
func NewMentorshipHandler(service connectionService) *MentorshipHandler {
	return &MentorshipHandler{service: service}
}

// List godoc
// @Summary List mentorship connections
// @Tags Mentorship
// @Produce json
// @Param status query string false "Connection status"
// @Param mentorId query string false "Mentor alumni ID"
// @Param menteeId query string false "Mentee alumni ID"
// @Param search query string false "Participant name search"
// @Param sortBy query string false "created_at|updated_at|start_date|end_date|status"
// @Param sortOrder query string false "asc|desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /mentorship [get]
func (h *MentorshipHandler) List(c *gin.Context) {
	page, size := parsePage(c)
	query := dto.ConnectionQuery{
		Status:    models.ConnectionStatus(c.Query("status")),
		MentorID:  c.Query("mentorId"),
		MenteeID:  c.Query("menteeId"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Page:      page,
		PageSize:  size,
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a mentorship connection
// @Tags Mentorship
// @Produce json
// @Param id path string true "Connection ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentorship/{id} [get]
func (h *MentorshipHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create a mentorship connection
// @Tags Mentorship
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Replay-safe creation key"
// @Param payload body dto.CreateConnectionRequest true "Connection payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mentorship [post]
func (h *MentorshipHandler) Create(c *gin.Context) {
	var req dto.CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update or transition a mentorship connection
// @Tags Mentorship
// @Accept json
// @Produce json
// @Param id path string true "Connection ID"
// @Param payload body dto.UpdateConnectionRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /mentorship/{id} [put]
func (h *MentorshipHandler) Update(c *gin.Context) {
	var req dto.UpdateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete a mentorship connection
// @Tags Mentorship
// @Produce json
// @Param id path string true "Connection ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentorship/{id} [delete]
func (h *MentorshipHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id, "deleted": true}, nil)
}
