package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-mentorship-api/internal/dto"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
	"github.com/noah-isme/alumni-mentorship-api/pkg/response"
)

type mentorService interface {
	List(ctx context.Context, filter models.MentorFilter) ([]models.MentorProfile, *models.Pagination, error)
	Get(ctx context.Context, alumniID string) (*models.MentorProfile, error)
	Upsert(ctx context.Context, alumniID string, req dto.UpsertMentorRequest) (*models.MentorProfile, error)
	Deactivate(ctx context.Context, alumniID string) error
}

// MentorHandler exposes the mentor directory.
type MentorHandler struct {
	service mentorService
}

// NewMentorHandler builds a new handler.
func NewMentorHandler(service mentorService) *MentorHandler {
	return &MentorHandler{service: service}
}

// List godoc
// @Summary List mentor profiles
// @Tags Mentors
// @Produce json
// @Param active query bool false "Only active mentors"
// @Param availability query string false "Available|Limited|Unavailable"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /mentors [get]
func (h *MentorHandler) List(c *gin.Context) {
	page, size := parsePage(c)
	filter := models.MentorFilter{
		ActiveOnly:   c.Query("active") == "true",
		Availability: models.MentorAvailability(c.Query("availability")),
		Page:         page,
		PageSize:     size,
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a mentor profile
// @Tags Mentors
// @Produce json
// @Param id path string true "Alumni ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentors/{id} [get]
func (h *MentorHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Upsert godoc
// @Summary Create or replace a mentor profile
// @Tags Mentors
// @Accept json
// @Produce json
// @Param id path string true "Alumni ID"
// @Param payload body dto.UpsertMentorRequest true "Mentor payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /mentors/{id} [put]
func (h *MentorHandler) Upsert(c *gin.Context) {
	var req dto.UpsertMentorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	item, err := h.service.Upsert(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Deactivate godoc
// @Summary Deactivate a mentor profile
// @Tags Mentors
// @Produce json
// @Param id path string true "Alumni ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentors/{id} [delete]
func (h *MentorHandler) Deactivate(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"alumniId": id, "isActive": false}, nil)
}
