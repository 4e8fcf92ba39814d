package dto

import (
	"time"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
)

// CreateConnectionRequest captures POST /mentorship payload. Dates accept
// YYYY-MM-DD or RFC3339.
type CreateConnectionRequest struct {
	MentorID       string  `json:"mentorId" validate:"required"`
	MenteeID       string  `json:"menteeId" validate:"required"`
	StartDate      string  `json:"startDate" validate:"required"`
	EndDate        *string `json:"endDate,omitempty"`
	Notes          string  `json:"notes" validate:"max=2000"`
	RequestID      *string `json:"requestId,omitempty"`
	IdempotencyKey string  `json:"-"`
}

// UpdateConnectionRequest captures PUT /mentorship/:id payload. Omitted fields are left unchanged.
type UpdateConnectionRequest struct {
	Status            *models.ConnectionStatus `json:"status,omitempty"`
	Notes             *string                  `json:"notes,omitempty" validate:"omitempty,max=2000"`
	EndDate           *string                  `json:"endDate,omitempty"`
	ExpectedUpdatedAt *time.Time               `json:"expectedUpdatedAt,omitempty"`
}

// ConnectionQuery holds GET /mentorship filters.
type ConnectionQuery struct {
	Status    models.ConnectionStatus
	MentorID  string
	MenteeID  string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// CreateMenteeRequest captures POST /mentorship/requests payload.
type CreateMenteeRequest struct {
	AlumniID                  string   `json:"alumniId" validate:"required"`
	RequestedSpecializations  []string `json:"requestedSpecializations" validate:"required,min=1,dive,required"`
	CareerGoals               string   `json:"careerGoals" validate:"max=2000"`
	CurrentSituation          string   `json:"currentSituation" validate:"max=2000"`
	PreferredMentorIndustries []string `json:"preferredMentorIndustries" validate:"omitempty,dive,required"`
	TimeCommitment            string   `json:"timeCommitment" validate:"max=200"`
}

// UpsertMentorRequest captures PUT /mentors/:id payload.
type UpsertMentorRequest struct {
	Specializations   []string                  `json:"specializations" validate:"required,min=1,dive,required"`
	Industries        []string                  `json:"industries" validate:"omitempty,dive,required"`
	YearsOfExperience int                       `json:"yearsOfExperience" validate:"gte=0"`
	MaxMentees        int                       `json:"maxMentees" validate:"gte=0"`
	Availability      models.MentorAvailability `json:"availability" validate:"required,oneof=Available Limited Unavailable"`
	MentorshipType    models.MentorshipType     `json:"mentorshipType" validate:"required,oneof=free paid both"`
	IsActive          *bool                     `json:"isActive,omitempty"`
}

// ExportRequest captures POST /exports payload.
type ExportRequest struct {
	Format   models.ExportFormat     `json:"format" validate:"required,oneof=csv pdf"`
	Status   models.ConnectionStatus `json:"status,omitempty"`
	MentorID string                  `json:"mentorId,omitempty"`
	MenteeID string                  `json:"menteeId,omitempty"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ExportStatus `json:"status"`
}
