package models

import (
	"time"

	"github.com/lib/pq"
)

// MentorAvailability is a mentor's self-reported capacity tier.
type MentorAvailability string

const (
	AvailabilityAvailable   MentorAvailability = "Available"
	AvailabilityLimited     MentorAvailability = "Limited"
	AvailabilityUnavailable MentorAvailability = "Unavailable"
)

// Valid reports whether the availability is a known tier.
func (a MentorAvailability) Valid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityLimited, AvailabilityUnavailable:
		return true
	}
	return false
}

// MentorshipType describes how a mentor charges for sessions.
type MentorshipType string

const (
	MentorshipTypeFree MentorshipType = "free"
	MentorshipTypePaid MentorshipType = "paid"
	MentorshipTypeBoth MentorshipType = "both"
)

// Valid reports whether the type is known.
func (t MentorshipType) Valid() bool {
	switch t {
	case MentorshipTypeFree, MentorshipTypePaid, MentorshipTypeBoth:
		return true
	}
	return false
}

// MentorProfile holds the mentoring offer of an alumni.
type MentorProfile struct {
	AlumniID          string             `db:"alumni_id" json:"alumniId"`
	Specializations   pq.StringArray     `db:"specializations" json:"specializations"`
	Industries        pq.StringArray     `db:"industries" json:"industries"`
	YearsOfExperience int                `db:"years_of_experience" json:"yearsOfExperience"`
	MaxMentees        int                `db:"max_mentees" json:"maxMentees"`
	CurrentMentees    int                `db:"current_mentees" json:"currentMentees"`
	Availability      MentorAvailability `db:"availability" json:"availability"`
	MentorshipType    MentorshipType     `db:"mentorship_type" json:"mentorshipType"`
	IsActive          bool               `db:"is_active" json:"isActive"`
	CreatedAt         time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updatedAt"`
}

// HasCapacity reports whether the mentor can take another mentee.
func (m MentorProfile) HasCapacity() bool {
	return m.CurrentMentees < m.MaxMentees
}

// MentorFilter constrains mentor directory listings.
type MentorFilter struct {
	ActiveOnly   bool
	Availability MentorAvailability
	Page         int
	PageSize     int
}

// MenteeRequestStatus tracks a mentee request through matching.
type MenteeRequestStatus string

const (
	MenteeRequestPending  MenteeRequestStatus = "pending"
	MenteeRequestMatched  MenteeRequestStatus = "matched"
	MenteeRequestRejected MenteeRequestStatus = "rejected"
)

// Valid reports whether the status is known.
func (s MenteeRequestStatus) Valid() bool {
	switch s {
	case MenteeRequestPending, MenteeRequestMatched, MenteeRequestRejected:
		return true
	}
	return false
}

// MenteeRequest is an alumni's ask for a mentor.
type MenteeRequest struct {
	ID                        string              `db:"id" json:"id"`
	AlumniID                  string              `db:"alumni_id" json:"alumniId"`
	RequestedSpecializations  pq.StringArray      `db:"requested_specializations" json:"requestedSpecializations"`
	CareerGoals               string              `db:"career_goals" json:"careerGoals"`
	CurrentSituation          string              `db:"current_situation" json:"currentSituation"`
	PreferredMentorIndustries pq.StringArray      `db:"preferred_mentor_industries" json:"preferredMentorIndustries"`
	TimeCommitment            string              `db:"time_commitment" json:"timeCommitment"`
	Status                    MenteeRequestStatus `db:"status" json:"status"`
	CreatedAt                 time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt                 time.Time           `db:"updated_at" json:"updatedAt"`
}

// MenteeRequestFilter constrains request listings.
type MenteeRequestFilter struct {
	Status   MenteeRequestStatus
	AlumniID string
	Page     int
	PageSize int
}

// ConnectionStatus is the lifecycle state of a mentorship connection.
type ConnectionStatus string

const (
	ConnectionPending   ConnectionStatus = "pending"
	ConnectionActive    ConnectionStatus = "active"
	ConnectionPaused    ConnectionStatus = "paused"
	ConnectionCompleted ConnectionStatus = "completed"
	ConnectionCancelled ConnectionStatus = "cancelled"
)

var connectionTransitions = map[ConnectionStatus][]ConnectionStatus{
	ConnectionPending: {ConnectionActive, ConnectionCancelled},
	ConnectionActive:  {ConnectionPaused, ConnectionCompleted, ConnectionCancelled},
	ConnectionPaused:  {ConnectionActive, ConnectionCancelled},
}

// Valid reports whether the status is known.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionPending, ConnectionActive, ConnectionPaused, ConnectionCompleted, ConnectionCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s ConnectionStatus) IsTerminal() bool {
	return s == ConnectionCompleted || s == ConnectionCancelled
}

// CanTransitionTo reports whether moving to next is allowed.
func (s ConnectionStatus) CanTransitionTo(next ConnectionStatus) bool {
	for _, allowed := range connectionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MentorshipConnection is an accepted mentor-mentee pairing.
type MentorshipConnection struct {
	ID             string           `db:"id" json:"id"`
	MentorID       string           `db:"mentor_id" json:"mentorId"`
	MenteeID       string           `db:"mentee_id" json:"menteeId"`
	RequestID      *string          `db:"request_id" json:"requestId,omitempty"`
	Status         ConnectionStatus `db:"status" json:"status"`
	StartDate      time.Time        `db:"start_date" json:"startDate"`
	EndDate        time.Time        `db:"end_date" json:"endDate"`
	Notes          string           `db:"notes" json:"notes"`
	IdempotencyKey *string          `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updatedAt"`
}

// ConnectionView decorates a connection with alumni display names.
type ConnectionView struct {
	MentorshipConnection
	MentorName string `json:"mentorName,omitempty"`
	MenteeName string `json:"menteeName,omitempty"`
}

// ConnectionFilter constrains connection listings. ParticipantIDs, when non-nil,
// keeps connections whose mentor or mentee is in the set.
type ConnectionFilter struct {
	Status         ConnectionStatus
	MentorID       string
	MenteeID       string
	ParticipantIDs []string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// MentorMatch is one ranked suggestion for a mentee request.
type MentorMatch struct {
	MentorID     string         `json:"mentorId"`
	Score        int            `json:"score"`
	MatchReasons []string       `json:"matchReasons"`
	Mentor       *MentorProfile `json:"mentor,omitempty"`
}
