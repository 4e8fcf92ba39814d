package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
)

// Score weights for mentor suggestions. They sum to 100.
const (
	scoreSpecialization    = 40
	scoreIndustry          = 30
	scoreAvailable         = 20
	scoreLimited           = 10
	scoreExperience        = 10
	experienceBonusYears   = 5
	maxSuggestions         = 3
	reasonSpecialization   = "Specialization match"
	reasonIndustry         = "Industry experience"
	reasonAvailable        = "Available for mentoring"
	reasonLimitedAvailable = "Limited availability"
)

// SuggestMatches ranks eligible mentors for a request and returns at most three.
// Mentors that are inactive, full, or the requester themself are never scored.
// Ties keep the order mentors were supplied in.
func SuggestMatches(request models.MenteeRequest, mentors []models.MentorProfile) []models.MentorMatch {
	matches := make([]models.MentorMatch, 0, len(mentors))
	for i := range mentors {
		mentor := mentors[i]
		if !mentor.IsActive || !mentor.HasCapacity() {
			continue
		}
		if request.AlumniID != "" && mentor.AlumniID == request.AlumniID {
			continue
		}
		score, reasons := scoreMentor(request, mentor)
		matches = append(matches, models.MentorMatch{
			MentorID:     mentor.AlumniID,
			Score:        score,
			MatchReasons: reasons,
			Mentor:       &mentor,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	return matches
}

func scoreMentor(request models.MenteeRequest, mentor models.MentorProfile) (int, []string) {
	score := 0
	reasons := make([]string, 0, 3)

	if specializationsOverlap(mentor.Specializations, request.RequestedSpecializations) {
		score += scoreSpecialization
		reasons = append(reasons, reasonSpecialization)
	}
	if industriesOverlap(mentor.Industries, request.PreferredMentorIndustries) {
		score += scoreIndustry
		reasons = append(reasons, reasonIndustry)
	}
	switch mentor.Availability {
	case models.AvailabilityAvailable:
		score += scoreAvailable
		reasons = append(reasons, reasonAvailable)
	case models.AvailabilityLimited:
		score += scoreLimited
		reasons = append(reasons, reasonLimitedAvailable)
	}
	if mentor.YearsOfExperience >= experienceBonusYears {
		score += scoreExperience
	}
	return score, reasons
}

// specializationsOverlap matches case-insensitively when either value contains
// the other. Blank entries never match.
func specializationsOverlap(offered, requested []string) bool {
	for _, o := range offered {
		lo := strings.ToLower(o)
		if lo == "" {
			continue
		}
		for _, r := range requested {
			lr := strings.ToLower(r)
			if lr == "" {
				continue
			}
			if strings.Contains(lo, lr) || strings.Contains(lr, lo) {
				return true
			}
		}
	}
	return false
}

// industriesOverlap requires an exact, case-sensitive match.
func industriesOverlap(offered, preferred []string) bool {
	for _, o := range offered {
		for _, p := range preferred {
			if o == p {
				return true
			}
		}
	}
	return false
}

type mentorLister interface {
	ListAll(ctx context.Context) ([]models.MentorProfile, error)
}

type menteeRequestReader interface {
	FindByID(ctx context.Context, id string) (*models.MenteeRequest, error)
}

// MatchService serves ranked suggestions for stored mentee requests.
type MatchService struct {
	requests menteeRequestReader
	mentors  mentorLister
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewMatchService constructs a MatchService. cache and metrics may be nil.
func NewMatchService(requests menteeRequestReader, mentors mentorLister, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *MatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchService{requests: requests, mentors: mentors, cache: cache, metrics: metrics, logger: logger}
}

// Suggest returns the top mentors for a request and whether they came from cache.
func (s *MatchService) Suggest(ctx context.Context, requestID string) ([]models.MentorMatch, bool, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "mentee request not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentee request")
	}

	if cached, hit := s.cache.Suggestions(ctx, request.ID); hit {
		s.metrics.ObserveMatches(cached)
		return cached, true, nil
	}

	mentors, err := s.mentors.ListAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentors")
	}

	matches := SuggestMatches(*request, mentors)
	s.cache.StoreSuggestions(ctx, request.ID, matches)
	s.metrics.ObserveMatches(matches)
	s.logger.Debug("mentor suggestions computed",
		zap.String("mentee_request_id", request.ID),
		zap.Int("candidates", len(mentors)),
		zap.Int("returned", len(matches)),
	)
	return matches, false, nil
}
