package service

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
)

func engineeringMentor(id string) models.MentorProfile {
	return models.MentorProfile{
		AlumniID:          id,
		Specializations:   []string{"Software Engineering"},
		Industries:        []string{"Technology"},
		Availability:      models.AvailabilityAvailable,
		YearsOfExperience: 6,
		IsActive:          true,
		MaxMentees:        3,
	}
}

func engineeringRequest() models.MenteeRequest {
	return models.MenteeRequest{
		ID:                        "req-1",
		AlumniID:                  "mentee-1",
		RequestedSpecializations:  []string{"Software Engineering", "Career Change"},
		PreferredMentorIndustries: []string{"Technology"},
		Status:                    models.MenteeRequestPending,
	}
}

func TestSuggestMatchesFullScore(t *testing.T) {
	matches := SuggestMatches(engineeringRequest(), []models.MentorProfile{engineeringMentor("m1")})

	require.Len(t, matches, 1)
	assert.Equal(t, "m1", matches[0].MentorID)
	assert.Equal(t, 100, matches[0].Score)
	assert.Equal(t, []string{"Specialization match", "Industry experience", "Available for mentoring"}, matches[0].MatchReasons)
	require.NotNil(t, matches[0].Mentor)
	assert.Equal(t, "m1", matches[0].Mentor.AlumniID)
}

func TestSuggestMatchesExcludesFullMentor(t *testing.T) {
	full := engineeringMentor("m1")
	full.CurrentMentees = 3

	matches := SuggestMatches(engineeringRequest(), []models.MentorProfile{full})
	assert.Empty(t, matches)
}

func TestSuggestMatchesScoring(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.MentorProfile)
		score   int
		reasons []string
	}{
		{
			name: "limited availability",
			mutate: func(m *models.MentorProfile) {
				m.Availability = models.AvailabilityLimited
			},
			score:   90,
			reasons: []string{"Specialization match", "Industry experience", "Limited availability"},
		},
		{
			name: "unavailable junior",
			mutate: func(m *models.MentorProfile) {
				m.Availability = models.AvailabilityUnavailable
				m.YearsOfExperience = 2
			},
			score:   70,
			reasons: []string{"Specialization match", "Industry experience"},
		},
		{
			name: "four years misses experience bonus",
			mutate: func(m *models.MentorProfile) {
				m.YearsOfExperience = 4
			},
			score:   90,
			reasons: []string{"Specialization match", "Industry experience", "Available for mentoring"},
		},
		{
			name: "five years earns experience bonus",
			mutate: func(m *models.MentorProfile) {
				m.YearsOfExperience = 5
			},
			score:   100,
			reasons: []string{"Specialization match", "Industry experience", "Available for mentoring"},
		},
		{
			name: "six years earns experience bonus",
			mutate: func(m *models.MentorProfile) {
				m.YearsOfExperience = 6
			},
			score:   100,
			reasons: []string{"Specialization match", "Industry experience", "Available for mentoring"},
		},
		{
			name: "specialization substring case-insensitive",
			mutate: func(m *models.MentorProfile) {
				m.Specializations = []string{"software"}
				m.Industries = nil
			},
			score:   70,
			reasons: []string{"Specialization match", "Available for mentoring"},
		},
		{
			name: "industry is case-sensitive",
			mutate: func(m *models.MentorProfile) {
				m.Industries = []string{"technology"}
			},
			score:   70,
			reasons: []string{"Specialization match", "Available for mentoring"},
		},
		{
			name: "blank specialization never matches",
			mutate: func(m *models.MentorProfile) {
				m.Specializations = []string{""}
				m.Industries = nil
				m.YearsOfExperience = 0
			},
			score:   20,
			reasons: []string{"Available for mentoring"},
		},
		{
			name: "no signals",
			mutate: func(m *models.MentorProfile) {
				m.Specializations = []string{"Accounting"}
				m.Industries = []string{"Finance"}
				m.Availability = models.AvailabilityUnavailable
				m.YearsOfExperience = 1
			},
			score:   0,
			reasons: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mentor := engineeringMentor("m1")
			tc.mutate(&mentor)
			matches := SuggestMatches(engineeringRequest(), []models.MentorProfile{mentor})
			require.Len(t, matches, 1)
			assert.Equal(t, tc.score, matches[0].Score)
			assert.Equal(t, tc.reasons, matches[0].MatchReasons)
		})
	}
}

func TestSuggestMatchesEmptyRequestLists(t *testing.T) {
	req := engineeringRequest()
	req.RequestedSpecializations = nil
	req.PreferredMentorIndustries = nil

	matches := SuggestMatches(req, []models.MentorProfile{engineeringMentor("m1")})
	require.Len(t, matches, 1)
	assert.Equal(t, 30, matches[0].Score)
	assert.Equal(t, []string{"Available for mentoring"}, matches[0].MatchReasons)
}

func TestSuggestMatchesSkipsRequester(t *testing.T) {
	self := engineeringMentor("mentee-1")
	other := engineeringMentor("m2")

	matches := SuggestMatches(engineeringRequest(), []models.MentorProfile{self, other})
	require.Len(t, matches, 1)
	assert.Equal(t, "m2", matches[0].MentorID)
}

func TestSuggestMatchesStableTiesAndTopThree(t *testing.T) {
	weak := engineeringMentor("weak")
	weak.Specializations = []string{"Accounting"}

	mentors := []models.MentorProfile{
		weak,
		engineeringMentor("a"),
		engineeringMentor("b"),
		engineeringMentor("c"),
		engineeringMentor("d"),
	}
	matches := SuggestMatches(engineeringRequest(), mentors)

	require.Len(t, matches, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{matches[0].MentorID, matches[1].MentorID, matches[2].MentorID})
}

func TestSuggestMatchesProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	specs := []string{"Software Engineering", "Data Science", "Marketing", "finance", ""}
	industries := []string{"Technology", "Finance", "Retail"}
	availability := []models.MentorAvailability{models.AvailabilityAvailable, models.AvailabilityLimited, models.AvailabilityUnavailable}

	for round := 0; round < 200; round++ {
		mentors := make([]models.MentorProfile, rng.Intn(8))
		eligible := 0
		for i := range mentors {
			maxMentees := rng.Intn(4)
			mentors[i] = models.MentorProfile{
				AlumniID:          fmt.Sprintf("m%d", i),
				Specializations:   []string{specs[rng.Intn(len(specs))]},
				Industries:        []string{industries[rng.Intn(len(industries))]},
				YearsOfExperience: rng.Intn(12),
				MaxMentees:        maxMentees,
				CurrentMentees:    rng.Intn(maxMentees + 1),
				Availability:      availability[rng.Intn(len(availability))],
				IsActive:          rng.Intn(4) > 0,
			}
			if mentors[i].IsActive && mentors[i].HasCapacity() {
				eligible++
			}
		}
		req := models.MenteeRequest{
			AlumniID:                  "mentee",
			RequestedSpecializations:  []string{specs[rng.Intn(len(specs))]},
			PreferredMentorIndustries: []string{industries[rng.Intn(len(industries))]},
		}

		matches := SuggestMatches(req, mentors)

		want := eligible
		if want > 3 {
			want = 3
		}
		require.Len(t, matches, want)

		position := map[string]int{}
		for i, m := range mentors {
			position[m.AlumniID] = i
		}
		for i, match := range matches {
			assert.True(t, match.Mentor.IsActive)
			assert.Less(t, match.Mentor.CurrentMentees, match.Mentor.MaxMentees)
			assert.GreaterOrEqual(t, match.Score, 0)
			assert.LessOrEqual(t, match.Score, 100)
			if i > 0 {
				prev := matches[i-1]
				assert.GreaterOrEqual(t, prev.Score, match.Score)
				if prev.Score == match.Score {
					assert.Less(t, position[prev.MentorID], position[match.MentorID])
				}
			}
		}
	}
}

type requestReaderStub struct {
	items map[string]models.MenteeRequest
}

func (s requestReaderStub) FindByID(ctx context.Context, id string) (*models.MenteeRequest, error) {
	req, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &req, nil
}

type mentorListerStub struct {
	mentors []models.MentorProfile
	calls   int
}

func (s *mentorListerStub) ListAll(ctx context.Context) ([]models.MentorProfile, error) {
	s.calls++
	return s.mentors, nil
}

func TestMatchServiceSuggest(t *testing.T) {
	requests := requestReaderStub{items: map[string]models.MenteeRequest{"req-1": engineeringRequest()}}
	mentors := &mentorListerStub{mentors: []models.MentorProfile{engineeringMentor("m1")}}
	metrics := NewMetricsService()
	svc := NewMatchService(requests, mentors, nil, metrics, nil)

	matches, cacheHit, err := svc.Suggest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, matches, 1)
	assert.Equal(t, 100, matches[0].Score)
	assert.Equal(t, uint64(1), metrics.Snapshot().SuggestionsServed)

	_, _, err = svc.Suggest(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMatchServiceSuggestUsesCache(t *testing.T) {
	requests := requestReaderStub{items: map[string]models.MenteeRequest{"req-1": engineeringRequest()}}
	mentors := &mentorListerStub{mentors: []models.MentorProfile{engineeringMentor("m1")}}
	cache := NewCacheService(newMemoryCache(), nil, 0, nil, true)
	svc := NewMatchService(requests, mentors, cache, nil, nil)

	_, hit, err := svc.Suggest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.False(t, hit)

	matches, hit, err := svc.Suggest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, matches, 1)
	assert.Equal(t, "m1", matches[0].MentorID)
	assert.Equal(t, 1, mentors.calls)

	cache.InvalidateSuggestions(context.Background())
	_, hit, err = svc.Suggest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, mentors.calls)
}
