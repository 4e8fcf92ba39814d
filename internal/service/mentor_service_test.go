package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-mentorship-api/internal/dto"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	"github.com/noah-isme/alumni-mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
)

func validMentorPayload() dto.UpsertMentorRequest {
	return dto.UpsertMentorRequest{
		Specializations:   []string{"Cloud Architecture"},
		Industries:        []string{"Technology"},
		YearsOfExperience: 8,
		MaxMentees:        2,
		Availability:      models.AvailabilityAvailable,
		MentorshipType:    models.MentorshipTypeFree,
	}
}

func TestMentorUpsertAndGet(t *testing.T) {
	store := repository.NewMemoryStore()
	cache := newMemoryCache()
	svc := NewMentorService(store.Mentors(), NewCacheService(cache, nil, 0, nil, true), nil, nil)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, suggestionKey("req-1"), []models.MentorMatch{}, 0))

	saved, err := svc.Upsert(ctx, "1", validMentorPayload())
	require.NoError(t, err)
	assert.Equal(t, "1", saved.AlumniID)
	assert.True(t, saved.IsActive)
	assert.Equal(t, 2, saved.MaxMentees)
	assert.False(t, cache.has(suggestionKey("req-1")), "profile changes invalidate suggestions")

	inactive := false
	payload := validMentorPayload()
	payload.IsActive = &inactive
	payload.MaxMentees = 4
	saved, err = svc.Upsert(ctx, "1", payload)
	require.NoError(t, err)
	assert.False(t, saved.IsActive)
	assert.Equal(t, 4, saved.MaxMentees)

	_, err = svc.Get(ctx, "2")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMentorUpsertValidation(t *testing.T) {
	svc := NewMentorService(repository.NewMemoryStore().Mentors(), nil, nil, nil)

	bad := validMentorPayload()
	bad.Availability = "Sometimes"
	_, err := svc.Upsert(context.Background(), "1", bad)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	bad = validMentorPayload()
	bad.MaxMentees = -1
	_, err = svc.Upsert(context.Background(), "1", bad)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Upsert(context.Background(), " ", validMentorPayload())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMentorListAndDeactivate(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewMentorService(store.Mentors(), nil, nil, nil)
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		_, err := svc.Upsert(ctx, id, validMentorPayload())
		require.NoError(t, err)
	}

	require.NoError(t, svc.Deactivate(ctx, "2"))
	err := svc.Deactivate(ctx, "9")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	items, pagination, err := svc.List(ctx, models.MentorFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, pagination.TotalCount)

	_, _, err = svc.List(ctx, models.MentorFilter{Availability: "Busy"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
