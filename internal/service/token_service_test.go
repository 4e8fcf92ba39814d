package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "alumni-mentorship-api", Expiry: time.Hour})

	token, expiresAt, err := svc.Issue("alumni-7", models.RoleAlumni, "a7@example.edu", "Alumni Seven")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alumni-7", claims.UserID)
	assert.Equal(t, models.RoleAlumni, claims.Role)
	assert.Equal(t, "a7@example.edu", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "issuer-a", Expiry: time.Hour})

	otherSecret := NewTokenService(TokenConfig{Secret: "other", Issuer: "issuer-a", Expiry: time.Hour})
	forged, _, err := otherSecret.Issue("u1", models.RoleAdmin, "", "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	otherIssuer := NewTokenService(TokenConfig{Secret: "secret", Issuer: "issuer-b", Expiry: time.Hour})
	foreign, _, err := otherIssuer.Issue("u1", models.RoleAdmin, "", "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err)

	expired := NewTokenService(TokenConfig{Secret: "secret", Issuer: "issuer-a", Expiry: time.Hour})
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := expired.Issue("u1", models.RoleAdmin, "", "")
	require.NoError(t, err)
	_, err = svc.ValidateToken(stale)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)

	_, _, err = svc.Issue(" ", models.RoleAdmin, "", "")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
