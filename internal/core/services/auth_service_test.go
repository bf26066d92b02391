package services_test

import (
	"testing"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/services"

	"github.com/stretchr/testify/assert"
)

func TestAuthService_RoundTrip(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Minute)

	token, err := auth.GenerateToken("user-1", "candidate@example.com", domain.RoleCandidate)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := auth.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, domain.UserID("user-1"), claims.UserID)
	assert.Equal(t, "candidate@example.com", claims.Email)
	assert.Equal(t, domain.RoleCandidate, claims.Role)

	identity := claims.Identity()
	assert.Equal(t, domain.UserID("user-1"), identity.UserID)
	assert.Equal(t, domain.RoleCandidate, identity.Role)
}

func TestAuthService_ExpiredToken(t *testing.T) {
	auth := services.NewAuthService("test-secret", -time.Minute)

	token, err := auth.GenerateToken("user-1", "a@b.com", domain.RoleInterviewer)
	assert.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, services.ErrExpiredToken)
}

func TestAuthService_WrongSecret(t *testing.T) {
	auth := services.NewAuthService("secret-a", time.Minute)
	other := services.NewAuthService("secret-b", time.Minute)

	token, err := auth.GenerateToken("user-1", "a@b.com", domain.RoleHR)
	assert.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestAuthService_GarbageToken(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Minute)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := auth.ValidateToken(tok)
		assert.ErrorIs(t, err, services.ErrInvalidToken)
	}
}
