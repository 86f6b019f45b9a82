package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdGenMCM/Updated-AdGen/internal/domain/models"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	token, err := svc.GenerateToken(42, "user@example.com", models.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", time.Hour).GenerateToken(1, "a@example.com", models.RoleUser)
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", time.Hour).ValidateToken(token)
	require.Error(t, err)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret", -time.Minute)

	token, err := svc.GenerateToken(1, "a@example.com", models.RoleUser)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestJWTRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
}
