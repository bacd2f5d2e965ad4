package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenServiceConfig{Secret: "secret", Issuer: "timetable"})

	token, err := svc.Sign(models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin, CollegeID: "college-1"}, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "college-1", claims.CollegeID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "timetable", claims.Issuer)
}

func TestTokenServiceRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService(TokenServiceConfig{Secret: "other"})
	token, err := issuer.Sign(models.JWTClaims{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService(TokenServiceConfig{Secret: "secret"}).ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := NewTokenService(TokenServiceConfig{Secret: "secret"})
	claims := models.JWTClaims{UserID: "user-1"}
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token, err := svc.Sign(claims, 0)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenServiceRejectsForeignIssuer(t *testing.T) {
	token, err := NewTokenService(TokenServiceConfig{Secret: "secret", Issuer: "elsewhere"}).
		Sign(models.JWTClaims{UserID: "user-1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService(TokenServiceConfig{Secret: "secret", Issuer: "timetable"}).ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenServiceRejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, models.JWTClaims{UserID: "user-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenService(TokenServiceConfig{Secret: "secret"}).ValidateToken(token)
	assert.Error(t, err)
}
