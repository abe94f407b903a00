package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("65f1a2b3c4d5e6f708192a3b", true, "s3cret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "65f1a2b3c4d5e6f708192a3b", claims.UserID)
	assert.True(t, claims.IsAdmin)
}

func TestValidateJWT_Rejects(t *testing.T) {
	token, err := GenerateJWT("u1", false, "s3cret", time.Hour)
	require.NoError(t, err)
	_, err = ValidateJWT(token, "other")
	assert.Error(t, err)

	expired, err := GenerateJWT("u1", false, "s3cret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(expired, "s3cret")
	assert.Error(t, err)

	_, err = ValidateJWT("not.a.token", "s3cret")
	assert.Error(t, err)
}

func TestValidateJWT_FallsBackToSubject(t *testing.T) {
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "65f1a2b3c4d5e6f708192a3b",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := raw.SignedString([]byte("k"))
	require.NoError(t, err)

	claims, err := ValidateJWT(signed, "k")
	require.NoError(t, err)
	assert.Equal(t, "65f1a2b3c4d5e6f708192a3b", claims.UserID)
	assert.False(t, claims.IsAdmin)
}
