package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken(testSecret, 42, "admin@example.com", "admin", true, false, 30)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)

	c, err := VerifyAccessToken(testSecret, at.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.UserID)
	assert.Equal(t, "admin@example.com", c.Username)
	assert.Equal(t, "admin", c.Role)
	assert.True(t, c.HasAccessV1)
	assert.False(t, c.HasAccessV2)
	assert.WithinDuration(t, at.Exp, c.ExpiresAt, time.Second)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken(testSecret, 1, "u@example.com", "user", false, false, 30)
	require.NoError(t, err)

	_, err = VerifyAccessToken("some-other-secret", at.Token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	// TTL of -1 minute puts the expiry in the past.
	at, err := NewAccessToken(testSecret, 1, "u@example.com", "user", true, true, -1)
	require.NoError(t, err)

	_, err = VerifyAccessToken(testSecret, at.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyAccessTokenGarbage(t *testing.T) {
	_, err := VerifyAccessToken(testSecret, "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyAccessTokenMissingClaims(t *testing.T) {
	cases := map[string]jwt.MapClaims{
		"no subject": {
			"username": "u@example.com",
			"role":     "user",
			"exp":      time.Now().Add(time.Hour).Unix(),
		},
		"no username": {
			"sub":  1,
			"role": "user",
			"exp":  time.Now().Add(time.Hour).Unix(),
		},
		"no role": {
			"sub":      1,
			"username": "u@example.com",
			"exp":      time.Now().Add(time.Hour).Unix(),
		},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
			require.NoError(t, err)

			_, err = VerifyAccessToken(testSecret, raw)
			assert.ErrorIs(t, err, ErrMalformedClaims)
		})
	}
}

func TestVerifyAccessTokenFlagsDefaultFalse(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":      7,
		"username": "legacy@example.com",
		"role":     "user",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	c, err := VerifyAccessToken(testSecret, raw)
	require.NoError(t, err)
	assert.False(t, c.HasAccessV1)
	assert.False(t, c.HasAccessV2)
}
