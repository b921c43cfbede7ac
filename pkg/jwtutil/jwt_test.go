package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaasstop-backend/pkg/config"
)

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{
		SigningKey:     "unit-test-key",
		ExpirationTime: time.Hour,
	}
}

func TestJWTUtil_RoundTrip(t *testing.T) {
	util := NewJWTUtil(testConfig())

	token, err := util.GenerateToken("U1", "jan@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "U1", claims.UserID())
	assert.Equal(t, "jan@x.com", claims.Email)
}

func TestJWTUtil_RejectsWrongKey(t *testing.T) {
	issuer := NewJWTUtil(&config.JWTConfig{SigningKey: "other-key", ExpirationTime: time.Hour})
	verifier := NewJWTUtil(testConfig())

	token, err := issuer.GenerateToken("U1", "jan@x.com")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTUtil_RejectsExpiredToken(t *testing.T) {
	util := NewJWTUtil(&config.JWTConfig{SigningKey: "unit-test-key", ExpirationTime: -time.Hour})

	token, err := util.GenerateToken("U1", "jan@x.com")
	require.NoError(t, err)

	_, err = util.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTUtil_RejectsEmptySubject(t *testing.T) {
	util := NewJWTUtil(testConfig())

	token, err := util.GenerateToken("", "jan@x.com")
	require.NoError(t, err)

	_, err = util.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTUtil_RejectsGarbage(t *testing.T) {
	util := NewJWTUtil(testConfig())
	_, err := util.ValidateToken("definitely.not.a.token")
	assert.Error(t, err)
}
