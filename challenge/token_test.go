package challenge

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiryFromTokenReadsExpClaim(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)

	got, ok := ExpiryFromToken(token)
	require.True(t, ok)
	assert.True(t, exp.Equal(got), "want %v, got %v", exp, got)
}

func TestExpiryFromTokenWithoutExpClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
	}).SignedString([]byte("server-side-secret"))
	require.NoError(t, err)

	_, ok := ExpiryFromToken(token)
	assert.False(t, ok)
}

func TestExpiryFromOpaqueToken(t *testing.T) {
	for _, token := range []string{"", "not-a-jwt", "a.b", "%%%.%%%.%%%"} {
		_, ok := ExpiryFromToken(token)
		assert.False(t, ok, "token %q", token)
	}
}
