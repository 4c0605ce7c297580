package challenge

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryFromToken peeks at the exp claim of a JWT-shaped challenge token
// without verifying its signature. The client never validates tokens; this
// only recovers an expiry the server forgot to send alongside, so the
// mirror can TTL correctly. Returns ok=false for opaque or claimless
// tokens.
func ExpiryFromToken(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
