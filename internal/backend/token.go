package backend

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenUsable reports whether a stored bearer token should still be forwarded
// upstream. The claims are decoded without signature verification: the
// upstream remains the authority, this only avoids sending tokens that are
// visibly expired. A token without an expiry claim is treated as usable.
func TokenUsable(token string, now time.Time) bool {
	if token == "" {
		return false
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	if exp == nil {
		return true
	}
	return exp.After(now)
}
