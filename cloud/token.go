package cloud

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenExpiry returns the expiry of a bearer token. The token is not
// verified. The second return value is false for tokens that are not JWTs or
// carry no exp claim; such tokens can only be checked by using them.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), true
	case json.Number:
		v, err := exp.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(v, 0), true
	}
	return time.Time{}, false
}

// TokenExpired reports whether token has expired at now. Tokens without a
// known expiry are never considered expired.
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	return ok && !now.Before(exp)
}
