package middleware // middleware contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strconv"  // numeric claim parsing
	"strings"  // prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT parsing and validation
	"github.com/labstack/echo/v4"  // Echo middleware chaining
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the caller's identity into the request context.  The token
// binds the request to a user AND an organization: handlers read the
// organization from `c.Get("org_id")` and never from the request body or
// query, which is what makes the tenant scoping mandatory rather than a
// convention.  The claims are converted to concrete types here so handlers
// downstream deal with uint64/string values only.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with the HS256 secret; reject any other signing method.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			userID, okUser := claimUint64(claims, "sub")
			orgID, okOrg := claimUint64(claims, "org")
			role, okRole := claims["role"].(string)
			if !okUser || !okOrg || !okRole {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			c.Set("user_id", userID)
			c.Set("org_id", orgID)
			c.Set("role", role)
			return next(c)
		}
	}
}

// claimUint64 extracts a numeric claim.  JSON numbers decode as float64;
// tokens issued by other tooling may carry numeric strings.  Negative
// values are rejected rather than wrapped into a huge unsigned id.
func claimUint64(claims jwt.MapClaims, name string) (uint64, bool) {
	switch v := claims[name].(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
