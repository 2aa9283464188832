package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"github.com/ckfr/ops-allocation/internal/permission"
)

// principalKey is the echo context key holding the caller's Principal.
const principalKey = "principal"

// JWTAuth validates a Bearer access token and stores the caller as a
// permission.Principal in the context.  Handlers read it with PrincipalFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			p, err := ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// ParseAccessToken verifies an HS256 access token and converts its claims.
// Numeric claims may arrive as JSON numbers or strings; cast handles both.
func ParseAccessToken(secret, raw string) (permission.Principal, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return permission.Principal{}, echo.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return permission.Principal{}, echo.ErrUnauthorized
	}
	uid, err := cast.ToUint64E(claims["sub"])
	if err != nil || uid == 0 {
		return permission.Principal{}, echo.ErrUnauthorized
	}
	return permission.Principal{
		UserID:        uid,
		Authenticated: true,
		Superuser:     cast.ToBool(claims["su"]),
		Groups:        cast.ToStringSlice(claims["groups"]),
	}, nil
}

// PrincipalFrom returns the caller stored by JWTAuth, or the anonymous
// zero Principal.
func PrincipalFrom(c echo.Context) permission.Principal {
	if p, ok := c.Get(principalKey).(permission.Principal); ok {
		return p
	}
	return permission.Principal{}
}

// RequirePermission rejects callers for which allow returns false with 403.
// It must run after JWTAuth.
func RequirePermission(allow func(permission.Principal) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allow(PrincipalFrom(c)) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
