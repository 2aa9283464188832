package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userKey identifies the caller in rate-limit keys: the user id when
// JWTAuth has run, "anon" otherwise.
func userKey(c echo.Context) string {
	p := PrincipalFrom(c)
	if !p.Authenticated {
		return "anon"
	}
	return strconv.FormatUint(p.UserID, 10)
}
