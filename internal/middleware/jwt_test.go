package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckfr/ops-allocation/internal/config"
	"github.com/ckfr/ops-allocation/internal/permission"
	"github.com/ckfr/ops-allocation/internal/utils"
)

const testSecret = "test-secret"

func serve(t *testing.T, h echo.HandlerFunc, token string, mw ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/x", h, mw...)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth_StoresPrincipal(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 42, "alice", []string{permission.GroupAdmin}, false, 5)
	require.NoError(t, err)

	var got permission.Principal
	rec := serve(t, func(c echo.Context) error {
		got = PrincipalFrom(c)
		return c.NoContent(http.StatusNoContent)
	}, tok.Token, JWTAuth(testSecret))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(42), got.UserID)
	assert.True(t, got.Authenticated)
	assert.False(t, got.Superuser)
	assert.Equal(t, []string{permission.GroupAdmin}, got.Groups)
}

func TestJWTAuth_Rejects(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	rec := serve(t, ok, "", JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := utils.NewAccessToken("other-secret", 1, "bob", nil, false, 5)
	require.NoError(t, err)
	rec = serve(t, ok, tok.Token, JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	raw, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)
	rec = serve(t, ok, raw, JWTAuth(testSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestParseAccessToken_NumericSubject(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    7,
		"su":     true,
		"groups": []string{"Membre"},
		"exp":    time.Now().Add(time.Minute).Unix(),
	})
	raw, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	p, err := ParseAccessToken(testSecret, raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), p.UserID)
	assert.True(t, p.Superuser)
	assert.Equal(t, []string{"Membre"}, p.Groups)
}

func TestRequirePermission(t *testing.T) {
	member, err := utils.NewAccessToken(testSecret, 3, "carol", []string{permission.GroupMembre}, false, 5)
	require.NoError(t, err)
	admin, err := utils.NewAccessToken(testSecret, 4, "dave", []string{permission.GroupAdmin}, false, 5)
	require.NoError(t, err)
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	rec := serve(t, ok, member.Token, JWTAuth(testSecret), RequirePermission(permission.CanManageOps))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, ok, member.Token, JWTAuth(testSecret), RequirePermission(permission.CanAccessMemberHome))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, ok, admin.Token, JWTAuth(testSecret), RequirePermission(permission.CanManageOps))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNilRedisDisablesMiddleware(t *testing.T) {
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	rec := serve(t, ok, "",
		NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil),
		NewResponseCache(config.CacheConfig{Enabled: true}, nil),
		NewCachePurge(config.CacheConfig{Enabled: true}, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/ships", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/ships")

	assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:GET /v1/ships",
		buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c))

	c.Set(principalKey, permission.Principal{UserID: 9, Authenticated: true})
	assert.Equal(t, "rl:user:9", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
}
