package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ckfr/ops-allocation/internal/config"
	"github.com/ckfr/ops-allocation/internal/middleware"
	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/permission"
	"github.com/ckfr/ops-allocation/internal/repository"
	"github.com/ckfr/ops-allocation/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID          uint64   `json:"id"`
	Username    string   `json:"username"`
	Groups      []string `json:"groups"`
	IsSuperuser bool     `json:"is_superuser"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issue signs an access token and stores a fresh refresh token for u.
func (h *AuthHandler) issue(c echo.Context, u *model.User) (authResp, string, error) {
	ctx, cancel := requestCtx(c)
	defer cancel()

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Username, u.Groups, u.IsSuperuser, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, "", err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, "", err
	}
	hash := utils.HashRefreshRaw(refresh.Raw)
	if err := h.Tokens.StoreRefresh(ctx, u.ID, hash, refresh.Exp); err != nil {
		return authResp{}, "", err
	}
	return authResp{
		User:    userPart{ID: u.ID, Username: u.Username, Groups: u.Groups, IsSuperuser: u.IsSuperuser},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, hash, nil
}

// Register creates an account without groups; a manager grants access
// afterwards.  Tokens are returned immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "username/password required")
	}
	if err := utils.CheckPassword(req.Password); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, h.Cfg.BcryptCost, false, nil)
	if err != nil {
		return fail(c, err, "create user failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return fail(c, err, "load user failed")
	}

	resp, _, err := h.issue(c, u)
	if err != nil {
		return fail(c, err, "issue tokens failed")
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.  Every other
// refresh token of the user is revoked so only one session stays alive.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return badRequest(c, "username/password required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return fail(c, err, "query failed")
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	resp, hash, err := h.issue(c, u)
	if err != nil {
		return fail(c, err, "issue tokens failed")
	}
	if err := h.Tokens.RevokeAllExcept(ctx, u.ID, hash); err != nil {
		return fail(c, err, "revoke sessions failed")
	}
	if _, err := h.Tokens.PurgeExpired(ctx, u.ID); err != nil {
		slog.Warn("purge expired refresh tokens", "user_id", u.ID, "err", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// validRefresh resolves a refresh token to an active user.
func (h *AuthHandler) validRefresh(c echo.Context) (*model.User, string, error) {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return nil, "", badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestCtx(c)
	defer cancel()
	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return nil, "", c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || !u.IsActive {
		return nil, "", c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	return u, hash, nil
}

// Refresh rotates the refresh token: the old one is revoked and a new pair
// issued.  Group changes made since login show up in the new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	u, hash, err := h.validRefresh(c)
	if u == nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return fail(c, err, "revoke refresh failed")
	}
	resp, _, err := h.issue(c, u)
	if err != nil {
		return fail(c, err, "issue tokens failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	u, _, err := h.validRefresh(c)
	if u == nil {
		return err
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Username, u.Groups, u.IsSuperuser, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, err, "issue access failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes one session when a refresh_token is sent, or every
// session of the bearer when only an Authorization header is present.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := requestCtx(c)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return fail(c, err, "logout failed")
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		p, err := middleware.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		if err := h.Tokens.RevokeAllForUser(ctx, p.UserID); err != nil {
			return fail(c, err, "logout failed")
		}
		return c.NoContent(http.StatusNoContent)
	}
	return badRequest(c, "provide Authorization header or refresh_token")
}

// Me returns the caller's account and what it may do.
func (h *AuthHandler) Me(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return fail(c, err, "load user failed")
	}
	// permissions come from the stored account, not the possibly stale token
	current := permission.Principal{UserID: u.ID, Authenticated: true, Superuser: u.IsSuperuser, Groups: u.Groups}
	return c.JSON(http.StatusOK, echo.Map{
		"user":                   u,
		"can_manage_ops":         permission.CanManageOps(current),
		"can_access_member_home": permission.CanAccessMemberHome(current),
	})
}
