package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ckfr/ops-allocation/internal/middleware"
	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/permission"
	"github.com/ckfr/ops-allocation/internal/repository"
)

// UserHandler lets managers list users and manage group memberships.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: users}
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return fail(c, err, "list users failed")
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users, "groups": permission.KnownGroups})
}

// SetGroups replaces a user's groups.  Only a superuser may change a
// superuser account.
func (h *UserHandler) SetGroups(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req struct {
		Groups []string `json:"groups"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	groups := make([]string, 0, len(req.Groups))
	for _, g := range req.Groups {
		g = strings.TrimSpace(g)
		if !permission.ValidGroup(g) {
			return badRequest(c, "unknown group: "+g)
		}
		groups = append(groups, g)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "load user failed")
	}
	if !permission.CanModifyUser(middleware.PrincipalFrom(c), target.IsSuperuser) {
		return fail(c, repository.ErrForbidden, "")
	}
	if err := h.Users.SetGroups(ctx, id, groups); err != nil {
		return fail(c, err, "update groups failed")
	}
	updated, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "load user failed")
	}
	return c.JSON(http.StatusOK, updated)
}
