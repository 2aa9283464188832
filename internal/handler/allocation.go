package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ckfr/ops-allocation/internal/middleware"
	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/service"
)

// AllocationHandler manages role templates and seat assignments.
type AllocationHandler struct {
	Catalog *service.CatalogService
	Alloc   *service.AllocationService
}

func NewAllocationHandler(catalog *service.CatalogService, alloc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{Catalog: catalog, Alloc: alloc}
}

// templateReq uses pointers so a PATCH body may carry either field alone.
type templateReq struct {
	RoleName *string `json:"role_name"`
	Slots    *uint16 `json:"slots"`
}

func (r templateReq) apply(t *model.ShipRoleTemplate) {
	if r.RoleName != nil {
		t.RoleName = *r.RoleName
	}
	if r.Slots != nil {
		t.Slots = *r.Slots
	}
}

// Overview lists every ship that has seats, with seats grouped by role.
// Optional category and subcategory query parameters narrow the ships.
func (h *AllocationHandler) Overview(c echo.Context) error {
	category, sub, msg := taxonomyQuery(c)
	if msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	ships, err := h.Alloc.Overview(ctx)
	if err != nil {
		return fail(c, err, "load allocation failed")
	}
	if category != "" || sub != "" {
		kept := ships[:0]
		for _, s := range ships {
			if (category == "" || s.Classification.Category == category) &&
				(sub == "" || s.Classification.Subcategory == sub) {
				kept = append(kept, s)
			}
		}
		ships = kept
	}
	return c.JSON(http.StatusOK, echo.Map{"ships": ships})
}

// CreateTemplate declares a role on a ship and provisions its seats.
func (h *AllocationHandler) CreateTemplate(c echo.Context) error {
	shipID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ship id")
	}
	var req templateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t := &model.ShipRoleTemplate{ShipID: shipID}
	req.apply(t)
	ctx, cancel := requestCtx(c)
	defer cancel()

	created, err := h.Catalog.CreateTemplate(ctx, t)
	if err != nil {
		return fail(c, err, "create role failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"template": t, "slots_created": created})
}

// UpdateTemplate changes a role's name or seat count.  Seats above a
// lowered count are kept.
func (h *AllocationHandler) UpdateTemplate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	var req templateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	t, err := h.Catalog.Template(ctx, id)
	if err != nil {
		return fail(c, err, "load role failed")
	}
	req.apply(t)
	created, err := h.Catalog.UpdateTemplate(ctx, t)
	if err != nil {
		return fail(c, err, "update role failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"template": t, "slots_created": created})
}

// DeleteTemplate removes a role declaration; its seats stay.
func (h *AllocationHandler) DeleteTemplate(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Catalog.DeleteTemplate(ctx, id); err != nil {
		return fail(c, err, "delete role failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// slotReq keeps user_id as raw JSON so an explicit null (free the seat)
// can be told apart from a missing field (keep the current user).
type slotReq struct {
	UserID json.RawMessage `json:"user_id"`
	Status string          `json:"status"`
}

// UpdateSlot sets the user and status of a seat.  Status is stored as
// given; it is not derived from the user.
func (h *AllocationHandler) UpdateSlot(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	var req slotReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	cur, err := h.Alloc.Slot(ctx, id)
	if err != nil {
		return fail(c, err, "load slot failed")
	}
	userID := cur.UserID
	if len(req.UserID) > 0 {
		userID = nil
		if string(req.UserID) != "null" {
			var uid uint64
			if err := json.Unmarshal(req.UserID, &uid); err != nil || uid == 0 {
				return badRequest(c, "user_id must be a positive integer or null")
			}
			userID = &uid
		}
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = cur.Status
	}

	slot, err := h.Alloc.AssignSlot(ctx, middleware.PrincipalFrom(c).UserID, id, userID, status)
	if err != nil {
		return fail(c, err, "update slot failed")
	}
	return c.JSON(http.StatusOK, slot)
}
