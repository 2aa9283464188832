package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ckfr/ops-allocation/internal/middleware"
	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/repository"
	"github.com/ckfr/ops-allocation/internal/service"
)

// OperationHandler serves operations and their highlighted ships.
type OperationHandler struct {
	Ops *service.OperationService
}

func NewOperationHandler(ops *service.OperationService) *OperationHandler {
	return &OperationHandler{Ops: ops}
}

// operationReq uses pointers so an update only touches the fields sent.
// highlighted_ship_id set to 0 clears the reference.
type operationReq struct {
	Title             *string `json:"title"`
	Description       *string `json:"description"`
	HighlightedShipID *uint64 `json:"highlighted_ship_id"`
	IsActive          *bool   `json:"is_active"`
}

func (r operationReq) apply(op *model.Operation) {
	if r.Title != nil {
		op.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		op.Description = *r.Description
	}
	if r.HighlightedShipID != nil {
		if *r.HighlightedShipID == 0 {
			op.HighlightedShipID = nil
		} else {
			id := *r.HighlightedShipID
			op.HighlightedShipID = &id
		}
	}
	if r.IsActive != nil {
		op.IsActive = *r.IsActive
	}
}

func (h *OperationHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	ops, err := h.Ops.List(ctx)
	if err != nil {
		return fail(c, err, "list operations failed")
	}
	if ops == nil {
		ops = []model.Operation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"operations": ops})
}

// Overview returns the active operation, falling back to the most recently
// updated one.  With no operations at all it returns {"operation": null}.
func (h *OperationHandler) Overview(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	op, err := h.Ops.Overview(ctx)
	if errors.Is(err, repository.ErrOperationNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"operation": nil})
	}
	if err != nil {
		return fail(c, err, "load overview failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"operation": op})
}

// Active returns the active operation, or 404 when none is active.
func (h *OperationHandler) Active(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	op, err := h.Ops.Active(ctx)
	if err != nil {
		return fail(c, err, "load active operation failed")
	}
	return c.JSON(http.StatusOK, op)
}

func (h *OperationHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid operation id")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	op, err := h.Ops.Get(ctx, id)
	if err != nil {
		return fail(c, err, "load operation failed")
	}
	return c.JSON(http.StatusOK, op)
}

// Create stores a new operation.  is_active=true demotes the current active
// operation in the same transaction.
func (h *OperationHandler) Create(c echo.Context) error {
	var req operationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	op := &model.Operation{}
	req.apply(op)
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Ops.Save(ctx, middleware.PrincipalFrom(c).UserID, op); err != nil {
		return fail(c, err, "create operation failed")
	}
	return c.JSON(http.StatusCreated, op)
}

func (h *OperationHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid operation id")
	}
	var req operationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	cur, err := h.Ops.Get(ctx, id)
	if err != nil {
		return fail(c, err, "load operation failed")
	}
	op := cur.Operation
	req.apply(&op)
	if err := h.Ops.Save(ctx, middleware.PrincipalFrom(c).UserID, &op); err != nil {
		return fail(c, err, "update operation failed")
	}
	return c.JSON(http.StatusOK, op)
}

func (h *OperationHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid operation id")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Ops.Delete(ctx, id); err != nil {
		return fail(c, err, "delete operation failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// SetHighlightedShips replaces the operation's highlighted ships.  Body:
// {"ships": [{"ship_id": 1, "crew": {"pilot": ["Ana"], "gunner": "Bob\nCid"}}]}.
// Crew values may be JSON arrays, JSON-encoded strings or plain text with
// one name per line.
func (h *OperationHandler) SetHighlightedShips(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid operation id")
	}
	var req struct {
		Ships []service.HighlightedShipInput `json:"ships"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	ships, err := h.Ops.SetHighlightedShips(ctx, id, req.Ships)
	if err != nil {
		return fail(c, err, "save highlighted ships failed")
	}
	if ships == nil {
		ships = []model.HighlightedShip{}
	}
	return c.JSON(http.StatusOK, echo.Map{"highlighted_ships": ships})
}
