package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ckfr/ops-allocation/internal/classify"
	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/repository"
	"github.com/ckfr/ops-allocation/internal/service"
)

// ShipHandler serves the ship catalog and its role templates.
type ShipHandler struct {
	Ships   *repository.ShipRepo
	Catalog *service.CatalogService
	Alloc   *service.AllocationService
}

func NewShipHandler(ships *repository.ShipRepo, catalog *service.CatalogService, alloc *service.AllocationService) *ShipHandler {
	return &ShipHandler{Ships: ships, Catalog: catalog, Alloc: alloc}
}

type shipReq struct {
	Name          string `json:"name"`
	Manufacturer  string `json:"manufacturer"`
	Role          string `json:"role"`
	CargoCapacity string `json:"cargo_capacity"`
	Category      string `json:"category"`
	MinCrew       uint16 `json:"min_crew"`
	MaxCrew       uint16 `json:"max_crew"`
}

func (r shipReq) ship() *model.Ship {
	return &model.Ship{
		Name:          strings.TrimSpace(r.Name),
		Manufacturer:  strings.TrimSpace(r.Manufacturer),
		Role:          strings.TrimSpace(r.Role),
		CargoCapacity: strings.TrimSpace(r.CargoCapacity),
		Category:      strings.ToUpper(strings.TrimSpace(r.Category)),
		MinCrew:       r.MinCrew,
		MaxCrew:       r.MaxCrew,
	}
}

type shipView struct {
	model.Ship
	Classification classify.Result `json:"classification"`
}

func shipViews(ships []model.Ship) []shipView {
	out := make([]shipView, 0, len(ships))
	for i := range ships {
		out = append(out, shipView{Ship: ships[i], Classification: classify.Ship(&ships[i])})
	}
	return out
}

// List returns the catalog.  Filters: cat (legacy category, ignored when
// unknown), type (exact role text, ignored when no ship has it), category
// and subcategory (taxonomy slugs, 400 when unknown).  group=category or
// group=taxonomy returns grouped ships instead of a flat list.
func (h *ShipHandler) List(c echo.Context) error {
	category, sub, msg := taxonomyQuery(c)
	if msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	roles, err := h.Ships.DistinctRoles(ctx)
	if err != nil {
		return fail(c, err, "list ships failed")
	}
	var f repository.ShipFilter
	if cat := strings.ToUpper(strings.TrimSpace(c.QueryParam("cat"))); model.ValidCategory(cat) {
		f.Category = cat
	}
	if typ := strings.TrimSpace(c.QueryParam("type")); typ != "" {
		for _, r := range roles {
			if r == typ {
				f.Role = typ
				break
			}
		}
	}
	ships, err := h.Ships.List(ctx, f)
	if err != nil {
		return fail(c, err, "list ships failed")
	}
	ships = service.FilterByTaxonomy(ships, category, sub)
	if roles == nil {
		roles = []string{}
	}

	resp := echo.Map{
		"categories":        model.CategoryChoices,
		"roles":             roles,
		"selected_category": f.Category,
		"selected_type":     f.Role,
	}
	switch c.QueryParam("group") {
	case "category":
		resp["groups"] = service.GroupShipsByCategory(ships)
	case "taxonomy":
		resp["groups"] = service.GroupShipsByTaxonomy(ships)
	default:
		resp["ships"] = shipViews(ships)
	}
	return c.JSON(http.StatusOK, resp)
}

// Get returns one ship with its role templates and grouped seats.
func (h *ShipHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ship id")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	alloc, templates, err := h.Alloc.ShipDetail(ctx, id)
	if err != nil {
		return fail(c, err, "load ship failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ship":           alloc.Ship,
		"classification": alloc.Classification,
		"templates":      templates,
		"roles":          alloc.Roles,
	})
}

func (h *ShipHandler) Create(c echo.Context) error {
	var req shipReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	s := req.ship()
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Ships.Create(ctx, s); err != nil {
		return fail(c, err, "create ship failed")
	}
	return c.JSON(http.StatusCreated, shipView{Ship: *s, Classification: classify.Ship(s)})
}

func (h *ShipHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ship id")
	}
	var req shipReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	s := req.ship()
	s.ID = id
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Ships.Update(ctx, s); err != nil {
		return fail(c, err, "update ship failed")
	}
	updated, err := h.Ships.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "load ship failed")
	}
	return c.JSON(http.StatusOK, shipView{Ship: *updated, Classification: classify.Ship(updated)})
}

// Delete removes a ship.  Ships still referenced by templates, seats or
// highlighted-ship rows are refused with 409.
func (h *ShipHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ship id")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Ships.Delete(ctx, id); err != nil {
		return fail(c, err, "delete ship failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// taxonomyQuery reads the category and subcategory filters.  msg is set
// when they do not name a known taxonomy entry.
func taxonomyQuery(c echo.Context) (category, sub, msg string) {
	category = strings.TrimSpace(c.QueryParam("category"))
	sub = strings.TrimSpace(c.QueryParam("subcategory"))
	switch {
	case category == "" && sub == "":
		return "", "", ""
	case category == "":
		return "", "", "subcategory requires category"
	}
	if _, _, ok := classify.Lookup(category, sub); !ok {
		return "", "", "unknown category or subcategory"
	}
	return category, sub, ""
}

// Taxonomy returns the classification taxonomy and the legacy categories.
func Taxonomy(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"taxonomy":   classify.Taxonomy,
		"categories": model.CategoryChoices,
	})
}
