package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ckfr/ops-allocation/internal/classify"
	"github.com/ckfr/ops-allocation/internal/model"
	q "github.com/ckfr/ops-allocation/internal/queue"
	"github.com/ckfr/ops-allocation/internal/repository"
)

// SlotView is a slot as shown on the allocation page.  Orphaned seats are
// those above the current template count, or whose template was removed.
type SlotView struct {
	model.RoleSlot
	Orphaned bool `json:"orphaned"`
}

// RoleGroup is the seats of one role on one ship.
type RoleGroup struct {
	Role     string     `json:"role"`
	Template uint16     `json:"template_slots"`
	Slots    []SlotView `json:"slots"`
}

// ShipAllocation is one ship of the allocation page.
type ShipAllocation struct {
	Ship           model.Ship      `json:"ship"`
	Classification classify.Result `json:"classification"`
	Roles          []RoleGroup     `json:"roles"`
}

// GroupSlotsByRole groups slots by role name, keeping roles in order of
// first appearance and slots in the order given.  templates supply the
// current seat count of each role.
func GroupSlotsByRole(slots []model.RoleSlot, templates []model.ShipRoleTemplate) []RoleGroup {
	counts := make(map[string]uint16, len(templates))
	for _, t := range templates {
		counts[t.RoleName] = t.Slots
	}
	var out []RoleGroup
	pos := map[string]int{}
	for _, s := range slots {
		i, ok := pos[s.RoleName]
		if !ok {
			i = len(out)
			pos[s.RoleName] = i
			out = append(out, RoleGroup{Role: s.RoleName, Template: counts[s.RoleName]})
		}
		out[i].Slots = append(out[i].Slots, SlotView{RoleSlot: s, Orphaned: s.Index > counts[s.RoleName]})
	}
	return out
}

// CategoryGroup is the ships of one legacy category.
type CategoryGroup struct {
	Code  string       `json:"code"`
	Label string       `json:"label"`
	Ships []model.Ship `json:"ships"`
}

// GroupShipsByCategory groups ships by legacy category in the order of
// model.CategoryChoices, omitting empty categories.  Ships with an unknown
// code are dropped.
func GroupShipsByCategory(ships []model.Ship) []CategoryGroup {
	by := map[string][]model.Ship{}
	for _, s := range ships {
		by[s.Category] = append(by[s.Category], s)
	}
	var out []CategoryGroup
	for _, c := range model.CategoryChoices {
		if len(by[c.Code]) == 0 {
			continue
		}
		out = append(out, CategoryGroup{Code: c.Code, Label: c.Label, Ships: by[c.Code]})
	}
	return out
}

// TaxonomyGroup is the ships of one taxonomy subcategory.
type TaxonomyGroup struct {
	Category         string       `json:"category"`
	CategoryLabel    string       `json:"category_label"`
	Subcategory      string       `json:"subcategory"`
	SubcategoryLabel string       `json:"subcategory_label"`
	Ships            []model.Ship `json:"ships"`
}

// GroupShipsByTaxonomy groups ships by classification in taxonomy order,
// omitting empty subcategories.  Unclassified ships are dropped.
func GroupShipsByTaxonomy(ships []model.Ship) []TaxonomyGroup {
	by := map[classify.Result][]model.Ship{}
	for i := range ships {
		r := classify.Ship(&ships[i])
		if r.IsZero() {
			continue
		}
		by[r] = append(by[r], ships[i])
	}
	var out []TaxonomyGroup
	for _, c := range classify.Taxonomy {
		for _, sc := range c.Subcategories {
			list := by[classify.Result{Category: c.Slug, Subcategory: sc.Slug}]
			if len(list) == 0 {
				continue
			}
			out = append(out, TaxonomyGroup{
				Category: c.Slug, CategoryLabel: c.Label,
				Subcategory: sc.Slug, SubcategoryLabel: sc.Label,
				Ships: list,
			})
		}
	}
	return out
}

// FilterByTaxonomy keeps the ships whose classification matches.  Empty
// arguments match everything.
func FilterByTaxonomy(ships []model.Ship, category, subcategory string) []model.Ship {
	if category == "" && subcategory == "" {
		return ships
	}
	var out []model.Ship
	for i := range ships {
		r := classify.Ship(&ships[i])
		if category != "" && r.Category != category {
			continue
		}
		if subcategory != "" && r.Subcategory != subcategory {
			continue
		}
		out = append(out, ships[i])
	}
	return out
}

// AllocationService reads and updates seat assignments.
type AllocationService struct {
	ships     *repository.ShipRepo
	templates *repository.TemplateRepo
	slots     *repository.SlotRepo
	users     *repository.UserRepo
	publisher Publisher
	log       *slog.Logger
}

// NewAllocationService wires an AllocationService.  A nil publisher drops
// events.
func NewAllocationService(ships *repository.ShipRepo, templates *repository.TemplateRepo, slots *repository.SlotRepo,
	users *repository.UserRepo, publisher Publisher, log *slog.Logger) *AllocationService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &AllocationService{ships: ships, templates: templates, slots: slots, users: users,
		publisher: publisher, log: log.With("component", "allocation")}
}

// Overview returns every ship that has at least one slot, ordered by ship
// name, with its slots grouped by role.
func (s *AllocationService) Overview(ctx context.Context) ([]ShipAllocation, error) {
	ships, err := s.ships.List(ctx, repository.ShipFilter{})
	if err != nil {
		return nil, err
	}
	slots, err := s.slots.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	templates, err := s.templates.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	slotsByShip := map[uint64][]model.RoleSlot{}
	for _, sl := range slots {
		slotsByShip[sl.ShipID] = append(slotsByShip[sl.ShipID], sl)
	}
	tplByShip := map[uint64][]model.ShipRoleTemplate{}
	for _, t := range templates {
		tplByShip[t.ShipID] = append(tplByShip[t.ShipID], t)
	}
	out := []ShipAllocation{}
	for i := range ships {
		sl := slotsByShip[ships[i].ID]
		if len(sl) == 0 {
			continue
		}
		out = append(out, ShipAllocation{
			Ship:           ships[i],
			Classification: classify.Ship(&ships[i]),
			Roles:          GroupSlotsByRole(sl, tplByShip[ships[i].ID]),
		})
	}
	return out, nil
}

// ShipDetail returns one ship with its templates and grouped slots.
func (s *AllocationService) ShipDetail(ctx context.Context, shipID uint64) (*ShipAllocation, []model.ShipRoleTemplate, error) {
	ship, err := s.ships.GetByID(ctx, shipID)
	if err != nil {
		return nil, nil, err
	}
	templates, err := s.templates.ListByShip(ctx, shipID)
	if err != nil {
		return nil, nil, err
	}
	slots, err := s.slots.ListByShip(ctx, shipID)
	if err != nil {
		return nil, nil, err
	}
	if templates == nil {
		templates = []model.ShipRoleTemplate{}
	}
	return &ShipAllocation{
		Ship:           *ship,
		Classification: classify.Ship(ship),
		Roles:          GroupSlotsByRole(slots, templates),
	}, templates, nil
}

// AssignSlot stores the user and status of a slot exactly as given and
// publishes a slot.updated event.  actorID is the manager making the change.
func (s *AllocationService) AssignSlot(ctx context.Context, actorID, slotID uint64, userID *uint64, status string) (*model.RoleSlot, error) {
	if !model.ValidSlotStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", repository.ErrInvalid, status)
	}
	if userID != nil {
		if _, err := s.users.GetByID(ctx, *userID); err != nil {
			return nil, err
		}
	}
	if err := s.slots.Assign(ctx, slotID, userID, status); err != nil {
		if errors.Is(err, repository.ErrInvalidSlot) {
			return nil, fmt.Errorf("%w: %v", repository.ErrInvalid, err)
		}
		return nil, err
	}
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	ev := q.SlotUpdatedEvent{
		SlotID:    slot.ID,
		ShipID:    slot.ShipID,
		RoleName:  slot.RoleName,
		Index:     slot.Index,
		UserID:    slot.UserID,
		Status:    slot.Status,
		UpdatedBy: actorID,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if slot.Username != nil {
		ev.Username = *slot.Username
	}
	if ship, err := s.ships.GetByID(ctx, slot.ShipID); err == nil {
		ev.ShipName = ship.Name
	}
	if err := s.publisher.PublishSlotUpdated(ctx, ev); err != nil {
		s.log.Warn("slot.updated not published", "slot_id", slot.ID, "err", err)
	}
	return slot, nil
}

// Slot returns one seat.
func (s *AllocationService) Slot(ctx context.Context, id uint64) (*model.RoleSlot, error) {
	return s.slots.GetByID(ctx, id)
}
