package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ckfr/ops-allocation/internal/classify"
	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/repository"
)

// CatalogService manages ships and role templates.  Every template write
// that can raise a slot count is followed by reconciliation in the same
// call.
type CatalogService struct {
	ships      *repository.ShipRepo
	templates  *repository.TemplateRepo
	reconciler *Reconciler
	log        *slog.Logger
}

// NewCatalogService wires a CatalogService.
func NewCatalogService(ships *repository.ShipRepo, templates *repository.TemplateRepo, reconciler *Reconciler, log *slog.Logger) *CatalogService {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogService{ships: ships, templates: templates, reconciler: reconciler, log: log.With("component", "catalog")}
}

// CreateTemplate stores a new role template and provisions its seats.  A
// role name already declared for the ship yields ErrDuplicateRole.
func (s *CatalogService) CreateTemplate(ctx context.Context, t *model.ShipRoleTemplate) (int, error) {
	if err := validateTemplate(t); err != nil {
		return 0, err
	}
	if _, err := s.ships.GetByID(ctx, t.ShipID); err != nil {
		return 0, err
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return 0, err
	}
	return s.reconciler.Reconcile(ctx, *t)
}

// Template loads one role template.
func (s *CatalogService) Template(ctx context.Context, id uint64) (*model.ShipRoleTemplate, error) {
	return s.templates.GetByID(ctx, id)
}

// UpdateTemplate changes a template and provisions any seats the new count
// requires.  Lowering the count leaves the higher seats in place.
func (s *CatalogService) UpdateTemplate(ctx context.Context, t *model.ShipRoleTemplate) (int, error) {
	if err := validateTemplate(t); err != nil {
		return 0, err
	}
	cur, err := s.templates.GetByID(ctx, t.ID)
	if err != nil {
		return 0, err
	}
	t.ShipID = cur.ShipID
	err = s.templates.Update(ctx, t)
	switch {
	case errors.Is(err, repository.ErrNoChange):
		return 0, nil
	case err != nil:
		return 0, err
	}
	return s.reconciler.Reconcile(ctx, *t)
}

// DeleteTemplate removes a template.  Its seats are kept.
func (s *CatalogService) DeleteTemplate(ctx context.Context, id uint64) error {
	return s.templates.Delete(ctx, id)
}

func validateTemplate(t *model.ShipRoleTemplate) error {
	t.RoleName = strings.TrimSpace(t.RoleName)
	if t.RoleName == "" {
		return fmt.Errorf("%w: role_name is required", repository.ErrInvalid)
	}
	if len([]rune(t.RoleName)) > 40 {
		return fmt.Errorf("%w: role_name is longer than 40 characters", repository.ErrInvalid)
	}
	if t.Slots < 1 {
		return fmt.Errorf("%w: slots must be at least 1", repository.ErrInvalid)
	}
	if t.Slots > model.MaxTemplateSlots {
		return fmt.Errorf("%w: slots must be at most %d", repository.ErrInvalid, model.MaxTemplateSlots)
	}
	return nil
}

// CatalogEntry is one ship of an imported catalog file.
type CatalogEntry struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Role         string `json:"role"`
	Cargo        string `json:"cargo"`
	Crew         string `json:"crew"`
}

// ImportReport summarises a catalog import.
type ImportReport struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ImportCatalog reads a JSON array of CatalogEntry and creates or updates
// ships by name.  The legacy category comes from the role text and the
// crew range from the crew text.  Entries without a name are skipped.
func (s *CatalogService) ImportCatalog(ctx context.Context, r io.Reader) (ImportReport, error) {
	var entries []CatalogEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return ImportReport{}, fmt.Errorf("%w: catalog: %v", repository.ErrInvalid, err)
	}
	var rep ImportReport
	for _, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			rep.Skipped++
			continue
		}
		minCrew, maxCrew := classify.ParseCrew(e.Crew)
		ship := &model.Ship{
			Name:          strings.TrimSpace(e.Name),
			Manufacturer:  strings.TrimSpace(e.Manufacturer),
			Role:          strings.TrimSpace(e.Role),
			CargoCapacity: e.Cargo,
			Category:      classify.LegacyCategory(e.Role),
			MinCrew:       minCrew,
			MaxCrew:       maxCrew,
		}
		created, err := s.ships.UpsertByName(ctx, ship)
		if err != nil {
			return rep, fmt.Errorf("import %q: %w", e.Name, err)
		}
		if created {
			rep.Created++
		} else {
			rep.Updated++
		}
	}
	s.log.Info("catalog imported", "created", rep.Created, "updated", rep.Updated, "skipped", rep.Skipped)
	return rep, nil
}

// Starter is a ship created by Seed.
type Starter struct {
	Name     string
	Category string
}

// Starters is the minimal fleet Seed creates.
var Starters = []Starter{
	{"Anvil Arrow", model.CategoryLightFighter}, {"Aegis Gladius", model.CategoryLightFighter},
	{"Anvil Hawk", model.CategoryLightFighter}, {"Origin 125a", model.CategoryLightFighter},
	{"Consolidated Outland Mustang Delta", model.CategoryLightFighter}, {"Aopoa Khartu-al", model.CategoryLightFighter},
	{"MISC Reliant Tana", model.CategoryLightFighter}, {"Esperia Talon", model.CategoryLightFighter},
	{"Aegis Sabre", model.CategoryMediumFighter}, {"Aegis Sabre Comet", model.CategoryMediumFighter},
	{"Banu Defender", model.CategoryMediumFighter}, {"Anvil F7C Hornet Mk I", model.CategoryMediumFighter},
	{"Anvil F7C-M Super Hornet Mk I", model.CategoryMediumFighter},
	{"Anvil Hurricane", model.CategoryHeavyFighter}, {"RSI Scorpius", model.CategoryHeavyFighter},
	{"RSI Scorpius Antares", model.CategoryHeavyFighter}, {"Crusader Ares Inferno", model.CategoryHeavyFighter},
	{"Crusader Ares Ion", model.CategoryHeavyFighter}, {"Anvil F8C Lightning", model.CategoryHeavyFighter},
	{"Drake Cutlass Black", model.CategoryMultirole}, {"Aegis Avenger Titan", model.CategoryMultirole},
	{"MISC Freelancer MIS", model.CategoryMultirole},
	{"RSI Polaris", model.CategoryCapital}, {"Aegis Idris-P", model.CategoryCapital},
}

// RoleCount is a default role and its seat count.
type RoleCount struct {
	Role  string
	Slots uint16
}

// CategoryRoles are the templates Seed gives a ship that has none.
var CategoryRoles = map[string][]RoleCount{
	model.CategoryLightFighter:  {{"Pilote", 1}},
	model.CategoryMediumFighter: {{"Pilote", 1}},
	model.CategoryHeavyFighter:  {{"Pilote", 1}, {"Artilleur", 1}},
	model.CategoryMultirole:     {{"Pilote", 1}, {"Artilleur", 1}},
	model.CategoryCapital: {
		{"Commandant", 1}, {"Pilote", 1}, {"Navigateur", 1}, {"Ingénierie", 2}, {"Artilleur", 4},
	},
}

// SeedReport summarises a seed run.
type SeedReport struct {
	ShipsCreated     int `json:"ships_created"`
	TemplatesCreated int `json:"templates_created"`
	SlotsCreated     int `json:"slots_created"`
}

// Seed creates the starter ships, forces their legacy category, and gives
// every starter without templates the default roles of its category.  It
// can be run repeatedly.
func (s *CatalogService) Seed(ctx context.Context) (SeedReport, error) {
	var rep SeedReport
	for _, st := range Starters {
		ship, err := s.ships.GetByName(ctx, st.Name)
		switch {
		case errors.Is(err, repository.ErrShipNotFound):
			ship = &model.Ship{Name: st.Name, Category: st.Category, MinCrew: 1, MaxCrew: 2}
			if err := s.ships.Create(ctx, ship); err != nil {
				return rep, fmt.Errorf("seed %q: %w", st.Name, err)
			}
			rep.ShipsCreated++
		case err != nil:
			return rep, err
		case ship.Category != st.Category:
			ship.Category = st.Category
			if err := s.ships.Update(ctx, ship); err != nil {
				return rep, fmt.Errorf("seed %q: %w", st.Name, err)
			}
		}

		n, err := s.templates.CountByShip(ctx, ship.ID)
		if err != nil {
			return rep, err
		}
		if n > 0 {
			continue
		}
		roles, ok := CategoryRoles[st.Category]
		if !ok {
			roles = []RoleCount{{"Pilote", 1}}
		}
		for _, rc := range roles {
			t := &model.ShipRoleTemplate{ShipID: ship.ID, RoleName: rc.Role, Slots: rc.Slots}
			if err := s.templates.Create(ctx, t); err != nil {
				if errors.Is(err, repository.ErrDuplicateRole) {
					continue
				}
				return rep, err
			}
			rep.TemplatesCreated++
			created, err := s.reconciler.Reconcile(ctx, *t)
			rep.SlotsCreated += created
			if err != nil {
				return rep, err
			}
		}
	}
	s.log.Info("seed complete", "ships", rep.ShipsCreated, "templates", rep.TemplatesCreated, "slots", rep.SlotsCreated)
	return rep, nil
}
