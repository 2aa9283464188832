package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/repository"
)

const catalogJSON = `[
  {"name": "Drake Caterpillar", "manufacturer": "Drake", "role": "Heavy Freight", "cargo": "576", "crew": "1-5"},
  {"name": "Aegis Gladius", "manufacturer": "Aegis", "role": "Light Fighter", "cargo": "", "crew": "1"},
  {"name": "", "role": "ghost"},
  {"name": "Anvil Carrack", "manufacturer": "Anvil", "role": "Expedition", "cargo": "456", "crew": "?"}
]`

func TestImportCatalog(t *testing.T) {
	f := newCatalogFixture(t)

	rep, err := f.catalog.ImportCatalog(f.ctx, strings.NewReader(catalogJSON))
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Created: 3, Skipped: 1}, rep)

	cat, err := f.ships.GetByName(f.ctx, "Drake Caterpillar")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryCapital, cat.Category)
	assert.Equal(t, uint16(1), cat.MinCrew)
	assert.Equal(t, uint16(5), cat.MaxCrew)
	assert.Equal(t, "576", cat.CargoCapacity)

	gladius, err := f.ships.GetByName(f.ctx, "Aegis Gladius")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryLightFighter, gladius.Category)
	assert.Equal(t, "-", gladius.CargoCapacity)

	carrack, err := f.ships.GetByName(f.ctx, "Anvil Carrack")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryMultirole, carrack.Category)
	assert.Equal(t, uint16(0), carrack.MaxCrew)

	// a second import updates in place
	rep, err = f.catalog.ImportCatalog(f.ctx, strings.NewReader(`[{"name":"Aegis Gladius","role":"Medium Fighter","crew":"1"}]`))
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Updated: 1}, rep)
	gladius2, err := f.ships.GetByName(f.ctx, "Aegis Gladius")
	require.NoError(t, err)
	assert.Equal(t, gladius.ID, gladius2.ID)
	assert.Equal(t, model.CategoryMediumFighter, gladius2.Category)
}

func TestImportCatalog_BadJSON(t *testing.T) {
	f := newCatalogFixture(t)
	_, err := f.catalog.ImportCatalog(f.ctx, strings.NewReader(`{"name":`))
	assert.ErrorIs(t, err, repository.ErrInvalid)
}

func TestSeed(t *testing.T) {
	f := newCatalogFixture(t)

	rep, err := f.catalog.Seed(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, len(Starters), rep.ShipsCreated)
	assert.Greater(t, rep.TemplatesCreated, 0)
	assert.Greater(t, rep.SlotsCreated, 0)

	idris, err := f.ships.GetByName(f.ctx, "Aegis Idris-P")
	require.NoError(t, err)
	tpls, err := f.templates.ListByShip(f.ctx, idris.ID)
	require.NoError(t, err)
	require.Len(t, tpls, 5)
	slots, err := f.slots.ListByShip(f.ctx, idris.ID)
	require.NoError(t, err)
	assert.Len(t, slots, 9)

	again, err := f.catalog.Seed(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedReport{}, again)
}

func TestSeed_KeepsExistingTemplates(t *testing.T) {
	f := newCatalogFixture(t)
	ship := &model.Ship{Name: "RSI Polaris", Category: model.CategoryMultirole, MinCrew: 1, MaxCrew: 14}
	require.NoError(t, f.ships.Create(f.ctx, ship))
	require.NoError(t, f.templates.Create(f.ctx, &model.ShipRoleTemplate{ShipID: ship.ID, RoleName: "Pilote", Slots: 2}))

	_, err := f.catalog.Seed(f.ctx)
	require.NoError(t, err)

	got, err := f.ships.GetByID(f.ctx, ship.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryCapital, got.Category, "seed forces the starter category")
	tpls, err := f.templates.ListByShip(f.ctx, ship.ID)
	require.NoError(t, err)
	assert.Len(t, tpls, 1)
}
