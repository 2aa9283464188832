package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/repository"
	dbtest "github.com/ckfr/ops-allocation/internal/testutil"
)

func slot(role string, idx uint16) model.RoleSlot {
	return model.RoleSlot{RoleName: role, Index: idx, Status: model.SlotOpen}
}

func TestGroupSlotsByRole(t *testing.T) {
	slots := []model.RoleSlot{slot("Pilote", 1), slot("Artilleur", 1), slot("Pilote", 2), slot("Artilleur", 2), slot("Artilleur", 3)}
	tpls := []model.ShipRoleTemplate{{RoleName: "Pilote", Slots: 2}, {RoleName: "Artilleur", Slots: 2}}

	got := GroupSlotsByRole(slots, tpls)
	require.Len(t, got, 2)
	assert.Equal(t, "Pilote", got[0].Role)
	assert.Equal(t, "Artilleur", got[1].Role)
	require.Len(t, got[1].Slots, 3)
	assert.False(t, got[1].Slots[1].Orphaned)
	assert.True(t, got[1].Slots[2].Orphaned)
	assert.Equal(t, uint16(2), got[1].Template)
}

func TestGroupSlotsByRole_RemovedTemplateOrphansAll(t *testing.T) {
	got := GroupSlotsByRole([]model.RoleSlot{slot("Navigateur", 1)}, nil)
	require.Len(t, got, 1)
	assert.True(t, got[0].Slots[0].Orphaned)
}

func TestGroupShipsByCategory(t *testing.T) {
	ships := []model.Ship{
		{Name: "Idris", Category: model.CategoryCapital},
		{Name: "Arrow", Category: model.CategoryLightFighter},
		{Name: "Cutlass", Category: model.CategoryMultirole},
		{Name: "Gladius", Category: model.CategoryLightFighter},
		{Name: "Odd", Category: "ZZ"},
	}
	got := GroupShipsByCategory(ships)
	require.Len(t, got, 3)
	assert.Equal(t, model.CategoryLightFighter, got[0].Code)
	assert.Len(t, got[0].Ships, 2)
	assert.Equal(t, "Gladius", got[0].Ships[1].Name)
	assert.Equal(t, model.CategoryMultirole, got[1].Code)
	assert.Equal(t, model.CategoryCapital, got[2].Code)
}

func TestGroupShipsByTaxonomy(t *testing.T) {
	ships := []model.Ship{
		{Name: "Caterpillar", Role: "Heavy Freight", Category: model.CategoryCapital},
		{Name: "Idris", Role: "", Category: model.CategoryCapital},
		{Name: "Cutty Red", Role: "Medical", Category: model.CategoryMultirole},
		{Name: "Gladius", Role: "Light Fighter", Category: model.CategoryLightFighter},
	}
	got := GroupShipsByTaxonomy(ships)
	require.Len(t, got, 4)
	assert.Equal(t, "chasseur", got[0].Subcategory)
	assert.Equal(t, "capitaux", got[1].Subcategory)
	assert.Equal(t, "hauling", got[2].Subcategory)
	assert.Equal(t, "medical", got[3].Subcategory)

	filtered := FilterByTaxonomy(ships, "military", "")
	assert.Len(t, filtered, 2)
	assert.Len(t, FilterByTaxonomy(ships, "", ""), 4)
	assert.Empty(t, FilterByTaxonomy(ships, "support", "refuel"))
}

type allocFixture struct {
	*catalogFixture
	svc   *AllocationService
	pub   *recordingPublisher
	users *repository.UserRepo
}

func newAllocFixture(t *testing.T) *allocFixture {
	f := &allocFixture{catalogFixture: newCatalogFixture(t), pub: &recordingPublisher{}}
	f.users = repository.NewUserRepo(f.db)
	f.svc = NewAllocationService(f.ships, f.templates, f.slots, f.users, f.pub, nil)
	return f
}

func TestAssignSlot(t *testing.T) {
	f := newAllocFixture(t)
	_, err := f.catalog.CreateTemplate(f.ctx, &model.ShipRoleTemplate{ShipID: f.shipID, RoleName: "Pilote", Slots: 1})
	require.NoError(t, err)
	uid := dbtest.InsertUser(t, f.db, "kestrel")
	seats := f.seats(t)

	got, err := f.svc.AssignSlot(f.ctx, 99, seats[1].ID, &uid, model.SlotAssigned)
	require.NoError(t, err)
	require.NotNil(t, got.UserID)
	assert.Equal(t, uid, *got.UserID)
	require.NotNil(t, got.Username)
	assert.Equal(t, "kestrel", *got.Username)

	require.Len(t, f.pub.slots, 1)
	ev := f.pub.slots[0]
	assert.Equal(t, "Drake Corsair", ev.ShipName)
	assert.Equal(t, "kestrel", ev.Username)
	assert.Equal(t, uint64(99), ev.UpdatedBy)

	// status and user are stored independently
	got, err = f.svc.AssignSlot(f.ctx, 99, seats[1].ID, nil, model.SlotConfirmed)
	require.NoError(t, err)
	assert.Nil(t, got.UserID)
	assert.Equal(t, model.SlotConfirmed, got.Status)
}

func TestAssignSlot_Errors(t *testing.T) {
	f := newAllocFixture(t)
	_, err := f.catalog.CreateTemplate(f.ctx, &model.ShipRoleTemplate{ShipID: f.shipID, RoleName: "Pilote", Slots: 1})
	require.NoError(t, err)
	seats := f.seats(t)

	_, err = f.svc.AssignSlot(f.ctx, 1, seats[1].ID, nil, "taken")
	assert.ErrorIs(t, err, repository.ErrInvalid)

	ghost := uint64(404)
	_, err = f.svc.AssignSlot(f.ctx, 1, seats[1].ID, &ghost, model.SlotAssigned)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = f.svc.AssignSlot(f.ctx, 1, 12345, nil, model.SlotOpen)
	assert.ErrorIs(t, err, repository.ErrSlotNotFound)
	assert.Empty(t, f.pub.slots)
}

func TestAllocationOverview(t *testing.T) {
	f := newAllocFixture(t)
	empty := dbtest.InsertShip(t, f.db, "Anvil Arrow", model.CategoryLightFighter)
	_, err := f.catalog.CreateTemplate(f.ctx, &model.ShipRoleTemplate{ShipID: f.shipID, RoleName: "Pilote", Slots: 1})
	require.NoError(t, err)
	_, err = f.catalog.CreateTemplate(f.ctx, &model.ShipRoleTemplate{ShipID: f.shipID, RoleName: "Artilleur", Slots: 2})
	require.NoError(t, err)

	got, err := f.svc.Overview(f.ctx)
	require.NoError(t, err)
	require.Len(t, got, 1, "ships without slots are not listed")
	assert.NotEqual(t, empty, got[0].Ship.ID)
	require.Len(t, got[0].Roles, 2)
	assert.Equal(t, "Artilleur", got[0].Roles[0].Role)
	assert.Len(t, got[0].Roles[0].Slots, 2)

	detail, tpls, err := f.svc.ShipDetail(f.ctx, f.shipID)
	require.NoError(t, err)
	assert.Len(t, tpls, 2)
	assert.Equal(t, "support", detail.Classification.Category)
}
