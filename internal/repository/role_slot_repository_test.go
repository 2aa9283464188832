package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/testutil"
)

func TestSlotRepo_InsertOpenSwallowsDuplicates(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()
	ship := testutil.InsertShip(t, db, "Drake Corsair", model.CategoryMultirole)

	created, err := repo.InsertOpen(ctx, ship, "Pilote", 1)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.InsertOpen(ctx, ship, "Pilote", 1)
	require.NoError(t, err)
	assert.False(t, created)

	// same index, other role
	created, err = repo.InsertOpen(ctx, ship, "Artilleur", 1)
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, 2, testutil.CountRows(t, db, "role_slots"))
}

func TestSlotRepo_InsertOpenUnknownShip(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, err := NewSlotRepo(db).InsertOpen(context.Background(), 999, "Pilote", 1)
	assert.Error(t, err)
}

func TestSlotRepo_ExistingIndices(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()
	ship := testutil.InsertShip(t, db, "Drake Corsair", model.CategoryMultirole)
	for _, idx := range []uint16{1, 3} {
		_, err := repo.InsertOpen(ctx, ship, "Pilote", idx)
		require.NoError(t, err)
	}

	got, err := repo.ExistingIndices(ctx, ship, "Pilote")
	require.NoError(t, err)
	assert.Equal(t, map[uint16]bool{1: true, 3: true}, got)

	got, err = repo.ExistingIndices(ctx, ship, "Artilleur")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSlotRepo_AssignAndList(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSlotRepo(db)
	ctx := context.Background()
	ship := testutil.InsertShip(t, db, "Drake Corsair", model.CategoryMultirole)
	user := testutil.InsertUser(t, db, "kestrel")
	_, err := repo.InsertOpen(ctx, ship, "Pilote", 2)
	require.NoError(t, err)
	_, err = repo.InsertOpen(ctx, ship, "Pilote", 1)
	require.NoError(t, err)

	slots, err := repo.ListByShip(ctx, ship)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, uint16(1), slots[0].Index)

	require.NoError(t, repo.Assign(ctx, slots[0].ID, &user, model.SlotAssigned))
	got, err := repo.GetByID(ctx, slots[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.UserID)
	assert.Equal(t, user, *got.UserID)
	assert.Equal(t, "kestrel", *got.Username)
	assert.Equal(t, model.SlotAssigned, got.Status)

	assert.ErrorIs(t, repo.Assign(ctx, slots[0].ID, nil, "bogus"), ErrInvalidSlot)
	assert.ErrorIs(t, repo.Assign(ctx, 999, nil, model.SlotOpen), ErrSlotNotFound)
	ghost := uint64(404)
	assert.ErrorIs(t, repo.Assign(ctx, slots[0].ID, &ghost, model.SlotOpen), ErrUserNotFound)

	// deleting the user reopens nothing but clears the reference
	_, err = db.Exec(`DELETE FROM users WHERE id = ?`, user)
	require.NoError(t, err)
	got, err = repo.GetByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got.UserID)
	assert.Equal(t, model.SlotAssigned, got.Status)
}

func TestTemplateRepo(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTemplateRepo(db)
	ctx := context.Background()
	ship := testutil.InsertShip(t, db, "Drake Corsair", model.CategoryMultirole)

	tpl := &model.ShipRoleTemplate{ShipID: ship, RoleName: "Pilote", Slots: 2}
	require.NoError(t, repo.Create(ctx, tpl))
	assert.ErrorIs(t, repo.Create(ctx, &model.ShipRoleTemplate{ShipID: ship, RoleName: "Pilote", Slots: 1}), ErrDuplicateRole)

	other := &model.ShipRoleTemplate{ShipID: ship, RoleName: "Artilleur", Slots: 1}
	require.NoError(t, repo.Create(ctx, other))

	assert.ErrorIs(t, repo.Update(ctx, &model.ShipRoleTemplate{ID: tpl.ID, RoleName: "Pilote", Slots: 2}), ErrNoChange)
	require.NoError(t, repo.Update(ctx, &model.ShipRoleTemplate{ID: tpl.ID, RoleName: "Pilote", Slots: 3}))
	assert.ErrorIs(t, repo.Update(ctx, &model.ShipRoleTemplate{ID: tpl.ID, RoleName: "Artilleur", Slots: 3}), ErrDuplicateRole)
	assert.ErrorIs(t, repo.Update(ctx, &model.ShipRoleTemplate{ID: 999, RoleName: "X", Slots: 1}), ErrTemplateNotFound)

	list, err := repo.ListByShip(ctx, ship)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Artilleur", list[0].RoleName)
	assert.Equal(t, uint16(3), list[1].Slots)

	n, err := repo.CountByShip(ctx, ship)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.Delete(ctx, tpl.ID))
	assert.ErrorIs(t, repo.Delete(ctx, tpl.ID), ErrTemplateNotFound)

	// the schema refuses a zero seat count
	_, err = db.Exec(`INSERT INTO ship_role_templates (ship_id, role_name, slots) VALUES (?, 'Navigateur', 0)`, ship)
	assert.Error(t, err)
}
