package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/testutil"
)

func TestOperationRepo_SaveReturnsDemoted(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewOperationRepo(db)
	ctx := context.Background()

	a := &model.Operation{Title: "A", IsActive: true}
	demoted, err := repo.Save(ctx, a)
	require.NoError(t, err)
	assert.Zero(t, demoted)
	assert.True(t, a.IsActive)

	b := &model.Operation{Title: "B", IsActive: true}
	demoted, err = repo.Save(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, a.ID, demoted)

	active, err := repo.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)

	// re-activating the active operation demotes nobody
	demoted, err = repo.Save(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, demoted)
}

func TestOperationRepo_PointerTableHoldsOneRow(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewOperationRepo(db)
	ctx := context.Background()
	a := &model.Operation{Title: "A", IsActive: true}
	b := &model.Operation{Title: "B"}
	_, err := repo.Save(ctx, a)
	require.NoError(t, err)
	_, err = repo.Save(ctx, b)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO active_operation (slot, operation_id) VALUES (2, ?)`, b.ID)
	assert.Error(t, err, "slot is pinned to 1")
	_, err = db.Exec(`INSERT INTO active_operation (slot, operation_id) VALUES (1, ?)`, b.ID)
	assert.Error(t, err, "slot 1 is taken")

	n, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOperationRepo_UnknownHighlightedShip(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewOperationRepo(db)
	ghost := uint64(77)
	_, err := repo.Save(context.Background(), &model.Operation{Title: "A", HighlightedShipID: &ghost})
	assert.ErrorIs(t, err, ErrShipNotFound)
	assert.Equal(t, 0, testutil.CountRows(t, db, "operations"))
}

func TestOperationRepo_ListOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewOperationRepo(db)
	ctx := context.Background()
	var ids []uint64
	for _, title := range []string{"A", "B", "C"} {
		op := &model.Operation{Title: title}
		_, err := repo.Save(ctx, op)
		require.NoError(t, err)
		ids = append(ids, op.ID)
	}
	_, err := db.Exec(`UPDATE operations SET updated_at = '2030-01-01 00:00:00' WHERE id = ?`, ids[0])
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[0], list[0].ID)
}

func TestHighlightedShipRepo_DeleteOperationCascades(t *testing.T) {
	db := testutil.NewTestDB(t)
	ops := NewOperationRepo(db)
	hs := NewHighlightedShipRepo(db)
	ctx := context.Background()
	ship := testutil.InsertShip(t, db, "RSI Polaris", model.CategoryCapital)
	op := &model.Operation{Title: "A"}
	_, err := ops.Save(ctx, op)
	require.NoError(t, err)

	require.NoError(t, hs.ReplaceForOperation(ctx, op.ID, []model.HighlightedShip{{
		ShipID: ship,
		Crew:   []model.CrewAssignment{{Role: model.CrewPilot, CrewName: "Ash"}},
	}}))
	listed, err := hs.ListByOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	// the highlighted ship protects the catalog ship
	assert.ErrorIs(t, NewShipRepo(db).Delete(ctx, ship), ErrConflict)

	require.NoError(t, ops.Delete(ctx, op.ID))
	assert.Equal(t, 0, testutil.CountRows(t, db, "operation_highlighted_ships"))
	assert.Equal(t, 0, testutil.CountRows(t, db, "operation_highlighted_crew"))
	assert.ErrorIs(t, ops.Delete(ctx, op.ID), ErrOperationNotFound)
}

func TestHighlightedShipRepo_RejectsBadCrew(t *testing.T) {
	db := testutil.NewTestDB(t)
	hs := NewHighlightedShipRepo(db)
	err := hs.ReplaceForOperation(context.Background(), 1, []model.HighlightedShip{{
		ShipID: 1, Crew: []model.CrewAssignment{{Role: "cook", CrewName: "Ash"}},
	}})
	assert.ErrorIs(t, err, ErrInvalid)
}
