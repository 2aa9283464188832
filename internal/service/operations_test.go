package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckfr/ops-allocation/internal/model"
	q "github.com/ckfr/ops-allocation/internal/queue"
	"github.com/ckfr/ops-allocation/internal/repository"
	dbtest "github.com/ckfr/ops-allocation/internal/testutil"
)

type recordingPublisher struct {
	mu    sync.Mutex
	slots []q.SlotUpdatedEvent
	ops   []q.OperationActivatedEvent
}

func (p *recordingPublisher) PublishSlotUpdated(_ context.Context, ev q.SlotUpdatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots = append(p.slots, ev)
	return nil
}

func (p *recordingPublisher) PublishOperationActivated(_ context.Context, ev q.OperationActivatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, ev)
	return nil
}

type opsFixture struct {
	ctx context.Context
	db  *sql.DB
	ops *repository.OperationRepo
	svc *OperationService
	pub *recordingPublisher
}

func newOpsFixture(t *testing.T) *opsFixture {
	t.Helper()
	db := dbtest.NewTestDB(t)
	f := &opsFixture{ctx: context.Background(), db: db, ops: repository.NewOperationRepo(db), pub: &recordingPublisher{}}
	f.svc = NewOperationService(f.ops, repository.NewHighlightedShipRepo(db), f.pub, nil)
	return f
}

func (f *opsFixture) active(t *testing.T, id uint64) bool {
	t.Helper()
	op, err := f.ops.GetByID(f.ctx, id)
	require.NoError(t, err)
	return op.IsActive
}

func TestSave_ActivatingDemotesPrevious(t *testing.T) {
	f := newOpsFixture(t)

	a := &model.Operation{Title: "Op Aurora", IsActive: true}
	require.NoError(t, f.svc.Save(f.ctx, 1, a))
	b := &model.Operation{Title: "Op Borealis", IsActive: true}
	require.NoError(t, f.svc.Save(f.ctx, 1, b))

	assert.False(t, f.active(t, a.ID))
	assert.True(t, f.active(t, b.ID))
	assert.True(t, b.IsActive)

	n, err := f.ops.CountActive(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, f.pub.ops, 2)
	assert.Equal(t, uint64(0), f.pub.ops[0].DemotedID)
	assert.Equal(t, a.ID, f.pub.ops[1].DemotedID)
	assert.Equal(t, b.ID, f.pub.ops[1].OperationID)
}

func TestSave_ExactlyOneActiveAfterEveryActivation(t *testing.T) {
	f := newOpsFixture(t)
	var all []*model.Operation
	for _, title := range []string{"A", "B", "C", "D"} {
		op := &model.Operation{Title: title}
		require.NoError(t, f.svc.Save(f.ctx, 1, op))
		all = append(all, op)
	}
	for _, target := range []int{2, 0, 3, 3, 1} {
		op := *all[target]
		op.IsActive = true
		require.NoError(t, f.svc.Save(f.ctx, 1, &op))

		list, err := f.ops.List(f.ctx)
		require.NoError(t, err)
		active := 0
		for _, o := range list {
			if o.IsActive {
				active++
				assert.Equal(t, all[target].ID, o.ID)
			}
		}
		assert.Equal(t, 1, active)
	}
}

func TestSave_ResavingActiveDoesNotRepublish(t *testing.T) {
	f := newOpsFixture(t)
	op := &model.Operation{Title: "Op Aurora", IsActive: true}
	require.NoError(t, f.svc.Save(f.ctx, 1, op))
	op.Description = "briefing at 21h"
	require.NoError(t, f.svc.Save(f.ctx, 1, op))

	assert.True(t, f.active(t, op.ID))
	assert.Len(t, f.pub.ops, 1)
}

func TestSave_DeactivateClearsPointer(t *testing.T) {
	f := newOpsFixture(t)
	a := &model.Operation{Title: "A", IsActive: true}
	require.NoError(t, f.svc.Save(f.ctx, 1, a))
	b := &model.Operation{Title: "B"}
	require.NoError(t, f.svc.Save(f.ctx, 1, b))
	assert.True(t, f.active(t, a.ID), "saving an inactive operation leaves the active one alone")

	a.IsActive = false
	require.NoError(t, f.svc.Save(f.ctx, 1, a))
	_, err := f.ops.Active(f.ctx)
	assert.ErrorIs(t, err, repository.ErrOperationNotFound)
}

func TestSave_Validation(t *testing.T) {
	f := newOpsFixture(t)
	assert.ErrorIs(t, f.svc.Save(f.ctx, 1, &model.Operation{Title: "  "}), repository.ErrInvalid)
	assert.ErrorIs(t, f.svc.Save(f.ctx, 1, &model.Operation{ID: 42, Title: "ghost"}), repository.ErrOperationNotFound)
}

func TestOverview_FallsBackToMostRecentlyUpdated(t *testing.T) {
	f := newOpsFixture(t)
	_, err := f.svc.Overview(f.ctx)
	assert.ErrorIs(t, err, repository.ErrOperationNotFound)

	old := &model.Operation{Title: "Old"}
	recent := &model.Operation{Title: "Recent"}
	require.NoError(t, f.svc.Save(f.ctx, 1, old))
	require.NoError(t, f.svc.Save(f.ctx, 1, recent))
	_, err = f.db.Exec(`UPDATE operations SET updated_at = '2025-01-01 10:00:00' WHERE id = ?`, old.ID)
	require.NoError(t, err)
	_, err = f.db.Exec(`UPDATE operations SET updated_at = '2025-02-01 10:00:00' WHERE id = ?`, recent.ID)
	require.NoError(t, err)

	got, err := f.svc.Overview(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, recent.ID, got.ID)
	assert.False(t, got.IsActive)

	old.IsActive = true
	require.NoError(t, f.svc.Save(f.ctx, 1, old))
	_, err = f.db.Exec(`UPDATE operations SET updated_at = '2025-01-01 10:00:00' WHERE id = ?`, old.ID)
	require.NoError(t, err)

	got, err = f.svc.Overview(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, old.ID, got.ID, "the active operation wins over a more recent one")
	assert.True(t, got.IsActive)
}

func TestDeleteActiveOperation(t *testing.T) {
	f := newOpsFixture(t)
	a := &model.Operation{Title: "A", IsActive: true}
	require.NoError(t, f.svc.Save(f.ctx, 1, a))
	require.NoError(t, f.ops.Delete(f.ctx, a.ID))

	n, err := f.ops.CountActive(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSetHighlightedShips_ReplacesWholeSet(t *testing.T) {
	f := newOpsFixture(t)
	idris := dbtest.InsertShip(t, f.db, "Aegis Idris-P", model.CategoryCapital)
	polaris := dbtest.InsertShip(t, f.db, "RSI Polaris", model.CategoryCapital)
	op := &model.Operation{Title: "Op Aurora"}
	require.NoError(t, f.svc.Save(f.ctx, 1, op))

	first := []HighlightedShipInput{{
		ShipID: idris,
		Crew: map[string]json.RawMessage{
			"pilot":  json.RawMessage(`["Kestrel"]`),
			"gunner": json.RawMessage(`"Ash\nBirch\n\n"`),
		},
	}}
	got, err := f.svc.SetHighlightedShips(f.ctx, op.ID, first)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Aegis Idris-P", got[0].ShipName)
	require.Len(t, got[0].Crew, 3)
	assert.Equal(t, model.CrewGunner, got[0].Crew[0].Role)
	assert.Equal(t, "Ash", got[0].Crew[0].CrewName)
	assert.Equal(t, 0, got[0].Crew[0].Order)
	assert.Equal(t, "Birch", got[0].Crew[1].CrewName)
	assert.Equal(t, 1, got[0].Crew[1].Order)
	assert.Equal(t, model.CrewPilot, got[0].Crew[2].Role)

	second := []HighlightedShipInput{{
		ShipID: polaris,
		Crew:   map[string]json.RawMessage{"torpedo": json.RawMessage(`[{"name":"Cedar"}]`)},
	}}
	got, err = f.svc.SetHighlightedShips(f.ctx, op.ID, second)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, polaris, got[0].ShipID)
	require.Len(t, got[0].Crew, 1)
	assert.Equal(t, "Cedar", got[0].Crew[0].CrewName)
	assert.Equal(t, 1, dbtest.CountRows(t, f.db, "operation_highlighted_crew"))
}

func TestSetHighlightedShips_Errors(t *testing.T) {
	f := newOpsFixture(t)
	ship := dbtest.InsertShip(t, f.db, "RSI Polaris", model.CategoryCapital)
	op := &model.Operation{Title: "Op"}
	require.NoError(t, f.svc.Save(f.ctx, 1, op))

	_, err := f.svc.SetHighlightedShips(f.ctx, op.ID, []HighlightedShipInput{{ShipID: ship}, {ShipID: ship}})
	assert.ErrorIs(t, err, repository.ErrInvalid)

	_, err = f.svc.SetHighlightedShips(f.ctx, op.ID, []HighlightedShipInput{{
		ShipID: ship, Crew: map[string]json.RawMessage{"medic": json.RawMessage(`["x"]`)},
	}})
	assert.ErrorIs(t, err, repository.ErrInvalid)

	_, err = f.svc.SetHighlightedShips(f.ctx, op.ID, []HighlightedShipInput{{ShipID: 999}})
	assert.ErrorIs(t, err, repository.ErrShipNotFound)

	_, err = f.svc.SetHighlightedShips(f.ctx, 999, nil)
	assert.ErrorIs(t, err, repository.ErrOperationNotFound)
}
