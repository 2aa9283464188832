package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ckfr/ops-allocation/internal/metrics"
	"github.com/ckfr/ops-allocation/internal/model"
)

// SlotStore is the part of the slot repository the reconciler needs.
type SlotStore interface {
	ExistingIndices(ctx context.Context, shipID uint64, roleName string) (map[uint16]bool, error)
	InsertOpen(ctx context.Context, shipID uint64, roleName string, index uint16) (bool, error)
}

// TemplateLister lists every role template.
type TemplateLister interface {
	ListAll(ctx context.Context) ([]model.ShipRoleTemplate, error)
}

// Reconciler keeps role slots in step with role templates.  It only ever
// adds open seats: it never deletes a slot, never changes a slot's user or
// status, and ignores seats whose index is above the template's count.
type Reconciler struct {
	slots     SlotStore
	templates TemplateLister
	log       *slog.Logger
}

// NewReconciler builds a Reconciler.  templates may be nil when only
// Reconcile is used.
func NewReconciler(slots SlotStore, templates TemplateLister, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{slots: slots, templates: templates, log: log.With("component", "reconciler")}
}

// Reconcile makes sure seats 1..t.Slots exist for (t.ShipID, t.RoleName)
// and returns how many it created.  The existing-index read only saves
// round trips; the unique key on the seat is what prevents duplicates, and
// a seat that another writer inserted first counts as already present.
func (r *Reconciler) Reconcile(ctx context.Context, t model.ShipRoleTemplate) (int, error) {
	existing, err := r.slots.ExistingIndices(ctx, t.ShipID, t.RoleName)
	if err != nil {
		return 0, fmt.Errorf("read seats for ship %d role %q: %w", t.ShipID, t.RoleName, err)
	}
	created := 0
	for i := 1; i <= int(t.Slots); i++ {
		idx := uint16(i)
		if existing[idx] {
			continue
		}
		ok, err := r.slots.InsertOpen(ctx, t.ShipID, t.RoleName, idx)
		if err != nil {
			return created, err
		}
		if !ok {
			metrics.SlotConflicts.Inc()
			r.log.Debug("seat already provisioned", "ship_id", t.ShipID, "role", t.RoleName, "index", idx)
			continue
		}
		created++
	}
	if created > 0 {
		metrics.SlotsProvisioned.Add(float64(created))
		r.log.Info("slots provisioned", "ship_id", t.ShipID, "role", t.RoleName, "created", created, "slots", t.Slots)
	}
	return created, nil
}

// ReconcileAll runs Reconcile for every template.
func (r *Reconciler) ReconcileAll(ctx context.Context) (int, error) {
	if r.templates == nil {
		return 0, fmt.Errorf("reconcile all: no template source")
	}
	all, err := r.templates.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, t := range all {
		n, err := r.Reconcile(ctx, t)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
