// Package metrics exposes Prometheus counters for slot provisioning,
// operation activation and allocation events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SlotsProvisioned counts role slots created by the reconciler.
	SlotsProvisioned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ops",
		Name:      "slots_provisioned_total",
		Help:      "Role slots created by the reconciler.",
	})

	// SlotConflicts counts seat inserts rejected by the unique key because
	// another writer had already provisioned the seat.
	SlotConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ops",
		Name:      "slot_conflicts_absorbed_total",
		Help:      "Seat inserts absorbed as already provisioned.",
	})

	// OperationActivations counts saves that made an operation active.
	OperationActivations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ops",
		Name:      "operation_activations_total",
		Help:      "Operation saves with the active flag set.",
	})

	// EventsPublished counts allocation events by type and outcome.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ops",
		Name:      "events_published_total",
		Help:      "Allocation events handed to the message broker.",
	}, []string{"type", "result"})
)
