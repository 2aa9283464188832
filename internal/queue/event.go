// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.  Each event type has its own durable queue.
const (
	SlotUpdatedQueue        = "slot.updated"
	OperationActivatedQueue = "operation.activated"
)

// SlotUpdatedEvent is published when a manager changes a role slot's user
// or status.  It carries enough context for downstream consumers to log or
// notify without querying the primary database.
type SlotUpdatedEvent struct {
	SlotID    uint64  `json:"slot_id"`
	ShipID    uint64  `json:"ship_id"`
	ShipName  string  `json:"ship_name"`
	RoleName  string  `json:"role_name"`
	Index     uint16  `json:"index"`
	UserID    *uint64 `json:"user_id"`
	Username  string  `json:"username,omitempty"`
	Status    string  `json:"status"`
	UpdatedBy uint64  `json:"updated_by"`
	UpdatedAt string  `json:"updated_at"`
}

// OperationActivatedEvent is published when an operation becomes the active
// one.  DemotedID is the previously active operation, 0 when there was none.
type OperationActivatedEvent struct {
	OperationID uint64 `json:"operation_id"`
	Title       string `json:"title"`
	DemotedID   uint64 `json:"demoted_id"`
	ActivatedBy uint64 `json:"activated_by"`
	ActivatedAt string `json:"activated_at"`
}
