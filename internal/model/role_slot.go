package model

import "time"

// Slot statuses.  The status is advisory and is stored independently of
// the assigned user: a slot may be "assigned" without a user or "open"
// with one.
const (
	SlotOpen      = "open"
	SlotAssigned  = "assigned"
	SlotConfirmed = "confirmed"
)

// ValidSlotStatus reports whether s is a known slot status.
func ValidSlotStatus(s string) bool {
	switch s {
	case SlotOpen, SlotAssigned, SlotConfirmed:
		return true
	}
	return false
}

// RoleSlot is one assignable seat: ship × role × seat index.  Slots are
// created by the reconciler and are never deleted by it.
//
// Fields:
//
//	ID       – primary key.
//	ShipID   – ship the seat belongs to.
//	RoleName – role of the seat (matches a template's RoleName).
//	Index    – 1-based seat index within (ShipID, RoleName).
//	UserID   – assigned user, nil for an open seat.
//	Username – assigned user's name, filled by joined reads.
//	Status   – open, assigned or confirmed.
type RoleSlot struct {
	ID        uint64    `json:"id"`
	ShipID    uint64    `json:"ship_id"`
	RoleName  string    `json:"role_name"`
	Index     uint16    `json:"index"`
	UserID    *uint64   `json:"user_id"`
	Username  *string   `json:"username,omitempty"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}
