package model

import "time"

// Operation is a mission planned by the community.  At most one operation
// is active at any time; IsActive is derived from the active_operation
// pointer row rather than stored on the operation itself.
type Operation struct {
	ID                uint64    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	HighlightedShipID *uint64   `json:"highlighted_ship_id"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Crew roles available on a highlighted ship roster.
const (
	CrewGunner   = "gunner"
	CrewInfantry = "infantry"
	CrewPilot    = "pilot"
	CrewTorpedo  = "torpedo"
)

// CrewRoles lists the roster roles in display order.
var CrewRoles = []string{CrewGunner, CrewInfantry, CrewPilot, CrewTorpedo}

// ValidCrewRole reports whether r is one of CrewRoles.
func ValidCrewRole(r string) bool {
	for _, c := range CrewRoles {
		if c == r {
			return true
		}
	}
	return false
}

// HighlightedShip features a ship in an operation's briefing together with
// a named crew roster.  The roster is free text and is not linked to users
// or role slots.
type HighlightedShip struct {
	ID          uint64           `json:"id"`
	OperationID uint64           `json:"operation_id"`
	ShipID      uint64           `json:"ship_id"`
	ShipName    string           `json:"ship_name,omitempty"`
	Crew        []CrewAssignment `json:"crew"`
}

// CrewAssignment is one named crew member in a roster.  Order is the
// position within its role, starting at 0.
type CrewAssignment struct {
	ID                uint64 `json:"id"`
	HighlightedShipID uint64 `json:"highlighted_ship_id"`
	Role              string `json:"role"`
	CrewName          string `json:"crew_name"`
	Order             int    `json:"order"`
}
