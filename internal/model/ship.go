package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Legacy single-code ship categories.  They predate the keyword taxonomy
// and are still stored on every ship; the classifier falls back on them
// when a ship's role text matches no keyword.
const (
	CategoryLightFighter  = "LF"
	CategoryMediumFighter = "MF"
	CategoryHeavyFighter  = "HF"
	CategoryMultirole     = "MR"
	CategoryCapital       = "CAP"
)

// CategoryChoice pairs a legacy category code with its display label.
type CategoryChoice struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// CategoryChoices lists the legacy categories in display order.  Grouping
// helpers rely on this order.
var CategoryChoices = []CategoryChoice{
	{Code: CategoryLightFighter, Label: "Chasseur léger"},
	{Code: CategoryMediumFighter, Label: "Chasseur moyen"},
	{Code: CategoryHeavyFighter, Label: "Chasseur lourd"},
	{Code: CategoryMultirole, Label: "Multirôle"},
	{Code: CategoryCapital, Label: "Capital"},
}

// ValidCategory reports whether code is one of the legacy categories.
func ValidCategory(code string) bool {
	for _, c := range CategoryChoices {
		if c.Code == code {
			return true
		}
	}
	return false
}

// ErrInvalidShip is returned by Ship.Validate.  The wrapped message names
// the offending field.
var ErrInvalidShip = errors.New("invalid ship")

// Ship is a ship type from the catalog.  Ships are reference data: they
// are seeded or entered by managers and referenced by role templates,
// role slots and highlighted-ship rows.
//
// Fields:
//
//	ID            – primary key.
//	Name          – unique ship name.
//	Manufacturer  – free text.
//	Role          – free-text role description used for classification.
//	CargoCapacity – display string ("-" when unknown).
//	Category      – legacy category code (LF, MF, HF, MR, CAP).
//	MinCrew       – minimum crew, never above MaxCrew.
//	MaxCrew       – maximum crew.
type Ship struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	Manufacturer  string    `json:"manufacturer"`
	Role          string    `json:"role"`
	CargoCapacity string    `json:"cargo_capacity"`
	Category      string    `json:"category"`
	MinCrew       uint16    `json:"min_crew"`
	MaxCrew       uint16    `json:"max_crew"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the invariants that must hold before a ship is stored.
// The schema carries the same crew CHECK constraint.
func (s *Ship) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidShip)
	}
	if !ValidCategory(s.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidShip, s.Category)
	}
	if s.MinCrew > s.MaxCrew {
		return fmt.Errorf("%w: min_crew %d exceeds max_crew %d", ErrInvalidShip, s.MinCrew, s.MaxCrew)
	}
	return nil
}

// MaxTemplateSlots bounds the seat count of a single role template.
const MaxTemplateSlots = 64

// ShipRoleTemplate declares that a ship type needs Slots seats of RoleName.
// (ShipID, RoleName) is unique.
type ShipRoleTemplate struct {
	ID       uint64 `json:"id"`
	ShipID   uint64 `json:"ship_id"`
	RoleName string `json:"role_name"`
	Slots    uint16 `json:"slots"`
}
