// Package repository contains data access logic separated from HTTP handlers.
// This file holds the ship catalog: ships are reference data referenced by
// role templates, role slots, operations and highlighted-ship rows.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ckfr/ops-allocation/internal/database"
	"github.com/ckfr/ops-allocation/internal/model"
)

// ErrShipNotFound is returned when a ship cannot be found in the DB.
var ErrShipNotFound = errors.New("ship not found")

// ErrDuplicateShip is returned when a ship name is already taken.
var ErrDuplicateShip = errors.New("ship name already exists")

const shipColumns = `id, name, manufacturer, role, cargo_capacity, category, min_crew, max_crew, created_at, updated_at`

// ShipFilter narrows ShipRepo.List.  Empty fields are ignored.
type ShipFilter struct {
	Category string // legacy category code
	Role     string // exact role text
}

// ShipRepo encapsulates all database queries related to ships.
type ShipRepo struct {
	db *sql.DB
}

// NewShipRepo constructs a ShipRepo with the provided DB handle.
func NewShipRepo(db *sql.DB) *ShipRepo {
	return &ShipRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShip(row rowScanner, s *model.Ship) error {
	return row.Scan(&s.ID, &s.Name, &s.Manufacturer, &s.Role, &s.CargoCapacity,
		&s.Category, &s.MinCrew, &s.MaxCrew, &s.CreatedAt, &s.UpdatedAt)
}

// Create validates and inserts a ship.  On success the ID and timestamp
// fields are populated from the stored row.
func (r *ShipRepo) Create(ctx context.Context, s *model.Ship) error {
	if err := s.Validate(); err != nil {
		return err
	}
	const q = `INSERT INTO ships (name, manufacturer, role, cargo_capacity, category, min_crew, max_crew)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, strings.TrimSpace(s.Name), s.Manufacturer, s.Role,
		cargoOrDash(s.CargoCapacity), s.Category, s.MinCrew, s.MaxCrew)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrDuplicateShip
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// GetByID fetches a ship by its ID.  It returns ErrShipNotFound if no row
// is found.
func (r *ShipRepo) GetByID(ctx context.Context, id uint64) (*model.Ship, error) {
	q := `SELECT ` + shipColumns + ` FROM ships WHERE id = ?`
	var s model.Ship
	if err := scanShip(r.db.QueryRowContext(ctx, q, id), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShipNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetByName fetches a ship by its unique name.
func (r *ShipRepo) GetByName(ctx context.Context, name string) (*model.Ship, error) {
	q := `SELECT ` + shipColumns + ` FROM ships WHERE name = ?`
	var s model.Ship
	if err := scanShip(r.db.QueryRowContext(ctx, q, strings.TrimSpace(name)), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShipNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List returns ships ordered by name, narrowed by the filter.
func (r *ShipRepo) List(ctx context.Context, f ShipFilter) ([]model.Ship, error) {
	q := `SELECT ` + shipColumns + ` FROM ships WHERE 1 = 1`
	var args []any
	if f.Category != "" {
		q += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Role != "" {
		q += ` AND role = ?`
		args = append(args, f.Role)
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Ship
	for rows.Next() {
		var s model.Ship
		if err := scanShip(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DistinctRoles returns the non-empty role texts in alphabetical order.
// The ships list offers them as the "type" filter.
func (r *ShipRepo) DistinctRoles(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT role FROM ships WHERE role <> '' ORDER BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// Update overwrites the mutable ship fields.  Returns ErrShipNotFound when
// no row matches.
func (r *ShipRepo) Update(ctx context.Context, s *model.Ship) error {
	if err := s.Validate(); err != nil {
		return err
	}
	const q = `UPDATE ships
	           SET name = ?, manufacturer = ?, role = ?, cargo_capacity = ?, category = ?,
	               min_crew = ?, max_crew = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, strings.TrimSpace(s.Name), s.Manufacturer, s.Role,
		cargoOrDash(s.CargoCapacity), s.Category, s.MinCrew, s.MaxCrew, s.ID)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrDuplicateShip
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrShipNotFound
	}
	return nil
}

// UpsertByName creates the ship or refreshes the catalog fields of the
// existing ship with the same name.  It reports whether a row was created.
func (r *ShipRepo) UpsertByName(ctx context.Context, s *model.Ship) (bool, error) {
	cur, err := r.GetByName(ctx, s.Name)
	switch {
	case errors.Is(err, ErrShipNotFound):
		if err := r.Create(ctx, s); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	}
	s.ID = cur.ID
	if err := r.Update(ctx, s); err != nil {
		return false, err
	}
	return false, nil
}

// Delete removes a ship.  Ships referenced by role templates, role slots
// or highlighted-ship rows are protected and ErrConflict is returned;
// operations that merely highlight the ship have the reference cleared.
func (r *ShipRepo) Delete(ctx context.Context, id uint64) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT 1 FROM ships WHERE id = ?`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShipNotFound
		}
		return err
	}

	const qRefs = `SELECT
	    (SELECT COUNT(*) FROM ship_role_templates WHERE ship_id = ?) +
	    (SELECT COUNT(*) FROM role_slots WHERE ship_id = ?) +
	    (SELECT COUNT(*) FROM operation_highlighted_ships WHERE ship_id = ?)`
	var refs int
	if err = tx.QueryRowContext(ctx, qRefs, id, id, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w: ship %d is referenced by %d rows", ErrConflict, id, refs)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE operations SET highlighted_ship_id = NULL WHERE highlighted_ship_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM ships WHERE id = ?`, id); err != nil {
		if database.IsForeignKey(err) {
			return fmt.Errorf("%w: ship %d is referenced", ErrConflict, id)
		}
		return err
	}
	return nil
}

func cargoOrDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}
