package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ckfr/ops-allocation/internal/database"
	"github.com/ckfr/ops-allocation/internal/model"
)

// HighlightedShipRepo stores the ships featured in an operation briefing
// and their named crew rosters.
type HighlightedShipRepo struct {
	db *sql.DB
}

// NewHighlightedShipRepo constructs a HighlightedShipRepo.
func NewHighlightedShipRepo(db *sql.DB) *HighlightedShipRepo {
	return &HighlightedShipRepo{db: db}
}

// ListByOperation returns the highlighted ships of an operation ordered by
// ship name, each with its crew ordered by role then position.
func (r *HighlightedShipRepo) ListByOperation(ctx context.Context, operationID uint64) ([]model.HighlightedShip, error) {
	const qShips = `SELECT h.id, h.operation_id, h.ship_id, s.name
	                FROM operation_highlighted_ships h
	                JOIN ships s ON s.id = h.ship_id
	                WHERE h.operation_id = ?
	                ORDER BY s.name, h.id`
	rows, err := r.db.QueryContext(ctx, qShips, operationID)
	if err != nil {
		return nil, err
	}
	out := []model.HighlightedShip{}
	pos := map[uint64]int{}
	for rows.Next() {
		var h model.HighlightedShip
		if err := rows.Scan(&h.ID, &h.OperationID, &h.ShipID, &h.ShipName); err != nil {
			rows.Close()
			return nil, err
		}
		h.Crew = []model.CrewAssignment{}
		pos[h.ID] = len(out)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	const qCrew = `SELECT c.id, c.highlighted_ship_id, c.role, c.crew_name, c.sort_order
	               FROM operation_highlighted_crew c
	               JOIN operation_highlighted_ships h ON h.id = c.highlighted_ship_id
	               WHERE h.operation_id = ?
	               ORDER BY c.highlighted_ship_id, c.role, c.sort_order, c.id`
	crows, err := r.db.QueryContext(ctx, qCrew, operationID)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var c model.CrewAssignment
		if err := crows.Scan(&c.ID, &c.HighlightedShipID, &c.Role, &c.CrewName, &c.Order); err != nil {
			return nil, err
		}
		if i, ok := pos[c.HighlightedShipID]; ok {
			out[i].Crew = append(out[i].Crew, c)
		}
	}
	return out, crows.Err()
}

// ReplaceForOperation deletes every highlighted ship (and crew) of the
// operation and inserts ships in their place, all in one transaction.  The
// set is never diffed.  Crew Order values are taken as given.
func (r *HighlightedShipRepo) ReplaceForOperation(ctx context.Context, operationID uint64, ships []model.HighlightedShip) (err error) {
	for _, h := range ships {
		for _, c := range h.Crew {
			if !model.ValidCrewRole(c.Role) {
				return fmt.Errorf("%w: unknown crew role %q", ErrInvalid, c.Role)
			}
			if strings.TrimSpace(c.CrewName) == "" {
				return fmt.Errorf("%w: empty crew name", ErrInvalid)
			}
		}
	}

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

	res, err := tx.ExecContext(ctx, `UPDATE operations SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, operationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOperationNotFound
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM operation_highlighted_crew WHERE highlighted_ship_id IN
		 (SELECT id FROM operation_highlighted_ships WHERE operation_id = ?)`, operationID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM operation_highlighted_ships WHERE operation_id = ?`, operationID); err != nil {
		return err
	}

	for _, h := range ships {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO operation_highlighted_ships (operation_id, ship_id) VALUES (?, ?)`, operationID, h.ShipID)
		if err != nil {
			switch {
			case database.IsDuplicate(err):
				return fmt.Errorf("%w: ship %d highlighted twice", ErrInvalid, h.ShipID)
			case database.IsForeignKey(err):
				return fmt.Errorf("%w: id %d", ErrShipNotFound, h.ShipID)
			}
			return err
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return idErr
		}
		for _, c := range h.Crew {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO operation_highlighted_crew (highlighted_ship_id, role, crew_name, sort_order) VALUES (?, ?, ?, ?)`,
				id, c.Role, strings.TrimSpace(c.CrewName), c.Order); err != nil {
				return err
			}
		}
	}
	return nil
}
