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

// ErrOperationNotFound is returned when an operation lookup yields no rows.
var ErrOperationNotFound = errors.New("operation not found")

// is_active is not a column: an operation is active when the single
// active_operation row points at it.
const opSelect = `SELECT o.id, o.title, o.description, o.highlighted_ship_id,
                         CASE WHEN a.operation_id IS NULL THEN 0 ELSE 1 END AS is_active,
                         o.created_at, o.updated_at
                  FROM operations o
                  LEFT JOIN active_operation a ON a.operation_id = o.id`

// OperationRepo manages operations and the active-operation pointer.
type OperationRepo struct {
	db *sql.DB
}

// NewOperationRepo constructs an OperationRepo with the given DB handle.
func NewOperationRepo(db *sql.DB) *OperationRepo {
	return &OperationRepo{db: db}
}

func scanOperation(row rowScanner, op *model.Operation) error {
	var ship sql.NullInt64
	if err := row.Scan(&op.ID, &op.Title, &op.Description, &ship, &op.IsActive, &op.CreatedAt, &op.UpdatedAt); err != nil {
		return err
	}
	op.HighlightedShipID = nil
	if ship.Valid {
		id := uint64(ship.Int64)
		op.HighlightedShipID = &id
	}
	return nil
}

// Save inserts (ID == 0) or updates an operation and applies its IsActive
// flag in the same transaction.  Activating points the active_operation row
// at this operation, which demotes whichever operation held it before;
// deactivating clears the pointer only if it points here.
//
// It returns the ID of the operation demoted by this save, or 0.  On
// success op is refreshed from the stored row.
func (r *OperationRepo) Save(ctx context.Context, op *model.Operation) (demoted uint64, err error) {
	op.Title = strings.TrimSpace(op.Title)
	if op.Title == "" {
		return 0, fmt.Errorf("%w: title is required", ErrInvalid)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if op.ID == 0 {
		res, execErr := tx.ExecContext(ctx,
			`INSERT INTO operations (title, description, highlighted_ship_id) VALUES (?, ?, ?)`,
			op.Title, op.Description, op.HighlightedShipID)
		if execErr != nil {
			return 0, mapOperationWriteErr(execErr)
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return 0, idErr
		}
		op.ID = uint64(id)
	} else {
		res, execErr := tx.ExecContext(ctx,
			`UPDATE operations SET title = ?, description = ?, highlighted_ship_id = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			op.Title, op.Description, op.HighlightedShipID, op.ID)
		if execErr != nil {
			return 0, mapOperationWriteErr(execErr)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, ErrOperationNotFound
		}
	}

	var current sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT operation_id FROM active_operation WHERE slot = 1`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	err = nil

	if op.IsActive {
		if _, err = tx.ExecContext(ctx,
			`REPLACE INTO active_operation (slot, operation_id, activated_at) VALUES (1, ?, CURRENT_TIMESTAMP)`,
			op.ID); err != nil {
			return 0, err
		}
		if current.Valid && uint64(current.Int64) != op.ID {
			demoted = uint64(current.Int64)
		}
	} else if _, err = tx.ExecContext(ctx, `DELETE FROM active_operation WHERE operation_id = ?`, op.ID); err != nil {
		return 0, err
	}

	if err = scanOperation(tx.QueryRowContext(ctx, opSelect+` WHERE o.id = ?`, op.ID), op); err != nil {
		return 0, err
	}
	return demoted, nil
}

func mapOperationWriteErr(err error) error {
	if database.IsForeignKey(err) {
		return fmt.Errorf("%w: highlighted ship", ErrShipNotFound)
	}
	return err
}

// GetByID fetches an operation with its derived active flag.
func (r *OperationRepo) GetByID(ctx context.Context, id uint64) (*model.Operation, error) {
	return r.one(ctx, opSelect+` WHERE o.id = ?`, id)
}

// Active returns the active operation or ErrOperationNotFound.
func (r *OperationRepo) Active(ctx context.Context) (*model.Operation, error) {
	return r.one(ctx, opSelect+` WHERE a.slot = 1`)
}

// Overview returns the operation to display: the active one, or the most
// recently updated operation when none is active.  ErrOperationNotFound is
// returned only when no operation exists at all.
func (r *OperationRepo) Overview(ctx context.Context) (*model.Operation, error) {
	return r.one(ctx, opSelect+` ORDER BY is_active DESC, o.updated_at DESC, o.id DESC LIMIT 1`)
}

func (r *OperationRepo) one(ctx context.Context, q string, args ...any) (*model.Operation, error) {
	var op model.Operation
	if err := scanOperation(r.db.QueryRowContext(ctx, q, args...), &op); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOperationNotFound
		}
		return nil, err
	}
	return &op, nil
}

// List returns all operations, most recently updated first.
func (r *OperationRepo) List(ctx context.Context) ([]model.Operation, error) {
	rows, err := r.db.QueryContext(ctx, opSelect+` ORDER BY o.updated_at DESC, o.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Operation
	for rows.Next() {
		var op model.Operation
		if err := scanOperation(rows, &op); err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountActive returns how many operations the pointer table marks active.
// The schema caps it at one.
func (r *OperationRepo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM active_operation`).Scan(&n)
	return n, err
}

// Delete removes an operation.  Its highlighted ships, crew rosters and the
// active pointer (if any) cascade.
func (r *OperationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM operations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOperationNotFound
	}
	return nil
}
