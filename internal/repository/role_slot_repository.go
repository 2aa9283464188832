package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ckfr/ops-allocation/internal/database"
	"github.com/ckfr/ops-allocation/internal/model"
)

// ErrSlotNotFound is returned when a role slot lookup yields no rows.
var ErrSlotNotFound = errors.New("role slot not found")

// ErrInvalidSlot is returned when an assignment carries an unknown status.
var ErrInvalidSlot = errors.New("invalid role slot")

const slotSelect = `SELECT s.id, s.ship_id, s.role_name, s.seat_index, s.user_id, u.username, s.status, s.updated_at
                    FROM role_slots s
                    LEFT JOIN users u ON u.id = s.user_id`

// SlotRepo provides methods to work with role slots in the database.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo constructs a SlotRepo with the given DB handle.
func NewSlotRepo(db *sql.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

func scanSlot(row rowScanner, s *model.RoleSlot) error {
	var (
		userID   sql.NullInt64
		username sql.NullString
	)
	if err := row.Scan(&s.ID, &s.ShipID, &s.RoleName, &s.Index, &userID, &username, &s.Status, &s.UpdatedAt); err != nil {
		return err
	}
	s.UserID, s.Username = nil, nil
	if userID.Valid {
		id := uint64(userID.Int64)
		s.UserID = &id
	}
	if username.Valid {
		name := username.String
		s.Username = &name
	}
	return nil
}

// ExistingIndices returns the seat indices already present for a ship and
// role.  The set is only a hint for skipping inserts; the unique key on
// (ship_id, role_name, seat_index) is what prevents duplicates.
func (r *SlotRepo) ExistingIndices(ctx context.Context, shipID uint64, roleName string) (map[uint16]bool, error) {
	const q = `SELECT seat_index FROM role_slots WHERE ship_id = ? AND role_name = ?`
	rows, err := r.db.QueryContext(ctx, q, shipID, roleName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint16]bool)
	for rows.Next() {
		var idx uint16
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out[idx] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertOpen creates an open, unassigned slot.  When another writer has
// already provisioned the same seat the unique key rejects the insert and
// InsertOpen reports created=false with a nil error.
func (r *SlotRepo) InsertOpen(ctx context.Context, shipID uint64, roleName string, index uint16) (bool, error) {
	const q = `INSERT INTO role_slots (ship_id, role_name, seat_index, user_id, status) VALUES (?, ?, ?, NULL, ?)`
	if _, err := r.db.ExecContext(ctx, q, shipID, roleName, index, model.SlotOpen); err != nil {
		if database.IsDuplicate(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert slot %d/%s/%d: %w", shipID, roleName, index, err)
	}
	return true, nil
}

// GetByID retrieves a slot by its id.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.RoleSlot, error) {
	var s model.RoleSlot
	if err := scanSlot(r.db.QueryRowContext(ctx, slotSelect+` WHERE s.id = ?`, id), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByShip returns the slots of a ship ordered by role name then index.
func (r *SlotRepo) ListByShip(ctx context.Context, shipID uint64) ([]model.RoleSlot, error) {
	return r.list(ctx, slotSelect+` WHERE s.ship_id = ? ORDER BY s.role_name, s.seat_index`, shipID)
}

// ListAll returns every slot ordered by ship, role name and index.
func (r *SlotRepo) ListAll(ctx context.Context) ([]model.RoleSlot, error) {
	return r.list(ctx, slotSelect+` ORDER BY s.ship_id, s.role_name, s.seat_index`)
}

func (r *SlotRepo) list(ctx context.Context, q string, args ...any) ([]model.RoleSlot, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoleSlot
	for rows.Next() {
		var s model.RoleSlot
		if err := scanSlot(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Assign sets the user and status of a slot.  The two are stored as given:
// no correlation between them is enforced.
func (r *SlotRepo) Assign(ctx context.Context, id uint64, userID *uint64, status string) error {
	if !model.ValidSlotStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSlot, status)
	}
	const q = `UPDATE role_slots SET user_id = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, userID, status, id)
	if err != nil {
		if database.IsForeignKey(err) {
			return ErrUserNotFound
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSlotNotFound
	}
	return nil
}
