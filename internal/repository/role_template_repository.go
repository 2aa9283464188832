package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ckfr/ops-allocation/internal/database"
	"github.com/ckfr/ops-allocation/internal/model"
)

// ErrTemplateNotFound is returned when a role template lookup fails.
var ErrTemplateNotFound = errors.New("role template not found")

// ErrDuplicateRole is returned when a ship already has a template for the
// submitted role name.
var ErrDuplicateRole = errors.New("role already declared for this ship")

// TemplateRepo persists ship role templates.  It never touches role_slots:
// provisioning is the reconciler's job and template deletion deliberately
// leaves existing slots in place.
type TemplateRepo struct {
	db *sql.DB
}

// NewTemplateRepo constructs a TemplateRepo with the given DB handle.
func NewTemplateRepo(db *sql.DB) *TemplateRepo {
	return &TemplateRepo{db: db}
}

// Create inserts a template.  A (ship, role_name) collision is reported as
// ErrDuplicateRole.
func (r *TemplateRepo) Create(ctx context.Context, t *model.ShipRoleTemplate) error {
	t.RoleName = strings.TrimSpace(t.RoleName)
	const q = `INSERT INTO ship_role_templates (ship_id, role_name, slots) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.ShipID, t.RoleName, t.Slots)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrDuplicateRole
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepo) GetByID(ctx context.Context, id uint64) (*model.ShipRoleTemplate, error) {
	const q = `SELECT id, ship_id, role_name, slots FROM ship_role_templates WHERE id = ?`
	var t model.ShipRoleTemplate
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.ShipID, &t.RoleName, &t.Slots); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListByShip returns the templates of a ship ordered by role name.
func (r *TemplateRepo) ListByShip(ctx context.Context, shipID uint64) ([]model.ShipRoleTemplate, error) {
	return r.list(ctx, `SELECT id, ship_id, role_name, slots FROM ship_role_templates
	                    WHERE ship_id = ? ORDER BY role_name`, shipID)
}

// ListAll returns every template ordered by ship then role.
func (r *TemplateRepo) ListAll(ctx context.Context) ([]model.ShipRoleTemplate, error) {
	return r.list(ctx, `SELECT id, ship_id, role_name, slots FROM ship_role_templates
	                    ORDER BY ship_id, role_name`)
}

func (r *TemplateRepo) list(ctx context.Context, q string, args ...any) ([]model.ShipRoleTemplate, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ShipRoleTemplate
	for rows.Next() {
		var t model.ShipRoleTemplate
		if err := rows.Scan(&t.ID, &t.ShipID, &t.RoleName, &t.Slots); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update changes the role name and slot count of a template.  Returns
// ErrNoChange when nothing differs and ErrDuplicateRole when the new name
// collides with another template of the same ship.
func (r *TemplateRepo) Update(ctx context.Context, t *model.ShipRoleTemplate) error {
	t.RoleName = strings.TrimSpace(t.RoleName)
	const q = `UPDATE ship_role_templates SET role_name = ?, slots = ?
	           WHERE id = ? AND (role_name <> ? OR slots <> ?)`
	res, err := r.db.ExecContext(ctx, q, t.RoleName, t.Slots, t.ID, t.RoleName, t.Slots)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrDuplicateRole
		}
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, t.ID); err != nil {
		return err
	}
	return ErrNoChange
}

// Delete removes a template.  Role slots created for it stay where they
// are so assignment history survives.
func (r *TemplateRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ship_role_templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// CountByShip returns how many templates a ship has.
func (r *TemplateRepo) CountByShip(ctx context.Context, shipID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ship_role_templates WHERE ship_id = ?`, shipID).Scan(&n)
	return n, err
}
