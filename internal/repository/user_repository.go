package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/ckfr/ops-allocation/internal/database"
	"github.com/ckfr/ops-allocation/internal/model"
	"github.com/ckfr/ops-allocation/internal/utils"
)

var (
	// ErrUsernameExists is returned when registering a taken username.
	ErrUsernameExists = errors.New("username already exists")
	// ErrUserNotFound is returned when a user lookup yields no rows.
	ErrUserNotFound = errors.New("user not found")
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password, inserts the user with the given groups and
// returns its ID.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, cost int, superuser bool, groups []string) (id uint64, err error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
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

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, is_superuser) VALUES (?,?,?,?)",
		username, email, hash, superuser)
	if err != nil {
		if database.IsDuplicate(err) {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	id = uint64(lastID)
	if err = insertGroups(ctx, tx, id, groups); err != nil {
		return 0, err
	}
	return id, nil
}

func insertGroups(ctx context.Context, tx *sql.Tx, userID uint64, groups []string) error {
	seen := map[string]bool{}
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_groups (user_id, group_name) VALUES (?,?)", userID, g); err != nil {
			return err
		}
	}
	return nil
}

const userColumns = "id, username, email, password_hash, is_superuser, is_active, created_at, updated_at"

func scanUser(row rowScanner, u *model.User) error {
	return row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsSuperuser, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// GetByUsername fetches a user and their groups by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username))
}

// GetByID fetches a user and their groups by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	if err := scanUser(r.DB.QueryRowContext(ctx, q, arg), &u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	groups, err := r.Groups(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Groups = groups
	return &u, nil
}

// Groups returns the group names of a user in alphabetical order.
func (r *UserRepo) Groups(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT group_name FROM user_groups WHERE user_id=? ORDER BY group_name", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// List returns every user ordered by username, with groups attached.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, err
	}
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Groups are loaded in one pass after the user cursor is closed.
	grows, err := r.DB.QueryContext(ctx, "SELECT user_id, group_name FROM user_groups ORDER BY group_name")
	if err != nil {
		return nil, err
	}
	defer grows.Close()
	byUser := map[uint64][]string{}
	for grows.Next() {
		var (
			uid uint64
			g   string
		)
		if err := grows.Scan(&uid, &g); err != nil {
			return nil, err
		}
		byUser[uid] = append(byUser[uid], g)
	}
	if err := grows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Groups = byUser[out[i].ID]
		if out[i].Groups == nil {
			out[i].Groups = []string{}
		}
	}
	return out, nil
}

// SetGroups replaces the group memberships of a user.
func (r *UserRepo) SetGroups(ctx context.Context, userID uint64, groups []string) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
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

	var one int
	if err = tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", userID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM user_groups WHERE user_id=?", userID); err != nil {
		return err
	}
	sorted := append([]string(nil), groups...)
	sort.Strings(sorted)
	if err = insertGroups(ctx, tx, userID, sorted); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "UPDATE users SET updated_at=CURRENT_TIMESTAMP WHERE id=?", userID)
	return err
}
