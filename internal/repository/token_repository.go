package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrInvalidRefresh is returned for unknown, revoked or expired refresh
// tokens.  Callers answer 401 without saying which.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// TokenRepo stores refresh tokens by their SHA-256 hash.  A user keeps at
// most one live token after login; see RevokeAllExcept.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh records a new token hash expiring at exp.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns the owner of a live token.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, ErrInvalidRefresh
	case err != nil:
		return 0, err
	case revokedAt.Valid, time.Now().UTC().After(expiresAt):
		return 0, ErrInvalidRefresh
	}
	return userID, nil
}

// RevokeByHash revokes one token.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.revoke(ctx, "token_hash=?", tokenHash)
}

// RevokeAllForUser revokes every live token of the user (logout everywhere).
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return r.revoke(ctx, "user_id=?", userID)
}

// RevokeAllExcept revokes every live token of the user except keepHash.
// Login calls it so only the newest session survives.
func (r *TokenRepo) RevokeAllExcept(ctx context.Context, userID uint64, keepHash string) error {
	return r.revoke(ctx, "user_id=? AND token_hash<>?", userID, keepHash)
}

func (r *TokenRepo) revoke(ctx context.Context, where string, args ...any) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=CURRENT_TIMESTAMP WHERE "+where+" AND revoked_at IS NULL", args...)
	return err
}

// PurgeExpired deletes the user's tokens that expired before now and
// returns how many rows went.  Revoked but unexpired tokens are kept so a
// replayed token still reads as revoked.
func (r *TokenRepo) PurgeExpired(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=? AND expires_at < ?", userID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
