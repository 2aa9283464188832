package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckfr/ops-allocation/internal/testutil"
	"github.com/ckfr/ops-allocation/internal/utils"
)

func TestUserRepo_CreateAndGroups(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, "kestrel", "Kestrel@Example.org", "s3cret-pass", 4, false, []string{"Membre", "Admin", "Membre"})
	require.NoError(t, err)

	u, err := repo.GetByUsername(ctx, "kestrel")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "kestrel@example.org", u.Email)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsSuperuser)
	assert.Equal(t, []string{"Admin", "Membre"}, u.Groups)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "s3cret-pass"))

	_, err = repo.Create(ctx, "kestrel", "", "other", 4, false, nil)
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepo_SetGroupsAndList(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	b, err := repo.Create(ctx, "birch", "", "pw-birch-1", 4, false, []string{"Membre"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, "ash", "", "pw-ash-1", 4, true, nil)
	require.NoError(t, err)

	require.NoError(t, repo.SetGroups(ctx, b, []string{"SuperAdmin", "Admin"}))
	assert.ErrorIs(t, repo.SetGroups(ctx, 999, nil), ErrUserNotFound)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ash", users[0].Username)
	assert.True(t, users[0].IsSuperuser)
	assert.Empty(t, users[0].Groups)
	assert.Equal(t, []string{"Admin", "SuperAdmin"}, users[1].Groups)
}

func TestTokenRepo_SingleSession(t *testing.T) {
	db := testutil.NewTestDB(t)
	users := NewUserRepo(db)
	tokens := NewTokenRepo(db)
	ctx := context.Background()
	uid, err := users.Create(ctx, "kestrel", "", "pw-kestrel", 4, false, nil)
	require.NoError(t, err)

	exp := time.Now().UTC().Add(time.Hour)
	require.NoError(t, tokens.StoreRefresh(ctx, uid, "old", exp))
	require.NoError(t, tokens.StoreRefresh(ctx, uid, "new", exp))

	require.NoError(t, tokens.RevokeAllExcept(ctx, uid, "new"))
	_, err = tokens.ValidateRefresh(ctx, "old")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
	got, err := tokens.ValidateRefresh(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	require.NoError(t, tokens.StoreRefresh(ctx, uid, "expired", time.Now().UTC().Add(-time.Minute)))
	_, err = tokens.ValidateRefresh(ctx, "expired")
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	require.NoError(t, tokens.RevokeByHash(ctx, "new"))
	_, err = tokens.ValidateRefresh(ctx, "new")
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = tokens.ValidateRefresh(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	purged, err := tokens.PurgeExpired(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.Equal(t, 2, testutil.CountRows(t, db, "refresh_tokens"))
}
