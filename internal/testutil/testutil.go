// Package testutil provides an in-memory database and fixtures for package
// tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ckfr/ops-allocation/internal/database"
)

// NewTestDB opens an in-memory SQLite database migrated with the
// application schema.  It is closed when the test ends.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite))
	return db
}

// InsertShip inserts a ship with default catalog fields and returns its ID.
func InsertShip(t testing.TB, db *sql.DB, name, category string) uint64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO ships (name, category, min_crew, max_crew) VALUES (?, ?, 1, 2)`, name, category)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// InsertUser inserts a user with a placeholder password hash.
func InsertUser(t testing.TB, db *sql.DB, username string) uint64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO users (username, password_hash) VALUES (?, 'x')`, username)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// CountRows returns the row count of a table.
func CountRows(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
