package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUp_CreatesObjectsTable(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Up(db))

	for _, table := range []string{"objects", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestStatus(t *testing.T) {
	db := openTestDB(t)

	err := Status(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs migration")

	require.NoError(t, Up(db))
	assert.NoError(t, Status(db))
}

func TestUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Up(db))
	require.NoError(t, Up(db))
	assert.NoError(t, Status(db))
}
