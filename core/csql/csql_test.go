package csql

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_ClearSchema(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	assert.False(t, db.IsPostgres())

	require.NoError(t, db.Exec(`CREATE TABLE things (id INTEGER PRIMARY KEY AUTOINCREMENT, uuid TEXT)`).Error)
	assert.True(t, db.Migrator().HasTable("things"))

	require.NoError(t, db.Exec(`CREATE TABLE others (id INTEGER PRIMARY KEY AUTOINCREMENT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO things (uuid) VALUES ('a'), ('b')`).Error)

	require.NoError(t, db.ClearSchema())
	assert.False(t, db.Migrator().HasTable("things"))
	assert.False(t, db.Migrator().HasTable("others"))

	// a cleared schema starts counting from scratch
	require.NoError(t, db.Exec(`CREATE TABLE things (id INTEGER PRIMARY KEY AUTOINCREMENT, uuid TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO things (uuid) VALUES ('c')`).Error)
	var id int64
	require.NoError(t, db.Raw(`SELECT id FROM things WHERE uuid = 'c'`).Scan(&id).Error)
	assert.Equal(t, int64(1), id)
	require.NoError(t, db.ClearSchema())
}

func TestWithSearchPath(t *testing.T) {
	assert.Equal(t, "host=localhost dbname=x search_path=app",
		withSearchPath("host=localhost dbname=x", "app"))
	assert.Equal(t, "postgres://u@h/db?search_path=app",
		withSearchPath("postgres://u@h/db", "app"))
	assert.Equal(t, "postgres://u@h/db?sslmode=disable&search_path=app",
		withSearchPath("postgres://u@h/db?sslmode=disable", "app"))
}
