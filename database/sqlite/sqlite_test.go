package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studycall/database"
	"studycall/database/databasetest"
	"studycall/database/sqlite"
)

func TestDB(t *testing.T) {
	databasetest.RunTests(t, func(t *testing.T) database.Database {
		db, err := sqlite.Open(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		return db
	})
}

func TestOpen(t *testing.T) {
	t.Run("given existing file when reopened then data is kept", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "history.db")
		db, err := sqlite.Open(path)
		require.NoError(t, err)
		assert.Equal(t, path, db.Path())
		require.NoError(t, db.UpdateBubblePosition(&database.BubblePosition{UserID: "u1", X: 5, Y: 6}))
		require.NoError(t, db.Close())

		db, err = sqlite.Open(path)
		require.NoError(t, err)
		defer db.Close()
		position, err := db.FindBubblePosition("u1")
		require.NoError(t, err)
		assert.Equal(t, 5.0, position.X)
	})
}
