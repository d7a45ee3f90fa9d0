package memory_test

import (
	"testing"

	"studycall/database"
	"studycall/database/databasetest"
	"studycall/database/memory"
)

func TestDB(t *testing.T) {
	databasetest.RunTests(t, func(t *testing.T) database.Database {
		return memory.New()
	})
}
