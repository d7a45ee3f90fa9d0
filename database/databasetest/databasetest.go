// Package databasetest runs the same behavior checks against every database
// implementation.
package databasetest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studycall/database"
	"studycall/types/call"
)

func record(id string, contextType call.ContextType, contextID string, ended time.Time) *database.CallRecord {
	return &database.CallRecord{
		ID:          id,
		CallType:    call.Voice,
		ContextType: contextType,
		ContextID:   contextID,
		InitiatorID: "u1",
		Outcome:     database.Completed,
		StartedAt:   ended.Add(-time.Minute),
		AnsweredAt:  ended.Add(-50 * time.Second),
		EndedAt:     ended,
	}
}

// RunTests checks db against the Database contract.
func RunTests(t *testing.T, open func(t *testing.T) database.Database) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("given no saved bubble when found then not found", func(t *testing.T) {
		db := open(t)
		_, err := db.FindBubblePosition("u1")
		assert.ErrorIs(t, err, database.ErrBubbleNotFound)
	})

	t.Run("given saved bubble when updated then latest position is found", func(t *testing.T) {
		db := open(t)
		require.NoError(t, db.UpdateBubblePosition(&database.BubblePosition{UserID: "u1", X: 10, Y: 20}))
		require.NoError(t, db.UpdateBubblePosition(&database.BubblePosition{UserID: "u1", X: 30.5, Y: 40}))
		require.NoError(t, db.UpdateBubblePosition(&database.BubblePosition{UserID: "u2", X: 1, Y: 2}))

		position, err := db.FindBubblePosition("u1")
		require.NoError(t, err)
		assert.Equal(t, &database.BubblePosition{UserID: "u1", X: 30.5, Y: 40}, position)
	})

	t.Run("given records when listed then most recent come first within the limit", func(t *testing.T) {
		db := open(t)
		require.NoError(t, db.CreateCallRecord(record("c1", call.Direct, "d1", base)))
		require.NoError(t, db.CreateCallRecord(record("c3", call.Group, "g1", base.Add(2*time.Hour))))
		require.NoError(t, db.CreateCallRecord(record("c2", call.Direct, "d1", base.Add(time.Hour))))

		records, err := db.FindCallRecords(2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "c3", records[0].ID)
		assert.Equal(t, "c2", records[1].ID)
		assert.Equal(t, 50*time.Second, records[1].Duration())
		assert.True(t, records[1].EndedAt.Equal(base.Add(time.Hour)))

		all, err := db.FindCallRecords(0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("given records when listed by context then only that context is returned", func(t *testing.T) {
		db := open(t)
		require.NoError(t, db.CreateCallRecord(record("c1", call.Direct, "d1", base)))
		require.NoError(t, db.CreateCallRecord(record("c2", call.Group, "d1", base)))
		require.NoError(t, db.CreateCallRecord(record("c3", call.Direct, "d1", base.Add(time.Minute))))

		records, err := db.FindCallRecordsByContext(string(call.Direct), "d1", 10)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "c3", records[0].ID)
		assert.Equal(t, "c1", records[1].ID)
	})

	t.Run("given recorded call when recorded again then already exists", func(t *testing.T) {
		db := open(t)
		require.NoError(t, db.CreateCallRecord(record("c1", call.Direct, "d1", base)))
		assert.ErrorIs(t, db.CreateCallRecord(record("c1", call.Direct, "d1", base)), database.ErrCallRecordExists)
	})

	t.Run("given unanswered call then duration is zero and times survive", func(t *testing.T) {
		db := open(t)
		r := record("c1", call.Direct, "d1", base)
		r.AnsweredAt = time.Time{}
		r.Outcome = database.Missed
		require.NoError(t, db.CreateCallRecord(r))

		records, err := db.FindCallRecords(1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.True(t, records[0].AnsweredAt.IsZero())
		assert.Zero(t, records[0].Duration())
		assert.Equal(t, database.Missed, records[0].Outcome)
	})
}
