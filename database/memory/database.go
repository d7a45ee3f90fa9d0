// Package memory provides an in-memory database implementation.
package memory

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"studycall/database"
)

// DB is a memory-backed database.
type DB struct {
	db *memdb.MemDB
}

// New creates a new memory-backed database.
func New() *DB {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		panic(err)
	}
	return &DB{
		db: db,
	}
}

// FindBubblePosition finds the saved bubble position of the given user.
func (d *DB) FindBubblePosition(userID string) (*database.BubblePosition, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tblBubbles, idxBubbleUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("find bubble by user id: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", userID, database.ErrBubbleNotFound)
	}

	return raw.(*database.BubblePosition).DeepCopy(), nil
}

// UpdateBubblePosition saves the bubble position, replacing the previous one.
func (d *DB) UpdateBubblePosition(position *database.BubblePosition) error {
	txn := d.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tblBubbles, position.DeepCopy()); err != nil {
		return fmt.Errorf("insert bubble: %w", err)
	}
	txn.Commit()
	return nil
}

// CreateCallRecord stores a finished call.
func (d *DB) CreateCallRecord(record *database.CallRecord) error {
	txn := d.db.Txn(true)
	defer txn.Abort()
	existing, err := txn.First(tblCalls, idxCallID, record.ID)
	if err != nil {
		return fmt.Errorf("find call by id: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%s: %w", record.ID, database.ErrCallRecordExists)
	}
	if err := txn.Insert(tblCalls, record.DeepCopy()); err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	txn.Commit()
	return nil
}

// FindCallRecords returns the most recently ended calls first.
func (d *DB) FindCallRecords(limit int) ([]*database.CallRecord, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	iterator, err := txn.Get(tblCalls, idxCallID)
	if err != nil {
		return nil, fmt.Errorf("find calls: %w", err)
	}
	return collect(iterator, limit), nil
}

// FindCallRecordsByContext returns the calls of one chat or group, most recent first.
func (d *DB) FindCallRecordsByContext(contextType, contextID string, limit int) ([]*database.CallRecord, error) {
	txn := d.db.Txn(false)
	defer txn.Abort()
	iterator, err := txn.Get(tblCalls, idxCallContext, contextType, contextID)
	if err != nil {
		return nil, fmt.Errorf("find calls by context: %w", err)
	}
	return collect(iterator, limit), nil
}

// Close does nothing for the memory database.
func (d *DB) Close() error {
	return nil
}

func collect(iterator memdb.ResultIterator, limit int) []*database.CallRecord {
	var records []*database.CallRecord
	for raw := iterator.Next(); raw != nil; raw = iterator.Next() {
		records = append(records, raw.(*database.CallRecord).DeepCopy())
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].EndedAt.After(records[j].EndedAt)
	})
	if limit <= 0 {
		limit = database.DefaultHistoryLimit
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}
