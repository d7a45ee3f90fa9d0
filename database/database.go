// Package database provides an interface for database operations.
package database

import (
	"errors"
)

// DefaultHistoryLimit is the number of records returned when no limit is given.
const DefaultHistoryLimit = 50

var (
	// ErrCallRecordExists is returned when a call was already recorded.
	ErrCallRecordExists = errors.New("call record already exists")

	// ErrBubbleNotFound is returned when no bubble position was saved yet.
	ErrBubbleNotFound = errors.New("bubble position not found")
)

// Config is the configuration of the store. An empty Path keeps everything in
// memory for the lifetime of the process.
type Config struct {
	Path string
}

// Database is an interface for database operations.
//
//go:generate mockgen -destination=mock_database.go -package=database . Database
type Database interface {
	FindBubblePosition(userID string) (*BubblePosition, error)
	UpdateBubblePosition(position *BubblePosition) error

	CreateCallRecord(record *CallRecord) error
	FindCallRecords(limit int) ([]*CallRecord, error)
	FindCallRecordsByContext(contextType, contextID string, limit int) ([]*CallRecord, error)

	Close() error
}
