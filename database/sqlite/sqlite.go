// Package sqlite provides a database implementation that keeps the call history
// and the bubble position in a SQLite file.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"studycall/database"
	"studycall/types/call"
)

// DB wraps a SQLite database.
type DB struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens or creates the SQLite database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bubble_positions (
			user_id TEXT PRIMARY KEY,
			x       REAL NOT NULL,
			y       REAL NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bubble table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS call_records (
			id           TEXT PRIMARY KEY,
			call_type    TEXT NOT NULL,
			context_type TEXT NOT NULL,
			context_id   TEXT NOT NULL,
			initiator_id TEXT NOT NULL,
			outcome      TEXT NOT NULL,
			started_at   INTEGER DEFAULT 0,
			answered_at  INTEGER DEFAULT 0,
			ended_at     INTEGER DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS call_records_context ON call_records (context_type, context_id);
		CREATE INDEX IF NOT EXISTS call_records_ended ON call_records (ended_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create call table: %w", err)
	}

	return &DB{db: db, path: path}, nil
}

// Path returns the database file path
func (d *DB) Path() string {
	return d.path
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// FindBubblePosition finds the saved bubble position of the given user.
func (d *DB) FindBubblePosition(userID string) (*database.BubblePosition, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	position := &database.BubblePosition{UserID: userID}
	err := d.db.QueryRow(`SELECT x, y FROM bubble_positions WHERE user_id = ?`, userID).
		Scan(&position.X, &position.Y)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", userID, database.ErrBubbleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find bubble by user id: %w", err)
	}
	return position, nil
}

// UpdateBubblePosition saves the bubble position, replacing the previous one.
func (d *DB) UpdateBubblePosition(position *database.BubblePosition) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.Exec(`
		INSERT INTO bubble_positions (user_id, x, y) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET x = excluded.x, y = excluded.y
	`, position.UserID, position.X, position.Y); err != nil {
		return fmt.Errorf("upsert bubble: %w", err)
	}
	return nil
}

// CreateCallRecord stores a finished call.
func (d *DB) CreateCallRecord(record *database.CallRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`
		INSERT INTO call_records
			(id, call_type, context_type, context_id, initiator_id, outcome, started_at, answered_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, string(record.CallType), string(record.ContextType), record.ContextID, record.InitiatorID,
		string(record.Outcome), unixNano(record.StartedAt), unixNano(record.AnsweredAt), unixNano(record.EndedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%s: %w", record.ID, database.ErrCallRecordExists)
		}
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

// FindCallRecords returns the most recently ended calls first.
func (d *DB) FindCallRecords(limit int) ([]*database.CallRecord, error) {
	return d.query(`SELECT `+columns+` FROM call_records ORDER BY ended_at DESC LIMIT ?`, clamp(limit))
}

// FindCallRecordsByContext returns the calls of one chat or group, most recent first.
func (d *DB) FindCallRecordsByContext(contextType, contextID string, limit int) ([]*database.CallRecord, error) {
	return d.query(`SELECT `+columns+` FROM call_records
		WHERE context_type = ? AND context_id = ?
		ORDER BY ended_at DESC LIMIT ?`, contextType, contextID, clamp(limit))
}

const columns = `id, call_type, context_type, context_id, initiator_id, outcome, started_at, answered_at, ended_at`

func (d *DB) query(query string, args ...any) ([]*database.CallRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find calls: %w", err)
	}
	defer rows.Close()

	var records []*database.CallRecord
	for rows.Next() {
		var (
			record                       database.CallRecord
			callType, ctxType, outcome   string
			startedAt, answeredAt, ended int64
		)
		if err := rows.Scan(&record.ID, &callType, &ctxType, &record.ContextID, &record.InitiatorID,
			&outcome, &startedAt, &answeredAt, &ended); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		record.CallType = call.Type(callType)
		record.ContextType = call.ContextType(ctxType)
		record.Outcome = database.Outcome(outcome)
		record.StartedAt = fromUnixNano(startedAt)
		record.AnsweredAt = fromUnixNano(answeredAt)
		record.EndedAt = fromUnixNano(ended)
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return records, nil
}

func clamp(limit int) int {
	if limit <= 0 {
		return database.DefaultHistoryLimit
	}
	return limit
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
