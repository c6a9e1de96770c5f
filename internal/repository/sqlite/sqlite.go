package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist. The
// UNIQUE constraint on (camera_id, timestamp) enforces the reject
// policy for duplicate observations.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS count_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		camera_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		vehicle_count INTEGER NOT NULL CHECK (vehicle_count >= 0),
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		density REAL NOT NULL DEFAULT 0,
		jam INTEGER NOT NULL DEFAULT 0,
		is_weekday INTEGER NOT NULL DEFAULT 0,
		is_peak INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (camera_id, timestamp)
	);

	CREATE INDEX IF NOT EXISTS idx_count_records_camera ON count_records(camera_id);
	CREATE INDEX IF NOT EXISTS idx_count_records_timestamp ON count_records(timestamp);
	CREATE INDEX IF NOT EXISTS idx_count_records_camera_timestamp ON count_records(camera_id, timestamp);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}
