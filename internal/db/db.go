package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ninthcircle/diceroller/internal/apperr"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

type DB struct {
	*sql.DB
	Tables Tables
}

// New opens the SQLite database at path. Plugin tables are named with
// tablePrefix, see NewTables.
func New(path, tablePrefix string) (*DB, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		// Ensure directory exists
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{DB: db, Tables: NewTables(tablePrefix)}, nil
}

// Migrate creates the host tables: users, sessions and options.
// Plugin tables are owned by the lifecycle package.
func (db *DB) Migrate() error {
	migrations := []string{
		migrationUsers,
		migrationSessions,
		migrationOptions,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// TableExists reports whether a table named name exists
func (db *DB) TableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect schema: %w", err)
	}
	return n > 0, nil
}

// PluginPrefix namespaces every table and option owned by the dice roller
const PluginPrefix = "pbf_"

// Table keys accepted by Tables.Lookup
const (
	TableCampaign = "campaign"
	TableRoll     = "dice_roll"
)

// Tables holds the fully prefixed names of the plugin tables
type Tables struct {
	Campaign string
	Roll     string
}

// NewTables builds table names as <prefix>pbf_<key>
func NewTables(prefix string) Tables {
	return Tables{
		Campaign: prefix + PluginPrefix + TableCampaign,
		Roll:     prefix + PluginPrefix + TableRoll,
	}
}

// Lookup returns the table name for key
func (t Tables) Lookup(key string) (string, error) {
	switch key {
	case TableCampaign:
		return t.Campaign, nil
	case TableRoll:
		return t.Roll, nil
	default:
		return "", apperr.New("db", "unknown table %q", key)
	}
}

const migrationUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    login TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    display_name TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const migrationSessions = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

const migrationOptions = `
CREATE TABLE IF NOT EXISTS options (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
