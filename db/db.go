package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS device_commands (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	command_type TEXT NOT NULL,
	command_data TEXT NOT NULL,
	created_at TEXT NOT NULL,
	executed_at TEXT,
	is_executed BOOLEAN NOT NULL DEFAULT FALSE,
	was_successful BOOLEAN NOT NULL DEFAULT FALSE,
	response TEXT
);

CREATE TABLE IF NOT EXISTS rain_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	event_type TEXT NOT NULL,
	analog_value INTEGER NOT NULL,
	digital_value INTEGER NOT NULL,
	is_raining BOOLEAN NOT NULL,
	servo_position INTEGER NOT NULL,
	distance INTEGER,
	notes TEXT
);

CREATE TABLE IF NOT EXISTS system_settings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	setting_name TEXT NOT NULL UNIQUE,
	setting_value TEXT NOT NULL,
	last_modified TEXT NOT NULL,
	description TEXT
);

CREATE INDEX IF NOT EXISTS idx_rain_logs_timestamp ON rain_logs (timestamp);
CREATE INDEX IF NOT EXISTS idx_device_commands_created_at ON device_commands (created_at);
`

// Open opens the SQLite ledger at the given path and ensures the schema
// exists.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := EnsureSchema(database); err != nil {
		database.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Ledger database opened")
	return database, nil
}

// EnsureSchema creates the ledger tables if they do not already exist.
func EnsureSchema(database *sql.DB) error {
	if _, err := database.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
