package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pikicariks/rain-detection-system/internal/model"
)

// InsertPendingCommand writes a new command row in the pending state and
// returns its id. The row must be durable before the device is contacted.
func InsertPendingCommand(db *sql.DB, commandType model.CommandType, commandData string, createdAt time.Time) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("start transaction: %w", err)
	}
	result, err := tx.Exec(`INSERT INTO device_commands (command_type, command_data, created_at, is_executed, was_successful) VALUES (?, ?, ?, FALSE, FALSE)`,
		string(commandType), commandData, createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("insert pending command: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("read command id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit pending command: %w", err)
	}
	return id, nil
}

// MarkCommandExecuted transitions a pending command to its terminal state.
// The is_executed guard makes the transition happen at most once; a second
// attempt returns an error instead of rewriting the outcome.
func MarkCommandExecuted(db *sql.DB, id int64, successful bool, response string, executedAt time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	result, err := tx.Exec(`UPDATE device_commands SET is_executed = TRUE, was_successful = ?, response = ?, executed_at = ? WHERE id = ? AND is_executed = FALSE`,
		successful, response, executedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("mark command executed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("read rows affected: %w", err)
	}
	if affected == 0 {
		tx.Rollback()
		return fmt.Errorf("command %d is not pending", id)
	}
	return tx.Commit()
}

// InsertRainLog appends one log entry. Entries are never updated or
// deleted.
func InsertRainLog(db *sql.DB, entry model.RainLog) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}

	var distance interface{}
	if entry.Distance != nil {
		distance = *entry.Distance
	}
	var notes interface{}
	if entry.Notes != "" {
		notes = entry.Notes
	}

	_, err = tx.Exec(`INSERT INTO rain_logs (timestamp, event_type, analog_value, digital_value, is_raining, servo_position, distance, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC().Format(time.RFC3339), entry.EventType, entry.AnalogValue, entry.DigitalValue, entry.IsRaining, entry.ServoPosition, distance, notes)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert rain log: %w", err)
	}
	return tx.Commit()
}

// UpsertSetting creates the named setting or overwrites its value and
// timestamp. The description is kept if the caller passes an empty one.
func UpsertSetting(db *sql.DB, name, value, description string, modifiedAt time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}

	var existing int64
	err = tx.QueryRow(`SELECT id FROM system_settings WHERE setting_name = ?`, name).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(`INSERT INTO system_settings (setting_name, setting_value, last_modified, description) VALUES (?, ?, ?, ?)`,
			name, value, modifiedAt.UTC().Format(time.RFC3339), nullable(description))
	case err != nil:
		tx.Rollback()
		return fmt.Errorf("look up setting %s: %w", name, err)
	case description != "":
		_, err = tx.Exec(`UPDATE system_settings SET setting_value = ?, last_modified = ?, description = ? WHERE id = ?`,
			value, modifiedAt.UTC().Format(time.RFC3339), description, existing)
	default:
		_, err = tx.Exec(`UPDATE system_settings SET setting_value = ?, last_modified = ? WHERE id = ?`,
			value, modifiedAt.UTC().Format(time.RFC3339), existing)
	}
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert setting %s: %w", name, err)
	}
	return tx.Commit()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
