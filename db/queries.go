package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pikicariks/rain-detection-system/internal/model"
)

// GetRecentRainLogs retrieves the most recent rain log entries, newest
// first. The id tiebreak keeps ordering strict for same-second entries.
func GetRecentRainLogs(db *sql.DB, count int) ([]model.RainLog, error) {
	rows, err := db.Query(`SELECT id, timestamp, event_type, analog_value, digital_value, is_raining, servo_position, distance, notes
		FROM rain_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query rain logs: %w", err)
	}
	defer rows.Close()

	var logs []model.RainLog
	for rows.Next() {
		var l model.RainLog
		var timestamp string
		var distance sql.NullInt64
		var notes sql.NullString

		err = rows.Scan(&l.ID, &timestamp, &l.EventType, &l.AnalogValue, &l.DigitalValue, &l.IsRaining, &l.ServoPosition, &distance, &notes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rain log: %w", err)
		}
		l.Timestamp, _ = time.Parse(time.RFC3339, timestamp)
		if distance.Valid {
			d := distance.Int64
			l.Distance = &d
		}
		if notes.Valid {
			l.Notes = notes.String
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetRecentCommands retrieves the most recent device commands, newest first.
func GetRecentCommands(db *sql.DB, count int) ([]model.DeviceCommand, error) {
	rows, err := db.Query(`SELECT id, command_type, command_data, created_at, executed_at, is_executed, was_successful, response
		FROM device_commands ORDER BY created_at DESC, id DESC LIMIT ?`, count)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var commands []model.DeviceCommand
	for rows.Next() {
		var c model.DeviceCommand
		var commandType string
		var createdAt string
		var executedAt sql.NullString
		var response sql.NullString

		err = rows.Scan(&c.ID, &commandType, &c.CommandData, &createdAt, &executedAt, &c.IsExecuted, &c.WasSuccessful, &response)
		if err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		c.CommandType = model.CommandType(commandType)
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if executedAt.Valid {
			t, _ := time.Parse(time.RFC3339, executedAt.String)
			c.ExecutedAt = &t
		}
		if response.Valid {
			c.Response = response.String
		}
		commands = append(commands, c)
	}
	return commands, rows.Err()
}

// GetCommandByID retrieves a single command row.
func GetCommandByID(db *sql.DB, id int64) (*model.DeviceCommand, error) {
	var c model.DeviceCommand
	var commandType string
	var createdAt string
	var executedAt sql.NullString
	var response sql.NullString

	err := db.QueryRow(`SELECT id, command_type, command_data, created_at, executed_at, is_executed, was_successful, response
		FROM device_commands WHERE id = ?`, id).
		Scan(&c.ID, &commandType, &c.CommandData, &createdAt, &executedAt, &c.IsExecuted, &c.WasSuccessful, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to get command %d: %w", id, err)
	}
	c.CommandType = model.CommandType(commandType)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if executedAt.Valid {
		t, _ := time.Parse(time.RFC3339, executedAt.String)
		c.ExecutedAt = &t
	}
	if response.Valid {
		c.Response = response.String
	}
	return &c, nil
}

// GetSetting retrieves a named setting, or nil if it has never been set.
func GetSetting(db *sql.DB, name string) (*model.Setting, error) {
	var s model.Setting
	var lastModified string
	var description sql.NullString

	err := db.QueryRow(`SELECT id, setting_name, setting_value, last_modified, description
		FROM system_settings WHERE setting_name = ?`, name).
		Scan(&s.ID, &s.Name, &s.Value, &lastModified, &description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %s: %w", name, err)
	}
	s.LastModified, _ = time.Parse(time.RFC3339, lastModified)
	if description.Valid {
		s.Description = description.String
	}
	return &s, nil
}
