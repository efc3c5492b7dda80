package db

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pikicariks/rain-detection-system/internal/model"
)

func TestGetRecentRainLogsOrderAndLimit(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := model.RainLog{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			EventType:   fmt.Sprintf("event_%d", i),
			AnalogValue: i,
		}
		require.NoError(t, InsertRainLog(database, entry))
	}

	logs, err := GetRecentRainLogs(database, 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	assert.Equal(t, "event_4", logs[0].EventType)
	assert.Equal(t, "event_3", logs[1].EventType)
	assert.Equal(t, "event_2", logs[2].EventType)
	for i := 1; i < len(logs); i++ {
		assert.True(t, logs[i].Timestamp.Before(logs[i-1].Timestamp),
			"logs must be strictly descending by timestamp")
	}
}

func TestGetRecentRainLogsSameSecondTiebreak(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, InsertRainLog(database, model.RainLog{Timestamp: ts, EventType: "first"}))
	require.NoError(t, InsertRainLog(database, model.RainLog{Timestamp: ts, EventType: "second"}))

	logs, err := GetRecentRainLogs(database, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "second", logs[0].EventType)
	assert.Equal(t, "first", logs[1].EventType)
}

func TestGetRecentCommandsOrderAndLimit(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := InsertPendingCommand(database, model.CommandServoMove,
			fmt.Sprintf(`{"position":%d}`, i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	commands, err := GetRecentCommands(database, 2)
	require.NoError(t, err)
	require.Len(t, commands, 2)
	assert.Equal(t, `{"position":3}`, commands[0].CommandData)
	assert.Equal(t, `{"position":2}`, commands[1].CommandData)
	assert.True(t, commands[1].CreatedAt.Before(commands[0].CreatedAt))
}

func TestGetRecentCommandsEmpty(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	commands, err := GetRecentCommands(database, 20)
	require.NoError(t, err)
	assert.Empty(t, commands)
}
