package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pikicariks/rain-detection-system/db"
	"github.com/pikicariks/rain-detection-system/internal/model"
)

type fakeStatusGateway struct {
	status    *model.DeviceStatus
	statusErr error

	ackCalls int
	ackErr   error
}

func (f *fakeStatusGateway) Status(ctx context.Context) (*model.DeviceStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeStatusGateway) AcknowledgeProximity(ctx context.Context) error {
	f.ackCalls++
	return f.ackErr
}

func setupTest(t *testing.T) *sql.DB {
	database, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, db.EnsureSchema(database))
	t.Cleanup(func() { database.Close() })
	return database
}

func TestDashboardOnline(t *testing.T) {
	database := setupTest(t)
	gateway := &fakeStatusGateway{status: &model.DeviceStatus{
		SystemEnabled: true,
		ServoPosition: 90,
	}}

	require.NoError(t, db.InsertRainLog(database, model.RainLog{
		Timestamp: time.Now().UTC(),
		EventType: "rain_start",
	}))

	agg := NewAggregator(database, gateway, 10)
	view, err := agg.Dashboard(context.Background())
	require.NoError(t, err)

	assert.True(t, view.IsOnline)
	require.NotNil(t, view.DeviceStatus)
	assert.Equal(t, 90, view.DeviceStatus.ServoPosition)
	require.Len(t, view.RecentLogs, 1)
	assert.Equal(t, "rain_start", view.RecentLogs[0].EventType)
	assert.Equal(t, 0, gateway.ackCalls)
}

func TestDashboardOfflineOnFetchFailure(t *testing.T) {
	database := setupTest(t)
	gateway := &fakeStatusGateway{statusErr: errors.New("device status: timeout: deadline exceeded")}

	agg := NewAggregator(database, gateway, 10)
	view, err := agg.Dashboard(context.Background())
	require.NoError(t, err)

	assert.False(t, view.IsOnline)
	assert.Nil(t, view.DeviceStatus)
	assert.Equal(t, 0, gateway.ackCalls)
}

func TestProximityAlertAcknowledgedOncePerFetch(t *testing.T) {
	database := setupTest(t)
	gateway := &fakeStatusGateway{status: &model.DeviceStatus{
		ProximityAlert:     true,
		ProximityDistance:  35,
		ProximityThreshold: 50,
	}}

	agg := NewAggregator(database, gateway, 10)
	_, err := agg.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, gateway.ackCalls)

	_, err = agg.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, gateway.ackCalls)
}

func TestProximityAckFailureIsSwallowed(t *testing.T) {
	database := setupTest(t)
	gateway := &fakeStatusGateway{
		status: &model.DeviceStatus{ProximityAlert: true},
		ackErr: errors.New("device proximity acknowledge: transport: connection refused"),
	}

	agg := NewAggregator(database, gateway, 10)
	view, err := agg.Dashboard(context.Background())
	require.NoError(t, err)
	assert.True(t, view.IsOnline)
	assert.Equal(t, 1, gateway.ackCalls)
}

func TestRecentLogsTruncatedToConfiguredCount(t *testing.T) {
	database := setupTest(t)
	gateway := &fakeStatusGateway{status: &model.DeviceStatus{}}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		require.NoError(t, db.InsertRainLog(database, model.RainLog{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			EventType: "rain_start",
		}))
	}

	agg := NewAggregator(database, gateway, 10)
	view, err := agg.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Len(t, view.RecentLogs, 10)
	assert.Equal(t, base.Add(14*time.Second), view.RecentLogs[0].Timestamp)
}

func TestDefaultRecentLogCount(t *testing.T) {
	database := setupTest(t)
	agg := NewAggregator(database, &fakeStatusGateway{}, 0)
	assert.Equal(t, DefaultRecentLogs, agg.recentLogs)
}
