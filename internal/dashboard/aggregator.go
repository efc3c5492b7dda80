package dashboard

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pikicariks/rain-detection-system/db"
	"github.com/pikicariks/rain-detection-system/internal/metrics"
	"github.com/pikicariks/rain-detection-system/internal/model"
	"github.com/pikicariks/rain-detection-system/internal/notifications"
)

// DefaultRecentLogs is how many log entries ride along with the status
// view when no count is configured.
const DefaultRecentLogs = 10

// StatusGateway is the read-and-acknowledge slice of the device surface
// the aggregator needs.
type StatusGateway interface {
	Status(ctx context.Context) (*model.DeviceStatus, error)
	AcknowledgeProximity(ctx context.Context) error
}

// View is one dashboard snapshot. DeviceStatus is nil when the device is
// offline; IsOnline is the one source of truth for that.
type View struct {
	DeviceStatus *model.DeviceStatus `json:"deviceStatus"`
	RecentLogs   []model.RainLog     `json:"recentLogs"`
	IsOnline     bool                `json:"isOnline"`
}

// Aggregator composes the transient device status with recent ledger
// history. It only ever reads the ledger.
type Aggregator struct {
	db         *sql.DB
	gateway    StatusGateway
	recentLogs int
}

func NewAggregator(database *sql.DB, gateway StatusGateway, recentLogs int) *Aggregator {
	if recentLogs <= 0 {
		recentLogs = DefaultRecentLogs
	}
	return &Aggregator{db: database, gateway: gateway, recentLogs: recentLogs}
}

// Dashboard builds the current view. Device failures are absorbed into
// IsOnline=false; only a ledger read failure surfaces as an error.
func (a *Aggregator) Dashboard(ctx context.Context) (*View, error) {
	status, err := a.gateway.Status(ctx)
	online := err == nil
	if !online {
		log.Warn().Err(err).Msg("Device status fetch failed, reporting offline")
	}
	metrics.Gauge("device.online", boolToFloat(online))

	if online && status.ProximityAlert {
		a.acknowledgeAlert(ctx, status)
	}

	logs, err := db.GetRecentRainLogs(a.db, a.recentLogs)
	if err != nil {
		return nil, fmt.Errorf("load recent logs: %w", err)
	}

	return &View{
		DeviceStatus: status,
		RecentLogs:   logs,
		IsOnline:     online,
	}, nil
}

// acknowledgeAlert clears the proximity alert on the device so it is
// surfaced exactly once per poll. Failures are swallowed: the device will
// simply re-report the alert on the next fetch.
func (a *Aggregator) acknowledgeAlert(ctx context.Context, status *model.DeviceStatus) {
	log.Info().
		Int64("distance", status.ProximityDistance).
		Int("threshold", status.ProximityThreshold).
		Bool("intruder", status.IntruderDetected).
		Msg("Proximity alert reported by device")

	if err := a.gateway.AcknowledgeProximity(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to acknowledge proximity alert")
	}

	if err := notifications.Send("Proximity alert",
		fmt.Sprintf("Object detected at %d cm (threshold %d cm)", status.ProximityDistance, status.ProximityThreshold)); err != nil {
		log.Debug().Err(err).Msg("Proximity notification not sent")
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
