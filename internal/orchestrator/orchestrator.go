package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pikicariks/rain-detection-system/db"
	"github.com/pikicariks/rain-detection-system/internal/metrics"
	"github.com/pikicariks/rain-detection-system/internal/model"
)

// maxResponseLen bounds the free-text outcome stored on a command row.
const maxResponseLen = 500

// Gateway is the subset of device operations the orchestrator dispatches
// to. Implementations must return normalized errors only.
type Gateway interface {
	MoveServo(ctx context.Context, position int) error
	ToggleSystem(ctx context.Context) error
	UpdateSettings(ctx context.Context, rainThreshold, normalPosition, rainPosition int) error
	AcknowledgeProximity(ctx context.Context) error
	UpdateProximitySettings(ctx context.Context, threshold int) error
}

// Command is the closed set of dispatchable intents. Each variant carries
// its already-validated parameters; the marker method keeps the set closed
// to this package.
type Command interface {
	CommandType() model.CommandType
}

type ServoMove struct {
	Position int `json:"position"`
}

func (ServoMove) CommandType() model.CommandType { return model.CommandServoMove }

type ToggleSystem struct{}

func (ToggleSystem) CommandType() model.CommandType { return model.CommandToggleSystem }

type UpdateSettings struct {
	RainThreshold  int `json:"rainThreshold"`
	NormalPosition int `json:"normalPosition"`
	RainPosition   int `json:"rainPosition"`
}

func (UpdateSettings) CommandType() model.CommandType { return model.CommandUpdateSettings }

type AcknowledgeProximity struct{}

func (AcknowledgeProximity) CommandType() model.CommandType {
	return model.CommandAcknowledgeProximity
}

type UpdateProximitySettings struct {
	Threshold int `json:"threshold"`
}

func (UpdateProximitySettings) CommandType() model.CommandType {
	return model.CommandUpdateProximitySettings
}

// Orchestrator owns the command write path: persist pending, dispatch once,
// persist the terminal outcome, perform follow-up bookkeeping.
type Orchestrator struct {
	db      *sql.DB
	gateway Gateway
}

func New(database *sql.DB, gateway Gateway) *Orchestrator {
	return &Orchestrator{db: database, gateway: gateway}
}

// Execute runs one command through the full pipeline. The returned error is
// non-nil only when the pending row could not be persisted; once that row
// exists the command always reaches a terminal state and the boolean
// carries the outcome. There are no retries here: the dashboard resubmits.
func (o *Orchestrator) Execute(ctx context.Context, cmd Command) (bool, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return false, fmt.Errorf("marshal command payload: %w", err)
	}

	id, err := db.InsertPendingCommand(o.db, cmd.CommandType(), string(payload), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("persist pending command: %w", err)
	}

	success, response := o.dispatchSafely(ctx, cmd)

	if err := db.MarkCommandExecuted(o.db, id, success, truncate(response, maxResponseLen), time.Now().UTC()); err != nil {
		// The gateway call already happened; the stale pending row is the
		// accepted evidence of this failure.
		log.Error().Err(err).Int64("command_id", id).Msg("Failed to record command outcome")
	}

	outcome := "failure"
	if success {
		outcome = "success"
	}
	metrics.Count("commands.executed", 1, "type:"+string(cmd.CommandType()), "outcome:"+outcome)

	log.Info().
		Int64("command_id", id).
		Str("type", string(cmd.CommandType())).
		Bool("success", success).
		Str("response", response).
		Msg("Command executed")

	return success, nil
}

// dispatchSafely guarantees a terminal outcome even if dispatch panics.
func (o *Orchestrator) dispatchSafely(ctx context.Context, cmd Command) (success bool, response string) {
	defer func() {
		if r := recover(); r != nil {
			success = false
			response = fmt.Sprintf("error: %v", r)
			log.Error().
				Str("type", string(cmd.CommandType())).
				Interface("panic", r).
				Msg("Command dispatch panicked")
		}
	}()
	return o.dispatch(ctx, cmd)
}

func (o *Orchestrator) dispatch(ctx context.Context, cmd Command) (bool, string) {
	switch c := cmd.(type) {
	case ServoMove:
		if err := o.gateway.MoveServo(ctx, c.Position); err != nil {
			return false, err.Error()
		}
		o.recordManualActuation(c.Position)
		return true, fmt.Sprintf("servo moved to %d degrees", c.Position)

	case ToggleSystem:
		if err := o.gateway.ToggleSystem(ctx); err != nil {
			return false, err.Error()
		}
		return true, "system toggled"

	case UpdateSettings:
		if err := o.gateway.UpdateSettings(ctx, c.RainThreshold, c.NormalPosition, c.RainPosition); err != nil {
			return false, err.Error()
		}
		o.recordSettings(c)
		return true, "settings updated"

	case AcknowledgeProximity:
		if err := o.gateway.AcknowledgeProximity(ctx); err != nil {
			return false, err.Error()
		}
		return true, "proximity alert acknowledged"

	case UpdateProximitySettings:
		if err := o.gateway.UpdateProximitySettings(ctx, c.Threshold); err != nil {
			return false, err.Error()
		}
		return true, "proximity settings updated"

	default:
		return false, fmt.Sprintf("unsupported command type %q", cmd.CommandType())
	}
}

// recordManualActuation appends the derived log entry for a manual servo
// move. Best effort: the primary command already succeeded and a write
// failure here must not flip it.
func (o *Orchestrator) recordManualActuation(position int) {
	entry := model.RainLog{
		Timestamp:     time.Now().UTC(),
		EventType:     "manual_actuation",
		AnalogValue:   0,
		DigitalValue:  0,
		IsRaining:     false,
		ServoPosition: position,
		Notes:         "manual command via dashboard",
	}
	if err := db.InsertRainLog(o.db, entry); err != nil {
		log.Warn().Err(err).Int("position", position).Msg("Failed to record manual actuation log")
	}
}

// recordSettings mirrors the accepted device settings into the ledger.
// Best effort, same as recordManualActuation.
func (o *Orchestrator) recordSettings(c UpdateSettings) {
	now := time.Now().UTC()
	pairs := []struct {
		name  string
		value int
	}{
		{"rain_threshold", c.RainThreshold},
		{"normal_position", c.NormalPosition},
		{"rain_position", c.RainPosition},
	}
	for _, p := range pairs {
		if err := db.UpsertSetting(o.db, p.name, fmt.Sprintf("%d", p.value), "", now); err != nil {
			log.Warn().Err(err).Str("setting", p.name).Msg("Failed to record setting")
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
