package model

import "time"

type CommandType string

const (
	CommandServoMove               CommandType = "servo_move"
	CommandToggleSystem            CommandType = "toggle_system"
	CommandUpdateSettings          CommandType = "update_settings"
	CommandAcknowledgeProximity    CommandType = "acknowledge_proximity"
	CommandUpdateProximitySettings CommandType = "update_proximity_settings"
)

// DeviceCommand is the audit record of one issued intent. A row is written
// pending before the device is contacted and transitions to executed at
// most once.
type DeviceCommand struct {
	ID            int64       `json:"id"`
	CommandType   CommandType `json:"commandType"`
	CommandData   string      `json:"commandData"`
	CreatedAt     time.Time   `json:"createdAt"`
	ExecutedAt    *time.Time  `json:"executedAt,omitempty"`
	IsExecuted    bool        `json:"isExecuted"`
	WasSuccessful bool        `json:"wasSuccessful"`
	Response      string      `json:"response,omitempty"`
}

// RainLog is an append-only record of observed or actuated state.
type RainLog struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"eventType"` // rain_start, rain_stop, manual_actuation, ...
	AnalogValue   int       `json:"analogValue"`
	DigitalValue  int       `json:"digitalValue"`
	IsRaining     bool      `json:"isRaining"`
	ServoPosition int       `json:"servoPosition"`
	Distance      *int64    `json:"distance,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// Setting is a named mutable value with upsert semantics.
type Setting struct {
	ID           int64     `json:"id"`
	Name         string    `json:"settingName"`
	Value        string    `json:"settingValue"`
	LastModified time.Time `json:"lastModified"`
	Description  string    `json:"description,omitempty"`
}

// DeviceStatus is the snapshot returned by the device's status endpoint.
// It is never persisted; a failed fetch means offline, not a zero status.
type DeviceStatus struct {
	SystemEnabled      bool   `json:"systemEnabled"`
	IsRaining          bool   `json:"isRaining"`
	RainThreshold      int    `json:"rainThreshold"`
	AnalogValue        int    `json:"analogValue"`
	DigitalValue       int    `json:"digitalValue"`
	ServoPosition      int    `json:"servoPosition"`
	Status             string `json:"status"`
	LastRainChange     int64  `json:"lastRainChange"`
	Uptime             int64  `json:"uptime"`
	IP                 string `json:"ip"`
	ProximityAlert     bool   `json:"proximityAlert"`
	ProximityDistance  int64  `json:"proximityDistance"`
	CurrentDistance    int64  `json:"currentDistance"`
	LastProximityTime  int64  `json:"lastProximityTime"`
	IntruderDetected   bool   `json:"intruderDetected"`
	ProximityThreshold int    `json:"proximityThreshold"`
}

// DeviceEvent is one entry from the device's in-memory event buffer.
type DeviceEvent struct {
	Timestamp   int64  `json:"timestamp"`
	Event       string `json:"event"`
	AnalogValue int    `json:"analogValue"`
	IsRaining   bool   `json:"isRaining"`
}
