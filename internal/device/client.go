package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pikicariks/rain-detection-system/internal/model"
)

// DefaultTimeout is the fixed request timeout applied to every device call.
const DefaultTimeout = 10 * time.Second

// Client talks to the NodeMCU controller over its HTTP surface. Every
// operation returns either a result or a normalized *Error; no raw
// transport error ever reaches the caller.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Status fetches the current device snapshot. A decode failure is reported
// the same way as an unreachable device; the caller cannot tell the two
// apart and must treat both as offline.
func (c *Client) Status(ctx context.Context) (*model.DeviceStatus, error) {
	var status model.DeviceStatus
	if err := c.getJSON(ctx, "status", "/api/status", &status); err != nil {
		return nil, err
	}
	log.Debug().
		Bool("system_enabled", status.SystemEnabled).
		Bool("is_raining", status.IsRaining).
		Int("servo_position", status.ServoPosition).
		Msg("Fetched device status")
	return &status, nil
}

// Health probes the device health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.postOrGet(ctx, "health", http.MethodGet, "/api/health", nil)
}

// RecentEvents fetches the device's in-memory event buffer.
func (c *Client) RecentEvents(ctx context.Context) ([]model.DeviceEvent, error) {
	var body struct {
		Events []model.DeviceEvent `json:"events"`
	}
	if err := c.getJSON(ctx, "events", "/api/events", &body); err != nil {
		return nil, err
	}
	return body.Events, nil
}

// MoveServo commands the servo to a position. The position is expected to
// be range-validated by the caller.
func (c *Client) MoveServo(ctx context.Context, position int) error {
	form := url.Values{"position": {strconv.Itoa(position)}}
	if err := c.postOrGet(ctx, "servo move", http.MethodPost, "/api/servo/move", form); err != nil {
		return err
	}
	log.Info().Int("position", position).Msg("Servo moved")
	return nil
}

// ToggleSystem flips the device's enabled state.
func (c *Client) ToggleSystem(ctx context.Context) error {
	if err := c.postOrGet(ctx, "system toggle", http.MethodPost, "/api/system/toggle", nil); err != nil {
		return err
	}
	log.Info().Msg("System toggled")
	return nil
}

// UpdateSettings pushes the rain threshold and servo positions to the
// device.
func (c *Client) UpdateSettings(ctx context.Context, rainThreshold, normalPosition, rainPosition int) error {
	form := url.Values{
		"rainThreshold":  {strconv.Itoa(rainThreshold)},
		"normalPosition": {strconv.Itoa(normalPosition)},
		"rainPosition":   {strconv.Itoa(rainPosition)},
	}
	if err := c.postOrGet(ctx, "settings update", http.MethodPost, "/api/settings", form); err != nil {
		return err
	}
	log.Info().
		Int("rain_threshold", rainThreshold).
		Int("normal_position", normalPosition).
		Int("rain_position", rainPosition).
		Msg("Device settings updated")
	return nil
}

// AcknowledgeProximity clears the active proximity alert on the device.
func (c *Client) AcknowledgeProximity(ctx context.Context) error {
	return c.postOrGet(ctx, "proximity acknowledge", http.MethodPost, "/api/proximity/acknowledge", nil)
}

// UpdateProximitySettings pushes a new proximity threshold to the device.
func (c *Client) UpdateProximitySettings(ctx context.Context, threshold int) error {
	form := url.Values{"threshold": {strconv.Itoa(threshold)}}
	if err := c.postOrGet(ctx, "proximity settings", http.MethodPost, "/api/proximity/settings", form); err != nil {
		return err
	}
	log.Info().Int("threshold", threshold).Msg("Proximity settings updated")
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		devErr := classify(op, err)
		log.Warn().Err(err).Str("op", op).Str("kind", devErr.Kind.String()).Msg("Device call failed")
		return devErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		devErr := &Error{Kind: KindStatus, Op: op, Err: fmt.Errorf("device returned status %d", resp.StatusCode)}
		log.Warn().Int("status", resp.StatusCode).Str("op", op).Msg("Device returned non-success status")
		return devErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		devErr := &Error{Kind: KindDecode, Op: op, Err: err}
		log.Warn().Err(err).Str("op", op).Msg("Failed to decode device response")
		return devErr
	}
	return nil
}

func (c *Client) postOrGet(ctx context.Context, op, method, path string, form url.Values) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		devErr := classify(op, err)
		log.Warn().Err(err).Str("op", op).Str("kind", devErr.Kind.String()).Msg("Device call failed")
		return devErr
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		devErr := &Error{Kind: KindStatus, Op: op, Err: fmt.Errorf("device returned status %d", resp.StatusCode)}
		log.Warn().Int("status", resp.StatusCode).Str("op", op).Msg("Device returned non-success status")
		return devErr
	}
	return nil
}
