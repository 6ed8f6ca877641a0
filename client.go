// HTTP client for the AFO server API.
//
// every call is context-bound; the poller supplies per-request deadlines.
// failures of any kind (dial, timeout, non-2xx) wrap errTransport so callers
// can treat them uniformly as "disconnected".

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const maxResponseBytes = 1 << 20

var (
	errTransport     = errors.New("transport failure")
	errUnknownAction = errors.New("unknown pomodoro action")
)

// pomodoroActions are the intents the server accepts at /api/pomodoro/{action}.
var pomodoroActions = map[string]bool{
	"start": true,
	"pause": true,
	"stop":  true,
	"skip":  true,
}

// apiError is a non-2xx response. it unwraps to errTransport.
type apiError struct {
	status  int
	message string
	path    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.path, e.status, e.message)
}

func (e *apiError) Unwrap() error {
	return errTransport
}

// reminderUpdate is the POST /api/reminders body. nil fields are omitted.
type reminderUpdate struct {
	ReminderID      *string `json:"reminder_id,omitempty"`
	ReminderEnabled *bool   `json:"reminder_enabled,omitempty"`
	IntervalMinutes *int    `json:"interval_minutes,omitempty"`
	Enabled         *bool   `json:"enabled,omitempty"`
	PauseWhenIdle   *bool   `json:"pause_when_idle,omitempty"`
}

func (u reminderUpdate) empty() bool {
	return u.ReminderID == nil && u.ReminderEnabled == nil && u.IntervalMinutes == nil &&
		u.Enabled == nil && u.PauseWhenIdle == nil
}

type apiClient struct {
	baseURL  string
	http     *http.Client
	clientID string
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{},
		clientID: uuid.NewString(),
	}
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s %s: %v", errTransport, method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", c.clientID)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", errTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errTransport, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(data, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &apiError{status: resp.StatusCode, message: msg, path: path}
	}
	return data, nil
}

func (c *apiClient) fetchStatus(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/status", nil)
}

func (c *apiClient) fetchPomodoro(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/pomodoro", nil)
}

// pomodoroAction forwards a user intent. the response is a pomodoro snapshot.
func (c *apiClient) pomodoroAction(ctx context.Context, action string) ([]byte, error) {
	if !pomodoroActions[action] {
		return nil, fmt.Errorf("%w: %q", errUnknownAction, action)
	}
	return c.do(ctx, http.MethodPost, "/api/pomodoro/"+action, nil)
}

func (c *apiClient) fetchReminders(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/reminders", nil)
}

func (c *apiClient) updateReminders(ctx context.Context, update reminderUpdate) error {
	_, err := c.do(ctx, http.MethodPost, "/api/reminders", update)
	return err
}

func (c *apiClient) snoozeReminder(ctx context.Context, id string, minutes int) error {
	_, err := c.do(ctx, http.MethodPost, "/api/reminders/snooze", map[string]any{
		"id":      id,
		"minutes": minutes,
	})
	return err
}

func (c *apiClient) dismissReminder(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/reminders/dismiss", map[string]any{"id": id})
	return err
}

// startBreak tells the server a break began. the local overlay doesn't wait on it.
func (c *apiClient) startBreak(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/break", map[string]any{})
	return err
}

func (c *apiClient) fetchConfig(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/config", nil)
}

func (c *apiClient) fetchProcrastination(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/procrastination", nil)
}

func (c *apiClient) fetchStats(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/api/stats", nil)
}
