package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method    string
	path      string
	clientID  string
	requestID string
	body      map[string]any
}

// fakeServer records requests and answers with a fixed status and body per path.
type fakeServer struct {
	mu       sync.Mutex
	requests []capturedRequest
	replies  map[string]string
	status   map[string]int
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{replies: map[string]string{}, status: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := capturedRequest{
			method:    r.Method,
			path:      r.URL.Path,
			clientID:  r.Header.Get("X-Client-ID"),
			requestID: r.Header.Get("X-Request-ID"),
		}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &req.body)
		}
		fs.mu.Lock()
		fs.requests = append(fs.requests, req)
		reply, code := fs.replies[r.URL.Path], fs.status[r.URL.Path]
		fs.mu.Unlock()

		if code == 0 {
			code = http.StatusOK
		}
		if reply == "" {
			reply = `{"success": true}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (f *fakeServer) all() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.requests...)
}

func TestClientHeaders(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.replies["/api/status"] = statusJSONFixture
	c := newAPIClient(srv.URL + "/")

	ctx := context.Background()
	raw, err := c.fetchStatus(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, statusJSONFixture, string(raw))
	_, err = c.fetchPomodoro(ctx)
	require.NoError(t, err)

	reqs := fs.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/status", reqs[0].path)
	assert.Equal(t, "/api/pomodoro", reqs[1].path)
	assert.NotEmpty(t, reqs[0].clientID)
	assert.Equal(t, reqs[0].clientID, reqs[1].clientID, "client id is per process")
	assert.NotEqual(t, reqs[0].requestID, reqs[1].requestID, "request id is per request")
}

func TestClientServerError(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.status["/api/reminders/snooze"] = http.StatusBadRequest
	fs.replies["/api/reminders/snooze"] = `{"error": "unknown reminder"}`
	c := newAPIClient(srv.URL)

	err := c.snoozeReminder(context.Background(), "ghost", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransport)

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.status)
	assert.Equal(t, "unknown reminder", apiErr.message)
}

func TestClientErrorWithoutBody(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.status["/api/pomodoro"] = http.StatusInternalServerError
	fs.replies["/api/pomodoro"] = "oops"
	c := newAPIClient(srv.URL)

	_, err := c.fetchPomodoro(context.Background())
	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), apiErr.message)
}

func TestClientPomodoroAction(t *testing.T) {
	fs, srv := newFakeServer(t)
	fs.replies["/api/pomodoro/start"] = pomodoroJSONFixture
	c := newAPIClient(srv.URL)

	raw, err := c.pomodoroAction(context.Background(), "start")
	require.NoError(t, err)
	snap, err := parsePomodoroSnapshot(raw, at(0), at(0))
	require.NoError(t, err)
	assert.Equal(t, phaseWork, snap.phase)

	_, err = c.pomodoroAction(context.Background(), "rewind")
	assert.ErrorIs(t, err, errUnknownAction)

	reqs := fs.all()
	require.Len(t, reqs, 1, "unknown actions never reach the server")
	assert.Equal(t, http.MethodPost, reqs[0].method)
}

func TestClientRequestBodies(t *testing.T) {
	fs, srv := newFakeServer(t)
	c := newAPIClient(srv.URL)
	ctx := context.Background()

	enabled := false
	require.NoError(t, c.updateReminders(ctx, reminderUpdate{Enabled: &enabled}))
	require.NoError(t, c.snoozeReminder(ctx, "hydrate", 10))
	require.NoError(t, c.dismissReminder(ctx, "hydrate"))
	require.NoError(t, c.startBreak(ctx))

	reqs := fs.all()
	require.Len(t, reqs, 4)
	assert.Equal(t, map[string]any{"enabled": false}, reqs[0].body)
	assert.Equal(t, map[string]any{"id": "hydrate", "minutes": float64(10)}, reqs[1].body)
	assert.Equal(t, "/api/reminders/dismiss", reqs[2].path)
	assert.Equal(t, map[string]any{"id": "hydrate"}, reqs[2].body)
	assert.Equal(t, "/api/break", reqs[3].path)
}

func TestReminderUpdateEmpty(t *testing.T) {
	assert.True(t, reminderUpdate{}.empty())
	id := "hydrate"
	assert.False(t, reminderUpdate{ReminderID: &id}.empty())
}

func TestClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newAPIClient(url).fetchStatus(context.Background())
	assert.ErrorIs(t, err, errTransport)
}

func TestClientHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := newAPIClient(srv.URL).fetchStatus(ctx)
	assert.ErrorIs(t, err, errTransport)
	assert.Less(t, time.Since(start), 2*time.Second)
}
