package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayServesPublishedState(t *testing.T) {
	state := newRelayState()
	srv := httptest.NewServer(newRelayHandler(state))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "nothing published yet")

	v := newView()
	v.conn = connConnected
	v.countdown = localCountdown{phase: phaseWork, secondsLeft: 1490, running: true}
	v.active = []reminder{hydrate}
	state.publish(v.relayPayload(at(0)))

	resp, err = http.Get(srv.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "work", got["phase"])
	assert.Equal(t, float64(1490), got["seconds_left"])
	assert.Equal(t, "connected", got["connection"])
	reminders, ok := got["reminders"].([]any)
	require.True(t, ok)
	require.Len(t, reminders, 1)
	assert.Equal(t, "hydrate", reminders[0].(map[string]any)["id"])
}

func TestRelayHealth(t *testing.T) {
	srv := httptest.NewServer(newRelayHandler(newRelayState()))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestRelayPayloadOptionalSections(t *testing.T) {
	v := newView()
	payload := v.relayPayload(at(0))
	assert.NotContains(t, payload, "break")
	assert.NotContains(t, payload, "last_synced")
	assert.Equal(t, "connecting", payload["connection"])

	v.breakSession = &breakSession{totalSeconds: 600, secondsLeft: 30}
	v.lastSynced = at(0)
	payload = v.relayPayload(at(1))
	assert.Equal(t, map[string]any{"total_seconds": 600, "seconds_left": 30}, payload["break"])
	assert.Equal(t, at(0).UnixMilli(), payload["last_synced"])
}
