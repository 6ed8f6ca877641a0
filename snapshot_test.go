package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePomodoroSnapshot(t *testing.T) {
	snap, err := parsePomodoroSnapshot([]byte(pomodoroJSONFixture), at(0), at(1))
	require.NoError(t, err)

	assert.Equal(t, phaseWork, snap.phase)
	assert.Equal(t, 1500, snap.secondsLeft)
	assert.True(t, snap.running)
	assert.Equal(t, 2, snap.cycleCount)
	assert.Equal(t, 3, snap.completedToday)
	assert.Equal(t, 75, snap.totalWorkMinutes)
	assert.Equal(t, phaseSettings{
		workMinutes:          25,
		shortBreakMinutes:    5,
		longBreakMinutes:     15,
		cyclesUntilLongBreak: 4,
		autoStartBreaks:      true,
	}, snap.settings)
	require.Len(t, snap.history, 1)
	assert.Equal(t, 6, snap.history[0].pomodoros)
	assert.Equal(t, at(0), snap.issuedAt)
	assert.Equal(t, at(1), snap.receivedAt)
}

func TestParsePomodoroSnapshotRejects(t *testing.T) {
	const settings = `"settings": {"work_minutes": 25, "short_break_minutes": 5, "long_break_minutes": 15, "cycles_until_long_break": 4}`
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"not json", `{"phase":`},
		{"array", `[]`},
		{"missing phase", `{"seconds_left": 10, "running": true, ` + settings + `}`},
		{"unknown phase", `{"phase": "nap", "seconds_left": 10, "running": true, ` + settings + `}`},
		{"negative seconds", `{"phase": "work", "seconds_left": -1, "running": true, ` + settings + `}`},
		{"seconds as string", `{"phase": "work", "seconds_left": "10", "running": true, ` + settings + `}`},
		{"missing running", `{"phase": "work", "seconds_left": 10, ` + settings + `}`},
		{"missing settings", `{"phase": "work", "seconds_left": 10, "running": true}`},
		{"zero duration", `{"phase": "work", "seconds_left": 10, "running": true, "settings": {"work_minutes": 0, "short_break_minutes": 5, "long_break_minutes": 15, "cycles_until_long_break": 4}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePomodoroSnapshot([]byte(tt.raw), at(0), at(0))
			assert.ErrorIs(t, err, errInvalidSnapshot)
		})
	}
}

func TestParsePomodoroSnapshotAcceptsAlternateCycleKey(t *testing.T) {
	raw := `{"phase": "idle", "seconds_left": 0, "running": false,
		"settings": {"work_minutes": 25, "short_break_minutes": 5, "long_break_minutes": 15, "cycles_until_long_break": 3}}`
	snap, err := parsePomodoroSnapshot([]byte(raw), at(0), at(0))
	require.NoError(t, err)
	assert.Equal(t, 3, snap.settings.cyclesUntilLongBreak)
	assert.Empty(t, snap.history)
}

func TestParseStatusSnapshot(t *testing.T) {
	snap, err := parseStatusSnapshot([]byte(statusJSONFixture), at(0), at(0))
	require.NoError(t, err)

	require.NotNil(t, snap.analysis)
	assert.Equal(t, "deep_work", snap.analysis.mode)
	assert.Equal(t, []string{"stay hydrated"}, snap.analysis.recommendations)
	assert.Equal(t, "Code", snap.activity.currentApp)
	assert.True(t, snap.environment.focusMode)
	require.Len(t, snap.pendingReminders, 1)
	assert.Equal(t, reminder{
		id:              "hydrate",
		name:            "Hydrate",
		message:         "drink some water",
		icon:            "💧",
		intervalMinutes: 30,
	}, snap.pendingReminders[0])
}

func TestParseStatusSnapshotTolerance(t *testing.T) {
	snap, err := parseStatusSnapshot([]byte(`{"analysis": null, "pending_reminders": null}`), at(0), at(0))
	require.NoError(t, err)
	assert.Nil(t, snap.analysis)
	assert.Empty(t, snap.pendingReminders)

	_, err = parseStatusSnapshot([]byte(`{"pending_reminders": "hydrate"}`), at(0), at(0))
	assert.ErrorIs(t, err, errInvalidSnapshot)

	_, err = parseStatusSnapshot([]byte(`{"pending_reminders": [{"name": "no id"}]}`), at(0), at(0))
	assert.ErrorIs(t, err, errInvalidSnapshot)
}

func TestParseReminderSettings(t *testing.T) {
	raw := `{"enabled": true, "pause_when_idle": false, "reminders": [
		{"id": "hydrate", "name": "Hydrate", "enabled": true, "interval_minutes": 30, "next_in_seconds": 120, "trigger_count": 2},
		{"id": "posture", "name": "Posture", "enabled": false, "interval_minutes": 45, "next_in_seconds": null, "snoozed": true}
	]}`
	settings, err := parseReminderSettings([]byte(raw))
	require.NoError(t, err)
	assert.True(t, settings.enabled)
	require.Len(t, settings.reminders, 2)
	assert.Equal(t, 120, settings.reminders[0].nextInSeconds)
	assert.Equal(t, -1, settings.reminders[1].nextInSeconds)
	assert.True(t, settings.reminders[1].snoozed)
}

func TestParseUsageStatsAndBreakMinutes(t *testing.T) {
	stats, err := parseUsageStats([]byte(`{"apps": [{"app": "Code", "seconds": 3600, "formatted": "1h 0m"}], "work_seconds": 3600}`))
	require.NoError(t, err)
	require.Len(t, stats.apps, 1)
	assert.Equal(t, "Code", stats.apps[0].app)
	assert.Equal(t, 3600, stats.workSeconds)

	assert.Equal(t, 15, parseBreakMinutes([]byte(`{"breaks": {"break_duration": 15}}`)))
	assert.Zero(t, parseBreakMinutes([]byte(`{"breaks": {}}`)))
	assert.Zero(t, parseBreakMinutes([]byte(`nope`)))
}
