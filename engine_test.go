package main

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(now *time.Time) (*engine, *recorder) {
	rec := &recorder{}
	e := newEngine(engineOptions{
		driftTolerance: defaultDriftTolerance,
		staleAfter:     6 * time.Second,
		snoozeMinutes:  defaultSnoozeMinutes,
		purgeAfter:     defaultPurgeAfter,
	}, func() time.Time { return *now })
	e.subscribe(rec)
	return e, rec
}

func TestEngineRoutesSnapshots(t *testing.T) {
	now := at(0)
	e, rec := newTestEngine(&now)

	e.snapshotReceived(pollResult{kind: pollPomodoro, body: []byte(pomodoroJSONFixture), issuedAt: at(0)})
	e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(statusJSONFixture), issuedAt: at(0)})

	want := []eventKind{eventConnected, eventPhaseReset, eventReminderDelivered}
	if diff := cmp.Diff(want, rec.kinds()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, connConnected, e.connection())
	st, ok := e.status()
	require.True(t, ok)
	assert.Equal(t, "deep_work", st.analysis.mode)
}

func TestEngineTickListenersDriveCountdownAndBreak(t *testing.T) {
	now := at(0)
	e, _ := newTestEngine(&now)
	e.snapshotReceived(pollResult{kind: pollPomodoro, body: []byte(pomodoroJSONFixture), issuedAt: at(0)})
	require.True(t, e.startBreak(120))
	assert.False(t, e.startBreak(60))

	for i := 1; i <= 3; i++ {
		now = at(i)
		for _, fn := range e.tickListeners() {
			fn(now)
		}
	}
	assert.Equal(t, 1497, e.reconciler.current().secondsLeft)
	s, ok := e.overlay.current()
	require.True(t, ok)
	assert.Equal(t, 117, s.secondsLeft)

	e.stopBreak()
	assert.False(t, e.overlay.active())
}

func TestEngineInvalidSnapshotIsMissedPoll(t *testing.T) {
	now := at(0)
	e, rec := newTestEngine(&now)
	e.snapshotReceived(pollResult{kind: pollPomodoro, body: []byte(pomodoroJSONFixture), issuedAt: at(0)})

	rec.reset()
	e.snapshotReceived(pollResult{kind: pollPomodoro, body: []byte(`{"phase": "work"}`), issuedAt: at(1)})
	assert.Equal(t, []eventKind{eventSnapshotRejected}, rec.kinds())
	assert.ErrorIs(t, rec.last().err, errInvalidSnapshot)
	assert.Equal(t, 1, e.rejectedCount())
	assert.Equal(t, 1500, e.reconciler.current().secondsLeft, "last known good state kept")

	e.snapshotReceived(pollResult{kind: pollKind("weather"), body: []byte(`{}`)})
	assert.Equal(t, 2, e.rejectedCount())
}

func TestEngineConnectionTransitions(t *testing.T) {
	now := at(0)
	e, rec := newTestEngine(&now)
	assert.Equal(t, "connecting", e.connection().String())

	down := errors.New("connection refused")
	e.pollFailed(pollStatus, down)
	e.pollFailed(pollPomodoro, down)
	assert.Equal(t, connDisconnected, e.connection())
	assert.Equal(t, 1, rec.count(eventDisconnected), "only transitions are reported")
	assert.ErrorIs(t, rec.last().err, down)

	e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(`{}`), issuedAt: at(1)})
	e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(`{}`), issuedAt: at(2)})
	assert.Equal(t, connDisconnected, e.connection(), "pomodoro endpoint still down")
	assert.Zero(t, rec.count(eventConnected))

	e.snapshotReceived(pollResult{kind: pollPomodoro, body: []byte(pomodoroJSONFixture), issuedAt: at(3)})
	assert.Equal(t, connConnected, e.connection())
	assert.Equal(t, 1, rec.count(eventConnected))
}

func TestEngineOneEndpointDownDoesNotFlap(t *testing.T) {
	now := at(0)
	e, rec := newTestEngine(&now)
	down := errors.New("502 bad gateway")

	for i := 0; i < 10; i++ {
		e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(`{}`), issuedAt: at(i)})
		e.pollFailed(pollPomodoro, down)
	}

	assert.Equal(t, connDisconnected, e.connection())
	assert.Equal(t, 1, rec.count(eventConnected), "connected once before the first failure")
	assert.Equal(t, 1, rec.count(eventDisconnected))
	for _, ev := range rec.events {
		if ev.kind == eventDisconnected {
			assert.Equal(t, pollPomodoro, ev.source)
			assert.ErrorIs(t, ev.err, down)
		}
	}
}

const procrastinationStatusJSON = `{
	"pending_reminders": [
		{
			"id": "procrastination",
			"name": "Procrastination Alert",
			"message": "You've spent 25 minutes on entertainment during work hours",
			"icon": "warning",
			"type": "procrastination",
			"entertainment_minutes": 25,
			"timestamp": "2026-03-02T09:00:00"
		}
	]
}`

func TestEngineRecurringWarningWithoutInterval(t *testing.T) {
	now := at(0)
	e, rec := newTestEngine(&now)
	e.setReminderIntervals(map[string]int{"procrastination": 20})

	// the server drains pending reminders on read, so each warning shows up
	// in one poll and the next one follows its cooldown
	const cooldown = 20 * 60
	for cycle := 0; cycle < 4; cycle++ {
		start := cycle * cooldown
		now = at(start)
		e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(procrastinationStatusJSON), issuedAt: now})
		now = at(start + 3)
		require.NoError(t, e.dismissReminder("procrastination"))
		for sec := start + 4; sec < start+cooldown; sec += 2 {
			now = at(sec)
			e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(`{"pending_reminders": []}`), issuedAt: now})
		}
	}

	assert.Equal(t, 4, rec.count(eventReminderDelivered))
	assert.Equal(t, 4, rec.count(eventReminderDismissed))
}

func TestEngineRecurrenceFallsBackWithoutSettings(t *testing.T) {
	now := at(0)
	e, rec := newTestEngine(&now)

	e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(procrastinationStatusJSON), issuedAt: at(0)})
	now = at(3)
	require.NoError(t, e.dismissReminder("procrastination"))

	// twenty minutes later, without settings, the 30 minute fallback still
	// treats it as the dismissed occurrence
	now = at(20 * 60)
	e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(procrastinationStatusJSON), issuedAt: now})
	assert.Equal(t, 1, rec.count(eventReminderDelivered))

	now = at(50 * 60)
	e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(procrastinationStatusJSON), issuedAt: now})
	assert.Equal(t, 2, rec.count(eventReminderDelivered))
}

func TestEngineIgnoresOlderStatus(t *testing.T) {
	now := at(0)
	e, rec := newTestEngine(&now)
	e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(`{"pending_reminders": []}`), issuedAt: at(5)})
	e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(statusJSONFixture), issuedAt: at(3)})

	assert.Zero(t, rec.count(eventReminderDelivered))
	st, _ := e.status()
	assert.Equal(t, at(5), st.issuedAt)
}

func TestEngineReminderActions(t *testing.T) {
	now := at(0)
	e, rec := newTestEngine(&now)
	e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(statusJSONFixture), issuedAt: at(0)})

	now = at(5)
	require.NoError(t, e.snoozeReminder("hydrate", 10))
	assert.Equal(t, at(5).Add(10*time.Minute), rec.last().snoozeUntil)

	assert.ErrorIs(t, e.dismissReminder("ghost"), errReminderNotFound)
	require.NoError(t, e.dismissReminder("hydrate"))
	assert.Equal(t, eventReminderDismissed, rec.last().kind)
}

func TestEngineRestoreAndConfigure(t *testing.T) {
	now := at(0)
	e, rec := newTestEngine(&now)
	e.restore([]savedDelivery{{reminder: reminder{id: "hydrate"}, until: at(60)}})

	e.snapshotReceived(pollResult{kind: pollStatus, body: []byte(statusJSONFixture), issuedAt: at(1)})
	assert.Zero(t, rec.count(eventReminderDelivered))

	e.configure(engineOptions{driftTolerance: 10, staleAfter: time.Minute, snoozeMinutes: 3})
	assert.Equal(t, 10, e.reconciler.driftTolerance)
	assert.Equal(t, time.Minute, e.reconciler.staleAfter)
	assert.Equal(t, 3, e.dispatcher.snoozeMinutes)
	assert.Equal(t, defaultPurgeAfter, e.dispatcher.purgeAfter)
}
