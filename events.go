// engine events: everything the engine tells the presentation adapter.
//
// components never touch each other's state; they emit events through
// the engine, which fans them out to subscribed listeners in order.

package main

import "time"

type eventKind int

const (
	// connection (engine.go)
	eventConnected eventKind = iota
	eventDisconnected
	eventSnapshotRejected

	// countdown (reconciler.go)
	eventPhaseReset
	eventCountdownConfirmed
	eventCountdownTick
	eventCountdownExpired
	eventRunningChanged
	eventSnapshotDropped
	eventStale
	eventFresh

	// reminders (dispatcher.go)
	eventReminderDelivered
	eventReminderDismissed
	eventReminderSnoozed
	eventReminderExpired

	// break overlay (breakoverlay.go)
	eventBreakStarted
	eventBreakTick
	eventBreakEnded
)

var eventKindNames = map[eventKind]string{
	eventConnected:          "connected",
	eventDisconnected:       "disconnected",
	eventSnapshotRejected:   "snapshot_rejected",
	eventPhaseReset:         "phase_reset",
	eventCountdownConfirmed: "countdown_confirmed",
	eventCountdownTick:      "countdown_tick",
	eventCountdownExpired:   "countdown_expired",
	eventRunningChanged:     "running_changed",
	eventSnapshotDropped:    "snapshot_dropped",
	eventStale:              "stale",
	eventFresh:              "fresh",
	eventReminderDelivered:  "reminder_delivered",
	eventReminderDismissed:  "reminder_dismissed",
	eventReminderSnoozed:    "reminder_snoozed",
	eventReminderExpired:    "reminder_expired",
	eventBreakStarted:       "break_started",
	eventBreakTick:          "break_tick",
	eventBreakEnded:         "break_ended",
}

func (k eventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// breakEndReason says why a break overlay session ended.
type breakEndReason string

const (
	breakCompleted breakEndReason = "completed"
	breakStopped   breakEndReason = "stopped"
)

// engineEvent is one engine notification. only the fields relevant to
// kind are set.
type engineEvent struct {
	kind          eventKind
	at            time.Time
	source        pollKind // connection events
	phase         phase
	previousPhase phase
	secondsLeft   int
	totalSeconds  int
	running       bool
	reminder      reminder
	snoozeUntil   time.Time
	reason        breakEndReason
	err           error
}

// eventListener receives engine events synchronously on the event loop.
type eventListener interface {
	handleEvent(engineEvent)
}

// listenerFunc adapts a plain function to eventListener.
type listenerFunc func(engineEvent)

func (f listenerFunc) handleEvent(ev engineEvent) { f(ev) }
