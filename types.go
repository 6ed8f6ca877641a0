// data types shared across the codebase.
//
// phaseSnapshot and statusSnapshot come from the AFO server via polling.
// localCountdown, deliveryRecord and breakSession are client-side state,
// each owned by exactly one engine component (reconciler.go,
// dispatcher.go, breakoverlay.go).

package main

import "time"

// phase is one stage of the pomodoro cycle. values match the server's wire format.
type phase string

const (
	phaseIdle       phase = "idle"
	phaseWork       phase = "work"
	phaseShortBreak phase = "short_break"
	phaseLongBreak  phase = "long_break"
)

func (p phase) valid() bool {
	switch p {
	case phaseIdle, phaseWork, phaseShortBreak, phaseLongBreak:
		return true
	}
	return false
}

// label is the human form used in the view.
func (p phase) label() string {
	switch p {
	case phaseWork:
		return "work"
	case phaseShortBreak:
		return "short break"
	case phaseLongBreak:
		return "long break"
	default:
		return "idle"
	}
}

// phaseSettings mirrors the server's pomodoro settings block.
// all durations are > 0 on a valid snapshot.
type phaseSettings struct {
	workMinutes          int
	shortBreakMinutes    int
	longBreakMinutes     int
	cyclesUntilLongBreak int
	autoStartBreaks      bool
	autoStartWork        bool
}

// historyDay is one row of the server's per-day pomodoro history.
type historyDay struct {
	date         string
	pomodoros    int
	workMinutes  int
	breakMinutes int
}

// phaseSnapshot is one authoritative pomodoro payload. immutable once parsed.
type phaseSnapshot struct {
	phase             phase
	secondsLeft       int
	running           bool
	settings          phaseSettings
	cycleCount        int // current_pomodoro
	completedToday    int
	totalWorkMinutes  int
	totalBreakMinutes int
	history           []historyDay
	issuedAt          time.Time // when the request left the client
	receivedAt        time.Time
}

// localCountdown is the reconciled, locally ticking countdown.
type localCountdown struct {
	phase        phase
	secondsLeft  int
	running      bool
	lastSyncedAt time.Time
}

// procrastinationID is the id the server gives its procrastination warning.
const procrastinationID = "procrastination"

// reminder is one pending reminder as reported by the server.
// identity is id; the rest is display payload.
type reminder struct {
	id              string
	name            string
	message         string
	icon            string
	intervalMinutes int    // 0 when the server omits it
	kind            string // "" for regular reminders, "procrastination" for warnings
}

// deliveryState is the lifecycle of one reminder occurrence.
type deliveryState int

const (
	deliveryPending deliveryState = iota
	deliveryDelivered
	deliveryDismissed
	deliverySnoozed
)

func (s deliveryState) String() string {
	switch s {
	case deliveryPending:
		return "pending"
	case deliveryDelivered:
		return "delivered"
	case deliveryDismissed:
		return "dismissed"
	case deliverySnoozed:
		return "snoozed"
	default:
		return "unknown"
	}
}

// deliveryRecord tracks one reminder id across polls.
type deliveryRecord struct {
	state       deliveryState
	snoozeUntil time.Time // zero unless snoozed
	firstSeen   time.Time
	lastSeen    time.Time
	deliveredAt time.Time
	deliveries  int
	reminder    reminder
}

// breakSession is the local-only break overlay countdown.
type breakSession struct {
	totalSeconds int
	secondsLeft  int
}

// analysisInfo is the server's current work-mode analysis. nil until the
// server has produced one.
type analysisInfo struct {
	mode            string
	workMinutes     int
	shouldBreak     bool
	recommendations []string
}

// activityInfo describes what the user is doing according to the server.
type activityInfo struct {
	currentApp    string
	activityLevel string
	idle          bool
	idleSeconds   int
}

// environmentInfo is the server-side environment state. ambient sound is
// reported here but the client never mirrors it back.
type environmentInfo struct {
	sound                 string
	nightMode             bool
	focusMode             bool
	notificationsFiltered bool
}

// statusSnapshot is one /api/status payload.
type statusSnapshot struct {
	analysis         *analysisInfo
	activity         activityInfo
	environment      environmentInfo
	pendingReminders []reminder
	issuedAt         time.Time
	receivedAt       time.Time
}

// reminderConfig is one entry of GET /api/reminders.
type reminderConfig struct {
	id              string
	name            string
	enabled         bool
	intervalMinutes int
	nextInSeconds   int // -1 when the server reports null
	triggerCount    int
	snoozed         bool
}

// reminderSettings is the full GET /api/reminders payload.
type reminderSettings struct {
	enabled       bool
	pauseWhenIdle bool
	reminders     []reminderConfig
}

// appUsage is one row of GET /api/stats.
type appUsage struct {
	app       string
	seconds   int
	formatted string
}

// usageStats is the GET /api/stats payload.
type usageStats struct {
	apps                 []appUsage
	workSeconds          int
	entertainmentSeconds int
}
