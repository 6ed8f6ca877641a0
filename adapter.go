// presentation adapter: engine events in, view state and side effects out.
//
// the engine never talks to the server or the journal itself. it emits
// events into an eventQueue; Update drains the queue after every message
// and turns each event into view changes plus the tea.Cmds that notify
// the server, write the journal, and so on.

package main

import (
	"context"
	"math"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const flashDuration = 2 * time.Second

// eventQueue buffers engine events until Update drains them.
type eventQueue struct {
	pending []engineEvent
}

func (q *eventQueue) handleEvent(ev engineEvent) {
	q.pending = append(q.pending, ev)
}

func (q *eventQueue) drain() []engineEvent {
	evs := q.pending
	q.pending = nil
	return evs
}

// view is everything the renderer and the relay read. only the adapter
// writes it.
type view struct {
	conn       connState
	lastError  string
	rejected   int
	countdown  localCountdown
	expired    bool
	stale      bool
	lastSynced time.Time

	snapshot    phaseSnapshot
	hasSnapshot bool
	status      statusSnapshot
	hasStatus   bool

	active  []reminder // delivered and not yet handled, oldest first
	snoozed map[string]time.Time

	breakSession *breakSession
	lastBreak    breakEndReason

	serverBreakMinutes      int
	reminderSettings        reminderSettings
	hasReminderSettings     bool
	procrastinationCooldown int
	usage                   usageStats
	hasUsage                bool
	journal                 journalStats

	flash   string
	flashAt time.Time
}

func newView() view {
	return view{
		countdown: localCountdown{phase: phaseIdle},
		snoozed:   make(map[string]time.Time),
	}
}

func (v *view) setFlash(msg string, now time.Time) {
	v.flash = msg
	v.flashAt = now
}

func (v view) flashing(now time.Time) bool {
	return v.flash != "" && now.Sub(v.flashAt) < flashDuration
}

func (v *view) removeActive(id string) {
	v.active = slices.DeleteFunc(v.active, func(r reminder) bool { return r.id == id })
}

// drainEvents applies queued engine events in emit order.
func (m *model) drainEvents() []tea.Cmd {
	var cmds []tea.Cmd
	for _, ev := range m.events.drain() {
		if cmd := m.applyEvent(ev); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if snap, ok := m.engine.reconciler.snapshot(); ok {
		m.vs.snapshot, m.vs.hasSnapshot = snap, true
	}
	if st, ok := m.engine.status(); ok {
		m.vs.status, m.vs.hasStatus = st, true
	}
	m.cursor = min(m.cursor, max(0, len(m.vs.active)-1))
	return cmds
}

// applyEvent updates the view for one event and returns its side effects.
func (m *model) applyEvent(ev engineEvent) tea.Cmd {
	var cmds []tea.Cmd

	switch ev.kind {
	case eventConnected:
		m.vs.conn = connConnected
		m.vs.lastError = ""
	case eventDisconnected:
		m.vs.conn = connDisconnected
		if ev.err != nil {
			m.vs.lastError = ev.err.Error()
		}
	case eventSnapshotRejected:
		m.vs.rejected++
		if ev.err != nil {
			m.vs.lastError = ev.err.Error()
		}

	case eventPhaseReset:
		m.vs.countdown = localCountdown{
			phase:        ev.phase,
			secondsLeft:  ev.secondsLeft,
			running:      ev.running,
			lastSyncedAt: ev.at,
		}
		m.vs.expired = ev.secondsLeft == 0
		m.vs.lastSynced = ev.at
	case eventCountdownConfirmed:
		m.vs.countdown.running = ev.running
		m.vs.countdown.lastSyncedAt = ev.at
		m.vs.lastSynced = ev.at
	case eventCountdownTick:
		m.vs.countdown.secondsLeft = ev.secondsLeft
	case eventCountdownExpired:
		m.vs.expired = true
		m.vs.setFlash(ev.phase.label()+" finished", ev.at)
	case eventRunningChanged:
		m.vs.countdown.running = ev.running
	case eventSnapshotDropped:
		// late response to an older request; nothing to show
	case eventStale:
		m.vs.stale = true
	case eventFresh:
		m.vs.stale = false

	case eventReminderDelivered:
		delete(m.vs.snoozed, ev.reminder.id)
		m.vs.removeActive(ev.reminder.id)
		m.vs.active = append(m.vs.active, ev.reminder)
		m.vs.setFlash("reminder: "+ev.reminder.name, ev.at)
	case eventReminderDismissed:
		m.vs.removeActive(ev.reminder.id)
		id := ev.reminder.id
		client := m.client
		cmds = append(cmds, m.notifyCmd("dismiss "+id, func(ctx context.Context) error {
			return client.dismissReminder(ctx, id)
		}))
	case eventReminderSnoozed:
		m.vs.removeActive(ev.reminder.id)
		m.vs.snoozed[ev.reminder.id] = ev.snoozeUntil
		id := ev.reminder.id
		minutes := int(math.Round(ev.snoozeUntil.Sub(ev.at).Minutes()))
		client := m.client
		cmds = append(cmds, m.notifyCmd("snooze "+id, func(ctx context.Context) error {
			return client.snoozeReminder(ctx, id, minutes)
		}))
	case eventReminderExpired:
		m.vs.removeActive(ev.reminder.id)
		delete(m.vs.snoozed, ev.reminder.id)

	case eventBreakStarted:
		m.vs.breakSession = &breakSession{totalSeconds: ev.totalSeconds, secondsLeft: ev.secondsLeft}
		client := m.client
		cmds = append(cmds, m.notifyCmd("start break", client.startBreak))
	case eventBreakTick:
		m.vs.breakSession = &breakSession{totalSeconds: ev.totalSeconds, secondsLeft: ev.secondsLeft}
	case eventBreakEnded:
		m.vs.breakSession = nil
		m.vs.lastBreak = ev.reason
		if ev.reason == breakCompleted {
			m.vs.setFlash("break over", ev.at)
		}
	}

	if entry, ok := journalEntryFor(ev); ok && m.journal != nil {
		cmds = append(cmds, tea.Sequence(m.recordCmd(entry), m.journalStatsCmd()))
	}
	return tea.Batch(cmds...)
}

// journalEntryFor maps an event to its journal row. ticks, confirmations
// and connection flapping are not journaled.
func journalEntryFor(ev engineEvent) (journalEntry, bool) {
	entry := journalEntry{at: ev.at, kind: ev.kind.String()}
	switch ev.kind {
	case eventPhaseReset:
		// drift corrections and the first snapshot after startup are not phase changes
		if ev.previousPhase == "" || ev.previousPhase == ev.phase {
			return journalEntry{}, false
		}
		entry.phase = string(ev.phase)
		entry.detail = string(ev.previousPhase)
	case eventCountdownExpired:
		entry.phase = string(ev.phase)
	case eventReminderDelivered, eventReminderDismissed, eventReminderExpired:
		entry.reminderID = ev.reminder.id
		entry.detail = ev.reminder.name
	case eventReminderSnoozed:
		entry.reminderID = ev.reminder.id
		entry.detail = ev.reminder.name
		entry.until = ev.snoozeUntil
	case eventBreakStarted:
		entry.detail = formatCountdown(ev.totalSeconds)
	case eventBreakEnded:
		entry.detail = string(ev.reason)
	default:
		return journalEntry{}, false
	}
	return entry, true
}

// relayPayload is the JSON document served at /state.
func (v view) relayPayload(now time.Time) map[string]any {
	reminders := make([]map[string]any, 0, len(v.active))
	for _, r := range v.active {
		reminders = append(reminders, map[string]any{
			"id":               r.id,
			"name":             r.name,
			"message":          r.message,
			"icon":             r.icon,
			"interval_minutes": r.intervalMinutes,
			"type":             r.kind,
		})
	}
	snoozed := make(map[string]int64, len(v.snoozed))
	for id, until := range v.snoozed {
		snoozed[id] = until.UnixMilli()
	}

	payload := map[string]any{
		"timestamp":    now.UnixMilli(),
		"connection":   v.conn.String(),
		"stale":        v.stale,
		"rejected":     v.rejected,
		"phase":        string(v.countdown.phase),
		"seconds_left": v.countdown.secondsLeft,
		"running":      v.countdown.running,
		"expired":      v.expired,
		"reminders":    reminders,
		"snoozed":      snoozed,
	}
	if !v.lastSynced.IsZero() {
		payload["last_synced"] = v.lastSynced.UnixMilli()
	}
	if v.hasSnapshot {
		payload["current_pomodoro"] = v.snapshot.cycleCount
		payload["completed_today"] = v.snapshot.completedToday
		payload["total_work_minutes"] = v.snapshot.totalWorkMinutes
	}
	if v.hasStatus && v.status.analysis != nil {
		payload["mode"] = v.status.analysis.mode
		payload["should_break"] = v.status.analysis.shouldBreak
	}
	if v.breakSession != nil {
		payload["break"] = map[string]any{
			"total_seconds": v.breakSession.totalSeconds,
			"seconds_left":  v.breakSession.secondsLeft,
		}
	}
	return payload
}
