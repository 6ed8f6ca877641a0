// engine: owns the reconciler, dispatcher and break overlay and routes
// ticks, snapshots and user actions to them.
//
// everything here runs on the bubbletea event loop, one message at a time,
// so there are no locks. listeners are called synchronously in emit order.

package main

import (
	"fmt"
	"log"
	"time"
)

// pollKind identifies which endpoint a poll result came from.
type pollKind string

const (
	pollStatus   pollKind = "status"
	pollPomodoro pollKind = "pomodoro"
)

// connState is the last known reachability of the server.
type connState int

const (
	connUnknown connState = iota
	connConnected
	connDisconnected
)

func (c connState) String() string {
	switch c {
	case connConnected:
		return "connected"
	case connDisconnected:
		return "disconnected"
	default:
		return "connecting"
	}
}

type engineOptions struct {
	driftTolerance int
	staleAfter     time.Duration
	snoozeMinutes  int
	purgeAfter     time.Duration
}

type engine struct {
	reconciler *reconciler
	dispatcher *dispatcher
	overlay    *breakOverlay
	listeners  []eventListener
	conn       connState
	failing    map[pollKind]error // per endpoint; the server is up only when empty
	lastStatus *statusSnapshot
	rejected   int
	now        func() time.Time
}

func newEngine(opts engineOptions, now func() time.Time) *engine {
	if now == nil {
		now = time.Now
	}
	e := &engine{now: now, failing: make(map[pollKind]error)}
	e.reconciler = newReconciler(opts.driftTolerance, opts.staleAfter, e.emit)
	e.dispatcher = newDispatcher(opts.snoozeMinutes, opts.purgeAfter, e.emit)
	e.overlay = newBreakOverlay(e.emit)
	return e
}

// subscribe registers listeners. they are called in registration order.
func (e *engine) subscribe(listeners ...eventListener) {
	e.listeners = append(e.listeners, listeners...)
}

func (e *engine) emit(ev engineEvent) {
	for _, l := range e.listeners {
		l.handleEvent(ev)
	}
}

// configure applies reloaded options to every component.
func (e *engine) configure(opts engineOptions) {
	e.reconciler.configure(opts.driftTolerance, opts.staleAfter)
	e.dispatcher.configure(opts.snoozeMinutes, opts.purgeAfter)
}

// setReminderIntervals feeds the server's per-id reminder intervals, in
// minutes, to the dispatcher.
func (e *engine) setReminderIntervals(minutes map[string]int) {
	e.dispatcher.setIntervals(minutes)
}

// tickListeners returns the per-second listeners for the clock ticker:
// the reconciler and the break overlay, in that order.
func (e *engine) tickListeners() []func(time.Time) {
	return []func(time.Time){e.reconciler.tick, e.overlay.tick}
}

// snapshotReceived ingests one raw poll result. invalid payloads are
// dropped and count as a missed poll; they don't change connection state.
func (e *engine) snapshotReceived(res pollResult) {
	now := e.now()
	switch res.kind {
	case pollPomodoro:
		snap, err := parsePomodoroSnapshot(res.body, res.issuedAt, res.receivedAt)
		if err != nil {
			e.reject(res.kind, err, now)
			return
		}
		e.setConn(connConnected, res.kind, nil, now)
		e.reconciler.applySnapshot(snap, now)
	case pollStatus:
		snap, err := parseStatusSnapshot(res.body, res.issuedAt, res.receivedAt)
		if err != nil {
			e.reject(res.kind, err, now)
			return
		}
		e.setConn(connConnected, res.kind, nil, now)
		if e.lastStatus != nil && snap.issuedAt.Before(e.lastStatus.issuedAt) {
			return
		}
		e.lastStatus = &snap
		e.dispatcher.observe(snap.pendingReminders, now)
	default:
		e.reject(res.kind, fmt.Errorf("%w: unknown source %q", errInvalidSnapshot, res.kind), now)
	}
}

// pollFailed records a transport failure. last known state stays as is.
func (e *engine) pollFailed(kind pollKind, err error) {
	e.setConn(connDisconnected, kind, err, e.now())
}

func (e *engine) reject(kind pollKind, err error, now time.Time) {
	e.rejected++
	log.Printf("%s snapshot rejected: %v", kind, err)
	e.emit(engineEvent{kind: eventSnapshotRejected, at: now, source: kind, err: err})
}

// setConn records the outcome of one poll and emits a transition when the
// aggregate changes. a single failing endpoint keeps the server
// disconnected until it recovers too.
func (e *engine) setConn(state connState, kind pollKind, err error, now time.Time) {
	if state == connConnected {
		delete(e.failing, kind)
	} else {
		if _, ok := e.failing[kind]; !ok {
			log.Printf("%s poll failed: %v", kind, err)
		}
		e.failing[kind] = err
	}

	next := connConnected
	if len(e.failing) > 0 {
		next = connDisconnected
	}
	if e.conn == next {
		return
	}
	e.conn = next

	ev := engineEvent{at: now, source: kind, kind: eventConnected}
	if next == connDisconnected {
		ev.kind = eventDisconnected
		ev.source, ev.err = e.failingCause()
	}
	e.emit(ev)
}

func (e *engine) failingCause() (pollKind, error) {
	for _, k := range []pollKind{pollStatus, pollPomodoro} {
		if err, ok := e.failing[k]; ok {
			return k, err
		}
	}
	for k, err := range e.failing {
		return k, err
	}
	return "", nil
}

// restore seeds reminder decisions journaled by a previous run.
func (e *engine) restore(saved []savedDelivery) {
	now := e.now()
	for _, s := range saved {
		e.dispatcher.restoreSnooze(s.reminder, s.until, now)
	}
}

// dismissReminder and snoozeReminder are user actions on a delivered reminder.
func (e *engine) dismissReminder(id string) error {
	return e.dispatcher.dismiss(id, e.now())
}

func (e *engine) snoozeReminder(id string, minutes int) error {
	return e.dispatcher.snooze(id, minutes, e.now())
}

// startBreak opens the break overlay. false when one is already running.
func (e *engine) startBreak(seconds int) bool {
	return e.overlay.start(seconds, e.now())
}

func (e *engine) stopBreak() {
	e.overlay.stop(e.now())
}

func (e *engine) connection() connState {
	return e.conn
}

func (e *engine) status() (statusSnapshot, bool) {
	if e.lastStatus == nil {
		return statusSnapshot{}, false
	}
	return *e.lastStatus, true
}

func (e *engine) rejectedCount() int {
	return e.rejected
}
