// break overlay: a local, uninterruptible countdown that locks the UI.
//
// unlike the pomodoro countdown this is never reconciled with the server
// while running. the server is only told a break started.

package main

import "time"

const defaultBreakMinutes = 10

type breakOverlay struct {
	session *breakSession
	emit    func(engineEvent)
}

func newBreakOverlay(emit func(engineEvent)) *breakOverlay {
	return &breakOverlay{emit: emit}
}

// start begins a break of seconds. returns false (and does nothing) when a
// break is already active or the duration is not positive.
func (b *breakOverlay) start(seconds int, now time.Time) bool {
	if b.session != nil || seconds <= 0 {
		return false
	}
	b.session = &breakSession{totalSeconds: seconds, secondsLeft: seconds}
	b.emit(engineEvent{
		kind:         eventBreakStarted,
		at:           now,
		secondsLeft:  seconds,
		totalSeconds: seconds,
	})
	return true
}

// tick advances an active break by one second.
func (b *breakOverlay) tick(now time.Time) {
	if b.session == nil {
		return
	}
	b.session.secondsLeft--
	if b.session.secondsLeft <= 0 {
		b.end(breakCompleted, now)
		return
	}
	b.emit(engineEvent{
		kind:         eventBreakTick,
		at:           now,
		secondsLeft:  b.session.secondsLeft,
		totalSeconds: b.session.totalSeconds,
	})
}

// stop ends an active break early. no-op when inactive.
func (b *breakOverlay) stop(now time.Time) {
	if b.session == nil {
		return
	}
	b.end(breakStopped, now)
}

func (b *breakOverlay) end(reason breakEndReason, now time.Time) {
	total := b.session.totalSeconds
	left := max(b.session.secondsLeft, 0)
	b.session = nil
	b.emit(engineEvent{
		kind:         eventBreakEnded,
		at:           now,
		secondsLeft:  left,
		totalSeconds: total,
		reason:       reason,
	})
}

func (b *breakOverlay) active() bool {
	return b.session != nil
}

// current returns a copy of the active session.
func (b *breakOverlay) current() (breakSession, bool) {
	if b.session == nil {
		return breakSession{}, false
	}
	return *b.session, true
}

// progress is the elapsed fraction of the active break in [0, 1].
func (b *breakOverlay) progress() float64 {
	if b.session == nil || b.session.totalSeconds <= 0 {
		return 0
	}
	p := float64(b.session.totalSeconds-b.session.secondsLeft) / float64(b.session.totalSeconds)
	return min(max(p, 0), 1)
}
