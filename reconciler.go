// phase reconciler: merges polled pomodoro snapshots with local ticks.
//
// the server owns phase transitions. locally we only count down the last
// known phase, one second per tick, and snap back to the server's value
// when it disagrees by more than the drift tolerance. agreement within
// tolerance is confirmation only, so the display doesn't jitter every poll.

package main

import "time"

const (
	defaultDriftTolerance = 2 // seconds
	defaultStaleMultiple  = 3 // x status poll interval
)

type reconciler struct {
	countdown      localCountdown
	last           phaseSnapshot
	hasSnapshot    bool
	driftTolerance int
	staleAfter     time.Duration
	lastAppliedAt  time.Time
	stale          bool
	expired        bool
	emit           func(engineEvent)
}

func newReconciler(driftTolerance int, staleAfter time.Duration, emit func(engineEvent)) *reconciler {
	if driftTolerance < 0 {
		driftTolerance = defaultDriftTolerance
	}
	return &reconciler{
		countdown:      localCountdown{phase: phaseIdle},
		driftTolerance: driftTolerance,
		staleAfter:     staleAfter,
		emit:           emit,
	}
}

// configure updates tolerance and staleness window (config reload).
func (r *reconciler) configure(driftTolerance int, staleAfter time.Duration) {
	if driftTolerance >= 0 {
		r.driftTolerance = driftTolerance
	}
	r.staleAfter = staleAfter
}

// applySnapshot reconciles one authoritative snapshot. now is the local
// time the snapshot is processed at.
func (r *reconciler) applySnapshot(snap phaseSnapshot, now time.Time) {
	// a response to an older request arriving late must not roll state back
	if r.hasSnapshot && snap.issuedAt.Before(r.last.issuedAt) {
		r.emit(engineEvent{kind: eventSnapshotDropped, at: now, phase: snap.phase, secondsLeft: snap.secondsLeft})
		return
	}

	wasStale := r.stale
	r.stale = false
	first := !r.hasSnapshot
	r.last = snap
	r.hasSnapshot = true
	r.lastAppliedAt = now

	prev := r.countdown
	drift := snap.secondsLeft - prev.secondsLeft
	if drift < 0 {
		drift = -drift
	}

	if first || snap.phase != prev.phase || drift > r.driftTolerance {
		r.countdown = localCountdown{
			phase:        snap.phase,
			secondsLeft:  snap.secondsLeft,
			running:      snap.running,
			lastSyncedAt: now,
		}
		r.expired = snap.secondsLeft == 0
		previous := prev.phase
		if first {
			previous = ""
		}
		r.emit(engineEvent{
			kind:          eventPhaseReset,
			at:            now,
			phase:         snap.phase,
			previousPhase: previous,
			secondsLeft:   snap.secondsLeft,
			running:       snap.running,
		})
	} else {
		r.countdown.running = snap.running
		r.emit(engineEvent{
			kind:        eventCountdownConfirmed,
			at:          now,
			phase:       prev.phase,
			secondsLeft: prev.secondsLeft,
			running:     snap.running,
		})
	}

	if !first && prev.running != snap.running {
		r.emit(engineEvent{
			kind:        eventRunningChanged,
			at:          now,
			phase:       r.countdown.phase,
			secondsLeft: r.countdown.secondsLeft,
			running:     snap.running,
		})
	}
	if wasStale {
		r.emit(engineEvent{kind: eventFresh, at: now})
	}
}

// tick advances the local countdown by one second.
func (r *reconciler) tick(now time.Time) {
	if !r.hasSnapshot {
		return
	}

	if !r.stale && r.staleAfter > 0 && now.Sub(r.lastAppliedAt) > r.staleAfter {
		r.stale = true
		r.emit(engineEvent{kind: eventStale, at: now, phase: r.countdown.phase, secondsLeft: r.countdown.secondsLeft})
	}

	if !r.countdown.running || r.countdown.secondsLeft <= 0 {
		return
	}
	r.countdown.secondsLeft--
	r.emit(engineEvent{
		kind:        eventCountdownTick,
		at:          now,
		phase:       r.countdown.phase,
		secondsLeft: r.countdown.secondsLeft,
		running:     true,
	})

	// hold at zero until the server moves us to the next phase
	if r.countdown.secondsLeft == 0 && !r.expired {
		r.expired = true
		r.emit(engineEvent{kind: eventCountdownExpired, at: now, phase: r.countdown.phase})
	}
}

// current returns a copy of the local countdown.
func (r *reconciler) current() localCountdown {
	return r.countdown
}

// snapshot returns the last applied snapshot.
func (r *reconciler) snapshot() (phaseSnapshot, bool) {
	return r.last, r.hasSnapshot
}

func (r *reconciler) isStale() bool {
	return r.stale
}
