// clock ticker: the single one-second signal that drives every countdown.
//
// timers in bubbletea are one-shot commands, so "repeating" means
// rescheduling on every accepted tick. each start bumps a generation tag
// and ticks from older generations are dropped; a stop followed by a start
// can therefore never leave two live tick chains.

package main

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

var lastScheduleID atomic.Int64

// nextScheduleID hands out ids so tickers and pollers ignore each other's messages.
func nextScheduleID() int {
	return int(lastScheduleID.Add(1))
}

type clockTickMsg struct {
	id  int
	tag int
	at  time.Time
}

type clockTicker struct {
	id        int
	tag       int
	running   bool
	interval  time.Duration
	listeners []func(time.Time)
}

func newClockTicker(interval time.Duration) *clockTicker {
	if interval <= 0 {
		interval = time.Second
	}
	return &clockTicker{id: nextScheduleID(), interval: interval}
}

// subscribe adds tick listeners. listeners must not call back into the ticker.
func (t *clockTicker) subscribe(listeners ...func(time.Time)) {
	t.listeners = append(t.listeners, listeners...)
}

// start begins ticking. no-op (nil cmd) when already running.
func (t *clockTicker) start() tea.Cmd {
	if t.running {
		return nil
	}
	t.running = true
	t.tag++
	return t.schedule()
}

// stop cancels ticking. the in-flight tick, if any, is dropped on arrival.
func (t *clockTicker) stop() {
	if !t.running {
		return
	}
	t.running = false
	t.tag++
}

// update handles a tick message, fanning it out to listeners once and
// scheduling the next tick. foreign or stale ticks return nil.
func (t *clockTicker) update(msg clockTickMsg) tea.Cmd {
	if msg.id != t.id || msg.tag != t.tag || !t.running {
		return nil
	}
	for _, fn := range t.listeners {
		fn(msg.at)
	}
	return t.schedule()
}

func (t *clockTicker) schedule() tea.Cmd {
	id, tag := t.id, t.tag
	// Every aligns to the wall clock, so the display flips on second boundaries
	return tea.Every(t.interval, func(at time.Time) tea.Msg {
		return clockTickMsg{id: id, tag: tag, at: at}
	})
}

func (t *clockTicker) isRunning() bool {
	return t.running
}
