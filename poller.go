// snapshot poller: periodic fetches of authoritative state.
//
// the repeat is wall-clock scheduled: the next poll tick is set when the
// current one fires, not when its request completes, and each request
// carries its own deadline. a slow or hung request never delays or blocks
// later polls; its result, if it ever arrives, is ordered by issuedAt.

package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultStatusInterval   = 2 * time.Second
	defaultPomodoroInterval = time.Second // while running
	defaultRequestTimeout   = 1500 * time.Millisecond
)

type pollTickMsg struct {
	id  int
	tag int
}

// pollResult is one completed poll, successful or not. it doubles as the
// bubbletea message carrying the result back to the event loop.
type pollResult struct {
	poller     int
	kind       pollKind
	body       []byte
	err        error
	issuedAt   time.Time
	receivedAt time.Time
}

// fetchFunc performs one request. it must honor ctx.
type fetchFunc func(ctx context.Context) ([]byte, error)

// snapshotSubscriber receives raw poll outcomes.
type snapshotSubscriber interface {
	snapshotReceived(pollResult)
	pollFailed(pollKind, error)
}

type poller struct {
	id          int
	tag         int
	kind        pollKind
	running     bool
	interval    time.Duration
	timeout     time.Duration
	fetch       fetchFunc
	subscribers []snapshotSubscriber
	lastOK      time.Time
	failures    int
}

func newPoller(kind pollKind, fetch fetchFunc, timeout time.Duration) *poller {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &poller{
		id:       nextScheduleID(),
		kind:     kind,
		interval: defaultStatusInterval,
		timeout:  timeout,
		fetch:    fetch,
	}
}

func (p *poller) subscribe(subs ...snapshotSubscriber) {
	p.subscribers = append(p.subscribers, subs...)
}

// poll fetches one snapshot now.
func (p *poller) poll() tea.Cmd {
	id, kind, fetch, timeout := p.id, p.kind, p.fetch, p.timeout
	return func() tea.Msg {
		issued := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		body, err := fetch(ctx)
		return pollResult{
			poller:     id,
			kind:       kind,
			body:       body,
			err:        err,
			issuedAt:   issued,
			receivedAt: time.Now(),
		}
	}
}

// startPolling polls immediately and then every interval until stopPolling.
// no-op when already polling.
func (p *poller) startPolling(interval time.Duration) tea.Cmd {
	if p.running {
		return nil
	}
	if interval > 0 {
		p.interval = interval
	}
	p.running = true
	p.tag++
	return tea.Batch(p.poll(), p.schedule())
}

// stopPolling cancels the repeat. requests already in flight still report.
func (p *poller) stopPolling() {
	if !p.running {
		return
	}
	p.running = false
	p.tag++
}

// setInterval changes the cadence. when polling, the pending tick is
// superseded and the new cadence starts from now.
func (p *poller) setInterval(interval time.Duration) tea.Cmd {
	if interval <= 0 || interval == p.interval {
		return nil
	}
	p.interval = interval
	if !p.running {
		return nil
	}
	p.tag++
	return p.schedule()
}

// setTimeout changes the per-request deadline for polls issued from now on.
func (p *poller) setTimeout(timeout time.Duration) {
	if timeout > 0 {
		p.timeout = timeout
	}
}

// update handles poll ticks and results addressed to this poller.
func (p *poller) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case pollTickMsg:
		if msg.id != p.id || msg.tag != p.tag || !p.running {
			return nil
		}
		return tea.Batch(p.poll(), p.schedule())
	case pollResult:
		if msg.poller != p.id {
			return nil
		}
		if msg.err != nil {
			p.failures++
			for _, s := range p.subscribers {
				s.pollFailed(p.kind, msg.err)
			}
			return nil
		}
		p.failures = 0
		p.lastOK = msg.receivedAt
		for _, s := range p.subscribers {
			s.snapshotReceived(msg)
		}
	}
	return nil
}

func (p *poller) schedule() tea.Cmd {
	id, tag := p.id, p.tag
	return tea.Tick(p.interval, func(time.Time) tea.Msg {
		return pollTickMsg{id: id, tag: tag}
	})
}

func (p *poller) isRunning() bool {
	return p.running
}
