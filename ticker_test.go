package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockTickerFansOutOncePerTick(t *testing.T) {
	c := newClockTicker(time.Second)
	var a, b []time.Time
	c.subscribe(
		func(now time.Time) { a = append(a, now) },
		func(now time.Time) { b = append(b, now) },
	)

	require.NotNil(t, c.start())
	next := c.update(clockTickMsg{id: c.id, tag: c.tag, at: at(1)})
	assert.NotNil(t, next, "accepted tick schedules the next one")
	assert.Equal(t, []time.Time{at(1)}, a)
	assert.Equal(t, []time.Time{at(1)}, b)
}

func TestClockTickerStartIsIdempotent(t *testing.T) {
	c := newClockTicker(0)
	assert.Equal(t, time.Second, c.interval)
	require.NotNil(t, c.start())
	tag := c.tag
	assert.Nil(t, c.start())
	assert.Equal(t, tag, c.tag)
	assert.True(t, c.isRunning())
}

func TestClockTickerStopStartDropsOldChain(t *testing.T) {
	c := newClockTicker(time.Second)
	calls := 0
	c.subscribe(func(time.Time) { calls++ })

	c.start()
	oldTag := c.tag
	c.stop()
	c.stop()
	assert.False(t, c.isRunning())

	// tick in flight from before the stop
	assert.Nil(t, c.update(clockTickMsg{id: c.id, tag: oldTag, at: at(1)}))

	c.start()
	assert.Nil(t, c.update(clockTickMsg{id: c.id, tag: oldTag, at: at(1)}),
		"old chain must not survive a restart")
	assert.NotNil(t, c.update(clockTickMsg{id: c.id, tag: c.tag, at: at(1)}))
	assert.Equal(t, 1, calls)
}

func TestClockTickerIgnoresForeignTicks(t *testing.T) {
	c := newClockTicker(time.Second)
	other := newClockTicker(time.Second)
	calls := 0
	c.subscribe(func(time.Time) { calls++ })
	c.start()
	other.start()

	assert.Nil(t, c.update(clockTickMsg{id: other.id, tag: c.tag, at: at(1)}))
	assert.Zero(t, calls)
}
