package main

import (
	"time"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// at returns t0 plus seconds.
func at(seconds int) time.Time {
	return t0.Add(time.Duration(seconds) * time.Second)
}

// recorder collects emitted engine events.
type recorder struct {
	events []engineEvent
}

func (r *recorder) emit(ev engineEvent) {
	r.events = append(r.events, ev)
}

func (r *recorder) handleEvent(ev engineEvent) {
	r.emit(ev)
}

func (r *recorder) kinds() []eventKind {
	kinds := make([]eventKind, 0, len(r.events))
	for _, ev := range r.events {
		kinds = append(kinds, ev.kind)
	}
	return kinds
}

func (r *recorder) count(kind eventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last() engineEvent {
	if len(r.events) == 0 {
		return engineEvent{}
	}
	return r.events[len(r.events)-1]
}

func (r *recorder) reset() {
	r.events = nil
}

var testSettings = phaseSettings{
	workMinutes:          25,
	shortBreakMinutes:    5,
	longBreakMinutes:     15,
	cyclesUntilLongBreak: 4,
}

func snapAt(p phase, secondsLeft int, running bool, issued time.Time) phaseSnapshot {
	return phaseSnapshot{
		phase:       p,
		secondsLeft: secondsLeft,
		running:     running,
		settings:    testSettings,
		issuedAt:    issued,
		receivedAt:  issued,
	}
}

const pomodoroJSONFixture = `{
	"phase": "work",
	"seconds_left": 1500,
	"running": true,
	"settings": {
		"work_minutes": 25,
		"short_break_minutes": 5,
		"long_break_minutes": 15,
		"pomodoros_until_long_break": 4,
		"auto_start_breaks": true,
		"auto_start_work": false
	},
	"current_pomodoro": 2,
	"completed_today": 3,
	"total_work_minutes": 75,
	"total_break_minutes": 10,
	"history": [
		{"date": "2026-03-01", "pomodoros": 6, "work_minutes": 150, "break_minutes": 30}
	]
}`

const statusJSONFixture = `{
	"analysis": {
		"mode": "deep_work",
		"work_minutes": 42,
		"should_break": false,
		"recommendations": ["stay hydrated"]
	},
	"activity": {"current_app": "Code", "activity_level": "high", "is_idle": false},
	"environment": {"sound": "rain", "night_mode": false, "focus_mode": true, "notifications_filtered": true},
	"pending_reminders": [
		{"id": "hydrate", "name": "Hydrate", "message": "drink some water", "icon": "💧", "interval_minutes": 30}
	]
}`

const remindersJSONFixture = `{
	"enabled": true,
	"pause_when_idle": false,
	"reminders": [
		{"id": "hydrate", "name": "Hydrate", "enabled": true, "interval_minutes": 45, "next_in_seconds": null, "trigger_count": 0, "snoozed": false},
		{"id": "posture", "name": "Posture", "enabled": true, "interval_minutes": 30, "next_in_seconds": 600, "trigger_count": 2, "snoozed": false}
	]
}`
