// payload parsing: raw server JSON into snapshot types.
//
// parsing is tolerant about optional fields and strict about the ones the
// engine depends on. a snapshot missing a required field is rejected with
// errInvalidSnapshot and the caller treats it as a missed poll.

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

var errInvalidSnapshot = errors.New("invalid snapshot")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidSnapshot, fmt.Sprintf(format, args...))
}

// parseObject validates raw as a JSON object.
func parseObject(raw []byte) (gjson.Result, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}, invalidf("malformed json")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return gjson.Result{}, invalidf("payload is not an object")
	}
	return root, nil
}

// eachElement iterates a JSON array. non-arrays (including null) yield nothing;
// gjson's ForEach would hand a scalar to the iterator once.
func eachElement(r gjson.Result, fn func(gjson.Result) bool) {
	if !r.IsArray() {
		return
	}
	r.ForEach(func(_, v gjson.Result) bool {
		return fn(v)
	})
}

// parsePomodoroSnapshot parses a GET /api/pomodoro (or POST action) payload.
func parsePomodoroSnapshot(raw []byte, issuedAt, receivedAt time.Time) (phaseSnapshot, error) {
	root, err := parseObject(raw)
	if err != nil {
		return phaseSnapshot{}, err
	}

	ph := root.Get("phase")
	if ph.Type != gjson.String || !phase(ph.String()).valid() {
		return phaseSnapshot{}, invalidf("phase %q", ph.Raw)
	}
	secs := root.Get("seconds_left")
	if secs.Type != gjson.Number || secs.Int() < 0 {
		return phaseSnapshot{}, invalidf("seconds_left %q", secs.Raw)
	}
	running := root.Get("running")
	if !running.IsBool() {
		return phaseSnapshot{}, invalidf("running %q", running.Raw)
	}
	settings, err := parsePhaseSettings(root.Get("settings"))
	if err != nil {
		return phaseSnapshot{}, err
	}

	snap := phaseSnapshot{
		phase:             phase(ph.String()),
		secondsLeft:       int(secs.Int()),
		running:           running.Bool(),
		settings:          settings,
		cycleCount:        int(root.Get("current_pomodoro").Int()),
		completedToday:    int(root.Get("completed_today").Int()),
		totalWorkMinutes:  int(root.Get("total_work_minutes").Int()),
		totalBreakMinutes: int(root.Get("total_break_minutes").Int()),
		issuedAt:          issuedAt,
		receivedAt:        receivedAt,
	}
	eachElement(root.Get("history"), func(day gjson.Result) bool {
		snap.history = append(snap.history, historyDay{
			date:         day.Get("date").String(),
			pomodoros:    int(day.Get("pomodoros").Int()),
			workMinutes:  int(day.Get("work_minutes").Int()),
			breakMinutes: int(day.Get("break_minutes").Int()),
		})
		return true
	})
	return snap, nil
}

func parsePhaseSettings(s gjson.Result) (phaseSettings, error) {
	if !s.IsObject() {
		return phaseSettings{}, invalidf("settings missing")
	}
	cycles := s.Get("pomodoros_until_long_break")
	if !cycles.Exists() {
		cycles = s.Get("cycles_until_long_break")
	}
	settings := phaseSettings{
		workMinutes:          int(s.Get("work_minutes").Int()),
		shortBreakMinutes:    int(s.Get("short_break_minutes").Int()),
		longBreakMinutes:     int(s.Get("long_break_minutes").Int()),
		cyclesUntilLongBreak: int(cycles.Int()),
		autoStartBreaks:      s.Get("auto_start_breaks").Bool(),
		autoStartWork:        s.Get("auto_start_work").Bool(),
	}
	if settings.workMinutes <= 0 || settings.shortBreakMinutes <= 0 ||
		settings.longBreakMinutes <= 0 || settings.cyclesUntilLongBreak <= 0 {
		return phaseSettings{}, invalidf("settings durations must be positive: %s", s.Raw)
	}
	return settings, nil
}

// parseStatusSnapshot parses a GET /api/status payload.
func parseStatusSnapshot(raw []byte, issuedAt, receivedAt time.Time) (statusSnapshot, error) {
	root, err := parseObject(raw)
	if err != nil {
		return statusSnapshot{}, err
	}

	snap := statusSnapshot{issuedAt: issuedAt, receivedAt: receivedAt}

	// analysis is null until the server's first analysis pass
	if a := root.Get("analysis"); a.IsObject() {
		info := &analysisInfo{
			mode:        a.Get("mode").String(),
			workMinutes: int(a.Get("work_minutes").Int()),
			shouldBreak: a.Get("should_break").Bool(),
		}
		eachElement(a.Get("recommendations"), func(r gjson.Result) bool {
			info.recommendations = append(info.recommendations, r.String())
			return true
		})
		snap.analysis = info
	}

	act := root.Get("activity")
	snap.activity = activityInfo{
		currentApp:    act.Get("current_app").String(),
		activityLevel: act.Get("activity_level").String(),
		idle:          act.Get("is_idle").Bool(),
		idleSeconds:   int(act.Get("idle_seconds").Int()),
	}

	env := root.Get("environment")
	snap.environment = environmentInfo{
		sound:                 env.Get("sound").String(),
		nightMode:             env.Get("night_mode").Bool(),
		focusMode:             env.Get("focus_mode").Bool(),
		notificationsFiltered: env.Get("notifications_filtered").Bool(),
	}

	pending := root.Get("pending_reminders")
	if pending.Exists() && pending.Type != gjson.Null && !pending.IsArray() {
		return statusSnapshot{}, invalidf("pending_reminders is not a list")
	}
	var rerr error
	eachElement(pending, func(r gjson.Result) bool {
		id := r.Get("id")
		if id.Type != gjson.String || id.String() == "" {
			rerr = invalidf("pending reminder without id: %s", r.Raw)
			return false
		}
		snap.pendingReminders = append(snap.pendingReminders, reminder{
			id:              id.String(),
			name:            r.Get("name").String(),
			message:         r.Get("message").String(),
			icon:            r.Get("icon").String(),
			intervalMinutes: int(r.Get("interval_minutes").Int()),
			kind:            r.Get("type").String(),
		})
		return true
	})
	if rerr != nil {
		return statusSnapshot{}, rerr
	}
	return snap, nil
}

// parseReminderSettings parses a GET /api/reminders payload.
func parseReminderSettings(raw []byte) (reminderSettings, error) {
	root, err := parseObject(raw)
	if err != nil {
		return reminderSettings{}, err
	}
	settings := reminderSettings{
		enabled:       root.Get("enabled").Bool(),
		pauseWhenIdle: root.Get("pause_when_idle").Bool(),
	}
	eachElement(root.Get("reminders"), func(r gjson.Result) bool {
		next := -1
		if n := r.Get("next_in_seconds"); n.Type == gjson.Number {
			next = int(n.Int())
		}
		settings.reminders = append(settings.reminders, reminderConfig{
			id:              r.Get("id").String(),
			name:            r.Get("name").String(),
			enabled:         r.Get("enabled").Bool(),
			intervalMinutes: int(r.Get("interval_minutes").Int()),
			nextInSeconds:   next,
			triggerCount:    int(r.Get("trigger_count").Int()),
			snoozed:         r.Get("snoozed").Bool(),
		})
		return true
	})
	return settings, nil
}

// parseUsageStats parses a GET /api/stats payload.
func parseUsageStats(raw []byte) (usageStats, error) {
	root, err := parseObject(raw)
	if err != nil {
		return usageStats{}, err
	}
	stats := usageStats{
		workSeconds:          int(root.Get("work_seconds").Int()),
		entertainmentSeconds: int(root.Get("entertainment_seconds").Int()),
	}
	eachElement(root.Get("apps"), func(a gjson.Result) bool {
		stats.apps = append(stats.apps, appUsage{
			app:       a.Get("app").String(),
			seconds:   int(a.Get("seconds").Int()),
			formatted: a.Get("formatted").String(),
		})
		return true
	})
	return stats, nil
}

// parseBreakMinutes extracts breaks.break_duration from GET /api/config.
// returns 0 when the server doesn't say.
func parseBreakMinutes(raw []byte) int {
	if !gjson.ValidBytes(raw) {
		return 0
	}
	minutes := gjson.GetBytes(raw, "breaks.break_duration").Int()
	if minutes <= 0 {
		return 0
	}
	return int(minutes)
}

// parseProcrastinationCooldown reads cooldown_minutes from a GET
// /api/procrastination payload. the warning recurs no sooner than this.
// 0 when absent.
func parseProcrastinationCooldown(raw []byte) int {
	if !gjson.ValidBytes(raw) {
		return 0
	}
	minutes := gjson.GetBytes(raw, "cooldown_minutes").Int()
	if minutes <= 0 {
		return 0
	}
	return int(minutes)
}
