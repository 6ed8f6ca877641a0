// one-shot subcommands: JSON output for scripting.
//
// each talks to the server once (or reads the journal) and prints an
// indented JSON document on stdout. errors go to stderr with exit code 1.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// output of the one-shot commands; swapped in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func printJSON(v any) int {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fail(err)
	}
	fmt.Fprintln(stdout, string(out))
	return 0
}

func fail(err error) int {
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}

// commandSetup parses a subcommand's flags and returns its config plus a
// request context bounded by the configured timeout.
func commandSetup(fs *flag.FlagSet, args []string) (config, context.Context, context.CancelFunc, error) {
	cfg, err := setupConfig(fs, args)
	if err != nil {
		return config{}, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.requestTimeout)
	return cfg, ctx, cancel, nil
}

// statusCommand prints the normalized status and pomodoro snapshots.
func statusCommand(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	registerFlags(fs)
	cfg, ctx, cancel, err := commandSetup(fs, args)
	if err != nil {
		return fail(err)
	}
	defer cancel()
	client := newAPIClient(cfg.serverURL)

	issued := time.Now()
	raw, err := client.fetchStatus(ctx)
	if err != nil {
		return fail(err)
	}
	st, err := parseStatusSnapshot(raw, issued, time.Now())
	if err != nil {
		return fail(err)
	}

	issued = time.Now()
	raw, err = client.fetchPomodoro(ctx)
	if err != nil {
		return fail(err)
	}
	pomo, err := parsePomodoroSnapshot(raw, issued, time.Now())
	if err != nil {
		return fail(err)
	}

	return printJSON(map[string]any{
		"status":   statusJSON(st),
		"pomodoro": pomodoroJSON(pomo),
	})
}

// pomodoroCommand sends start|pause|stop|skip and prints the resulting snapshot.
// with no action it prints the current snapshot.
func pomodoroCommand(args []string) int {
	fs := flag.NewFlagSet("pomodoro", flag.ExitOnError)
	registerFlags(fs)
	cfg, ctx, cancel, err := commandSetup(fs, args)
	if err != nil {
		return fail(err)
	}
	defer cancel()
	client := newAPIClient(cfg.serverURL)

	issued := time.Now()
	var raw []byte
	if action := fs.Arg(0); action != "" {
		raw, err = client.pomodoroAction(ctx, action)
	} else {
		raw, err = client.fetchPomodoro(ctx)
	}
	if err != nil {
		return fail(err)
	}
	snap, err := parsePomodoroSnapshot(raw, issued, time.Now())
	if err != nil {
		return fail(err)
	}
	return printJSON(pomodoroJSON(snap))
}

// optionalBool is a flag that records whether it was set.
type optionalBool struct {
	set   bool
	value bool
}

func (b *optionalBool) String() string {
	if !b.set {
		return ""
	}
	return strconv.FormatBool(b.value)
}

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.set, b.value = true, v
	return nil
}

func (b *optionalBool) IsBoolFlag() bool { return true }

func (b *optionalBool) ptr() *bool {
	if !b.set {
		return nil
	}
	v := b.value
	return &v
}

// remindersCommand prints the reminder config, or updates it when any
// update flag is given.
func remindersCommand(args []string) int {
	fs := flag.NewFlagSet("reminders", flag.ExitOnError)
	registerFlags(fs)
	id := fs.String("id", "", "reminder id to update")
	interval := fs.Int("interval", 0, "interval minutes for -id")
	var enabled, reminderEnabled, pauseWhenIdle optionalBool
	fs.Var(&enabled, "enabled", "turn all reminders on or off")
	fs.Var(&reminderEnabled, "reminder-enabled", "turn the -id reminder on or off")
	fs.Var(&pauseWhenIdle, "pause-when-idle", "pause reminders while idle")
	cfg, ctx, cancel, err := commandSetup(fs, args)
	if err != nil {
		return fail(err)
	}
	defer cancel()
	client := newAPIClient(cfg.serverURL)

	update := reminderUpdate{
		Enabled:       enabled.ptr(),
		PauseWhenIdle: pauseWhenIdle.ptr(),
	}
	if *id != "" {
		update.ReminderID = id
		update.ReminderEnabled = reminderEnabled.ptr()
		if *interval > 0 {
			update.IntervalMinutes = interval
		}
	} else if reminderEnabled.set || *interval > 0 {
		return fail(fmt.Errorf("-reminder-enabled and -interval need -id"))
	}

	if !update.empty() {
		if err := client.updateReminders(ctx, update); err != nil {
			return fail(err)
		}
	}

	raw, err := client.fetchReminders(ctx)
	if err != nil {
		return fail(err)
	}
	settings, err := parseReminderSettings(raw)
	if err != nil {
		return fail(err)
	}
	return printJSON(reminderSettingsJSON(settings))
}

func snoozeCommand(args []string) int {
	fs := flag.NewFlagSet("snooze", flag.ExitOnError)
	registerFlags(fs)
	id := fs.String("id", "", "reminder id")
	minutes := fs.Int("minutes", 0, "snooze length (default snooze_minutes)")
	cfg, ctx, cancel, err := commandSetup(fs, args)
	if err != nil {
		return fail(err)
	}
	defer cancel()
	if *id == "" {
		return fail(fmt.Errorf("-id is required"))
	}
	if *minutes <= 0 {
		*minutes = cfg.snoozeMinutes
	}

	if err := newAPIClient(cfg.serverURL).snoozeReminder(ctx, *id, *minutes); err != nil {
		return fail(err)
	}
	now := time.Now()
	until := now.Add(time.Duration(*minutes) * time.Minute)
	recordOnce(cfg, journalEntry{
		at:         now,
		kind:       eventReminderSnoozed.String(),
		reminderID: *id,
		until:      until,
	})
	return printJSON(map[string]any{"id": *id, "snoozed_until": until.Format(time.RFC3339)})
}

func dismissCommand(args []string) int {
	fs := flag.NewFlagSet("dismiss", flag.ExitOnError)
	registerFlags(fs)
	id := fs.String("id", "", "reminder id")
	cfg, ctx, cancel, err := commandSetup(fs, args)
	if err != nil {
		return fail(err)
	}
	defer cancel()
	if *id == "" {
		return fail(fmt.Errorf("-id is required"))
	}

	if err := newAPIClient(cfg.serverURL).dismissReminder(ctx, *id); err != nil {
		return fail(err)
	}
	recordOnce(cfg, journalEntry{
		at:         time.Now(),
		kind:       eventReminderDismissed.String(),
		reminderID: *id,
	})
	return printJSON(map[string]any{"id": *id, "dismissed": true})
}

// recordOnce journals a CLI action so a TUI started later restores it.
func recordOnce(cfg config, entry journalEntry) {
	j := openJournalFor(cfg)
	if j == nil {
		return
	}
	defer j.close()
	if err := j.record(entry); err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
	}
}

func historyCommand(args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	registerFlags(fs)
	limit := fs.Int("limit", 50, "number of entries")
	if _, err := setupConfig(fs, args); err != nil {
		return fail(err)
	}

	j, err := openJournal(journalPath())
	if err != nil {
		return fail(err)
	}
	defer j.close()

	entries, err := j.recent(*limit)
	if err != nil {
		return fail(err)
	}
	now := time.Now()
	rows := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		row := map[string]any{
			"id":   e.id,
			"at":   e.at.Format(time.RFC3339),
			"ago":  syncedAgo(e.at, now),
			"kind": e.kind,
		}
		if e.reminderID != "" {
			row["reminder_id"] = e.reminderID
		}
		if e.phase != "" {
			row["phase"] = e.phase
		}
		if e.detail != "" {
			row["detail"] = e.detail
		}
		if !e.until.IsZero() {
			row["until"] = e.until.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}
	return printJSON(rows)
}

// -- json shapes --

func pomodoroJSON(s phaseSnapshot) map[string]any {
	history := make([]map[string]any, 0, len(s.history))
	for _, d := range s.history {
		history = append(history, map[string]any{
			"date":          d.date,
			"pomodoros":     d.pomodoros,
			"work_minutes":  d.workMinutes,
			"break_minutes": d.breakMinutes,
		})
	}
	return map[string]any{
		"phase":               string(s.phase),
		"seconds_left":        s.secondsLeft,
		"remaining":           formatCountdown(s.secondsLeft),
		"running":             s.running,
		"current_pomodoro":    s.cycleCount,
		"completed_today":     s.completedToday,
		"total_work_minutes":  s.totalWorkMinutes,
		"total_break_minutes": s.totalBreakMinutes,
		"settings": map[string]any{
			"work_minutes":            s.settings.workMinutes,
			"short_break_minutes":     s.settings.shortBreakMinutes,
			"long_break_minutes":      s.settings.longBreakMinutes,
			"cycles_until_long_break": s.settings.cyclesUntilLongBreak,
			"auto_start_breaks":       s.settings.autoStartBreaks,
			"auto_start_work":         s.settings.autoStartWork,
		},
		"history": history,
	}
}

func statusJSON(s statusSnapshot) map[string]any {
	pending := make([]map[string]any, 0, len(s.pendingReminders))
	for _, r := range s.pendingReminders {
		pending = append(pending, map[string]any{
			"id":               r.id,
			"name":             r.name,
			"message":          r.message,
			"icon":             r.icon,
			"interval_minutes": r.intervalMinutes,
			"type":             r.kind,
		})
	}
	out := map[string]any{
		"activity": map[string]any{
			"current_app":    s.activity.currentApp,
			"activity_level": s.activity.activityLevel,
			"is_idle":        s.activity.idle,
			"idle_seconds":   s.activity.idleSeconds,
		},
		"environment": map[string]any{
			"sound":                  s.environment.sound,
			"night_mode":             s.environment.nightMode,
			"focus_mode":             s.environment.focusMode,
			"notifications_filtered": s.environment.notificationsFiltered,
		},
		"pending_reminders": pending,
		"analysis":          nil,
	}
	if a := s.analysis; a != nil {
		recs := a.recommendations
		if recs == nil {
			recs = []string{}
		}
		out["analysis"] = map[string]any{
			"mode":            a.mode,
			"work_minutes":    a.workMinutes,
			"should_break":    a.shouldBreak,
			"recommendations": recs,
		}
	}
	return out
}

func reminderSettingsJSON(s reminderSettings) map[string]any {
	reminders := make([]map[string]any, 0, len(s.reminders))
	for _, r := range s.reminders {
		entry := map[string]any{
			"id":               r.id,
			"name":             r.name,
			"enabled":          r.enabled,
			"interval_minutes": r.intervalMinutes,
			"trigger_count":    r.triggerCount,
			"snoozed":          r.snoozed,
			"next_in_seconds":  nil,
		}
		if r.nextInSeconds >= 0 {
			entry["next_in_seconds"] = r.nextInSeconds
		}
		reminders = append(reminders, entry)
	}
	return map[string]any{
		"enabled":         s.enabled,
		"pause_when_idle": s.pauseWhenIdle,
		"reminders":       reminders,
	}
}
