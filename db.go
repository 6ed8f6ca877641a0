// sqlite event journal.
//
// append-only log of what the client showed and what the user did with it:
// reminder deliveries, dismissals, snoozes, phase changes and breaks. it
// backs `flowtop history`, the stats panel, and restoring snoozes after a
// restart. writes come from tea.Cmd goroutines, so the pool is capped at one
// connection and sqlite serializes them.

package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// rows older than this are pruned when the journal is opened.
const journalRetention = 90 * 24 * time.Hour

const journalSchema = `
CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	at_ms       INTEGER NOT NULL,
	kind        TEXT    NOT NULL,
	reminder_id TEXT    NOT NULL DEFAULT '',
	phase       TEXT    NOT NULL DEFAULT '',
	detail      TEXT    NOT NULL DEFAULT '',
	until_ms    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS events_at ON events(at_ms);
CREATE INDEX IF NOT EXISTS events_reminder_at ON events(reminder_id, at_ms, id);
`

// journalEntry is one row of the events table.
type journalEntry struct {
	id         int64
	at         time.Time
	kind       string // eventKind name
	reminderID string
	phase      string
	detail     string    // reminder name, break end reason, previous phase
	until      time.Time // snooze end; zero otherwise
}

// journalStats are today's counts for the stats panel.
type journalStats struct {
	delivered       int
	dismissed       int
	snoozed         int
	breaksCompleted int
	breaksStopped   int
	phaseChanges    int
}

// savedDelivery is a reminder decision worth restoring on startup.
// a zero until means dismissed.
type savedDelivery struct {
	reminder reminder
	until    time.Time
}

type journal struct {
	db *sql.DB
}

// openJournal opens (creating if needed) the journal at path.
func openJournal(path string) (*journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		journalSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init journal: %w", err)
		}
	}
	return &journal{db: db}, nil
}

func (j *journal) close() error {
	return j.db.Close()
}

func (j *journal) record(e journalEntry) error {
	var until int64
	if !e.until.IsZero() {
		until = e.until.UnixMilli()
	}
	_, err := j.db.Exec(`
		INSERT INTO events (at_ms, kind, reminder_id, phase, detail, until_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.at.UnixMilli(), e.kind, e.reminderID, e.phase, e.detail, until)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.kind, err)
	}
	return nil
}

// recent returns the newest entries first.
func (j *journal) recent(limit int) ([]journalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(`
		SELECT id, at_ms, kind, reminder_id, phase, detail, until_ms
		FROM events
		ORDER BY at_ms DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []journalEntry
	for rows.Next() {
		var (
			e           journalEntry
			atMS, untMS int64
		)
		if err := rows.Scan(&e.id, &atMS, &e.kind, &e.reminderID, &e.phase, &e.detail, &untMS); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.at = time.UnixMilli(atMS)
		if untMS > 0 {
			e.until = time.UnixMilli(untMS)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// todayStats counts entries since local midnight of now.
func (j *journal) todayStats(now time.Time) (journalStats, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	rows, err := j.db.Query(`
		SELECT kind, detail, count(*)
		FROM events
		WHERE at_ms >= ?
		GROUP BY kind, detail
	`, midnight.UnixMilli())
	if err != nil {
		return journalStats{}, fmt.Errorf("query journal stats: %w", err)
	}
	defer rows.Close()

	var stats journalStats
	for rows.Next() {
		var (
			kind, detail string
			n            int
		)
		if err := rows.Scan(&kind, &detail, &n); err != nil {
			return journalStats{}, fmt.Errorf("scan journal stats: %w", err)
		}
		switch kind {
		case eventReminderDelivered.String():
			stats.delivered += n
		case eventReminderDismissed.String():
			stats.dismissed += n
		case eventReminderSnoozed.String():
			stats.snoozed += n
		case eventPhaseReset.String():
			stats.phaseChanges += n
		case eventBreakEnded.String():
			if detail == string(breakCompleted) {
				stats.breaksCompleted += n
			} else {
				stats.breaksStopped += n
			}
		}
	}
	return stats, rows.Err()
}

// restorable returns reminders whose latest journaled decision still holds:
// snoozes that end after now, and dismissals made at or after dismissedSince.
// latest is by event time; writes may land out of order.
func (j *journal) restorable(now, dismissedSince time.Time) ([]savedDelivery, error) {
	rows, err := j.db.Query(`
		SELECT reminder_id, kind, detail, at_ms, until_ms
		FROM (
			SELECT reminder_id, kind, detail, at_ms, until_ms,
				ROW_NUMBER() OVER (PARTITION BY reminder_id ORDER BY at_ms DESC, id DESC) AS rn
			FROM events
			WHERE reminder_id != ''
			  AND kind IN (?, ?, ?, ?)
		)
		WHERE rn = 1
		ORDER BY reminder_id
	`,
		eventReminderDelivered.String(),
		eventReminderDismissed.String(),
		eventReminderSnoozed.String(),
		eventReminderExpired.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query journal snoozes: %w", err)
	}
	defer rows.Close()

	var saved []savedDelivery
	for rows.Next() {
		var (
			id, kind, name string
			atMS, untilMS  int64
		)
		if err := rows.Scan(&id, &kind, &name, &atMS, &untilMS); err != nil {
			return nil, fmt.Errorf("scan journal snooze: %w", err)
		}
		r := reminder{id: id, name: name}
		switch kind {
		case eventReminderSnoozed.String():
			until := time.UnixMilli(untilMS)
			if untilMS > 0 && until.After(now) {
				saved = append(saved, savedDelivery{reminder: r, until: until})
			}
		case eventReminderDismissed.String():
			if !time.UnixMilli(atMS).Before(dismissedSince) {
				saved = append(saved, savedDelivery{reminder: r})
			}
		}
	}
	return saved, rows.Err()
}

// prune deletes entries older than before and returns how many went.
func (j *journal) prune(before time.Time) (int64, error) {
	res, err := j.db.Exec(`DELETE FROM events WHERE at_ms < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}
