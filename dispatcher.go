// reminder dispatcher: decides which polled reminders actually get shown.
//
// the server may report the same pending reminder on many consecutive
// polls (or re-send one the user already handled). every id gets a
// delivery record, and a record only lets a reminder through once per
// occurrence: once when first seen, and once more after a snooze expires.

package main

import (
	"errors"
	"sort"
	"time"
)

const (
	defaultSnoozeMinutes = 10
	defaultPurgeAfter    = 30 * time.Minute

	// a reminder back after nearly a full interval away is a new occurrence.
	// the slack covers the gap between the server's trigger and our poll.
	recurrenceSlack = time.Minute
)

var (
	errReminderNotFound  = errors.New("reminder not found")
	errReminderDismissed = errors.New("reminder already dismissed")
)

type dispatcher struct {
	records       map[string]*deliveryRecord
	intervals     map[string]time.Duration // per-id recurrence from the server's settings
	snoozeMinutes int
	purgeAfter    time.Duration
	emit          func(engineEvent)
}

func newDispatcher(snoozeMinutes int, purgeAfter time.Duration, emit func(engineEvent)) *dispatcher {
	d := &dispatcher{
		records:   make(map[string]*deliveryRecord),
		intervals: make(map[string]time.Duration),
		emit:      emit,
	}
	d.configure(snoozeMinutes, purgeAfter)
	return d
}

// configure updates the snooze default and fallback purge window.
func (d *dispatcher) configure(snoozeMinutes int, purgeAfter time.Duration) {
	if snoozeMinutes <= 0 {
		snoozeMinutes = defaultSnoozeMinutes
	}
	if purgeAfter <= 0 {
		purgeAfter = defaultPurgeAfter
	}
	d.snoozeMinutes = snoozeMinutes
	d.purgeAfter = purgeAfter
}

// setIntervals replaces the per-id recurrence intervals, in minutes.
// status payloads carry no interval, so this is what sizes purge windows.
func (d *dispatcher) setIntervals(minutes map[string]int) {
	intervals := make(map[string]time.Duration, len(minutes))
	for id, m := range minutes {
		if m > 0 {
			intervals[id] = time.Duration(m) * time.Minute
		}
	}
	d.intervals = intervals
}

// observe processes the pending list of one status snapshot.
func (d *dispatcher) observe(pending []reminder, now time.Time) {
	seen := make(map[string]bool, len(pending))
	for _, r := range pending {
		if seen[r.id] {
			continue
		}
		seen[r.id] = true

		rec, ok := d.records[r.id]
		if ok && d.recurred(rec, now) {
			delete(d.records, r.id)
			d.emit(engineEvent{kind: eventReminderExpired, at: now, reminder: rec.reminder})
			ok = false
		}
		if !ok {
			rec = &deliveryRecord{state: deliveryPending, firstSeen: now}
			d.records[r.id] = rec
		}
		rec.lastSeen = now
		rec.reminder = r

		if !d.eligible(rec, now) {
			continue
		}
		rec.state = deliveryDelivered
		rec.snoozeUntil = time.Time{}
		rec.deliveredAt = now
		rec.deliveries++
		d.emit(engineEvent{kind: eventReminderDelivered, at: now, reminder: r})
	}

	d.purge(seen, now)
}

func (d *dispatcher) eligible(rec *deliveryRecord, now time.Time) bool {
	switch rec.state {
	case deliveryPending:
		return true
	case deliverySnoozed:
		return !now.Before(rec.snoozeUntil)
	default:
		// delivered: already on screen. dismissed: handled for this occurrence.
		return false
	}
}

// purge drops records absent from the pending list for a full interval, so
// memory stays bounded and a later occurrence with the same id is new.
func (d *dispatcher) purge(seen map[string]bool, now time.Time) {
	// sorted so expiry events come out in a stable order
	ids := make([]string, 0, len(d.records))
	for id := range d.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if seen[id] {
			continue
		}
		rec := d.records[id]
		if now.Sub(rec.lastSeen) < d.purgeWindow(rec) {
			continue
		}
		if rec.state == deliverySnoozed && now.Before(rec.snoozeUntil) {
			continue
		}
		delete(d.records, id)
		d.emit(engineEvent{kind: eventReminderExpired, at: now, reminder: rec.reminder})
	}
}

// recurred reports whether a record seen again has been away long enough
// that this sighting is the next occurrence rather than a re-send. an
// unexpired snooze still governs.
func (d *dispatcher) recurred(rec *deliveryRecord, now time.Time) bool {
	if rec.state == deliverySnoozed && now.Before(rec.snoozeUntil) {
		return false
	}
	window := d.purgeWindow(rec)
	if window > 2*recurrenceSlack {
		window -= recurrenceSlack
	}
	return now.Sub(rec.lastSeen) >= window
}

func (d *dispatcher) purgeWindow(rec *deliveryRecord) time.Duration {
	if rec.reminder.intervalMinutes > 0 {
		return time.Duration(rec.reminder.intervalMinutes) * time.Minute
	}
	if iv, ok := d.intervals[rec.reminder.id]; ok {
		return iv
	}
	return d.purgeAfter
}

// dismiss marks a reminder done for this occurrence.
func (d *dispatcher) dismiss(id string, now time.Time) error {
	rec, ok := d.records[id]
	if !ok {
		return errReminderNotFound
	}
	if rec.state == deliveryDismissed {
		return nil
	}
	rec.state = deliveryDismissed
	rec.snoozeUntil = time.Time{}
	d.emit(engineEvent{kind: eventReminderDismissed, at: now, reminder: rec.reminder})
	return nil
}

// snooze suppresses a reminder for minutes (the configured default when <= 0).
func (d *dispatcher) snooze(id string, minutes int, now time.Time) error {
	rec, ok := d.records[id]
	if !ok {
		return errReminderNotFound
	}
	if rec.state == deliveryDismissed {
		return errReminderDismissed
	}
	if minutes <= 0 {
		minutes = d.snoozeMinutes
	}
	rec.state = deliverySnoozed
	rec.snoozeUntil = now.Add(time.Duration(minutes) * time.Minute)
	d.emit(engineEvent{
		kind:        eventReminderSnoozed,
		at:          now,
		reminder:    rec.reminder,
		snoozeUntil: rec.snoozeUntil,
	})
	return nil
}

// restoreSnooze seeds a snoozed (or, with a zero until, dismissed) record
// from the journal. emits nothing.
func (d *dispatcher) restoreSnooze(r reminder, until, now time.Time) {
	rec := &deliveryRecord{
		state:     deliverySnoozed,
		firstSeen: now,
		lastSeen:  now,
		reminder:  r,
	}
	if until.IsZero() {
		rec.state = deliveryDismissed
	} else {
		rec.snoozeUntil = until
	}
	d.records[r.id] = rec
}

// record returns a copy of the delivery record for id.
func (d *dispatcher) record(id string) (deliveryRecord, bool) {
	rec, ok := d.records[id]
	if !ok {
		return deliveryRecord{}, false
	}
	return *rec, true
}

func (d *dispatcher) size() int {
	return len(d.records)
}
