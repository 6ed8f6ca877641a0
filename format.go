// formatting helpers: countdowns, durations, relative times.
// no lipgloss dependency, pure data transformations.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

// formatCountdown renders seconds as mm:ss, or h:mm:ss from an hour up.
func formatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds/60)%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// formatDuration renders a second count compactly (45s, 3m05s, 2h10m).
func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	mins := seconds / 60
	seconds = seconds % 60
	if mins < 60 {
		return fmt.Sprintf("%dm%02ds", mins, seconds)
	}
	hours := mins / 60
	mins = mins % 60
	if hours < 24 {
		return fmt.Sprintf("%dh%02dm", hours, mins)
	}
	return fmt.Sprintf("%dd%dh", hours/24, hours%24)
}

// formatMinutes renders whole minutes (25m, 1h40m).
func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", max(minutes, 0))
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}

// syncedAgo describes how long ago t was, relative to now.
func syncedAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if now.Sub(t) < time.Second {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// truncOrPad truncates or right-pads a string to exactly width terminal
// cells. wide runes (CJK, emoji) count as two and escape sequences as none.
func truncOrPad(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "")
	}
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// tickerSlice returns a scrolling window into text, subway-sign style.
// if text fits within width, returned as-is (padded). otherwise the
// visible window shifts by one character per second of now.
func tickerSlice(text string, width int, now time.Time) string {
	if width <= 0 || ansi.StringWidth(text) <= width {
		return truncOrPad(text, width)
	}
	r := []rune(text)
	cycle := append(r, []rune("   ")...)
	offset := int(now.Unix() % int64(len(cycle)))
	window := make([]rune, 0, width)
	for i := 0; i < width; i++ {
		window = append(window, cycle[(offset+i)%len(cycle)])
	}
	return truncOrPad(string(window), width)
}
