// rendering: the View() method and every panel.
//
// plain ANSI colors through lipgloss. color follows the phase (red = work,
// green = short break, cyan = long break, white = idle); anything stale or
// secondary is dim.

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// -- styles --

var (
	// structural
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	panelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	selectStyle = lipgloss.NewStyle().Background(lipgloss.Color("6")).Foreground(lipgloss.Color("0"))

	// phase colors
	workStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	shortBreakStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	longBreakStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	idleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	// signals
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	transStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	breakTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true).Padding(0, 2)
)

func phaseStyleFor(p phase) lipgloss.Style {
	switch p {
	case phaseWork:
		return workStyle
	case phaseShortBreak:
		return shortBreakStyle
	case phaseLongBreak:
		return longBreakStyle
	default:
		return idleStyle
	}
}

func connStyleFor(c connState) lipgloss.Style {
	switch c {
	case connConnected:
		return activeStyle
	case connDisconnected:
		return errorStyle
	default:
		return transStyle
	}
}

func (m model) View() string {
	if m.headless {
		return ""
	}
	if m.vs.breakSession != nil {
		return m.renderBreakView()
	}
	return m.renderMainView()
}

func (m model) rule() string {
	return dimStyle.Render(strings.Repeat("─", max(0, m.width)))
}

func (m model) clip(s string) string {
	if m.width > 0 {
		return truncOrPad(s, m.width)
	}
	return s
}

// -- main view --

func (m model) renderMainView() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.rule())
	b.WriteString("\n\n")
	b.WriteString(m.renderCountdown())
	b.WriteString("\n")
	b.WriteString(m.renderStatusPanel())
	b.WriteString(m.renderRemindersPanel())
	if m.showStats {
		b.WriteString(m.renderStatsPanel())
	}
	b.WriteString("\n")
	b.WriteString(m.renderMessageLine())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// -- header --

func (m model) renderHeader() string {
	now := m.now()
	crumb := " flowtop > " + m.vs.countdown.phase.label()

	conn := connStyleFor(m.vs.conn).Render(m.vs.conn.String())
	synced := dimStyle.Render("synced " + syncedAgo(m.vs.lastSynced, now))
	clock := headerStyle.Render(now.Format("15:04:05"))
	right := conn + "  " + synced + "  " + clock + " "

	left := headerStyle.Render(crumb)
	if m.width > 0 && lipgloss.Width(left)+lipgloss.Width(right) >= m.width {
		right = conn + "  " + clock + " "
	}
	pad := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	line := left + strings.Repeat(" ", pad) + right
	if m.width > 0 && lipgloss.Width(line) > m.width {
		return ansi.Truncate(line, m.width, "")
	}
	return line
}

// -- countdown --

func (m model) renderCountdown() string {
	cd := m.vs.countdown
	style := phaseStyleFor(cd.phase)
	if m.vs.stale {
		style = dimStyle
	}

	state := "paused"
	if cd.running {
		state = "running"
	}
	if m.vs.expired {
		state = "waiting for server"
	}

	line := "  " + style.Render(strings.ToUpper(cd.phase.label())) +
		"  " + style.Render(formatCountdown(cd.secondsLeft)) +
		"  " + dimStyle.Render(state)
	if m.vs.stale {
		line += "  " + transStyle.Render("stale")
	}

	var b strings.Builder
	b.WriteString(line)
	b.WriteString("\n")

	if total := m.phaseTotalSeconds(); total > 0 {
		done := float64(total-cd.secondsLeft) / float64(total)
		b.WriteString("  ")
		b.WriteString(m.progress.ViewAs(min(max(done, 0), 1)))
		b.WriteString("\n")
	}

	if m.vs.hasSnapshot {
		s := m.vs.snapshot
		cycle := fmt.Sprintf("  pomodoro %d/%d  completed today %d  work %s  breaks %s",
			s.cycleCount, s.settings.cyclesUntilLongBreak,
			s.completedToday,
			formatMinutes(s.totalWorkMinutes),
			formatMinutes(s.totalBreakMinutes),
		)
		b.WriteString(dimStyle.Render(m.clip(cycle)))
		b.WriteString("\n")
	}
	return b.String()
}

// phaseTotalSeconds is the configured length of the current phase, 0 when unknown.
func (m model) phaseTotalSeconds() int {
	if !m.vs.hasSnapshot {
		return 0
	}
	s := m.vs.snapshot.settings
	switch m.vs.countdown.phase {
	case phaseWork:
		return s.workMinutes * 60
	case phaseShortBreak:
		return s.shortBreakMinutes * 60
	case phaseLongBreak:
		return s.longBreakMinutes * 60
	}
	return 0
}

// -- status --

func (m model) renderStatusPanel() string {
	if !m.vs.hasStatus {
		return ""
	}
	st := m.vs.status

	var b strings.Builder
	b.WriteString(m.rule())
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(" STATUS"))
	b.WriteString("\n")

	if a := st.analysis; a != nil {
		mode := fmt.Sprintf("  mode %s  working %s", a.mode, formatMinutes(a.workMinutes))
		hint := ""
		if a.shouldBreak {
			hint = "  time for a break"
		}
		// the hint keeps its cells; the mode text gives way
		switch room := m.width - lipgloss.Width(hint); {
		case m.width == 0:
			b.WriteString(mode)
		case room > 0:
			b.WriteString(truncOrPad(mode, room))
		default:
			hint = truncOrPad(hint, m.width)
		}
		if hint != "" {
			b.WriteString(transStyle.Render(hint))
		}
		b.WriteString("\n")
		for _, rec := range a.recommendations {
			b.WriteString(dimStyle.Render(m.clip("  - " + rec)))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(dimStyle.Render("  (no analysis yet)"))
		b.WriteString("\n")
	}

	act := st.activity
	activity := fmt.Sprintf("  app %s  activity %s", orDash(act.currentApp), orDash(act.activityLevel))
	if act.idle {
		activity += fmt.Sprintf("  idle %s", formatDuration(act.idleSeconds))
	}
	b.WriteString(dimStyle.Render(m.clip(activity)))
	b.WriteString("\n")

	var flags []string
	env := st.environment
	if env.sound != "" && env.sound != "none" {
		flags = append(flags, "sound "+env.sound)
	}
	if env.focusMode {
		flags = append(flags, "focus")
	}
	if env.nightMode {
		flags = append(flags, "night")
	}
	if env.notificationsFiltered {
		flags = append(flags, "notifications filtered")
	}
	if len(flags) > 0 {
		b.WriteString(dimStyle.Render(m.clip("  " + strings.Join(flags, "  "))))
		b.WriteString("\n")
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// -- reminders --

func (m model) renderRemindersPanel() string {
	var b strings.Builder
	b.WriteString(m.rule())
	b.WriteString("\n")

	title := " REMINDERS"
	if m.vs.hasReminderSettings {
		if !m.vs.reminderSettings.enabled {
			title += " (off)"
		} else if m.vs.reminderSettings.pauseWhenIdle {
			title += " (paused when idle)"
		}
	}
	b.WriteString(panelStyle.Render(title))
	b.WriteString("\n")

	now := m.now()
	if len(m.vs.active) == 0 {
		b.WriteString(dimStyle.Render("  (nothing pending)"))
		b.WriteString("\n")
	}
	for i, r := range m.vs.active {
		name := r.name
		if r.icon != "" {
			name = r.icon + " " + name
		}
		text := "  " + truncOrPad(name, 22) + "  " + tickerSlice(r.message, max(10, m.width-28), now)
		switch {
		case i == m.cursor && m.width > 0:
			b.WriteString(selectStyle.Width(m.width).Render(text))
		case i == m.cursor:
			b.WriteString(selectStyle.Render(text))
		case r.kind == procrastinationID:
			b.WriteString(errorStyle.Render(text))
		default:
			b.WriteString(transStyle.Render(text))
		}
		b.WriteString("\n")
	}

	ids := make([]string, 0, len(m.vs.snoozed))
	for id := range m.vs.snoozed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		until := m.vs.snoozed[id]
		if !until.After(now) {
			continue
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s snoozed until %s", id, until.Format("15:04"))))
		b.WriteString("\n")
	}
	return b.String()
}

// -- stats --

func (m model) renderStatsPanel() string {
	var b strings.Builder
	b.WriteString(m.rule())
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(" TODAY"))
	b.WriteString("\n")

	j := m.vs.journal
	line := fmt.Sprintf("  reminders %d shown %d done %d snoozed  breaks %d taken %d cut short  phases %d",
		j.delivered, j.dismissed, j.snoozed, j.breaksCompleted, j.breaksStopped, j.phaseChanges)
	b.WriteString(m.clip(line))
	b.WriteString("\n")

	if !m.vs.hasUsage {
		b.WriteString(dimStyle.Render("  (loading usage)"))
		b.WriteString("\n")
		return b.String()
	}
	u := m.vs.usage
	b.WriteString(dimStyle.Render(fmt.Sprintf("  work %s  entertainment %s",
		formatDuration(u.workSeconds), formatDuration(u.entertainmentSeconds))))
	b.WriteString("\n")
	limit := min(5, len(u.apps))
	for _, a := range u.apps[:limit] {
		spent := a.formatted
		if spent == "" {
			spent = formatDuration(a.seconds)
		}
		b.WriteString(dimStyle.Render("  " + truncOrPad(a.app, 24) + "  " + spent))
		b.WriteString("\n")
	}
	return b.String()
}

// -- footer --

func (m model) renderMessageLine() string {
	now := m.now()
	if m.vs.flashing(now) {
		return activeStyle.Bold(true).Render(m.clip(" " + m.vs.flash))
	}
	if m.vs.conn == connDisconnected && m.vs.lastError != "" {
		return errorStyle.Render(m.clip(" " + m.vs.lastError))
	}
	if m.vs.rejected > 0 {
		return dimStyle.Render(fmt.Sprintf(" %d invalid snapshots dropped", m.vs.rejected))
	}
	return ""
}

// -- break overlay --

func (m model) renderBreakView() string {
	bs := m.vs.breakSession
	done := 0.0
	if bs.totalSeconds > 0 {
		done = float64(bs.totalSeconds-bs.secondsLeft) / float64(bs.totalSeconds)
	}

	body := lipgloss.JoinVertical(lipgloss.Center,
		breakTitleStyle.Render("BREAK"),
		"",
		shortBreakStyle.Render(formatCountdown(bs.secondsLeft)),
		"",
		m.progress.ViewAs(min(max(done, 0), 1)),
		"",
		dimStyle.Render("step away from the screen"),
		"",
		m.help.View(breakKeys{EndBreak: m.keys.EndBreak, Quit: m.keys.Quit}),
	)
	if m.width == 0 || m.height == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}
