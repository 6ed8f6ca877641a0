// bubbletea model, update loop, and commands.
//
// follows the elm architecture: model holds all state, Update is a state
// transition, View renders to string. the engine components are driven
// from Update and report back through an event queue that Update drains
// before returning (adapter.go). side effects happen in tea.Cmd functions.

package main

import (
	"context"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// -- messages --

// actionResultMsg is the server's answer to a pomodoro intent.
type actionResultMsg struct {
	action     string
	body       []byte
	err        error
	issuedAt   time.Time
	receivedAt time.Time
}

// notifyResultMsg reports a fire-and-forget call (dismiss, snooze, break,
// reminder settings). only failures are shown.
type notifyResultMsg struct {
	what string
	err  error
}

type serverConfigMsg struct {
	breakMinutes int
	err          error
}

type reminderSettingsMsg struct {
	settings reminderSettings
	err      error
}

type procrastinationMsg struct {
	cooldownMinutes int
	err             error
}

type usageStatsMsg struct {
	stats usageStats
	err   error
}

type journalStatsMsg struct {
	stats journalStats
	err   error
}

type journalErrMsg struct{ err error }

type configReloadedMsg struct{ cfg config }

// -- model --

type model struct {
	cfg    config
	client *apiClient
	engine *engine
	events *eventQueue

	clock          *clockTicker
	statusPoller   *poller
	pomodoroPoller *poller

	journal *journal    // nil when disabled
	relay   *relayState // nil when the relay is off

	keys     keyMap
	help     help.Model
	progress progress.Model

	vs view

	width     int
	height    int
	cursor    int
	showStats bool
	headless  bool

	now func() time.Time
}

func newModel(cfg config, client *apiClient, j *journal, relay *relayState) model {
	events := &eventQueue{}
	e := newEngine(cfg.engineOptions(), time.Now)
	e.subscribe(events)

	clock := newClockTicker(time.Second)
	clock.subscribe(e.tickListeners()...)

	statusPoller := newPoller(pollStatus, client.fetchStatus, cfg.requestTimeout)
	statusPoller.subscribe(e)
	pomodoroPoller := newPoller(pollPomodoro, client.fetchPomodoro, cfg.requestTimeout)
	pomodoroPoller.subscribe(e)

	prog := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())

	return model{
		cfg:            cfg,
		client:         client,
		engine:         e,
		events:         events,
		clock:          clock,
		statusPoller:   statusPoller,
		pomodoroPoller: pomodoroPoller,
		journal:        j,
		relay:          relay,
		keys:           newKeyMap(),
		help:           help.New(),
		progress:       prog,
		vs:             newView(),
		now:            time.Now,
	}
}

// restoreJournal seeds the dispatcher with snoozes and dismissals from a
// previous run. dismissals older than one purge window are forgotten.
func (m model) restoreJournal() {
	if m.journal == nil {
		return
	}
	now := m.now()
	saved, err := m.journal.restorable(now, now.Add(-m.cfg.purgeAfter))
	if err != nil {
		log.Printf("restore snoozes: %v", err)
		return
	}
	m.engine.restore(saved)
	if len(saved) > 0 {
		log.Printf("restored %d reminder decisions from journal", len(saved))
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.clock.start(),
		m.statusPoller.startPolling(m.cfg.statusInterval),
		m.pomodoroPoller.startPolling(m.cfg.statusInterval),
		m.fetchServerConfigCmd(),
		m.fetchRemindersCmd(),
		m.fetchProcrastinationCmd(),
		m.journalStatsCmd(),
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-8))
	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)
	case clockTickMsg:
		cmds = append(cmds, m.clock.update(msg))
	case pollTickMsg, pollResult:
		cmds = append(cmds, m.statusPoller.update(msg), m.pomodoroPoller.update(msg))
	case actionResultMsg:
		m.handleActionResult(msg)
	case notifyResultMsg:
		if msg.err != nil {
			log.Printf("%s: %v", msg.what, msg.err)
			m.vs.setFlash(msg.what+" failed", m.now())
		}
	case serverConfigMsg:
		if msg.err == nil && msg.breakMinutes > 0 {
			m.vs.serverBreakMinutes = msg.breakMinutes
		}
	case reminderSettingsMsg:
		if msg.err != nil {
			log.Printf("fetch reminders: %v", msg.err)
		} else {
			m.vs.reminderSettings = msg.settings
			m.vs.hasReminderSettings = true
			m.syncReminderIntervals()
		}
	case procrastinationMsg:
		if msg.err != nil {
			log.Printf("fetch procrastination settings: %v", msg.err)
		} else if msg.cooldownMinutes > 0 {
			m.vs.procrastinationCooldown = msg.cooldownMinutes
			m.syncReminderIntervals()
		}
	case usageStatsMsg:
		if msg.err != nil {
			log.Printf("fetch stats: %v", msg.err)
		} else {
			m.vs.usage = msg.stats
			m.vs.hasUsage = true
		}
	case journalStatsMsg:
		if msg.err != nil {
			log.Printf("journal stats: %v", msg.err)
		} else {
			m.vs.journal = msg.stats
		}
	case journalErrMsg:
		log.Printf("journal: %v", msg.err)
	case configReloadedMsg:
		cmds = append(cmds, m.applyConfig(msg.cfg))
	}

	cmds = append(cmds, m.drainEvents()...)
	cmds = append(cmds, m.pomodoroPoller.setInterval(m.pomodoroCadence()))
	m.publish()
	return m, tea.Batch(cmds...)
}

// pomodoroCadence polls the pomodoro endpoint fast only while it is running.
func (m model) pomodoroCadence() time.Duration {
	if m.vs.countdown.running {
		return m.cfg.pomodoroInterval
	}
	return m.cfg.statusInterval
}

// -- key handlers --

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	// the break overlay locks everything else out
	if m.engine.overlay.active() {
		if key.Matches(msg, m.keys.EndBreak) {
			m.engine.stopBreak()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Start):
		return m, m.actionCmd("start")
	case key.Matches(msg, m.keys.Pause):
		return m, m.actionCmd("pause")
	case key.Matches(msg, m.keys.Stop):
		return m, m.actionCmd("stop")
	case key.Matches(msg, m.keys.Skip):
		return m, m.actionCmd("skip")
	case key.Matches(msg, m.keys.Break):
		m.engine.startBreak(m.breakSeconds())
	case key.Matches(msg, m.keys.Dismiss):
		if r, ok := m.selectedReminder(); ok {
			if err := m.engine.dismissReminder(r.id); err != nil {
				m.vs.setFlash(err.Error(), m.now())
			}
		}
	case key.Matches(msg, m.keys.Snooze):
		if r, ok := m.selectedReminder(); ok {
			if err := m.engine.snoozeReminder(r.id, m.cfg.snoozeMinutes); err != nil {
				m.vs.setFlash(err.Error(), m.now())
			}
		}
	case key.Matches(msg, m.keys.Down):
		m.cursor = min(m.cursor+1, max(0, len(m.vs.active)-1))
	case key.Matches(msg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(msg, m.keys.ToggleEnabled):
		if !m.vs.hasReminderSettings {
			return m, nil
		}
		enabled := !m.vs.reminderSettings.enabled
		return m, m.updateRemindersCmd(reminderUpdate{Enabled: &enabled})
	case key.Matches(msg, m.keys.ToggleIdle):
		if !m.vs.hasReminderSettings {
			return m, nil
		}
		pause := !m.vs.reminderSettings.pauseWhenIdle
		return m, m.updateRemindersCmd(reminderUpdate{PauseWhenIdle: &pause})
	case key.Matches(msg, m.keys.Stats):
		m.showStats = !m.showStats
		if m.showStats {
			return m, tea.Batch(m.fetchStatsCmd(), m.journalStatsCmd())
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(
			m.statusPoller.poll(),
			m.pomodoroPoller.poll(),
			m.fetchRemindersCmd(),
			m.fetchProcrastinationCmd(),
		)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// syncReminderIntervals hands the dispatcher each reminder's interval.
// pending entries in status payloads carry none, and the procrastination
// warning recurs on the server's cooldown.
func (m model) syncReminderIntervals() {
	minutes := make(map[string]int, len(m.vs.reminderSettings.reminders)+1)
	for _, r := range m.vs.reminderSettings.reminders {
		if r.id != "" && r.intervalMinutes > 0 {
			minutes[r.id] = r.intervalMinutes
		}
	}
	if m.vs.procrastinationCooldown > 0 {
		minutes[procrastinationID] = m.vs.procrastinationCooldown
	}
	m.engine.setReminderIntervals(minutes)
}

func (m model) selectedReminder() (reminder, bool) {
	if m.cursor < 0 || m.cursor >= len(m.vs.active) {
		return reminder{}, false
	}
	return m.vs.active[m.cursor], true
}

// breakSeconds prefers the server's configured break length.
func (m model) breakSeconds() int {
	minutes := m.cfg.breakMinutes
	if m.vs.serverBreakMinutes > 0 {
		minutes = m.vs.serverBreakMinutes
	}
	return minutes * 60
}

// handleActionResult feeds the snapshot returned by a pomodoro intent into
// the reconciler, exactly like a polled one.
func (m *model) handleActionResult(msg actionResultMsg) {
	if msg.err != nil {
		log.Printf("pomodoro %s: %v", msg.action, msg.err)
		m.vs.setFlash(msg.action+" failed", m.now())
		return
	}
	m.engine.snapshotReceived(pollResult{
		kind:       pollPomodoro,
		body:       msg.body,
		issuedAt:   msg.issuedAt,
		receivedAt: msg.receivedAt,
	})
}

// applyConfig takes a reloaded config. server_url changes need a restart.
func (m *model) applyConfig(cfg config) tea.Cmd {
	if cfg.serverURL != m.cfg.serverURL {
		log.Printf("config reload: server_url change ignored until restart")
		cfg.serverURL = m.cfg.serverURL
	}
	if cfg.relayPort != m.cfg.relayPort {
		log.Printf("config reload: relay_port change ignored until restart")
		cfg.relayPort = m.cfg.relayPort
	}
	if cfg.journal != m.cfg.journal {
		log.Printf("config reload: journal change ignored until restart")
		cfg.journal = m.cfg.journal
	}
	m.cfg = cfg
	m.engine.configure(cfg.engineOptions())
	m.statusPoller.setTimeout(cfg.requestTimeout)
	m.pomodoroPoller.setTimeout(cfg.requestTimeout)
	m.vs.setFlash("config reloaded", m.now())
	log.Printf("config reloaded from %s", cfg.path)
	return m.statusPoller.setInterval(cfg.statusInterval)
}

// publish hands the relay a copy of the current view.
func (m model) publish() {
	if m.relay == nil {
		return
	}
	m.relay.publish(m.vs.relayPayload(m.now()))
}

// -- commands --

func (m model) actionCmd(action string) tea.Cmd {
	client, timeout := m.client, m.cfg.requestTimeout
	return func() tea.Msg {
		issued := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		body, err := client.pomodoroAction(ctx, action)
		return actionResultMsg{
			action:     action,
			body:       body,
			err:        err,
			issuedAt:   issued,
			receivedAt: time.Now(),
		}
	}
}

// notifyCmd runs a fire-and-forget server call.
func (m model) notifyCmd(what string, call func(ctx context.Context) error) tea.Cmd {
	timeout := m.cfg.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return notifyResultMsg{what: what, err: call(ctx)}
	}
}

func (m model) updateRemindersCmd(update reminderUpdate) tea.Cmd {
	client := m.client
	return tea.Sequence(
		m.notifyCmd("update reminders", func(ctx context.Context) error {
			return client.updateReminders(ctx, update)
		}),
		m.fetchRemindersCmd(),
	)
}

func (m model) fetchServerConfigCmd() tea.Cmd {
	client, timeout := m.client, m.cfg.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		raw, err := client.fetchConfig(ctx)
		if err != nil {
			return serverConfigMsg{err: err}
		}
		return serverConfigMsg{breakMinutes: parseBreakMinutes(raw)}
	}
}

func (m model) fetchRemindersCmd() tea.Cmd {
	client, timeout := m.client, m.cfg.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		raw, err := client.fetchReminders(ctx)
		if err != nil {
			return reminderSettingsMsg{err: err}
		}
		settings, err := parseReminderSettings(raw)
		return reminderSettingsMsg{settings: settings, err: err}
	}
}

func (m model) fetchProcrastinationCmd() tea.Cmd {
	client, timeout := m.client, m.cfg.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		raw, err := client.fetchProcrastination(ctx)
		if err != nil {
			return procrastinationMsg{err: err}
		}
		return procrastinationMsg{cooldownMinutes: parseProcrastinationCooldown(raw)}
	}
}

func (m model) fetchStatsCmd() tea.Cmd {
	client, timeout := m.client, m.cfg.requestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		raw, err := client.fetchStats(ctx)
		if err != nil {
			return usageStatsMsg{err: err}
		}
		stats, err := parseUsageStats(raw)
		return usageStatsMsg{stats: stats, err: err}
	}
}

func (m model) journalStatsCmd() tea.Cmd {
	j := m.journal
	if j == nil {
		return nil
	}
	return func() tea.Msg {
		stats, err := j.todayStats(time.Now())
		return journalStatsMsg{stats: stats, err: err}
	}
}

func (m model) recordCmd(entry journalEntry) tea.Cmd {
	j := m.journal
	if j == nil {
		return nil
	}
	return func() tea.Msg {
		if err := j.record(entry); err != nil {
			return journalErrMsg{err: err}
		}
		return nil
	}
}
