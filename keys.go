// key bindings and the help bar.

package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start         key.Binding
	Pause         key.Binding
	Stop          key.Binding
	Skip          key.Binding
	Break         key.Binding
	EndBreak      key.Binding
	Dismiss       key.Binding
	Snooze        key.Binding
	Down          key.Binding
	Up            key.Binding
	ToggleEnabled key.Binding
	ToggleIdle    key.Binding
	Stats         key.Binding
	Refresh       key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Start:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		Pause:         key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Stop:          key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Skip:          key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "skip")),
		Break:         key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "break")),
		EndBreak:      key.NewBinding(key.WithKeys("esc", " "), key.WithHelp("esc", "end break")),
		Dismiss:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dismiss")),
		Snooze:        key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "snooze")),
		Down:          key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/k", "select")),
		Up:            key.NewBinding(key.WithKeys("k", "up")),
		ToggleEnabled: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "reminders on/off")),
		ToggleIdle:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "pause when idle")),
		Stats:         key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "stats")),
		Refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Start, k.Pause, k.Skip, k.Break, k.Dismiss, k.Snooze, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.Stop, k.Skip},
		{k.Break, k.Dismiss, k.Snooze, k.Down},
		{k.ToggleEnabled, k.ToggleIdle, k.Stats, k.Refresh},
		{k.Help, k.Quit},
	}
}

// breakKeys is the only help shown while the break overlay is up.
type breakKeys struct {
	EndBreak key.Binding
	Quit     key.Binding
}

func (k breakKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.EndBreak, k.Quit}
}

func (k breakKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
