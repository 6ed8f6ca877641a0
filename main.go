package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// subcommands print JSON for scripting; each returns an exit code.
var subcommands = map[string]func(args []string) int{
	"status":    statusCommand,
	"pomodoro":  pomodoroCommand,
	"reminders": remindersCommand,
	"snooze":    snoozeCommand,
	"dismiss":   dismissCommand,
	"history":   historyCommand,
	"serve":     serveCommand,
}

func main() {
	if len(os.Args) > 1 {
		if cmd, ok := subcommands[os.Args[1]]; ok {
			os.Exit(cmd(os.Args[2:]))
		}
	}
	os.Exit(runTUI(os.Args[1:]))
}

// setupConfig parses args into fs and layers the result over the config file.
func setupConfig(fs *flag.FlagSet, args []string) (config, error) {
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	cfg, err := loadConfig(configFlag(fs))
	if err != nil {
		return config{}, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

// openJournalFor opens the journal unless disabled. failure is logged and
// the client runs without one.
func openJournalFor(cfg config) *journal {
	if !cfg.journal {
		return nil
	}
	j, err := openJournal(journalPath())
	if err != nil {
		log.Printf("journal disabled: %v", err)
		return nil
	}
	if n, err := j.prune(time.Now().Add(-journalRetention)); err != nil {
		log.Printf("journal: %v", err)
	} else if n > 0 {
		log.Printf("journal: pruned %d old events", n)
	}
	return j
}

// watchConfig forwards config file edits to the running program.
func watchConfig(p *tea.Program, cfg config, fs *flag.FlagSet) *configWatcher {
	w, err := newConfigWatcher(cfg.path, func(reloaded config) {
		applyFlags(&reloaded, fs)
		p.Send(configReloadedMsg{cfg: reloaded})
	})
	if err != nil {
		log.Printf("config watch disabled: %v", err)
		return nil
	}
	w.start()
	return w
}

// quitOnSignal makes SIGTERM/SIGHUP a clean exit so the alt screen gets restored.
func quitOnSignal(p *tea.Program) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGINT)
	go func() {
		<-sigCh
		p.Quit()
	}()
}

func runTUI(args []string) int {
	fs := flag.NewFlagSet("flowtop", flag.ExitOnError)
	registerFlags(fs)
	cfg, err := setupConfig(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if err := os.MkdirAll(dataDir(), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	logFile, err := tea.LogToFile(logPath(), "flowtop")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer logFile.Close()

	j := openJournalFor(cfg)
	if j != nil {
		defer j.close()
	}

	var relay *relayState
	if cfg.relayPort > 0 {
		relay = newRelayState()
		srv, err := startRelay(cfg.relayPort, relay)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		defer srv.Close()
	}

	m := newModel(cfg, newAPIClient(cfg.serverURL), j, relay)
	m.restoreJournal()

	setProcessTitle()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if w := watchConfig(p, cfg, fs); w != nil {
		defer w.close()
	}
	quitOnSignal(p)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// setProcessTitle sets tmux window name and xterm title.
func setProcessTitle() {
	fmt.Print("\033kflowtop\033\\")
	fmt.Print("\033]2;flowtop\007")
}
