// HTTP relay of the reconciled state.
//
// serves the same view the TUI renders, as JSON, so other local tools
// (status bars, a phone over adb reverse) can show the countdown without
// polling the AFO server themselves. the relay only ever reads the copy
// the event loop publishes after each Update.

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const defaultServePort = 8421

// relayState is the one structure shared between the event loop and the
// relay's handler goroutines.
type relayState struct {
	mu      sync.RWMutex
	payload map[string]any
	updated time.Time
}

func newRelayState() *relayState {
	return &relayState{}
}

func (r *relayState) publish(payload map[string]any) {
	r.mu.Lock()
	r.payload = payload
	r.updated = time.Now()
	r.mu.Unlock()
}

func (r *relayState) get() (map[string]any, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.payload, r.updated
}

func newRelayHandler(state *relayState) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		payload, _ := state.get()
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if payload == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": "no state yet"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// startRelay listens on port and serves state until the returned server is
// closed.
func startRelay(port int, state *relayState) (*http.Server, error) {
	addr := net.JoinHostPort(defaultRelayListen, fmt.Sprint(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("relay listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           newRelayHandler(state),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("relay: %v", err)
		}
	}()
	log.Printf("relay serving on http://%s", addr)
	return srv, nil
}

// serveCommand runs the engine without a terminal and relays its state.
// logs go to stderr.
func serveCommand(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	registerFlags(fs)
	port := fs.Int("port", 0, "relay port (default relay_port, else 8421)")
	cfg, err := setupConfig(fs, args)
	if err != nil {
		return fail(err)
	}
	switch {
	case *port > 0:
		cfg.relayPort = *port
	case cfg.relayPort == 0:
		cfg.relayPort = defaultServePort
	}

	j := openJournalFor(cfg)
	if j != nil {
		defer j.close()
	}

	relay := newRelayState()
	srv, err := startRelay(cfg.relayPort, relay)
	if err != nil {
		return fail(err)
	}
	defer srv.Close()

	m := newModel(cfg, newAPIClient(cfg.serverURL), j, relay)
	m.headless = true
	m.restoreJournal()

	p := tea.NewProgram(m, tea.WithoutRenderer(), tea.WithInput(nil))
	if w := watchConfig(p, cfg, fs); w != nil {
		defer w.close()
	}
	quitOnSignal(p)

	log.Printf("flowtop serve: polling %s", cfg.serverURL)
	if _, err := p.Run(); err != nil {
		return fail(err)
	}
	return 0
}
