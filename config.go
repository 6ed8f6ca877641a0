// paths, defaults, and config loading.
//
// layering: defaults < config.yaml < env < flags. values in the file that
// are out of range are ignored rather than rejected, so a half-edited file
// never stops the client from starting.

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName            = "flowtop"
	configFileName     = "config.yaml"
	journalFileName    = "journal.db"
	logFileName        = "flowtop.log"
	defaultServerURL   = "http://127.0.0.1:8420"
	minPollInterval    = 250 * time.Millisecond
	maxDriftTolerance  = 60
	defaultRelayListen = "127.0.0.1"
)

// configPath returns the path to flowtop's config file.
// respects FLOWTOP_CONFIG and XDG_CONFIG_HOME.
func configPath() string {
	if p := os.Getenv("FLOWTOP_CONFIG"); p != "" {
		return p
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName, configFileName)
}

// dataDir returns flowtop's data directory (journal, log).
// respects XDG_DATA_HOME.
func dataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, appName)
}

func journalPath() string {
	return filepath.Join(dataDir(), journalFileName)
}

func logPath() string {
	return filepath.Join(dataDir(), logFileName)
}

type config struct {
	serverURL        string
	statusInterval   time.Duration
	pomodoroInterval time.Duration
	requestTimeout   time.Duration
	driftTolerance   int
	staleMultiple    int
	breakMinutes     int
	snoozeMinutes    int
	purgeAfter       time.Duration
	journal          bool
	relayPort        int
	path             string
}

type yamlConfig struct {
	ServerURL             string `yaml:"server_url"`
	StatusIntervalMS      int    `yaml:"status_interval_ms"`
	PomodoroIntervalMS    int    `yaml:"pomodoro_interval_ms"`
	RequestTimeoutMS      int    `yaml:"request_timeout_ms"`
	DriftToleranceSeconds *int   `yaml:"drift_tolerance_seconds"`
	StaleMultiplier       int    `yaml:"stale_multiplier"`
	BreakMinutes          int    `yaml:"break_minutes"`
	SnoozeMinutes         int    `yaml:"snooze_minutes"`
	ReminderPurgeMinutes  int    `yaml:"reminder_purge_minutes"`
	Journal               *bool  `yaml:"journal"`
	RelayPort             int    `yaml:"relay_port"`
}

func defaultConfig() config {
	return config{
		serverURL:        defaultServerURL,
		statusInterval:   defaultStatusInterval,
		pomodoroInterval: defaultPomodoroInterval,
		requestTimeout:   defaultRequestTimeout,
		driftTolerance:   defaultDriftTolerance,
		staleMultiple:    defaultStaleMultiple,
		breakMinutes:     defaultBreakMinutes,
		snoozeMinutes:    defaultSnoozeMinutes,
		purgeAfter:       defaultPurgeAfter,
		journal:          true,
		path:             configPath(),
	}
}

// loadConfig builds a config from defaults, the file at path, and env.
// a missing file is not an error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path != "" {
		cfg.path = path
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, err
	}
	cfg.loadEnv()
	return cfg, nil
}

func (c *config) loadFile() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var file yamlConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	applyYamlConfig(c, file)
	return nil
}

func applyYamlConfig(c *config, file yamlConfig) {
	if file.ServerURL != "" {
		c.serverURL = file.ServerURL
	}
	if d := time.Duration(file.StatusIntervalMS) * time.Millisecond; d >= minPollInterval {
		c.statusInterval = d
	}
	if d := time.Duration(file.PomodoroIntervalMS) * time.Millisecond; d >= minPollInterval {
		c.pomodoroInterval = d
	}
	if file.RequestTimeoutMS > 0 {
		c.requestTimeout = time.Duration(file.RequestTimeoutMS) * time.Millisecond
	}
	if t := file.DriftToleranceSeconds; t != nil && *t >= 0 && *t <= maxDriftTolerance {
		c.driftTolerance = *t
	}
	if file.StaleMultiplier >= 2 {
		c.staleMultiple = file.StaleMultiplier
	}
	if file.BreakMinutes > 0 {
		c.breakMinutes = file.BreakMinutes
	}
	if file.SnoozeMinutes > 0 {
		c.snoozeMinutes = file.SnoozeMinutes
	}
	if file.ReminderPurgeMinutes > 0 {
		c.purgeAfter = time.Duration(file.ReminderPurgeMinutes) * time.Minute
	}
	if file.Journal != nil {
		c.journal = *file.Journal
	}
	if file.RelayPort > 0 && file.RelayPort < 65536 {
		c.relayPort = file.RelayPort
	}
}

func (c *config) loadEnv() {
	if v := os.Getenv("FLOWTOP_SERVER"); v != "" {
		c.serverURL = v
	}
	if v := os.Getenv("FLOWTOP_RELAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			c.relayPort = port
		}
	}
}

// registerFlags defines the flags shared by the TUI and serve.
func registerFlags(fs *flag.FlagSet) {
	fs.String("server", defaultServerURL, "AFO server base URL")
	fs.String("config", "", "config file path")
	fs.Int("relay-port", 0, "serve reconciled state as JSON on this port (0 = off)")
	fs.Bool("no-journal", false, "don't record events to the local journal")
}

// applyFlags overrides cfg with flags that were explicitly set.
func applyFlags(cfg *config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.serverURL = f.Value.String()
		case "relay-port":
			// flag already validated the int
			cfg.relayPort, _ = strconv.Atoi(f.Value.String())
		case "no-journal":
			cfg.journal = f.Value.String() != "true"
		}
	})
}

// configFlag returns the -config value, or "" when unset.
func configFlag(fs *flag.FlagSet) string {
	if f := fs.Lookup("config"); f != nil {
		return f.Value.String()
	}
	return ""
}

// staleAfter is the staleness window: no snapshot for this long flags stale.
func (c config) staleAfter() time.Duration {
	return time.Duration(c.staleMultiple) * c.statusInterval
}

func (c config) engineOptions() engineOptions {
	return engineOptions{
		driftTolerance: c.driftTolerance,
		staleAfter:     c.staleAfter(),
		snoozeMinutes:  c.snoozeMinutes,
		purgeAfter:     c.purgeAfter,
	}
}
