package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	t.Setenv("FLOWTOP_SERVER", "")
	t.Setenv("FLOWTOP_RELAY_PORT", "")
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, defaultServerURL, cfg.serverURL)
	assert.Equal(t, 2*time.Second, cfg.statusInterval)
	assert.Equal(t, time.Second, cfg.pomodoroInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.requestTimeout)
	assert.Equal(t, 2, cfg.driftTolerance)
	assert.Equal(t, 6*time.Second, cfg.staleAfter())
	assert.Equal(t, 10, cfg.breakMinutes)
	assert.True(t, cfg.journal)
	assert.Zero(t, cfg.relayPort)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("FLOWTOP_SERVER", "")
	t.Setenv("FLOWTOP_RELAY_PORT", "")
	path := writeConfig(t, `
server_url: http://afo.local:9000
status_interval_ms: 5000
drift_tolerance_seconds: 0
stale_multiplier: 4
snooze_minutes: 15
reminder_purge_minutes: 45
journal: false
relay_port: 9100
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://afo.local:9000", cfg.serverURL)
	assert.Equal(t, 5*time.Second, cfg.statusInterval)
	assert.Equal(t, 0, cfg.driftTolerance, "zero tolerance is allowed")
	assert.Equal(t, 20*time.Second, cfg.staleAfter())
	assert.Equal(t, 15, cfg.snoozeMinutes)
	assert.Equal(t, 45*time.Minute, cfg.purgeAfter)
	assert.False(t, cfg.journal)
	assert.Equal(t, 9100, cfg.relayPort)
	assert.Equal(t, path, cfg.path)

	opts := cfg.engineOptions()
	assert.Equal(t, 0, opts.driftTolerance)
	assert.Equal(t, 15, opts.snoozeMinutes)
}

func TestLoadConfigIgnoresOutOfRange(t *testing.T) {
	t.Setenv("FLOWTOP_SERVER", "")
	t.Setenv("FLOWTOP_RELAY_PORT", "")
	path := writeConfig(t, `
status_interval_ms: 10
drift_tolerance_seconds: 900
stale_multiplier: 1
relay_port: 70000
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultStatusInterval, cfg.statusInterval)
	assert.Equal(t, defaultDriftTolerance, cfg.driftTolerance)
	assert.Equal(t, defaultStaleMultiple, cfg.staleMultiple)
	assert.Zero(t, cfg.relayPort)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := writeConfig(t, "server_url: [unclosed")
	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestConfigLayering(t *testing.T) {
	path := writeConfig(t, "server_url: http://from-file:1\nrelay_port: 9100\n")
	t.Setenv("FLOWTOP_SERVER", "http://from-env:2")
	t.Setenv("FLOWTOP_RELAY_PORT", "9200")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:2", cfg.serverURL, "env beats file")
	assert.Equal(t, 9200, cfg.relayPort)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	registerFlags(fs)
	require.NoError(t, fs.Parse([]string{"-server", "http://from-flag:3", "-no-journal"}))
	applyFlags(&cfg, fs)
	assert.Equal(t, "http://from-flag:3", cfg.serverURL, "flags beat env")
	assert.False(t, cfg.journal)
	assert.Equal(t, 9200, cfg.relayPort, "unset flags leave values alone")
}

func TestConfigFlagAndPaths(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	registerFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", "/tmp/x.yaml"}))
	assert.Equal(t, "/tmp/x.yaml", configFlag(fs))

	t.Setenv("FLOWTOP_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	assert.Equal(t, "/xdg/config/flowtop/config.yaml", configPath())
	assert.Equal(t, "/xdg/data/flowtop/journal.db", journalPath())
	assert.Equal(t, "/xdg/data/flowtop/flowtop.log", logPath())

	t.Setenv("FLOWTOP_CONFIG", "/etc/flowtop.yaml")
	assert.Equal(t, "/etc/flowtop.yaml", configPath())
}
