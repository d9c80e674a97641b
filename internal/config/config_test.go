package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLedger, cfg.Ledger)
	assert.Equal(t, time.Second, cfg.Settle())
	assert.Equal(t, DefaultStatePolls, cfg.StatePolls)
	assert.Equal(t, DefaultMMCLI, cfg.MMCLI)
	assert.False(t, cfg.NotifyDNS)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "racesms.yaml", `
roster: roster.csv
results: results.csv
ledger: sms.db
settle_delay: 2500ms
state_polls: 3
notify_dns: true
event:
  name: Beh mesta Pezinok
  results_url: https://live.sokolpezinok.sk
templates:
  completed: "{{.Name}} {{.Time}}"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "roster.csv", cfg.Roster)
	assert.Equal(t, "results.csv", cfg.Results)
	assert.Equal(t, "sms.db", cfg.Ledger)
	assert.Equal(t, 2500*time.Millisecond, cfg.Settle())
	assert.Equal(t, 3, cfg.StatePolls)
	assert.Equal(t, DefaultMMCLI, cfg.MMCLI)

	opts := cfg.PolicyOptions()
	assert.Equal(t, "Beh mesta Pezinok", opts.Event)
	assert.Equal(t, "https://live.sokolpezinok.sk", opts.ResultsURL)
	assert.True(t, opts.NotifyDidNotStart)
	assert.Equal(t, "{{.Name}} {{.Time}}", opts.Completed)
	assert.Empty(t, opts.DidNotFinish)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "racesms.toml", `
ledger = "sms.csv"
modem = "/org/freedesktop/ModemManager1/Modem/3"
mmcli = "/usr/bin/mmcli"

[event]
name = "Night Sprint"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/org/freedesktop/ModemManager1/Modem/3", cfg.Modem)
	assert.Equal(t, "/usr/bin/mmcli", cfg.MMCLI)
	assert.Equal(t, "Night Sprint", cfg.Event.Name)
	assert.Equal(t, DefaultSettleDelay, cfg.SettleDelay)
}

func TestLoad_EmptyYAMLFile(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultLedger, cfg.Ledger)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "cfg.yaml", "ledgr: sms.csv\n"},
		{"toml", "cfg.toml", "ledgr = \"sms.csv\"\n"},
		{"toml nested", "cfg.toml", "[event]\nurl = \"https://x\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config parse failed")
		})
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"polls too high", "state_polls: 100\n"},
		{"negative polls", "state_polls: -1\n"},
		{"bad delay", "settle_delay: soon\n"},
		{"bad url", "event:\n  results_url: ftp://results\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "cfg.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config invalid")
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config load failed")
}

func TestValidate_Default(t *testing.T) {
	require.NoError(t, Validate(Default()))
}
