// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
hosts:
  - id: node-1
    name: node-1
    ipv4: 192.168.1.10
    mac: "52:54:00:12:34:56"
    enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Probe.Interval)
	assert.Equal(t, 3, cfg.Probe.DebounceThreshold)
	assert.Equal(t, "255.255.255.255", cfg.Wake.BroadcastAddr)
	assert.Equal(t, 9, cfg.Wake.Port)
	assert.Equal(t, 60*time.Second, cfg.Wake.ConfirmDeadline)
	assert.Equal(t, 3, cfg.Wake.MaxRetries)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.Len(t, cfg.Hosts, 1)
	assert.Equal(t, "node-1", cfg.Hosts[0].Name)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "duplicate host id",
			content: `
hosts:
  - id: node-1
    name: a
  - id: node-1
    name: b
`,
		},
		{
			name: "bad confirm interval",
			content: `
wake:
  confirm_deadline: 10s
  confirm_interval: 30s
`,
		},
		{
			name: "bad tcp port",
			content: `
probe:
  tcp_port: 99999
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, dir, tt.name+".yaml", tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	incDir := filepath.Join(dir, "conf.d")
	require.NoError(t, os.Mkdir(incDir, 0755))

	writeConfig(t, incDir, "10-hosts.yaml", `
hosts:
  - id: node-2
    name: node-2
    ipv4: 192.168.1.11
    mac: "52:54:00:12:34:57"
    enabled: true
`)
	writeConfig(t, incDir, "20-wake.yaml", `
wake:
  port: 7
  max_retries: 5
`)

	path := writeConfig(t, dir, "config.yaml", `
include:
  enabled: true
  directory: conf.d
hosts:
  - id: node-1
    name: node-1
    ipv4: 192.168.1.10
    mac: "52:54:00:12:34:56"
    enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, cfg.Hosts, 2)
	assert.Equal(t, 7, cfg.Wake.Port)
	assert.Equal(t, 5, cfg.Wake.MaxRetries)
	// Untouched sections keep their defaults
	assert.Equal(t, "255.255.255.255", cfg.Wake.BroadcastAddr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
