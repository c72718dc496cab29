package terminal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing open LED", func(c *Config) { c.Indicators.OpenLED = 0 }},
		{"LED on keypad row", func(c *Config) { c.Indicators.OpenLED = c.Keypad.Rows[0] }},
		{"lock on closed LED", func(c *Config) { c.Indicators.Lock = c.Indicators.ClosedLED }},
		{"negative status line", func(c *Config) { c.Indicators.Status = -3 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }},
		{"file without path", func(c *Config) { c.Store.Path = "" }},
		{"bad default PIN", func(c *Config) { c.Defaults.AccessPIN = "12" }},
		{"short door duration", func(c *Config) { c.Defaults.DoorDuration = 100 * time.Millisecond }},
		{"negative delay", func(c *Config) { c.SecurityDelay = -time.Second }},
		{"zero queue", func(c *Config) { c.QueueCapacity = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"empty listen", func(c *Config) { c.Remote.Listen = "" }},
		{"cert without key", func(c *Config) { c.Remote.TLSCert = "cert.pem" }},
		{"duplicate keypad line", func(c *Config) { c.Keypad.Columns[0] = c.Keypad.Rows[0] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfigValidateRemoteDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.Enabled = false
	cfg.Remote.Listen = ""
	cfg.Store.Backend = StoreMemory
	cfg.Store.Path = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "impterm.yaml")
	data := `
keypad:
  rows: [5, 6, 13, 19]
  columns: [20, 21, 26]
indicators:
  open_led: 17
  closed_led: 27
  lock: 22
store:
  backend: sqlite
  path: /tmp/impterm.db
defaults:
  access_pin: "2468"
  admin_pin: "13579135"
  door_duration: 15s
security_delay: 2s
remote:
  enabled: true
  listen: 127.0.0.1:9000
  advertise: false
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 6, 13, 19}, cfg.Keypad.Rows)
	assert.Equal(t, 22, cfg.Indicators.Lock)
	assert.Equal(t, 2, cfg.Indicators.Status, "unset keys keep their defaults")
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "2468", cfg.Defaults.AccessPIN)
	assert.Equal(t, 15*time.Second, cfg.Defaults.DoorDuration)
	assert.Equal(t, 2*time.Second, cfg.SecurityDelay)
	assert.Equal(t, "127.0.0.1:9000", cfg.Remote.Listen)
	assert.False(t, cfg.Remote.Advertise)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "impterm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keypad_rows: [1, 2]\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfigInvalidValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "impterm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue_capacity: 0\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error", "DEBUG"} {
		_, err := ParseLevel(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
