package terminal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/impterm/impterm-go/pkg/keypad"
	"github.com/impterm/impterm-go/pkg/persistence"
	"github.com/impterm/impterm-go/pkg/pin"
	"github.com/impterm/impterm-go/pkg/remote"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// ErrInvalidConfig wraps every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the terminal configuration.
type Config struct {
	Keypad     keypad.Wiring   `yaml:"keypad"`
	Indicators IndicatorWiring `yaml:"indicators"`
	Store      StoreConfig     `yaml:"store"`

	// Defaults are written to the store on first start.
	Defaults persistence.Defaults `yaml:"defaults"`

	// SecurityDelay is the pause after a failed submission.
	SecurityDelay time.Duration `yaml:"security_delay"`

	// QueueCapacity is the row-edge hand-off queue depth.
	QueueCapacity int `yaml:"queue_capacity"`

	Remote RemoteConfig `yaml:"remote"`

	// AccessLog is the access event log path. Empty disables the file log.
	AccessLog string `yaml:"access_log"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// IndicatorWiring assigns GPIO lines to the indicator outputs. A zero line
// means the output is not fitted.
type IndicatorWiring struct {
	OpenLED   int `yaml:"open_led"`
	ClosedLED int `yaml:"closed_led"`
	Lock      int `yaml:"lock"`
	Status    int `yaml:"status"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// RemoteConfig configures the remote write channel.
type RemoteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`

	// Advertise publishes the service over mDNS.
	Advertise bool   `yaml:"advertise"`
	Instance  string `yaml:"instance"`
	Interface string `yaml:"interface"`

	// TLSCert and TLSKey enable TLS when both are set.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// DefaultConfig returns the configuration of the reference board.
func DefaultConfig() Config {
	return Config{
		Keypad: keypad.DefaultWiring(),
		Indicators: IndicatorWiring{
			OpenLED:   19,
			ClosedLED: 18,
			Status:    2,
		},
		Store: StoreConfig{
			Backend: StoreFile,
			Path:    "/var/lib/impterm/store.json",
		},
		Defaults:      persistence.FactoryDefaults(),
		SecurityDelay: pin.DefaultSecurityDelay,
		QueueCapacity: keypad.DefaultQueueCapacity,
		Remote: RemoteConfig{
			Enabled:     true,
			Listen:      fmt.Sprintf(":%d", remote.DefaultPort),
			Advertise:   true,
			Instance:    "impterm",
			IdleTimeout: remote.DefaultIdleTimeout,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
// Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Keypad.Validate(); err != nil {
		return fmt.Errorf("%w: keypad: %v", ErrInvalidConfig, err)
	}
	if err := c.validateIndicators(); err != nil {
		return err
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreFile, StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store backend %s requires a path", ErrInvalidConfig, c.Store.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("%w: defaults: %v", ErrInvalidConfig, err)
	}
	if c.SecurityDelay < 0 {
		return fmt.Errorf("%w: negative security delay", ErrInvalidConfig)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("%w: queue capacity must be at least 1", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Remote.Enabled {
		if c.Remote.Listen == "" {
			return fmt.Errorf("%w: remote listen address is empty", ErrInvalidConfig)
		}
		if (c.Remote.TLSCert == "") != (c.Remote.TLSKey == "") {
			return fmt.Errorf("%w: remote TLS needs both certificate and key", ErrInvalidConfig)
		}
	}
	return nil
}

func (c Config) validateIndicators() error {
	if c.Indicators.OpenLED <= 0 || c.Indicators.ClosedLED <= 0 {
		return fmt.Errorf("%w: open and closed LED lines are required", ErrInvalidConfig)
	}

	used := make(map[int]string)
	for _, line := range c.Keypad.Rows {
		used[line] = "keypad row"
	}
	for _, line := range c.Keypad.Columns {
		used[line] = "keypad column"
	}
	for _, o := range []struct {
		name string
		line int
	}{
		{"open LED", c.Indicators.OpenLED},
		{"closed LED", c.Indicators.ClosedLED},
		{"lock", c.Indicators.Lock},
		{"status LED", c.Indicators.Status},
	} {
		if o.line == 0 {
			continue
		}
		if o.line < 0 {
			return fmt.Errorf("%w: %s line %d", ErrInvalidConfig, o.name, o.line)
		}
		if other, dup := used[o.line]; dup {
			return fmt.Errorf("%w: %s line %d already used by %s", ErrInvalidConfig, o.name, o.line, other)
		}
		used[o.line] = o.name
	}
	return nil
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
