package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/impterm/impterm-go/pkg/pin"
)

// Record names.
const (
	KeyAccessPIN    = "access_pin"
	KeyAdminPIN     = "admin_pin"
	KeyDoorDuration = "door_duration"
)

// Factory defaults.
const (
	DefaultAccessPIN    = "1234"
	DefaultAdminPIN     = "00000000"
	DefaultDoorDuration = 10 * time.Second
)

// Door duration limits. The record holds whole seconds in 16 bits.
const (
	MinDoorDuration = time.Second
	MaxDoorDuration = math.MaxUint16 * time.Second
)

// ErrInvalidDuration is returned for door durations outside the limits.
var ErrInvalidDuration = errors.New("invalid door duration")

// Defaults are the values written on first use.
type Defaults struct {
	AccessPIN    string        `yaml:"access_pin"`
	AdminPIN     string        `yaml:"admin_pin"`
	DoorDuration time.Duration `yaml:"door_duration"`
}

// FactoryDefaults returns the built-in defaults.
func FactoryDefaults() Defaults {
	return Defaults{
		AccessPIN:    DefaultAccessPIN,
		AdminPIN:     DefaultAdminPIN,
		DoorDuration: DefaultDoorDuration,
	}
}

// Validate checks the defaults are storable.
func (d Defaults) Validate() error {
	if err := pin.Validate(d.AccessPIN); err != nil {
		return fmt.Errorf("default access PIN: %w", err)
	}
	if err := pin.Validate(d.AdminPIN); err != nil {
		return fmt.Errorf("default admin PIN: %w", err)
	}
	return validateDuration(d.DoorDuration)
}

// Credentials reads and writes the terminal's records. Writes are committed
// before they return.
type Credentials struct {
	store  Store
	logger *slog.Logger

	// mu pairs each write with its commit.
	mu sync.Mutex
}

// NewCredentials wraps store.
func NewCredentials(store Store, logger *slog.Logger) *Credentials {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Credentials{store: store, logger: logger}
}

// Store returns the underlying store.
func (c *Credentials) Store() Store {
	return c.store
}

// EnsureDefaults writes d for every record that is missing and commits.
// It reports whether anything was written. Any other store error is
// returned; the terminal cannot run without its records.
func (c *Credentials) EnsureDefaults(ctx context.Context, d Defaults) (bool, error) {
	if err := d.Validate(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var wrote []string
	for _, s := range []struct{ key, value string }{
		{KeyAccessPIN, d.AccessPIN},
		{KeyAdminPIN, d.AdminPIN},
	} {
		_, err := c.store.GetString(ctx, s.key)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, ErrNotFound):
			return false, fmt.Errorf("read %s: %w", s.key, err)
		}
		if err := c.store.SetString(ctx, s.key, s.value); err != nil {
			return false, fmt.Errorf("initialize %s: %w", s.key, err)
		}
		wrote = append(wrote, s.key)
	}

	_, err := c.store.GetUint(ctx, KeyDoorDuration)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := c.store.SetUint(ctx, KeyDoorDuration, seconds(d.DoorDuration)); err != nil {
			return false, fmt.Errorf("initialize %s: %w", KeyDoorDuration, err)
		}
		wrote = append(wrote, KeyDoorDuration)
	case err != nil:
		return false, fmt.Errorf("read %s: %w", KeyDoorDuration, err)
	}

	if len(wrote) == 0 {
		return false, nil
	}
	if err := c.store.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit defaults: %w", err)
	}
	c.logger.Info("initialized credential store", "records", wrote)
	return true, nil
}

// AccessPIN returns the access PIN.
func (c *Credentials) AccessPIN(ctx context.Context) (string, error) {
	return c.store.GetString(ctx, KeyAccessPIN)
}

// AdminPIN returns the admin PIN.
func (c *Credentials) AdminPIN(ctx context.Context) (string, error) {
	return c.store.GetString(ctx, KeyAdminPIN)
}

// SetAccessPIN replaces the access PIN.
func (c *Credentials) SetAccessPIN(ctx context.Context, p string) error {
	if err := pin.Validate(p); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SetString(ctx, KeyAccessPIN, p); err != nil {
		return fmt.Errorf("write %s: %w", KeyAccessPIN, err)
	}
	if err := c.store.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", KeyAccessPIN, err)
	}
	c.logger.Info("access PIN updated", "length", len(p))
	return nil
}

// DoorDuration returns the auto-close duration.
func (c *Credentials) DoorDuration(ctx context.Context) (time.Duration, error) {
	secs, err := c.store.GetUint(ctx, KeyDoorDuration)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

// SetDoorDuration replaces the auto-close duration. It is stored in whole
// seconds, rounded down.
func (c *Credentials) SetDoorDuration(ctx context.Context, d time.Duration) error {
	if err := validateDuration(d); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SetUint(ctx, KeyDoorDuration, seconds(d)); err != nil {
		return fmt.Errorf("write %s: %w", KeyDoorDuration, err)
	}
	if err := c.store.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", KeyDoorDuration, err)
	}
	c.logger.Info("door duration updated", "duration", d.Truncate(time.Second))
	return nil
}

func validateDuration(d time.Duration) error {
	if d < MinDoorDuration || d > MaxDoorDuration {
		return fmt.Errorf("%w: %v (want %v to %v)", ErrInvalidDuration, d, MinDoorDuration, MaxDoorDuration)
	}
	return nil
}

func seconds(d time.Duration) uint64 {
	return uint64(d / time.Second)
}
