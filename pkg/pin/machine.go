package pin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/impterm/impterm-go/pkg/keypad"
)

// Door is the part of the door state machine the PIN machine drives.
type Door interface {
	IsOpen() bool
	RequestOpen(ctx context.Context) error
	RequestClose(ctx context.Context) error
}

// Credentials gives access to the stored PIN records.
type Credentials interface {
	AccessPIN(ctx context.Context) (string, error)
	AdminPIN(ctx context.Context) (string, error)
	SetAccessPIN(ctx context.Context, pin string) error
}

// Feedback drives the user-visible indicators.
type Feedback interface {
	// KeyAccepted acknowledges a digit or change key. Must not block.
	KeyAccepted()

	// Success shows the success pattern. Must not block.
	Success()

	// Failure shows the failure pattern and holds for delay.
	Failure(ctx context.Context, delay time.Duration)

	// AdminMode shows whether a new PIN is being entered.
	AdminMode(on bool)
}

// Config configures a Machine.
type Config struct {
	Door        Door
	Credentials Credentials

	// Feedback is optional. Without it failures still hold for the
	// security delay.
	Feedback Feedback

	// SecurityDelay defaults to DefaultSecurityDelay.
	SecurityDelay time.Duration

	Logger *slog.Logger

	// OnAttempt, if set, is called after every submission and overflow.
	OnAttempt func(Attempt)
}

// Machine is the PIN state machine. It is owned by the keypad worker and is
// not safe for concurrent use.
type Machine struct {
	door     Door
	creds    Credentials
	feedback Feedback
	delay    time.Duration
	logger   *slog.Logger

	onAttempt func(Attempt)

	state     State
	buf       []byte
	candidate string
}

// NewMachine creates a machine in StateAuth with an empty buffer.
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.Door == nil || cfg.Credentials == nil {
		return nil, errors.New("pin: machine requires door and credentials")
	}
	m := &Machine{
		door:      cfg.Door,
		creds:     cfg.Credentials,
		feedback:  cfg.Feedback,
		delay:     cfg.SecurityDelay,
		logger:    cfg.Logger,
		onAttempt: cfg.OnAttempt,
		buf:       make([]byte, 0, MaxLength),
	}
	if m.feedback == nil {
		m.feedback = delayOnly{}
	}
	if m.delay <= 0 {
		m.delay = DefaultSecurityDelay
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	return m, nil
}

// State returns the current sub-state.
func (m *Machine) State() State {
	return m.state
}

// Buffered returns the number of digits entered so far.
func (m *Machine) Buffered() int {
	return len(m.buf)
}

// HandleKey implements keypad.KeyHandler.
// Only credential store failures are returned.
func (m *Machine) HandleKey(ctx context.Context, key keypad.Key) error {
	if m.door.IsOpen() {
		m.logger.Info("close requested from keypad")
		if err := m.door.RequestClose(ctx); err != nil && ctx.Err() == nil {
			m.logger.Warn("close request failed", "error", err)
		}
		return nil
	}

	switch {
	case key.IsDigit():
		return m.digit(ctx, key)
	case key == keypad.KeyChange:
		m.feedback.KeyAccepted()
		m.clear()
		if m.state == StateChangeEnterNew || m.state == StateChangeConfirm {
			m.feedback.AdminMode(false)
		}
		m.candidate = ""
		m.state = StateChangeAuth
		m.logger.Info("PIN change requested, enter admin PIN")
		return nil
	case key == keypad.KeySubmit:
		return m.submit(ctx)
	default:
		m.logger.Debug("ignoring key", "key", key)
		return nil
	}
}

func (m *Machine) digit(ctx context.Context, key keypad.Key) error {
	m.feedback.KeyAccepted()
	if len(m.buf) >= MaxLength {
		m.logger.Warn("PIN too long, resetting", "state", m.state)
		m.fail(ctx, Attempt{State: m.state, Next: m.state, Length: len(m.buf) + 1, Err: ErrOverflow})
		return nil
	}
	m.buf = append(m.buf, byte(key))
	return nil
}

func (m *Machine) submit(ctx context.Context) error {
	entered := string(m.buf)
	a := Attempt{State: m.state, Next: m.state, Length: len(entered)}

	switch m.state {
	case StateAuth:
		ok, err := m.check(ctx, entered, m.creds.AccessPIN)
		if err != nil {
			return fmt.Errorf("check access PIN: %w", err)
		}
		if !ok {
			a.Err = ErrWrongPIN
			m.logger.Info("access denied")
			break
		}
		m.logger.Info("access granted")
		if err := m.door.RequestOpen(ctx); err != nil && ctx.Err() == nil {
			m.logger.Warn("open request failed", "error", err)
		}

	case StateChangeAuth:
		ok, err := m.check(ctx, entered, m.creds.AdminPIN)
		if err != nil {
			return fmt.Errorf("check admin PIN: %w", err)
		}
		if !ok {
			a.Err = ErrWrongPIN
			a.Next = StateAuth
			m.logger.Info("admin access denied")
			break
		}
		a.Next = StateChangeEnterNew
		m.feedback.AdminMode(true)
		m.logger.Info("admin access granted, enter new PIN")

	case StateChangeEnterNew:
		if len(entered) < MinLength {
			a.Err = ErrTooShort
			m.logger.Info("new PIN too short", "min", MinLength)
			break
		}
		m.candidate = entered
		a.Next = StateChangeConfirm
		m.logger.Info("confirm new PIN")

	case StateChangeConfirm:
		if subtle.ConstantTimeCompare([]byte(entered), []byte(m.candidate)) != 1 {
			a.Err = ErrMismatch
			a.Next = StateChangeEnterNew
			m.logger.Info("PINs do not match, enter new PIN again")
			break
		}
		if err := m.creds.SetAccessPIN(ctx, m.candidate); err != nil {
			return fmt.Errorf("store access PIN: %w", err)
		}
		a.Next = StateAuth
		m.feedback.AdminMode(false)
		m.logger.Info("access PIN changed")
	}

	if a.Err != nil {
		m.fail(ctx, a)
		return nil
	}

	m.state = a.Next
	if m.state != StateChangeConfirm {
		m.candidate = ""
	}
	m.clear()
	m.feedback.Success()
	m.report(a)
	return nil
}

// check compares entered against the record returned by load. Entries
// shorter than MinLength fail without reading the record.
func (m *Machine) check(ctx context.Context, entered string, load func(context.Context) (string, error)) (bool, error) {
	if len(entered) < MinLength {
		return false, nil
	}
	want, err := load(ctx)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(entered), []byte(want)) == 1, nil
}

func (m *Machine) fail(ctx context.Context, a Attempt) {
	m.state = a.Next
	if m.state != StateChangeConfirm {
		m.candidate = ""
	}
	m.clear()
	m.report(a)
	m.feedback.Failure(ctx, m.delay)
}

func (m *Machine) report(a Attempt) {
	if m.onAttempt != nil {
		m.onAttempt(a)
	}
}

func (m *Machine) clear() {
	for i := range m.buf {
		m.buf[i] = 0
	}
	m.buf = m.buf[:0]
}

// delayOnly shows nothing but still enforces the lockout.
type delayOnly struct{}

func (delayOnly) KeyAccepted()   {}
func (delayOnly) Success()       {}
func (delayOnly) AdminMode(bool) {}

func (delayOnly) Failure(ctx context.Context, delay time.Duration) {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

var _ keypad.KeyHandler = (*Machine)(nil)
