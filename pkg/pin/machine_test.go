package pin

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impterm/impterm-go/pkg/keypad"
)

type fakeDoor struct {
	open   bool
	opens  int
	closes int
}

func (d *fakeDoor) IsOpen() bool { return d.open }

func (d *fakeDoor) RequestOpen(context.Context) error {
	d.opens++
	d.open = true
	return nil
}

func (d *fakeDoor) RequestClose(context.Context) error {
	d.closes++
	d.open = false
	return nil
}

type fakeCreds struct {
	access string
	admin  string
	reads  int
	writes int
	err    error
}

func (c *fakeCreds) AccessPIN(context.Context) (string, error) {
	c.reads++
	return c.access, c.err
}

func (c *fakeCreds) AdminPIN(context.Context) (string, error) {
	c.reads++
	return c.admin, c.err
}

func (c *fakeCreds) SetAccessPIN(_ context.Context, p string) error {
	if c.err != nil {
		return c.err
	}
	c.writes++
	c.access = p
	return nil
}

type recordFeedback struct {
	accepted  int
	successes int
	failures  []time.Duration
	admin     []bool
}

func (f *recordFeedback) KeyAccepted() { f.accepted++ }
func (f *recordFeedback) Success()     { f.successes++ }
func (f *recordFeedback) Failure(_ context.Context, d time.Duration) {
	f.failures = append(f.failures, d)
}
func (f *recordFeedback) AdminMode(on bool) { f.admin = append(f.admin, on) }

type fixture struct {
	m        *Machine
	door     *fakeDoor
	creds    *fakeCreds
	feedback *recordFeedback
	attempts []Attempt
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		door:     &fakeDoor{},
		creds:    &fakeCreds{access: "1234", admin: "00000000"},
		feedback: &recordFeedback{},
	}
	m, err := NewMachine(Config{
		Door:          f.door,
		Credentials:   f.creds,
		Feedback:      f.feedback,
		SecurityDelay: time.Second,
		OnAttempt:     func(a Attempt) { f.attempts = append(f.attempts, a) },
	})
	require.NoError(t, err)
	f.m = m
	return f
}

func (f *fixture) press(t *testing.T, keys string) {
	t.Helper()
	for _, r := range keys {
		require.NoError(t, f.m.HandleKey(context.Background(), keypad.Key(r)))
	}
}

func (f *fixture) lastAttempt(t *testing.T) Attempt {
	t.Helper()
	require.NotEmpty(t, f.attempts)
	return f.attempts[len(f.attempts)-1]
}

func TestCorrectAccessPINOpensDoor(t *testing.T) {
	f := newFixture(t)

	f.press(t, "1234#")

	assert.Equal(t, 1, f.door.opens)
	assert.True(t, f.door.open)
	assert.Equal(t, 1, f.feedback.successes)
	assert.Empty(t, f.feedback.failures)
	assert.Equal(t, StateAuth, f.m.State())
	assert.Zero(t, f.m.Buffered())
	assert.True(t, f.lastAttempt(t).OK())
}

func TestWrongAccessPINBacksOff(t *testing.T) {
	f := newFixture(t)

	f.press(t, "0000#")

	assert.Zero(t, f.door.opens)
	assert.Equal(t, []time.Duration{time.Second}, f.feedback.failures)
	assert.Equal(t, StateAuth, f.m.State())
	assert.Zero(t, f.m.Buffered())
	assert.ErrorIs(t, f.lastAttempt(t).Err, ErrWrongPIN)
}

func TestShortSubmissionSkipsStore(t *testing.T) {
	for _, entry := range []string{"", "1", "12", "123"} {
		t.Run("len"+string(rune('0'+len(entry))), func(t *testing.T) {
			f := newFixture(t)

			f.press(t, entry+"#")

			assert.Zero(t, f.creds.reads, "store must not be read")
			assert.Zero(t, f.door.opens)
			assert.Len(t, f.feedback.failures, 1)
			assert.ErrorIs(t, f.lastAttempt(t).Err, ErrWrongPIN)
		})
	}
}

func TestOverflowFailsAtBoundary(t *testing.T) {
	f := newFixture(t)

	f.press(t, strings.Repeat("5", MaxLength))
	assert.Equal(t, MaxLength, f.m.Buffered())
	assert.Empty(t, f.feedback.failures)

	f.press(t, "5")
	assert.Zero(t, f.m.Buffered())
	assert.Len(t, f.feedback.failures, 1)
	assert.Equal(t, StateAuth, f.m.State())
	a := f.lastAttempt(t)
	assert.ErrorIs(t, a.Err, ErrOverflow)
	assert.Equal(t, MaxLength+1, a.Length)
}

func TestSecondOpenWhileOpenBecomesClose(t *testing.T) {
	f := newFixture(t)

	f.press(t, "1234#")
	require.True(t, f.door.open)

	// Every key while open is a close request, not PIN input.
	f.press(t, "1")
	assert.Equal(t, 1, f.door.closes)
	assert.Equal(t, 1, f.door.opens)
	assert.Zero(t, f.m.Buffered())
}

func TestChangePINRoundTrip(t *testing.T) {
	f := newFixture(t)

	f.press(t, "*")
	assert.Equal(t, StateChangeAuth, f.m.State())

	f.press(t, "00000000#")
	assert.Equal(t, StateChangeEnterNew, f.m.State())
	assert.Equal(t, []bool{true}, f.feedback.admin)

	f.press(t, "98765#")
	assert.Equal(t, StateChangeConfirm, f.m.State())
	assert.Zero(t, f.creds.writes)

	f.press(t, "98765#")
	assert.Equal(t, StateAuth, f.m.State())
	assert.Equal(t, 1, f.creds.writes)
	assert.Equal(t, "98765", f.creds.access)
	assert.Equal(t, []bool{true, false}, f.feedback.admin)
	assert.Equal(t, 3, f.feedback.successes)

	f.press(t, "1234#")
	assert.Zero(t, f.door.opens, "old PIN must be rejected")
	assert.ErrorIs(t, f.lastAttempt(t).Err, ErrWrongPIN)

	f.press(t, "98765#")
	assert.Equal(t, 1, f.door.opens)
}

func TestWrongAdminPINReturnsToAuth(t *testing.T) {
	f := newFixture(t)

	f.press(t, "*1234#")

	assert.Equal(t, StateAuth, f.m.State())
	assert.Len(t, f.feedback.failures, 1)
	assert.Empty(t, f.feedback.admin)
}

func TestNewPINTooShortStaysAndClears(t *testing.T) {
	f := newFixture(t)
	f.press(t, "*00000000#")

	f.press(t, "12#")

	assert.Equal(t, StateChangeEnterNew, f.m.State())
	assert.Zero(t, f.m.Buffered())
	assert.ErrorIs(t, f.lastAttempt(t).Err, ErrTooShort)

	// A fresh entry after the failure is not polluted by the short one.
	f.press(t, "5555#5555#")
	assert.Equal(t, "5555", f.creds.access)
}

func TestConfirmMismatchReturnsToEnterNew(t *testing.T) {
	f := newFixture(t)
	f.press(t, "*00000000#4321#")

	f.press(t, "4322#")

	assert.Equal(t, StateChangeEnterNew, f.m.State())
	assert.Zero(t, f.creds.writes)
	assert.ErrorIs(t, f.lastAttempt(t).Err, ErrMismatch)
	assert.Equal(t, []bool{true}, f.feedback.admin, "still in admin mode")
}

func TestChangeKeyAbortsChange(t *testing.T) {
	f := newFixture(t)
	f.press(t, "*00000000#4321#")

	f.press(t, "43*")

	assert.Equal(t, StateChangeAuth, f.m.State())
	assert.Zero(t, f.m.Buffered())
	assert.Equal(t, []bool{true, false}, f.feedback.admin)

	// Starting over requires the admin PIN and a fresh candidate.
	f.press(t, "00000000#4321#")
	assert.Equal(t, StateChangeConfirm, f.m.State())
}

func TestStoreErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	f.creds.err = errors.New("flash read failed")

	for _, r := range "1234" {
		require.NoError(t, f.m.HandleKey(context.Background(), keypad.Key(r)))
	}
	err := f.m.HandleKey(context.Background(), keypad.KeySubmit)
	assert.ErrorIs(t, err, f.creds.err)
}

func TestDefaultFeedbackHoldsDelay(t *testing.T) {
	m, err := NewMachine(Config{
		Door:          &fakeDoor{},
		Credentials:   &fakeCreds{access: "1234"},
		SecurityDelay: 30 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	for _, r := range "9999#" {
		require.NoError(t, m.HandleKey(context.Background(), keypad.Key(r)))
	}
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		pin     string
		wantErr bool
	}{
		{"1234", false},
		{"1234567890", false},
		{"123", true},
		{"12345678901", true},
		{"12a4", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.pin, func(t *testing.T) {
			err := Validate(tt.pin)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPIN)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AUTH", StateAuth.String())
	assert.Equal(t, "CHANGE_CONFIRM", StateChangeConfirm.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}
