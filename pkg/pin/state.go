package pin

import (
	"errors"
	"time"
)

// PIN length bounds.
const (
	MinLength = 4
	MaxLength = 10
)

// DefaultSecurityDelay is the lockout applied after a failed submission.
const DefaultSecurityDelay = 3 * time.Second

// State is the PIN entry sub-state.
type State uint8

const (
	// StateAuth expects the access PIN.
	StateAuth State = iota

	// StateChangeAuth expects the admin PIN.
	StateChangeAuth

	// StateChangeEnterNew expects the candidate access PIN.
	StateChangeEnterNew

	// StateChangeConfirm expects the candidate again.
	StateChangeConfirm
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAuth:
		return "AUTH"
	case StateChangeAuth:
		return "CHANGE_AUTH"
	case StateChangeEnterNew:
		return "CHANGE_ENTER_NEW"
	case StateChangeConfirm:
		return "CHANGE_CONFIRM"
	default:
		return "UNKNOWN"
	}
}

// Failure reasons reported through Attempt.Err.
var (
	ErrWrongPIN   = errors.New("pin: wrong PIN")
	ErrTooShort   = errors.New("pin: PIN too short")
	ErrOverflow   = errors.New("pin: PIN too long")
	ErrMismatch   = errors.New("pin: confirmation does not match")
	ErrInvalidPIN = errors.New("pin: invalid PIN")
)

// Attempt describes one submission or overflow.
// It never carries PIN digits.
type Attempt struct {
	// State is the state the submission was made in.
	State State

	// Next is the state after the transition.
	Next State

	// Length is the number of digits submitted.
	Length int

	// Err is nil on success, otherwise one of the failure reasons above.
	Err error
}

// OK reports whether the attempt succeeded.
func (a Attempt) OK() bool {
	return a.Err == nil
}

// Validate checks that p is a storable PIN: MinLength to MaxLength decimal
// digits.
func Validate(p string) error {
	if len(p) < MinLength || len(p) > MaxLength {
		return ErrInvalidPIN
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}
