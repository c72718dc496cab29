package door

import (
	"errors"
	"time"
)

// Door timing.
const (
	// DefaultDuration is how long the door stays open without a stored value.
	DefaultDuration = 10 * time.Second

	// MinDuration is the shortest accepted open duration.
	MinDuration = time.Second

	// IntentQueueCapacity is the capacity of the intent queue.
	IntentQueueCapacity = 1
)

// Rejections and errors.
var (
	ErrAlreadyOpen   = errors.New("door already open")
	ErrAlreadyClosed = errors.New("door already closed")
	ErrUnknownIntent = errors.New("unknown door intent")
)

// State is the door state.
type State uint8

const (
	StateClosed State = iota
	StateOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Intent is a request to change the door state.
type Intent uint8

const (
	IntentOpen Intent = iota
	IntentClose
)

// String returns a human-readable intent name.
func (i Intent) String() string {
	switch i {
	case IntentOpen:
		return "OPEN"
	case IntentClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// Cause says what triggered a state change.
type Cause uint8

const (
	// CauseIntent is an open or close intent from the queue.
	CauseIntent Cause = iota

	// CauseAutoClose is the auto-close timer expiring.
	CauseAutoClose

	// CauseShutdown is the door worker stopping with the door open.
	CauseShutdown
)

// String returns a human-readable cause name.
func (c Cause) String() string {
	switch c {
	case CauseIntent:
		return "INTENT"
	case CauseAutoClose:
		return "AUTO_CLOSE"
	case CauseShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// Change describes one state transition.
type Change struct {
	From  State
	To    State
	Cause Cause

	// Duration is the auto-close duration for transitions to StateOpen.
	Duration time.Duration
}
