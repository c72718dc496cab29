package log

import "time"

// Event is one access event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the terminal run that produced the event (UUID).
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Source is the component that produced the event.
	Source Source `cbor:"3,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"4,keyasint"`

	// ConnectionID identifies the remote connection (remote events only).
	ConnectionID string `cbor:"5,keyasint,omitempty"`

	// RemoteAddr is the peer address (remote events only).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Key    *KeyEvent         `cbor:"10,keyasint,omitempty"`
	Auth   *AuthEvent        `cbor:"11,keyasint,omitempty"`
	Door   *DoorEvent        `cbor:"12,keyasint,omitempty"`
	Remote *RemoteWriteEvent `cbor:"13,keyasint,omitempty"`
	Error  *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Source identifies the component that produced an event.
type Source uint8

const (
	SourceKeypad Source = 0
	SourceDoor   Source = 1
	SourceRemote Source = 2
	SourceSystem Source = 3
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceKeypad:
		return "KEYPAD"
	case SourceDoor:
		return "DOOR"
	case SourceRemote:
		return "REMOTE"
	case SourceSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Category classifies events.
type Category uint8

const (
	// CategoryKey is a decoded key press.
	CategoryKey Category = 0
	// CategoryAuth is a PIN submission or overflow.
	CategoryAuth Category = 1
	// CategoryDoor is a door state change.
	CategoryDoor Category = 2
	// CategoryRemote is a remote write attempt.
	CategoryRemote Category = 3
	// CategoryError is an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryKey:
		return "KEY"
	case CategoryAuth:
		return "AUTH"
	case CategoryDoor:
		return "DOOR"
	case CategoryRemote:
		return "REMOTE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// KeyClass is what kind of key was pressed. The key itself is not recorded.
type KeyClass uint8

const (
	KeyClassDigit  KeyClass = 0
	KeyClassChange KeyClass = 1
	KeyClassSubmit KeyClass = 2
)

// String returns the key class name.
func (k KeyClass) String() string {
	switch k {
	case KeyClassDigit:
		return "DIGIT"
	case KeyClassChange:
		return "CHANGE"
	case KeyClassSubmit:
		return "SUBMIT"
	default:
		return "UNKNOWN"
	}
}

// KeyEvent records a decoded key press.
type KeyEvent struct {
	Class KeyClass `cbor:"1,keyasint"`

	// WhileOpen is set when the key was turned into a close request.
	WhileOpen bool `cbor:"2,keyasint,omitempty"`
}

// Result is the outcome of an attempt.
type Result uint8

const (
	ResultGranted Result = 0
	ResultDenied  Result = 1
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultGranted:
		return "GRANTED"
	case ResultDenied:
		return "DENIED"
	default:
		return "UNKNOWN"
	}
}

// AuthEvent records a PIN submission.
type AuthEvent struct {
	// State is the PIN entry state the submission was made in.
	State string `cbor:"1,keyasint"`

	// NextState is the state after the transition.
	NextState string `cbor:"2,keyasint"`

	// Length is the number of digits submitted.
	Length int `cbor:"3,keyasint"`

	Result Result `cbor:"4,keyasint"`

	// Reason explains a denial.
	Reason string `cbor:"5,keyasint,omitempty"`
}

// DoorEvent records a door state change.
type DoorEvent struct {
	OldState string `cbor:"1,keyasint"`
	NewState string `cbor:"2,keyasint"`

	// Cause is what triggered the change (intent, auto-close, shutdown).
	Cause string `cbor:"3,keyasint"`

	// Duration is the auto-close duration when opening.
	Duration *time.Duration `cbor:"4,keyasint,omitempty"`
}

// RemoteWriteEvent records a remote write attempt.
type RemoteWriteEvent struct {
	// Operation is the requested operation.
	Operation string `cbor:"1,keyasint"`

	// Attribute is the target attribute.
	Attribute uint16 `cbor:"2,keyasint"`

	// Length is the payload length in bytes.
	Length int `cbor:"3,keyasint"`

	// Status is the response status.
	Status string `cbor:"4,keyasint"`
}

// ErrorEventData captures errors from any component.
type ErrorEventData struct {
	Source Source `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
