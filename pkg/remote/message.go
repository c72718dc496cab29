package remote

import (
	"errors"
	"fmt"
)

// Operation is a request operation.
type Operation uint8

const (
	OpRead  Operation = 1
	OpWrite Operation = 2
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// Attribute identifies the target of an operation.
type Attribute uint16

// AttrAccessPIN is the access PIN record. It is write-only.
const AttrAccessPIN Attribute = 1

// Status is a response status code.
type Status uint8

const (
	// StatusSuccess indicates the write was applied.
	StatusSuccess Status = 0

	// StatusWriteNotPermitted indicates the door is closed.
	StatusWriteNotPermitted Status = 1

	// StatusUnsupported indicates an unknown operation or attribute, or a
	// value of the wrong length.
	StatusUnsupported Status = 2

	// StatusInvalidMessage indicates the request could not be decoded.
	StatusInvalidMessage Status = 3

	// StatusFailure indicates the terminal could not store the value.
	StatusFailure Status = 4
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusWriteNotPermitted:
		return "WRITE_NOT_PERMITTED"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusInvalidMessage:
		return "INVALID_MESSAGE"
	case StatusFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Err returns the sentinel error for s, or nil for StatusSuccess.
func (s Status) Err() error {
	switch s {
	case StatusSuccess:
		return nil
	case StatusWriteNotPermitted:
		return ErrWriteNotPermitted
	case StatusUnsupported:
		return ErrUnsupported
	case StatusInvalidMessage:
		return ErrInvalidMessage
	default:
		return fmt.Errorf("remote: %s", s)
	}
}

// Remote errors.
var (
	ErrWriteNotPermitted = errors.New("remote: write not permitted while door is closed")
	ErrUnsupported       = errors.New("remote: unsupported")
	ErrInvalidMessage    = errors.New("remote: invalid message")
)

// Request is a client request.
type Request struct {
	MessageID uint32    `cbor:"1,keyasint"`
	Operation Operation `cbor:"2,keyasint"`
	Attribute Attribute `cbor:"3,keyasint"`
	Payload   []byte    `cbor:"4,keyasint,omitempty"`
}

// Validate checks the request envelope. Unknown operations are not an
// envelope error; they get StatusUnsupported.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return fmt.Errorf("%w: message ID 0 is reserved", ErrInvalidMessage)
	}
	return nil
}

// Response answers a Request.
type Response struct {
	MessageID uint32 `cbor:"1,keyasint"`
	Status    Status `cbor:"2,keyasint"`
}
