package persistence

import (
	"context"
	"errors"
	"fmt"
)

// Namespace is the namespace the terminal's records live in.
const Namespace = "keypad"

// MaxStringLength bounds string record values.
const MaxStringLength = 64

// Store errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrTypeMismatch = errors.New("record has a different type")
	ErrTooLong      = errors.New("record value too long")
	ErrClosed       = errors.New("store closed")
)

// Store is a namespaced key/value record store.
//
// Writes may be staged until Commit; whether a backend makes each write
// durable immediately is backend specific. Implementations are safe for
// concurrent use.
type Store interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string) error
	GetUint(ctx context.Context, key string) (uint64, error)
	SetUint(ctx context.Context, key string, value uint64) error

	// Commit makes all staged writes durable.
	Commit(ctx context.Context) error

	Close() error
}

// Kind is the type of a record.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindUint
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindUint:
		return "uint"
	default:
		return "unknown"
	}
}

// record is one stored value.
type record struct {
	Kind Kind   `json:"kind"`
	Str  string `json:"str,omitempty"`
	Uint uint64 `json:"uint,omitempty"`
}

func (r record) asString(key string) (string, error) {
	if r.Kind != KindString {
		return "", fmt.Errorf("%w: %s is %s", ErrTypeMismatch, key, r.Kind)
	}
	return r.Str, nil
}

func (r record) asUint(key string) (uint64, error) {
	if r.Kind != KindUint {
		return 0, fmt.Errorf("%w: %s is %s", ErrTypeMismatch, key, r.Kind)
	}
	return r.Uint, nil
}

func checkString(key, value string) error {
	if len(value) > MaxStringLength {
		return fmt.Errorf("%w: %s has %d bytes", ErrTooLong, key, len(value))
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}
