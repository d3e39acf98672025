package grovedb

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy GroveDB's operations can fail with.
type Kind uint8

const (
	KindNotFound Kind = iota
	KindCorrupted
	KindInvalidInput
	KindInvalidParameter
	KindOverrideNotAllowed
	KindInvalidProof
	KindChunkRestoring
	KindBidirectionalReferenceRule
	KindStorage
	KindCostExceeded
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindCorrupted:
		return "corrupted"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindOverrideNotAllowed:
		return "override_not_allowed"
	case KindInvalidProof:
		return "invalid_proof"
	case KindChunkRestoring:
		return "chunk_restoring"
	case KindBidirectionalReferenceRule:
		return "bidirectional_reference_rule"
	case KindStorage:
		return "storage"
	case KindCostExceeded:
		return "cost_exceeded"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with the operation that failed and the
// taxonomy bucket it falls into, compatible with errors.Is/
// errors.As via Unwrap.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("grovedb: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("grovedb: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// newErr wraps err as a *Error tagged with op and kind, or returns nil if
// err is nil.
func newErr(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsNotFound reports whether err (or something it wraps) is a KindNotFound
// Error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}
