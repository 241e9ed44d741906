// Package apperr defines the closed set of failure kinds the importer branches on.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

// Failure kinds.
const (
	KindUnknown Kind = iota
	// KindStructural means an expected HTML element is absent: the site layout changed.
	KindStructural
	// KindDataFormat means an element is present but its content cannot be parsed.
	KindDataFormat
	// KindNetwork means a fetch or publish call failed.
	KindNetwork
	// KindDurability means the dedup store could not persist a record.
	KindDurability
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrStructural = errors.New("structural parse error")
	ErrDataFormat = errors.New("data format error")
	ErrNetwork    = errors.New("network error")
	ErrDurability = errors.New("durability error")
)

// String returns the kind name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindDataFormat:
		return "data_format"
	case KindNetwork:
		return "network"
	case KindDurability:
		return "durability"
	}

	return "unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case KindStructural:
		return ErrStructural
	case KindDataFormat:
		return ErrDataFormat
	case KindNetwork:
		return ErrNetwork
	case KindDurability:
		return ErrDurability
	}

	return errUnknown
}

var errUnknown = errors.New("error")

// Error carries a kind, the operation or selector path that failed, and an optional cause.
type Error struct {
	Err  error
	Op   string
	Kind Kind
}

// New returns an error of the given kind without an underlying cause.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap returns an error of the given kind wrapping err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind.sentinel(), e.Op)
	}

	return fmt.Sprintf("%s: %s: %v", e.Kind.sentinel(), e.Op, e.Err)
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()

	return s != errUnknown && target == s
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}
