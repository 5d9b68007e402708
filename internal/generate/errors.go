package generate

import (
	"errors"
	"fmt"
)

// ErrSinkClosed is returned by Sink.Push once the consumer has gone away.
// It ends a run early but is not a generation failure.
var ErrSinkClosed = errors.New("stream sink closed")

// Kind classifies generation failures.
type Kind int

const (
	KindEncoding Kind = iota + 1
	KindDecoding
	KindInference
	KindLock
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindEncoding:
		return "encoding"
	case KindDecoding:
		return "decoding"
	case KindInference:
		return "inference"
	case KindLock:
		return "lock"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error: " + e.Op
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind. A nil err still produces an error so callers
// can report conditions that have no underlying cause.
func NewError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return 0, false
}

func isKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// IsEncoding reports whether err is a prompt tokenization failure.
func IsEncoding(err error) bool { return isKind(err, KindEncoding) }

// IsDecoding reports whether err is a detokenization failure.
func IsDecoding(err error) bool { return isKind(err, KindDecoding) }

// IsInference reports whether err is a forward-pass or sampling failure.
func IsInference(err error) bool { return isKind(err, KindInference) }

// IsLock reports whether the shared model handle could not be acquired.
func IsLock(err error) bool { return isKind(err, KindLock) }

// IsPersistence reports whether a finished turn could not be stored.
func IsPersistence(err error) bool { return isKind(err, KindPersistence) }
