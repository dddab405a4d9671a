package vocab

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that translate results into
// transport-level responses.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors that carry no Kind.
	KindUnknown Kind = iota
	// KindNotFound: missing course, vocab file, snapshot or item.
	KindNotFound
	// KindInvalidInput: malformed filename, snapshot id, schema or range.
	KindInvalidInput
	// KindConflict: duplicate course name.
	KindConflict
	// KindStorageFailure: backend I/O not attributable to caller input.
	KindStorageFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidInput:
		return "invalid input"
	case KindConflict:
		return "conflict"
	case KindStorageFailure:
		return "storage failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching. Every *Error matches the sentinel of its Kind.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrStorageFailure = errors.New("storage failure")
)

// Error is the typed error returned across the package boundary.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "load vocab"
	Msg  string // caller-facing description
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) and friends match on Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrStorageFailure:
		return e.Kind == KindStorageFailure
	}
	return false
}

// NotFound builds a KindNotFound error.
func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error.
func Conflict(op, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// StorageFailure wraps a backend error. Errors that already carry a Kind
// are returned unchanged so NotFound from a backend stays NotFound.
func StorageFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindStorageFailure, Op: op, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns a message safe to show to the end user. Storage
// failures and untyped errors collapse to a generic text so backend paths
// and driver messages never leave the process.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "internal error"
	}
	switch e.Kind {
	case KindNotFound, KindInvalidInput, KindConflict:
		if e.Msg != "" {
			return e.Msg
		}
		return e.Kind.String()
	default:
		return "storage failure"
	}
}
