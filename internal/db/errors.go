package db

import (
	"errors"
	"fmt"
)

// Kind classifies storage failures so callers can branch without parsing text.
type Kind int

const (
	KindUnknown Kind = iota
	KindAlreadyOpen
	KindNotConfigured
	KindNotOpen
	KindFilesystem
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyOpen:
		return "AlreadyOpen"
	case KindNotConfigured:
		return "NotConfigured"
	case KindNotOpen:
		return "NotOpen"
	case KindFilesystem:
		return "FilesystemError"
	case KindBackend:
		return "BackendError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinel errors, one per Kind. Use errors.Is(err, ErrNotOpen) etc.
var (
	ErrAlreadyOpen   = errors.New("database already open")
	ErrNotConfigured = errors.New("no location specified")
	ErrNotOpen       = errors.New("database is not open")
	ErrFilesystem    = errors.New("filesystem error")
	ErrBackend       = errors.New("database error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindAlreadyOpen:
		return ErrAlreadyOpen
	case KindNotConfigured:
		return ErrNotConfigured
	case KindNotOpen:
		return ErrNotOpen
	case KindFilesystem:
		return ErrFilesystem
	case KindBackend:
		return ErrBackend
	default:
		return nil
	}
}

// Error is the error type returned by every DB operation.
type Error struct {
	Kind Kind
	Op   string // what was being attempted, e.g. "insert reading"
	Err  error  // underlying OS or backend error, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel()
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "" && msg != nil:
		return fmt.Sprintf("%s: %v", e.Op, msg)
	case msg != nil:
		return msg.Error()
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
