// Package apperr defines the error taxonomy shared by the recording sync pipeline.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindUpstream Kind = "upstream"  // external platform non-2xx or malformed data
	KindStorage  Kind = "storage"   // object store operation failed
	KindTransfer Kind = "transfer"  // source fetch or multipart upload failed
	KindNotFound Kind = "not_found" // missing live production, session or source object
	KindDatabase Kind = "database"  // metadata store read/write failed
	KindAuth     Kind = "auth"      // token fetch or credentials rejected
	KindConfig   Kind = "config"    // required configuration missing
	KindInternal Kind = "internal"  // anything not classified above
)

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind Kind   `json:"kind"`
	Op   string `json:"op,omitempty"`
	Msg  string `json:"message"`
	Err  error  `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind without a cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap returns an error of the given kind wrapping err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf wraps err with a formatted message.
func Wrapf(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Upstream(op string, err error) *Error { return Wrap(KindUpstream, op, err) }
func Storage(op string, err error) *Error  { return Wrap(KindStorage, op, err) }
func Transfer(op string, err error) *Error { return Wrap(KindTransfer, op, err) }
func Database(op string, err error) *Error { return Wrap(KindDatabase, op, err) }
func Auth(op string, err error) *Error     { return Wrap(KindAuth, op, err) }

// NotFound returns a KindNotFound error with msg.
func NotFound(op, msg string) *Error { return New(KindNotFound, op, msg) }

// Config returns a KindConfig error with msg.
func Config(op, msg string) *Error { return New(KindConfig, op, msg) }

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// From returns err as an *Error, classifying unknown errors as KindInternal.
func From(op string, err error) *Error {
	if e, ok := As(err); ok {
		return e
	}
	return Wrap(KindInternal, op, err)
}

// KindOf returns the Kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFatal reports whether err must abort a whole invocation rather than a single session.
func IsFatal(err error) bool {
	k := KindOf(err)
	return k == KindAuth || k == KindConfig
}
