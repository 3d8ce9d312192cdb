// Package errs defines the closed set of failure kinds the order backend
// reports. Transport layers switch on Kind, never on message text.
package errs

import "errors"

type Kind int

const (
	// StoreFailure is the zero value so unclassified errors map to it.
	StoreFailure Kind = iota
	NotFound
	ValidationConflict
	UniquenessConflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case ValidationConflict:
		return "validation_conflict"
	case UniquenessConflict:
		return "uniqueness_conflict"
	default:
		return "store_failure"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

type kinded interface {
	ErrorKind() Kind
}

// KindOf classifies err by the outermost error in its chain that reports a
// kind. Anything else is a StoreFailure.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return StoreFailure
}

func (e *Error) ErrorKind() Kind {
	return e.Kind
}
