// Package xerrors defines the closed error-kind taxonomy the runtime uses
// to classify failures at every boundary (spec §7): InvalidArgument,
// NotFound, NoMemory, Busy, LoadFailure, InitFailure, Transient. Kinds wrap
// an underlying cause with github.com/pkg/errors so ERROR-level log lines
// carry a stack trace back to the point of failure.
package xerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the closed set of error categories the façade converts
// into negative errno-class integers or boolean returns.
type Kind int

const (
	KindNone Kind = iota
	KindInvalidArgument
	KindNotFound
	KindNoMemory
	KindBusy
	KindLoadFailure
	KindInitFailure
	KindTransient
)

var kindNames = [...]string{
	KindNone:            "none",
	KindInvalidArgument:  "invalid_argument",
	KindNotFound:         "not_found",
	KindNoMemory:         "no_memory",
	KindBusy:             "busy",
	KindLoadFailure:      "load_failure",
	KindInitFailure:      "init_failure",
	KindTransient:        "transient",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Errno is the negative errno-class integer associated with each kind, for
// use in exec_command's synchronous reject path (spec §4.3 / §7).
func (k Kind) Errno() int {
	switch k {
	case KindInvalidArgument:
		return -22 // EINVAL
	case KindNotFound:
		return -2 // ENOENT
	case KindNoMemory:
		return -12 // ENOMEM
	case KindBusy:
		return -16 // EBUSY
	case KindLoadFailure:
		return -38 // ENOSYS (closest stand-in: plugin/factory unavailable)
	case KindInitFailure:
		return -5 // EIO
	case KindTransient:
		return -11 // EAGAIN
	default:
		return -1 // EPERM as a generic catch-all
	}
}

// kindError attaches a Kind to a wrapped error so callers can recover it
// with As without string-matching messages.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }
func (e *kindError) Kind() Kind    { return e.kind }

// New creates a kind-tagged error with a stack trace attached at the call site.
func New(kind Kind, msg string) error {
	return &kindError{kind: kind, err: errors.New(msg)}
}

// Newf is New with printf-style formatting.
func Newf(kind Kind, format string, args ...any) error {
	return &kindError{kind: kind, err: errors.New(fmt.Sprintf(format, args...))}
}

// Wrap attaches kind and a stack trace to an existing error, with
// printf-style formatting for the added context. Returns nil if err is nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: errors.Wrap(err, fmt.Sprintf(format, args...))}
}

// KindOf extracts the Kind from err, walking wrapped errors. Returns
// KindNone if err is nil or carries no kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindNone
}

// Errno converts err into the negative errno-class integer the façade's
// exec_command / create_object contract expects. Unclassified errors map
// to a generic -1.
func Errno(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).Errno()
}

// StackTrace formats the outermost stack trace carried by err (the first
// one errors.As finds walking the wrap chain), for ERROR-level
// logging. Returns "" if none is attached.
func StackTrace(err error) string {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%+v", st.StackTrace())
	}
	return ""
}
