package invoice

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines invoice pipeline error kinds.
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindNotFound             ErrorKind = "not_found"
	KindLoad                 ErrorKind = "load"
	KindBinding              ErrorKind = "binding"
	KindExport               ErrorKind = "export"
	KindClipboardUnsupported ErrorKind = "clipboard_unsupported"
	KindShareUnsupported     ErrorKind = "share_unsupported"
	KindBusy                 ErrorKind = "busy"
	KindExternal             ErrorKind = "external"
	KindTimeout              ErrorKind = "timeout"
	KindCanceled             ErrorKind = "canceled"
	KindInternal             ErrorKind = "internal"
	KindNotImpl              ErrorKind = "not_implemented"
)

// Error wraps errors with a kind. Status carries the upstream HTTP status
// for load failures.
type Error struct {
	Kind   ErrorKind
	Msg    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new invoice error.
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// NewLoadError creates a load error carrying the fetch status.
func NewLoadError(msg string, status int, err error) *Error {
	return &Error{Kind: KindLoad, Msg: msg, Status: status, Err: err}
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	kind := KindFromError(err)
	msg := err.Error()

	var invErr *Error
	if errors.As(err, &invErr) && invErr.Msg != "" {
		msg = invErr.Msg
	}

	switch kind {
	case KindValidation, KindBinding:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode(string(kind))
	case KindNotFound:
		return errorslib.New(msg, errorslib.CategoryNotFound).WithTextCode("not_found")
	case KindLoad, KindExternal:
		return errorslib.New(msg, errorslib.CategoryExternal).WithTextCode(string(kind))
	case KindBusy, KindClipboardUnsupported, KindShareUnsupported, KindTimeout, KindCanceled, KindNotImpl:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode(string(kind))
	case KindExport:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("export")
	default:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("internal")
	}
}

// KindFromError maps an error to its kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var invErr *Error
	if errors.As(err, &invErr) {
		return invErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	return KindInternal
}

// LoadStatus returns the HTTP status attached to a load error, or zero.
func LoadStatus(err error) int {
	var invErr *Error
	if errors.As(err, &invErr) && invErr.Kind == KindLoad {
		return invErr.Status
	}
	return 0
}

// IsBusy reports whether err rejected an operation because another one is in flight.
func IsBusy(err error) bool {
	return KindFromError(err) == KindBusy
}

// IsClipboardUnsupported reports whether err signals a missing clipboard capability.
func IsClipboardUnsupported(err error) bool {
	return KindFromError(err) == KindClipboardUnsupported
}
