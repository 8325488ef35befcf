package itemerrors

import (
	"errors"
	"fmt"
)

// FieldMessages maps a field name to the validation messages raised
// against it. Carried in CoreError.Fields by Validation to report which
// properties failed.
type FieldMessages map[string][]string

// CoreError is the rich error type returned to callers. Every taxonomy
// member in spec §7 is represented as a distinct constructor below; all of
// them produce a *CoreError so callers can type-switch on Kind or just
// call StatusCode().
type CoreError struct {
	Kind    string
	Status  int
	Title   string
	Message string
	Fields  FieldMessages
	Err     error
}

func (e *CoreError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return e.Kind
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP-style status code from spec §6/§7.
func (e *CoreError) StatusCode() int {
	return e.Status
}

func newError(kind string, status int, title string, sentinel error, fields FieldMessages) *CoreError {
	return &CoreError{
		Kind:    kind,
		Status:  status,
		Title:   title,
		Message: sentinel.Error(),
		Fields:  fields,
		Err:     sentinel,
	}
}

// Validation wraps ErrValidation with a per-field message map and a 400
// status, per spec §7.
func Validation(fields FieldMessages) *CoreError {
	e := newError("Validation", 400, "Validation Failed", ErrValidation, fields)
	if len(fields) > 0 {
		e.Message = fmt.Sprintf("validation failed for %d field(s)", len(fields))
	}

	return e
}

// BadRequest wraps ErrBadRequest with a 400 status.
func BadRequest(message string) *CoreError {
	e := newError("BadRequest", 400, "Bad Request", ErrBadRequest, nil)
	if message != "" {
		e.Message = message
	}

	return e
}

// NotFound wraps ErrNotFound with a 404 status.
func NotFound(entityType string) *CoreError {
	e := newError("NotFound", 404, "Entity Not Found", ErrNotFound, nil)
	if entityType != "" {
		e.Message = fmt.Sprintf("%s not found", entityType)
	}

	return e
}

// Conflict wraps ErrConflict with a 409 status.
func Conflict(message string) *CoreError {
	e := newError("Conflict", 409, "Conflict", ErrConflict, nil)
	if message != "" {
		e.Message = message
	}

	return e
}

// PreconditionFailed wraps ErrPreconditionFailed with a 412 status.
func PreconditionFailed(message string) *CoreError {
	e := newError("PreconditionFailed", 412, "Precondition Failed", ErrPreconditionFailed, nil)
	if message != "" {
		e.Message = message
	}

	return e
}

// FailedDependency wraps ErrFailedDependency with a 424 status; only used
// for batch sibling rows per spec §7.
func FailedDependency() *CoreError {
	return newError("FailedDependency", 424, "Failed Dependency", ErrFailedDependency, nil)
}

// NotSupported wraps ErrNotSupported with a 405 status.
func NotSupported(operation string) *CoreError {
	e := newError("NotSupported", 405, "Not Supported", ErrNotSupported, nil)
	if operation != "" {
		e.Message = fmt.Sprintf("operation %s is not supported by this provider", operation)
	}

	return e
}

// Cancelled wraps ErrCancelled; surfaced unchanged to the caller.
func Cancelled() *CoreError {
	return newError("Cancelled", 499, "Cancelled", ErrCancelled, nil)
}

// ServiceUnavailable builds a 503 error. With a nil err it wraps
// ErrServiceUnavailable; a non-nil err replaces that sentinel as the
// wrapped error and supplies the message.
func ServiceUnavailable(err error) *CoreError {
	e := newError("ServiceUnavailable", 503, "Service Unavailable", ErrServiceUnavailable, nil)
	if err != nil {
		e.Err = err
		e.Message = err.Error()
	}

	return e
}

// Internal builds a 500 error carrying the underlying adapter error
// unchanged per spec §7. With a nil err it wraps ErrInternal; a non-nil
// err replaces that sentinel as the wrapped error.
func Internal(err error) *CoreError {
	e := newError("Internal", 500, "Internal Server Error", ErrInternal, nil)
	if err != nil {
		e.Err = err
		e.Message = err.Error()
	}

	return e
}

// Caller-misuse errors. These are still CoreErrors so errors.As keeps
// working, but spec §7 treats them as programmer errors rather than
// domain errors - they are never returned by an adapter, only raised by
// the core itself against a misused command or registration.

// ReadOnly reports a set-accessor call against a read-only proxy view.
func ReadOnly() *CoreError {
	return newError("ReadOnly", 409, "Read Only", ErrReadOnly, nil)
}

// AlreadySaved reports a Save call on a command that already finalized.
func AlreadySaved() *CoreError {
	return newError("AlreadySaved", 409, "Already Saved", ErrAlreadySaved, nil)
}

// AlreadyConverted reports a second Update/Delete call on a ReadResult.
func AlreadyConverted() *CoreError {
	return newError("AlreadyConverted", 409, "Already Converted", ErrAlreadyConverted, nil)
}

// InvalidType reports a provider registration with a malformed typeName.
func InvalidType(typeName string) *CoreError {
	e := newError("InvalidType", 400, "Invalid Type", ErrInvalidType, nil)
	e.Message = fmt.Sprintf("typeName %q does not satisfy the naming rule", typeName)

	return e
}

// Is lets errors.Is(err, itemerrors.ErrNotFound) work against a *CoreError
// built by the constructors above without requiring callers to know the
// wrapped sentinel.
func (e *CoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
