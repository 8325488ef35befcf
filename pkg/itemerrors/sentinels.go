// Package itemerrors defines the error taxonomy shared by every layer of
// itemcore: a closed set of sentinel values adapters and commands compare
// against with errors.Is, plus the rich error structs in errors.go that
// carry the HTTP-style status code and optional field messages back to the
// caller.
package itemerrors

import "errors"

// Sentinel values. Adapters and the core compare against these with
// errors.Is; the rich structs in errors.go wrap them for callers that want
// a status code and message instead of a bare sentinel.
var (
	ErrConflict            = errors.New("item already exists")
	ErrPreconditionFailed  = errors.New("etag mismatch")
	ErrNotFound            = errors.New("item not found")
	ErrBadRequest          = errors.New("malformed request")
	ErrServiceUnavailable  = errors.New("store temporarily unavailable")
	ErrInternal            = errors.New("internal store error")
	ErrValidation          = errors.New("validation failed")
	ErrFailedDependency    = errors.New("sibling operation in the same batch failed")
	ErrNotSupported        = errors.New("operation not supported by this provider")
	ErrCancelled           = errors.New("operation cancelled")
	ErrReadOnly            = errors.New("item is read-only")
	ErrAlreadySaved        = errors.New("command already finalized")
	ErrAlreadyConverted    = errors.New("read result already converted to a save command")
	ErrInvalidType         = errors.New("invalid type name")
)
