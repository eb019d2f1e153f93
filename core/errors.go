package core

import "github.com/pkg/errors"

var (
	// ErrForbidden is returned when the acting user may not perform an operation.
	ErrForbidden = errors.New("permission denied")

	// ErrPermissionDenied is returned by a DocumentDB when the remote refuses access to a collection.
	ErrPermissionDenied = errors.New("remote permission denied")

	// ErrDocNotFound is returned by a DocumentDB when a document does not exist.
	ErrDocNotFound = errors.New("document not found")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// SyncError describes a failed remote operation on a collection.
type SyncError struct {
	Collection string
	Op         string
	Err        error
}

func (err *SyncError) Error() string {
	return err.Op + " " + err.Collection + ": " + err.Err.Error()
}

func (err *SyncError) Cause() error { return err.Err }

// IsPermissionDenied reports whether err was caused by the remote refusing access.
func IsPermissionDenied(err error) bool {
	return errors.Cause(err) == ErrPermissionDenied
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
