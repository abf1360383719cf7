package namespace

import "errors"

// Error represents a domain error from namespace service operations.
//
// These are business logic errors (path not found, destination occupied,
// malformed metadata, etc.) as opposed to infrastructure errors such as a
// broken network connection, which implementations report with ErrUnavailable.
//
// The checker translates Error codes into its verdict taxonomy: NotFound and
// InvalidMetadata become FAILURE outcomes, never CORRUPT.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the namespace path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a namespace error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested path doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates an entry with the destination path already exists
	ErrAlreadyExists

	// ErrNotDirectory indicates the operation expected a directory but got a file
	ErrNotDirectory

	// ErrIsDirectory indicates the operation expected a file but got a directory
	ErrIsDirectory

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: empty path, relative path, rename across roots
	ErrInvalidArgument

	// ErrInvalidMetadata indicates the service returned structurally broken
	// metadata (e.g. a block with a negative declared length). Distinct from
	// any health condition: corrupt replicas are data, this is a fault.
	ErrInvalidMetadata

	// ErrUnavailable indicates the namespace service cannot be reached.
	// Once this surfaces mid-walk no partial result is trustworthy.
	ErrUnavailable

	// ErrIOError indicates an I/O error inside the service backend
	ErrIOError
)

// NewError builds an Error with the given code, message and path.
func NewError(code ErrorCode, message, path string) *Error {
	return &Error{Code: code, Message: message, Path: path}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// The second return is false when err is not a namespace Error.
func CodeOf(err error) (ErrorCode, bool) {
	var nsErr *Error
	if errors.As(err, &nsErr) {
		return nsErr.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err is a namespace not-found error.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrNotFound
}

// IsUnavailable reports whether err indicates an unreachable service.
func IsUnavailable(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrUnavailable
}

// IsInvalidMetadata reports whether err is a metadata-integrity fault.
func IsInvalidMetadata(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrInvalidMetadata
}
