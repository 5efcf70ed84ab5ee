// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Validation errors.
var (
	// ErrInvalidInput indicates a required identifier or argument is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownOperation indicates a tool or command named an operation that does not exist.
	ErrUnknownOperation = errors.New("unknown operation")
)

// Storage errors.
var (
	// ErrStorageUnavailable indicates the durable store failed. Callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInstanceLocked indicates another bot instance owns the database.
	ErrInstanceLocked = errors.New("instance lock held by another process")
)

// Buffer errors.
var (
	// ErrBufferEmpty indicates there is nothing buffered for the chat.
	ErrBufferEmpty = errors.New("buffer empty")
)

// Platform errors.
var (
	// ErrGatewayUnavailable indicates the messaging platform call failed.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrClientNotInitialized indicates a client has not been initialized.
	ErrClientNotInitialized = errors.New("client not initialized")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
