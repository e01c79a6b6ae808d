package town

import "errors"

// Error codes for wire-level errors.
const (
	ErrCodeTownNotFound = "town_not_found"
	ErrCodeTownFull     = "town_full"
	ErrCodeTownClosed   = "town_closed"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
)

var (
	ErrTownFull    = errors.New("town is at capacity")
	ErrTownClosed  = errors.New("town is closed")
	ErrBadUsername = errors.New("username is required")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}
