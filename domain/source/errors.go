package source

import "errors"

// Domain errors for record source operations.
var (
	// ErrUnavailable is returned when the backend cannot be reached.
	ErrUnavailable = errors.New("record source unavailable")

	// ErrRejected is returned when the backend rejects a request
	// (authentication, malformed query). Not retryable.
	ErrRejected = errors.New("record source rejected request")

	// ErrInvalidWindow is returned when a query window has since after until.
	ErrInvalidWindow = errors.New("invalid query window")
)
