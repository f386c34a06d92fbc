package plan

import "errors"

// Domain errors for plan and run entities.
var (
	// ErrPlanNotFound is returned when a plan does not exist.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrRunNotFound is returned when a run does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidPlanID is returned when a plan ID is invalid (e.g., empty).
	ErrInvalidPlanID = errors.New("invalid plan ID")

	// ErrInvalidRunID is returned when a run ID is invalid (e.g., empty).
	ErrInvalidRunID = errors.New("invalid run ID")
)
