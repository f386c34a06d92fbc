// Package source provides the domain interface for fetching plan and run
// records. Implementations may be backed by the platform HTTP API, a local
// archive, or any other storage.
package source

import (
	"context"
	"time"

	"github.com/felixgeelhaar/rundigest/domain/plan"
)

// Source supplies plan and run records for analysis.
// All calls are blocking; a bounding timeout, if needed, is the
// implementation's responsibility (typically via the context).
type Source interface {
	// ListRuns returns runs matching the query. A result may contain fewer
	// records than truly exist when the backend enforces page limits;
	// callers must not attempt to detect or correct truncation.
	ListRuns(ctx context.Context, query RunQuery) ([]plan.Run, error)

	// ListPlans returns up to limit plans known to the backend.
	ListPlans(ctx context.Context, limit int) ([]plan.Plan, error)

	// GetPlan retrieves a plan by ID. Implementations return
	// plan.ErrPlanNotFound when the plan does not exist.
	GetPlan(ctx context.Context, id string) (plan.Plan, error)
}

// RunQuery specifies criteria for listing runs.
type RunQuery struct {
	// PlanID filters to runs of one plan (empty means all).
	PlanID string

	// State filters by execution state (empty means all).
	State plan.State

	// Since filters runs created at or after this time.
	Since time.Time

	// Until filters runs created before this time.
	Until time.Time

	// Limit is the maximum number of runs to return (0 = backend default).
	Limit int
}

// RunGetter is an optional interface for sources that support point lookup
// of a single run.
type RunGetter interface {
	// GetRun retrieves a run by ID. Implementations return
	// plan.ErrRunNotFound when the run does not exist.
	GetRun(ctx context.Context, id string) (plan.Run, error)
}
