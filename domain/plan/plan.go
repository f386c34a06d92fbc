// Package plan provides the core entities for plan-run analytics: plans,
// their execution runs, and the tool invocations recorded on a run.
package plan

import "time"

// State is the execution state reported by the platform for a run.
// The platform may report values outside the constants below; unknown
// states are treated as neither success nor failure.
type State string

const (
	// StatePending indicates a run that has not started yet.
	StatePending State = "pending"

	// StateRunning indicates a run in progress.
	StateRunning State = "running"

	// StateComplete indicates a run that finished successfully.
	StateComplete State = "complete"

	// StateFailed indicates a run that terminated with an error.
	StateFailed State = "failed"
)

// IsSuccess reports whether the state is the terminal success state.
func (s State) IsSuccess() bool {
	return s == StateComplete
}

// IsFailure reports whether the state is the terminal failure state.
func (s State) IsFailure() bool {
	return s == StateFailed
}

// Plan is a named, reusable workflow definition.
type Plan struct {
	// ID is the plan identifier.
	ID string `json:"id"`

	// Name is the human-readable plan name.
	Name string `json:"name"`

	// Description is an optional free-form description.
	Description string `json:"description,omitempty"`

	// CreatedAt is the plan creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the last-update timestamp.
	UpdatedAt time.Time `json:"updated_at"`
}

// Fallback synthesizes a placeholder Plan for an identifier whose real plan
// could not be resolved (deleted, fetch error, or outside the fetch limit).
// The placeholder is display-only and is never persisted or merged back into
// a fetched plan collection.
func Fallback(id string, now time.Time) Plan {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return Plan{
		ID:        id,
		Name:      "Plan " + short,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Run is one execution instance of a plan.
type Run struct {
	// ID is the run identifier.
	ID string `json:"id"`

	// PlanID references the owning plan. The referenced plan may be absent
	// from any fetched collection.
	PlanID string `json:"plan_id"`

	// State is the platform-reported execution state.
	State State `json:"state"`

	// CreatedAt is the run creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is the completion timestamp, nil while the run is live or
	// when the platform never reported one.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// DurationMs is the run duration in milliseconds, nil when unreported.
	DurationMs *int64 `json:"duration_ms,omitempty"`

	// Metadata is an open string-keyed map attached by the platform.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DurationSeconds returns the run duration in seconds and whether a
// duration was reported.
func (r Run) DurationSeconds() (float64, bool) {
	if r.DurationMs == nil {
		return 0, false
	}
	return float64(*r.DurationMs) / 1000, true
}

// ErrorMessage extracts the error message from run metadata, defaulting to
// "Unknown error" when metadata or the error entry is absent.
func (r Run) ErrorMessage() string {
	if r.Metadata != nil {
		if msg, ok := r.Metadata["error"].(string); ok && msg != "" {
			return msg
		}
	}
	return "Unknown error"
}

// ToolInvocation is a record of one tool call made during a run.
type ToolInvocation struct {
	// Name is the tool identifier.
	Name string `json:"name"`

	// Success reports whether the invocation succeeded. Absent flags in the
	// raw metadata default to true.
	Success bool `json:"success"`

	// DurationMs is the invocation duration in milliseconds, nil when the
	// tool did not report one.
	DurationMs *int64 `json:"duration_ms,omitempty"`
}

// DurationSeconds returns the invocation duration in seconds and whether a
// duration was reported.
func (t ToolInvocation) DurationSeconds() (float64, bool) {
	if t.DurationMs == nil {
		return 0, false
	}
	return float64(*t.DurationMs) / 1000, true
}

// metadataKeyTools is the metadata entry carrying tool invocation records.
const metadataKeyTools = "tools_used"

// ToolInvocations decodes the tools_used metadata entry into typed records.
// Malformed entries are skipped and counted in the second return value so
// callers can surface a diagnostic instead of trusting the raw map at every
// use site.
func (r Run) ToolInvocations() ([]ToolInvocation, int) {
	if r.Metadata == nil {
		return nil, 0
	}
	raw, ok := r.Metadata[metadataKeyTools]
	if !ok {
		return nil, 0
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil, 1
	}

	var (
		invocations []ToolInvocation
		malformed   int
	)
	for _, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			malformed++
			continue
		}

		name, ok := fields["name"].(string)
		if !ok || name == "" {
			malformed++
			continue
		}

		inv := ToolInvocation{Name: name, Success: true}
		if success, ok := fields["success"].(bool); ok {
			inv.Success = success
		}
		if ms, ok := numericMs(fields["duration_ms"]); ok {
			inv.DurationMs = &ms
		}
		invocations = append(invocations, inv)
	}
	return invocations, malformed
}

// numericMs coerces a decoded JSON number into milliseconds. JSON decoding
// into any yields float64; sources constructing runs in Go may use ints.
func numericMs(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return int64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
