// Package report provides the analytics report value produced by one
// analysis call. The report is a JSON-serializable snapshot; consumers
// (summarizers, renderers) treat it as read-only.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"
)

// Window is the half-open time interval that scoped the analysis.
type Window struct {
	// Since is the inclusive lower bound.
	Since time.Time `json:"since"`

	// Until is the exclusive upper bound.
	Until time.Time `json:"until"`
}

// Report is the full analytics report for one window.
//
// Scalar counters are always present (zero-filled); composite sections are
// omitted when the window contained no runs. GeneratedAt is the only
// wall-clock field: two analyses of identical input differ in nothing else.
type Report struct {
	// Window is the analyzed time window.
	Window Window `json:"window"`

	// GeneratedAt is the wall-clock time the report was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// Message carries a human-readable marker for empty windows.
	Message string `json:"message,omitempty"`

	// TotalRuns is the number of runs of any state in the window.
	TotalRuns int `json:"total_runs"`

	// CompletedRuns is the number of success-state runs in the window.
	CompletedRuns int `json:"completed_runs"`

	// FailedRuns is the number of failure-state runs in the window.
	FailedRuns int `json:"failed_runs"`

	// SuccessRate is completed/total*100, 0 when the window is empty.
	SuccessRate float64 `json:"success_rate"`

	// PlansCreated is the number of plans created in the window.
	PlansCreated int `json:"plans_created"`

	// PlansCreatedDetails lists the plans created in the window.
	PlansCreatedDetails *PlansCreated `json:"plans_created_details,omitempty"`

	// ExecutionRate cross-references created plans against executed plans.
	ExecutionRate *ExecutionRate `json:"execution_rate,omitempty"`

	// DurationStats are duration statistics over completed runs.
	DurationStats *DurationStats `json:"duration_stats,omitempty"`

	// PlanDurationStats are per-plan duration distributions.
	PlanDurationStats *PlanDurationStats `json:"plan_duration_stats,omitempty"`

	// FastestRuns are the quickest completed runs, ascending by duration.
	FastestRuns []RunRanking `json:"fastest_runs,omitempty"`

	// SlowestRuns are the slowest completed runs, descending by duration.
	SlowestRuns []RunRanking `json:"slowest_runs,omitempty"`

	// FastestPlans are plans with the lowest mean duration.
	FastestPlans []PlanRanking `json:"fastest_plans,omitempty"`

	// SlowestPlans are plans with the highest mean duration.
	SlowestPlans []PlanRanking `json:"slowest_plans,omitempty"`

	// PerPlanStats are per-plan aggregates sorted by run count descending.
	PerPlanStats []PlanStats `json:"per_plan_stats,omitempty"`

	// PlanSuccessRates are per-plan success rates sorted descending.
	PlanSuccessRates []PlanSuccessRate `json:"plan_success_rates,omitempty"`

	// HourlyDistribution buckets completions by UTC hour of day (0-23).
	// Only hours with at least one completion appear.
	HourlyDistribution HourlyDistribution `json:"hourly_distribution,omitempty"`

	// DailyDistribution buckets completions by UTC calendar date
	// (YYYY-MM-DD). Only dates with at least one completion appear.
	DailyDistribution map[string]int `json:"daily_distribution,omitempty"`

	// FailureAnalysis summarizes failure-state runs.
	FailureAnalysis *FailureAnalysis `json:"failure_analysis,omitempty"`

	// ResourceUsage rolls up total and mean durations.
	ResourceUsage *ResourceUsage `json:"resource_usage,omitempty"`

	// ToolUsage aggregates tool invocations (when requested).
	ToolUsage *ToolUsage `json:"tool_usage,omitempty"`

	// ToolPerformance ranks all tools by mean duration (when requested).
	ToolPerformance *ToolPerformance `json:"tool_performance,omitempty"`
}

// Empty reports whether the window contained no runs.
func (r *Report) Empty() bool {
	return r.TotalRuns == 0
}

// PlansCreated lists plans created in the window.
type PlansCreated struct {
	// Count is the number of plans created.
	Count int `json:"count"`

	// Details lists the created plans, newest first.
	Details []PlanCreated `json:"details"`
}

// PlanCreated describes one plan created in the window.
type PlanCreated struct {
	PlanID    string    `json:"plan_id"`
	PlanName  string    `json:"plan_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExecutionRate is the fraction of plans created in the window that were
// executed at least once in the same window.
type ExecutionRate struct {
	// Rate is the intersection size over created-plan count, times 100.
	// Zero when no plans were created.
	Rate float64 `json:"rate"`

	// ExecutedPlans is the size of the intersection.
	ExecutedPlans int `json:"executed_plans"`

	// TotalPlans is the number of plans created in the window.
	TotalPlans int `json:"total_plans"`

	// ExecutedPlanIDs lists the intersection, ascending.
	ExecutedPlanIDs []string `json:"executed_plan_ids,omitempty"`
}

// DurationStats are order statistics over completed-run durations.
// All values are seconds.
type DurationStats struct {
	// Count is the number of completed runs with a reported duration.
	Count int `json:"count"`

	MeanSeconds   float64 `json:"mean_seconds"`
	MedianSeconds float64 `json:"median_seconds"`
	P95Seconds    float64 `json:"p95_seconds"`
	MinSeconds    float64 `json:"min_seconds"`
	MaxSeconds    float64 `json:"max_seconds"`
}

// PlanDurationStats are per-plan duration distributions.
type PlanDurationStats struct {
	// PlanCount is the number of plans with at least one timed run.
	PlanCount int `json:"plan_count"`

	// OverallAvgPlanDuration is the mean of the per-plan means, seconds.
	OverallAvgPlanDuration float64 `json:"overall_avg_plan_duration"`

	// PlanDetails lists per-plan distributions, slowest first.
	PlanDetails []PlanDurationDetail `json:"plan_details"`
}

// PlanDurationDetail is the duration distribution for one plan, seconds.
type PlanDurationDetail struct {
	PlanID         string  `json:"plan_id"`
	PlanName       string  `json:"plan_name"`
	AvgDuration    float64 `json:"avg_duration"`
	MedianDuration float64 `json:"median_duration"`
	MinDuration    float64 `json:"min_duration"`
	MaxDuration    float64 `json:"max_duration"`
	RunCount       int     `json:"run_count"`
}

// RunRanking is one run in a fastest/slowest listing.
type RunRanking struct {
	RunID           string     `json:"run_id"`
	PlanID          string     `json:"plan_id"`
	PlanName        string     `json:"plan_name"`
	DurationSeconds float64    `json:"duration_seconds"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// PlanRanking is one plan in a fastest/slowest listing.
type PlanRanking struct {
	PlanID      string  `json:"plan_id"`
	PlanName    string  `json:"plan_name"`
	AvgDuration float64 `json:"avg_duration"`
	RunCount    int     `json:"run_count"`
}

// PlanStats are aggregates over one plan's completed runs.
type PlanStats struct {
	PlanID   string `json:"plan_id"`
	PlanName string `json:"plan_name"`

	// RunCount is the number of completed runs with a reported duration.
	RunCount int `json:"run_count"`

	MeanDurationSeconds   float64 `json:"mean_duration_seconds"`
	MedianDurationSeconds float64 `json:"median_duration_seconds"`
}

// PlanSuccessRate is the success rate for one plan over runs of any state.
type PlanSuccessRate struct {
	PlanID        string  `json:"plan_id"`
	PlanName      string  `json:"plan_name"`
	SuccessRate   float64 `json:"success_rate"`
	CompletedRuns int     `json:"completed_runs"`
	FailedRuns    int     `json:"failed_runs"`
	TotalRuns     int     `json:"total_runs"`
}

// HourlyDistribution buckets run counts by UTC hour of day.
type HourlyDistribution map[int]int

// MarshalJSON emits the buckets with keys in numeric ascending order.
// encoding/json sorts map keys lexically, which would place hour 10
// before hour 2.
func (h HourlyDistribution) MarshalJSON() ([]byte, error) {
	hours := make([]int, 0, len(h))
	for hour := range h {
		hours = append(hours, hour)
	}
	sort.Ints(hours)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, hour := range hours {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `"%d":%d`, hour, h[hour])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FailureAnalysis summarizes failure-state runs.
type FailureAnalysis struct {
	// Count is the number of failed runs.
	Count int `json:"count"`

	// Details lists each failed run.
	Details []FailureDetail `json:"details"`
}

// FailureDetail describes one failed run.
type FailureDetail struct {
	RunID        string     `json:"run_id"`
	PlanID       string     `json:"plan_id"`
	PlanName     string     `json:"plan_name"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	ErrorMessage string     `json:"error_message"`
}

// ResourceUsage rolls up duration totals over completed runs, seconds.
type ResourceUsage struct {
	TotalDuration float64 `json:"total_duration"`
	AvgDuration   float64 `json:"avg_duration"`
	TotalRuns     int     `json:"total_runs"`
}

// ToolUsage aggregates tool invocations across completed runs.
type ToolUsage struct {
	// TotalToolInvocations is the invocation count across all tools.
	TotalToolInvocations int `json:"total_tool_invocations"`

	// UniqueToolsUsed is the number of distinct tool names.
	UniqueToolsUsed int `json:"unique_tools_used"`

	// TopTools lists the ten most-invoked tools, count descending,
	// ties broken by name ascending.
	TopTools []ToolStat `json:"top_tools"`

	// ToolDistribution maps the top tools to their invocation counts.
	ToolDistribution map[string]int `json:"tool_distribution"`

	// MalformedEntries counts tools_used entries skipped at ingestion.
	MalformedEntries int `json:"malformed_entries,omitempty"`
}

// ToolStat is the usage summary for one tool.
type ToolStat struct {
	ToolName   string `json:"tool_name"`
	UsageCount int    `json:"usage_count"`

	// AvgDurationSeconds is nil when no invocation reported a duration.
	AvgDurationSeconds *float64 `json:"avg_duration_seconds"`

	SuccessRate      float64 `json:"success_rate"`
	SuccessCount     int     `json:"success_count"`
	TotalInvocations int     `json:"total_invocations"`
}

// ToolPerformance ranks tools with reported durations by mean duration.
type ToolPerformance struct {
	// ToolCount is the number of tools with at least one timed invocation.
	ToolCount int `json:"tool_count"`

	// PerformanceDetails lists all such tools, slowest first.
	PerformanceDetails []ToolPerformanceDetail `json:"performance_details"`
}

// ToolPerformanceDetail is the duration distribution for one tool, seconds.
type ToolPerformanceDetail struct {
	ToolName         string  `json:"tool_name"`
	AvgDuration      float64 `json:"avg_duration"`
	MedianDuration   float64 `json:"median_duration"`
	MinDuration      float64 `json:"min_duration"`
	MaxDuration      float64 `json:"max_duration"`
	SuccessRate      float64 `json:"success_rate"`
	TotalInvocations int     `json:"total_invocations"`
}
