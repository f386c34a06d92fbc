// Package analytics provides the windowed metrics-aggregation engine that
// turns raw plan-run records into a structured analytics report.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/rundigest/domain/plan"
	"github.com/felixgeelhaar/rundigest/domain/report"
	"github.com/felixgeelhaar/rundigest/domain/source"
	"github.com/felixgeelhaar/rundigest/infrastructure/logging"
	"github.com/felixgeelhaar/rundigest/infrastructure/telemetry"
)

// Defaults for analyzer tuning knobs.
const (
	// DefaultFetchLimit is the per-query record limit requested from the
	// source. The source may return fewer; truncation is not detected.
	DefaultFetchLimit = 1000

	// DefaultTopRuns is the length of the fastest/slowest run listings.
	DefaultTopRuns = 5

	// DefaultTopPlans is the length of the fastest/slowest plan listings.
	DefaultTopPlans = 5

	// topToolCount is the length of the top-tools listing.
	topToolCount = 10

	// emptyWindowMessage marks a report for a window with no runs.
	emptyWindowMessage = "No plan runs found in the specified window."
)

// Analyzer computes windowed analytics over a record source.
// It holds no state across calls beyond the immutable source reference;
// a single analysis call is synchronous with no internal parallelism.
type Analyzer struct {
	source     source.Source
	fetchLimit int
	topRuns    int
	topPlans   int
	metrics    *telemetry.MetricsProvider
	now        func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithFetchLimit overrides the per-query record limit.
func WithFetchLimit(limit int) Option {
	return func(a *Analyzer) {
		if limit > 0 {
			a.fetchLimit = limit
		}
	}
}

// WithTopRuns overrides the fastest/slowest run listing length.
func WithTopRuns(k int) Option {
	return func(a *Analyzer) {
		if k > 0 {
			a.topRuns = k
		}
	}
}

// WithTopPlans overrides the fastest/slowest plan listing length.
func WithTopPlans(k int) Option {
	return func(a *Analyzer) {
		if k > 0 {
			a.topPlans = k
		}
	}
}

// WithMetrics attaches a metrics provider for pipeline instrumentation.
func WithMetrics(mp *telemetry.MetricsProvider) Option {
	return func(a *Analyzer) {
		a.metrics = mp
	}
}

// WithClock overrides the wall clock. Used in tests to pin generated_at
// and placeholder plan timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAnalyzer creates an analyzer over the given record source.
func NewAnalyzer(src source.Source, opts ...Option) *Analyzer {
	a := &Analyzer{
		source:     src,
		fetchLimit: DefaultFetchLimit,
		topRuns:    DefaultTopRuns,
		topPlans:   DefaultTopPlans,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeWindow analyzes plan runs in the half-open window [since, until).
// A zero until means "now". Failure of the run queries propagates; failure
// of plan listing degrades to zero created plans; failure of an individual
// plan lookup degrades to a placeholder for that identifier only.
func (a *Analyzer) AnalyzeWindow(ctx context.Context, since, until time.Time, includeTools bool) (*report.Report, error) {
	started := a.now()
	rep, err := a.analyzeWindow(ctx, since, until, includeTools)
	if a.metrics != nil {
		total := 0
		if rep != nil {
			total = rep.TotalRuns
		}
		a.metrics.RecordAnalysis(ctx, total, includeTools, err == nil, a.now().Sub(started))
	}
	return rep, err
}

func (a *Analyzer) analyzeWindow(ctx context.Context, since, until time.Time, includeTools bool) (*report.Report, error) {
	if until.IsZero() {
		until = a.now().UTC()
	}
	if since.After(until) {
		return nil, fmt.Errorf("%w: since %s after until %s", source.ErrInvalidWindow,
			since.Format(time.RFC3339), until.Format(time.RFC3339))
	}

	allRuns, err := a.listRuns(ctx, "all_runs", source.RunQuery{
		Since: since, Until: until, Limit: a.fetchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch runs in window: %w", err)
	}

	completedRuns, err := a.listRuns(ctx, "completed_runs", source.RunQuery{
		State: plan.StateComplete, Since: since, Until: until, Limit: a.fetchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch completed runs: %w", err)
	}

	failedRuns, err := a.listRuns(ctx, "failed_runs", source.RunQuery{
		State: plan.StateFailed, Since: since, Until: until, Limit: a.fetchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch failed runs: %w", err)
	}

	plansCreated := a.plansCreatedInWindow(ctx, since, until)

	rep := &report.Report{
		Window:      report.Window{Since: since, Until: until},
		GeneratedAt: a.now().UTC(),
		TotalRuns:   len(allRuns),
	}

	if len(allRuns) == 0 {
		rep.Message = emptyWindowMessage
		return rep, nil
	}

	resolver := a.resolvePlans(ctx, allRuns, completedRuns, failedRuns)

	rep.CompletedRuns = len(completedRuns)
	rep.FailedRuns = len(failedRuns)
	rep.SuccessRate = ratio(len(completedRuns), len(allRuns))
	rep.PlansCreated = len(plansCreated)
	rep.PlansCreatedDetails = plansCreatedDetails(plansCreated)
	rep.ExecutionRate = executionRate(plansCreated, allRuns)
	rep.DurationStats = durationStats(completedRuns)
	rep.PlanDurationStats = planDurationStats(completedRuns, resolver)
	rep.FastestRuns = extremeRuns(completedRuns, resolver, true, a.topRuns)
	rep.SlowestRuns = extremeRuns(completedRuns, resolver, false, a.topRuns)
	rep.FastestPlans = extremePlans(completedRuns, resolver, true, a.topPlans)
	rep.SlowestPlans = extremePlans(completedRuns, resolver, false, a.topPlans)
	rep.PerPlanStats = perPlanStats(completedRuns, resolver)
	rep.PlanSuccessRates = planSuccessRates(allRuns, resolver)
	rep.HourlyDistribution = hourlyDistribution(completedRuns)
	rep.DailyDistribution = dailyDistribution(completedRuns)
	rep.FailureAnalysis = failureAnalysis(failedRuns, resolver)
	rep.ResourceUsage = resourceUsage(completedRuns)

	if includeTools {
		rep.ToolUsage = toolUsage(completedRuns)
		rep.ToolPerformance = toolPerformance(completedRuns)
	}

	logging.Info().
		Add(logging.Component("analyzer")).
		Add(logging.Window(since, until)).
		Add(logging.RunCount(rep.TotalRuns)).
		Add(logging.PlanCount(rep.PlansCreated)).
		Msg("window analyzed")

	return rep, nil
}

// listRuns issues one run query, recording metrics when configured.
func (a *Analyzer) listRuns(ctx context.Context, kind string, query source.RunQuery) ([]plan.Run, error) {
	start := time.Now()
	runs, err := a.source.ListRuns(ctx, query)
	if a.metrics != nil {
		a.metrics.RecordSourceQuery(ctx, kind, err == nil, time.Since(start))
	}
	return runs, err
}

// plansCreatedInWindow lists plans and filters to creation timestamps inside
// the window (inclusive bounds). Listing failure degrades to zero plans.
func (a *Analyzer) plansCreatedInWindow(ctx context.Context, since, until time.Time) []plan.Plan {
	start := time.Now()
	all, err := a.source.ListPlans(ctx, a.fetchLimit)
	if a.metrics != nil {
		a.metrics.RecordSourceQuery(ctx, "plans", err == nil, time.Since(start))
	}
	if err != nil {
		logging.Warn().
			Add(logging.Component("analyzer")).
			Add(logging.ErrorField(err)).
			Msg("plan listing failed, treating as zero created plans")
		return nil
	}

	var created []plan.Plan
	for _, p := range all {
		if !p.CreatedAt.Before(since) && !p.CreatedAt.After(until) {
			created = append(created, p)
		}
	}
	return created
}

// planResolver resolves plan identifiers to plans, synthesizing a display
// placeholder for identifiers without a fetched plan. It is the single
// fallback-construction point for the whole report.
type planResolver struct {
	plans map[string]plan.Plan
	now   time.Time
}

// resolve returns the fetched plan for id, or a placeholder.
func (r planResolver) resolve(id string) plan.Plan {
	if p, ok := r.plans[id]; ok {
		return p
	}
	return plan.Fallback(id, r.now)
}

// name returns the display name for a plan identifier.
func (r planResolver) name(id string) string {
	return r.resolve(id).Name
}

// resolvePlans looks up every distinct plan identifier seen across the
// fetched run collections. Lookup failure for one identifier degrades to a
// placeholder for that identifier only.
func (a *Analyzer) resolvePlans(ctx context.Context, runSets ...[]plan.Run) planResolver {
	seen := make(map[string]struct{})
	var ids []string
	for _, runs := range runSets {
		for _, r := range runs {
			if _, ok := seen[r.PlanID]; ok {
				continue
			}
			seen[r.PlanID] = struct{}{}
			ids = append(ids, r.PlanID)
		}
	}
	sort.Strings(ids)

	resolver := planResolver{plans: make(map[string]plan.Plan, len(ids)), now: a.now().UTC()}
	for _, id := range ids {
		p, err := a.source.GetPlan(ctx, id)
		if err != nil {
			if a.metrics != nil {
				a.metrics.RecordPlanFallback(ctx, id)
			}
			logging.Debug().
				Add(logging.Component("analyzer")).
				Add(logging.PlanID(id)).
				Add(logging.ErrorField(err)).
				Msg("plan lookup failed, using placeholder")
			continue
		}
		resolver.plans[id] = p
	}
	return resolver
}

// durationStats computes order statistics over completed-run durations.
func durationStats(runs []plan.Run) *report.DurationStats {
	durations := timedDurations(runs)
	if len(durations) == 0 {
		return nil
	}
	return &report.DurationStats{
		Count:         len(durations),
		MeanSeconds:   Mean(durations),
		MedianSeconds: Median(durations),
		P95Seconds:    Percentile(durations, 95),
		MinSeconds:    minOf(durations),
		MaxSeconds:    maxOf(durations),
	}
}

// timedDurations extracts reported durations in seconds.
func timedDurations(runs []plan.Run) []float64 {
	var out []float64
	for _, r := range runs {
		if secs, ok := r.DurationSeconds(); ok {
			out = append(out, secs)
		}
	}
	return out
}

// groupDurations groups reported durations (seconds) by plan identifier.
func groupDurations(runs []plan.Run) map[string][]float64 {
	groups := make(map[string][]float64)
	for _, r := range runs {
		if secs, ok := r.DurationSeconds(); ok {
			groups[r.PlanID] = append(groups[r.PlanID], secs)
		}
	}
	return groups
}

// perPlanStats aggregates completed runs per plan, sorted by run count
// descending with plan identifier ascending as tie-break.
func perPlanStats(runs []plan.Run, resolver planResolver) []report.PlanStats {
	groups := groupDurations(runs)
	stats := make([]report.PlanStats, 0, len(groups))
	for id, durations := range groups {
		stats = append(stats, report.PlanStats{
			PlanID:                id,
			PlanName:              resolver.name(id),
			RunCount:              len(durations),
			MeanDurationSeconds:   Mean(durations),
			MedianDurationSeconds: Median(durations),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].RunCount != stats[j].RunCount {
			return stats[i].RunCount > stats[j].RunCount
		}
		return stats[i].PlanID < stats[j].PlanID
	})
	return stats
}

// planDurationStats computes per-plan duration distributions, slowest first.
func planDurationStats(runs []plan.Run, resolver planResolver) *report.PlanDurationStats {
	groups := groupDurations(runs)
	if len(groups) == 0 {
		return nil
	}
	details := make([]report.PlanDurationDetail, 0, len(groups))
	var means []float64
	for id, durations := range groups {
		mean := Mean(durations)
		means = append(means, mean)
		details = append(details, report.PlanDurationDetail{
			PlanID:         id,
			PlanName:       resolver.name(id),
			AvgDuration:    mean,
			MedianDuration: Median(durations),
			MinDuration:    minOf(durations),
			MaxDuration:    maxOf(durations),
			RunCount:       len(durations),
		})
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].AvgDuration != details[j].AvgDuration {
			return details[i].AvgDuration > details[j].AvgDuration
		}
		return details[i].PlanID < details[j].PlanID
	})
	return &report.PlanDurationStats{
		PlanCount:              len(details),
		OverallAvgPlanDuration: Mean(means),
		PlanDetails:            details,
	}
}

// extremeRuns lists the fastest or slowest completed runs with a reported
// duration, tie-broken by run identifier ascending.
func extremeRuns(runs []plan.Run, resolver planResolver, fastest bool, limit int) []report.RunRanking {
	var timed []plan.Run
	for _, r := range runs {
		if r.DurationMs != nil {
			timed = append(timed, r)
		}
	}
	if len(timed) == 0 {
		return nil
	}

	sort.Slice(timed, func(i, j int) bool {
		di, dj := *timed[i].DurationMs, *timed[j].DurationMs
		if di != dj {
			if fastest {
				return di < dj
			}
			return di > dj
		}
		return timed[i].ID < timed[j].ID
	})

	if len(timed) > limit {
		timed = timed[:limit]
	}
	out := make([]report.RunRanking, 0, len(timed))
	for _, r := range timed {
		secs, _ := r.DurationSeconds()
		out = append(out, report.RunRanking{
			RunID:           r.ID,
			PlanID:          r.PlanID,
			PlanName:        resolver.name(r.PlanID),
			DurationSeconds: secs,
			CompletedAt:     r.CompletedAt,
		})
	}
	return out
}

// extremePlans lists plans with the lowest or highest mean duration,
// tie-broken by plan identifier ascending.
func extremePlans(runs []plan.Run, resolver planResolver, fastest bool, limit int) []report.PlanRanking {
	groups := groupDurations(runs)
	rankings := make([]report.PlanRanking, 0, len(groups))
	for id, durations := range groups {
		rankings = append(rankings, report.PlanRanking{
			PlanID:      id,
			PlanName:    resolver.name(id),
			AvgDuration: Mean(durations),
			RunCount:    len(durations),
		})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].AvgDuration != rankings[j].AvgDuration {
			if fastest {
				return rankings[i].AvgDuration < rankings[j].AvgDuration
			}
			return rankings[i].AvgDuration > rankings[j].AvgDuration
		}
		return rankings[i].PlanID < rankings[j].PlanID
	})
	if len(rankings) > limit {
		rankings = rankings[:limit]
	}
	return rankings
}

// planSuccessRates computes per-plan success rates over runs of any state,
// sorted by rate descending with plan identifier ascending as tie-break.
func planSuccessRates(allRuns []plan.Run, resolver planResolver) []report.PlanSuccessRate {
	type tally struct {
		completed int
		failed    int
		total     int
	}
	tallies := make(map[string]*tally)
	for _, r := range allRuns {
		t, ok := tallies[r.PlanID]
		if !ok {
			t = &tally{}
			tallies[r.PlanID] = t
		}
		t.total++
		switch {
		case r.State.IsSuccess():
			t.completed++
		case r.State.IsFailure():
			t.failed++
		}
	}

	rates := make([]report.PlanSuccessRate, 0, len(tallies))
	for id, t := range tallies {
		rates = append(rates, report.PlanSuccessRate{
			PlanID:        id,
			PlanName:      resolver.name(id),
			SuccessRate:   ratio(t.completed, t.total),
			CompletedRuns: t.completed,
			FailedRuns:    t.failed,
			TotalRuns:     t.total,
		})
	}
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].SuccessRate != rates[j].SuccessRate {
			return rates[i].SuccessRate > rates[j].SuccessRate
		}
		return rates[i].PlanID < rates[j].PlanID
	})
	return rates
}

// hourlyDistribution buckets completions by UTC hour of day.
// Runs without a completion timestamp are excluded.
func hourlyDistribution(runs []plan.Run) report.HourlyDistribution {
	counts := make(map[int]int)
	for _, r := range runs {
		if r.CompletedAt != nil {
			counts[r.CompletedAt.UTC().Hour()]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}

// dailyDistribution buckets completions by UTC calendar date.
// Runs without a completion timestamp are excluded.
func dailyDistribution(runs []plan.Run) map[string]int {
	counts := make(map[string]int)
	for _, r := range runs {
		if r.CompletedAt != nil {
			counts[r.CompletedAt.UTC().Format("2006-01-02")]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}

// failureAnalysis summarizes failed runs with resolved plan names and
// metadata error messages.
func failureAnalysis(failedRuns []plan.Run, resolver planResolver) *report.FailureAnalysis {
	analysis := &report.FailureAnalysis{Count: len(failedRuns)}
	if len(failedRuns) == 0 {
		analysis.Details = []report.FailureDetail{}
		return analysis
	}
	analysis.Details = make([]report.FailureDetail, 0, len(failedRuns))
	for _, r := range failedRuns {
		analysis.Details = append(analysis.Details, report.FailureDetail{
			RunID:        r.ID,
			PlanID:       r.PlanID,
			PlanName:     resolver.name(r.PlanID),
			FailedAt:     r.CompletedAt,
			ErrorMessage: r.ErrorMessage(),
		})
	}
	return analysis
}

// resourceUsage rolls up total and mean duration over completed runs.
// The mean divides by the full run count, including runs without a
// reported duration.
func resourceUsage(runs []plan.Run) *report.ResourceUsage {
	usage := &report.ResourceUsage{TotalRuns: len(runs)}
	if len(runs) == 0 {
		return usage
	}
	usage.TotalDuration = sumOf(timedDurations(runs))
	usage.AvgDuration = usage.TotalDuration / float64(len(runs))
	return usage
}

// executionRate intersects the set of plans created in the window with the
// set of plans executed in the window. A plan created but never run
// contributes to the denominator only.
func executionRate(plansCreated []plan.Plan, allRuns []plan.Run) *report.ExecutionRate {
	if len(plansCreated) == 0 {
		return &report.ExecutionRate{}
	}

	created := make(map[string]struct{}, len(plansCreated))
	for _, p := range plansCreated {
		created[p.ID] = struct{}{}
	}
	executed := make(map[string]struct{})
	for _, r := range allRuns {
		executed[r.PlanID] = struct{}{}
	}

	var intersection []string
	for id := range created {
		if _, ok := executed[id]; ok {
			intersection = append(intersection, id)
		}
	}
	sort.Strings(intersection)

	return &report.ExecutionRate{
		Rate:            ratio(len(intersection), len(created)),
		ExecutedPlans:   len(intersection),
		TotalPlans:      len(created),
		ExecutedPlanIDs: intersection,
	}
}

// plansCreatedDetails lists created plans, newest first, tie-broken by
// plan identifier ascending.
func plansCreatedDetails(plans []plan.Plan) *report.PlansCreated {
	details := &report.PlansCreated{Count: len(plans), Details: []report.PlanCreated{}}
	for _, p := range plans {
		details.Details = append(details.Details, report.PlanCreated{
			PlanID:    p.ID,
			PlanName:  p.Name,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	sort.Slice(details.Details, func(i, j int) bool {
		if !details.Details[i].CreatedAt.Equal(details.Details[j].CreatedAt) {
			return details.Details[i].CreatedAt.After(details.Details[j].CreatedAt)
		}
		return details.Details[i].PlanID < details.Details[j].PlanID
	})
	return details
}

// toolAgg accumulates per-tool statistics during ingestion.
type toolAgg struct {
	name      string
	count     int
	success   int
	durations []float64
}

// aggregateTools ingests tools_used metadata across completed runs.
// The second return value counts malformed entries skipped at ingestion.
func aggregateTools(runs []plan.Run) (map[string]*toolAgg, int) {
	tools := make(map[string]*toolAgg)
	var malformed int
	for _, r := range runs {
		invocations, skipped := r.ToolInvocations()
		malformed += skipped
		for _, inv := range invocations {
			agg, ok := tools[inv.Name]
			if !ok {
				agg = &toolAgg{name: inv.Name}
				tools[inv.Name] = agg
			}
			agg.count++
			if inv.Success {
				agg.success++
			}
			if secs, ok := inv.DurationSeconds(); ok {
				agg.durations = append(agg.durations, secs)
			}
		}
	}
	return tools, malformed
}

// toolUsage computes the top-10 tool listing by invocation count, ties
// broken by tool name ascending.
func toolUsage(runs []plan.Run) *report.ToolUsage {
	tools, malformed := aggregateTools(runs)

	aggs := make([]*toolAgg, 0, len(tools))
	total := 0
	for _, agg := range tools {
		aggs = append(aggs, agg)
		total += agg.count
	}
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].count != aggs[j].count {
			return aggs[i].count > aggs[j].count
		}
		return aggs[i].name < aggs[j].name
	})

	top := aggs
	if len(top) > topToolCount {
		top = top[:topToolCount]
	}

	usage := &report.ToolUsage{
		TotalToolInvocations: total,
		UniqueToolsUsed:      len(tools),
		TopTools:             make([]report.ToolStat, 0, len(top)),
		ToolDistribution:     make(map[string]int, len(top)),
		MalformedEntries:     malformed,
	}
	for _, agg := range top {
		stat := report.ToolStat{
			ToolName:         agg.name,
			UsageCount:       agg.count,
			SuccessRate:      ratio(agg.success, agg.count),
			SuccessCount:     agg.success,
			TotalInvocations: agg.count,
		}
		if len(agg.durations) > 0 {
			mean := Mean(agg.durations)
			stat.AvgDurationSeconds = &mean
		}
		usage.TopTools = append(usage.TopTools, stat)
		usage.ToolDistribution[agg.name] = agg.count
	}
	return usage
}

// toolPerformance ranks every tool with at least one timed invocation by
// mean duration descending, ties broken by tool name ascending.
func toolPerformance(runs []plan.Run) *report.ToolPerformance {
	tools, _ := aggregateTools(runs)

	details := make([]report.ToolPerformanceDetail, 0, len(tools))
	for _, agg := range tools {
		if len(agg.durations) == 0 {
			continue
		}
		details = append(details, report.ToolPerformanceDetail{
			ToolName:         agg.name,
			AvgDuration:      Mean(agg.durations),
			MedianDuration:   Median(agg.durations),
			MinDuration:      minOf(agg.durations),
			MaxDuration:      maxOf(agg.durations),
			SuccessRate:      ratio(agg.success, agg.count),
			TotalInvocations: agg.count,
		})
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].AvgDuration != details[j].AvgDuration {
			return details[i].AvgDuration > details[j].AvgDuration
		}
		return details[i].ToolName < details[j].ToolName
	})
	return &report.ToolPerformance{
		ToolCount:          len(details),
		PerformanceDetails: details,
	}
}
