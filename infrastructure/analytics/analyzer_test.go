package analytics_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/rundigest/domain/plan"
	"github.com/felixgeelhaar/rundigest/domain/report"
	"github.com/felixgeelhaar/rundigest/domain/source"
	"github.com/felixgeelhaar/rundigest/infrastructure/analytics"
)

// mockSource implements source.Source for testing.
type mockSource struct {
	mu    sync.RWMutex
	runs  []plan.Run
	plans map[string]plan.Plan

	listRunsErr  error
	failForState plan.State
	listPlansErr error
	getPlanErr   map[string]error
}

func newMockSource() *mockSource {
	return &mockSource{
		plans:      make(map[string]plan.Plan),
		getPlanErr: make(map[string]error),
	}
}

func (s *mockSource) AddRuns(runs ...plan.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, runs...)
}

func (s *mockSource) AddPlans(plans ...plan.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range plans {
		s.plans[p.ID] = p
	}
}

func (s *mockSource) ListRuns(_ context.Context, query source.RunQuery) ([]plan.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listRunsErr != nil {
		return nil, s.listRunsErr
	}
	if s.failForState != "" && query.State == s.failForState {
		return nil, source.ErrUnavailable
	}

	var out []plan.Run
	for _, r := range s.runs {
		if query.State != "" && r.State != query.State {
			continue
		}
		if !query.Since.IsZero() && r.CreatedAt.Before(query.Since) {
			continue
		}
		if !query.Until.IsZero() && !r.CreatedAt.Before(query.Until) {
			continue
		}
		out = append(out, r)
		if query.Limit > 0 && len(out) >= query.Limit {
			break
		}
	}
	return out, nil
}

func (s *mockSource) ListPlans(_ context.Context, limit int) ([]plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listPlansErr != nil {
		return nil, s.listPlansErr
	}
	out := make([]plan.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *mockSource) GetPlan(_ context.Context, id string) (plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.getPlanErr[id]; ok {
		return plan.Plan{}, err
	}
	if p, ok := s.plans[id]; ok {
		return p, nil
	}
	return plan.Plan{}, plan.ErrPlanNotFound
}

var (
	windowStart = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	fixedNow    = time.Date(2026, 8, 2, 6, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return fixedNow }

func ms(n int64) *int64 { return &n }

func at(hour int) time.Time {
	return windowStart.Add(time.Duration(hour) * time.Hour)
}

func completedRun(id, planID string, durationMs int64, completedHour int) plan.Run {
	completed := at(completedHour)
	return plan.Run{
		ID:          id,
		PlanID:      planID,
		State:       plan.StateComplete,
		CreatedAt:   completed.Add(-time.Minute),
		CompletedAt: &completed,
		DurationMs:  ms(durationMs),
	}
}

// seedWindow loads ten runs across four plans: seven complete (six with
// durations), two failed, one running. Plan ghost1234567890 has no fetchable
// plan record.
func seedWindow(src *mockSource) {
	untimedDone := at(3)
	src.AddRuns(
		completedRun("run-01", "plan-a", 10_000, 1),
		completedRun("run-02", "plan-a", 20_000, 1),
		completedRun("run-03", "plan-a", 30_000, 2),
		completedRun("run-04", "plan-b", 40_000, 2),
		completedRun("run-05", "plan-b", 50_000, 3),
		plan.Run{
			ID: "run-06", PlanID: "plan-c", State: plan.StateComplete,
			CreatedAt: at(3), CompletedAt: &untimedDone,
		},
		completedRun("run-07", "ghost1234567890", 60_000, 4),
		plan.Run{
			ID: "run-08", PlanID: "plan-a", State: plan.StateFailed,
			CreatedAt: at(5), Metadata: map[string]any{"error": "tool budget exhausted"},
		},
		plan.Run{
			ID: "run-09", PlanID: "plan-b", State: plan.StateFailed,
			CreatedAt: at(5),
		},
		plan.Run{
			ID: "run-10", PlanID: "plan-c", State: plan.StateRunning,
			CreatedAt: at(6),
		},
	)
	src.AddPlans(
		plan.Plan{ID: "plan-a", Name: "Nightly Export", CreatedAt: at(0), UpdatedAt: at(0)},
		plan.Plan{ID: "plan-b", Name: "Invoice Sync", CreatedAt: at(4), UpdatedAt: at(4)},
		plan.Plan{ID: "plan-c", Name: "Health Check", CreatedAt: windowStart.Add(-48 * time.Hour), UpdatedAt: at(0)},
		plan.Plan{ID: "plan-x", Name: "Never Run", CreatedAt: at(8), UpdatedAt: at(8)},
	)
	src.getPlanErr["ghost1234567890"] = plan.ErrPlanNotFound
}

func analyze(t *testing.T, src *mockSource, includeTools bool) *report.Report {
	t.Helper()
	a := analytics.NewAnalyzer(src, analytics.WithClock(fixedClock))
	rep, err := a.AnalyzeWindow(context.Background(), windowStart, windowEnd, includeTools)
	if err != nil {
		t.Fatalf("AnalyzeWindow() error = %v", err)
	}
	return rep
}

func TestAnalyzeWindow_Validation(t *testing.T) {
	t.Parallel()

	t.Run("rejects inverted window", func(t *testing.T) {
		t.Parallel()

		a := analytics.NewAnalyzer(newMockSource())
		_, err := a.AnalyzeWindow(context.Background(), windowEnd, windowStart, false)
		if !errors.Is(err, source.ErrInvalidWindow) {
			t.Errorf("AnalyzeWindow() error = %v, want ErrInvalidWindow", err)
		}
	})

	t.Run("zero until means now", func(t *testing.T) {
		t.Parallel()

		src := newMockSource()
		seedWindow(src)
		a := analytics.NewAnalyzer(src, analytics.WithClock(fixedClock))

		rep, err := a.AnalyzeWindow(context.Background(), windowStart, time.Time{}, false)
		if err != nil {
			t.Fatalf("AnalyzeWindow() error = %v", err)
		}
		if !rep.Window.Until.Equal(fixedNow) {
			t.Errorf("Window.Until = %v, want %v", rep.Window.Until, fixedNow)
		}
		if rep.TotalRuns != 10 {
			t.Errorf("TotalRuns = %d, want 10", rep.TotalRuns)
		}
	})
}

func TestAnalyzeWindow_EmptyWindow(t *testing.T) {
	t.Parallel()

	rep := analyze(t, newMockSource(), false)

	if !rep.Empty() {
		t.Fatal("Empty() = false for empty window")
	}
	if rep.Message == "" {
		t.Error("Message is empty, want empty-window marker")
	}
	if rep.TotalRuns != 0 || rep.CompletedRuns != 0 || rep.FailedRuns != 0 || rep.SuccessRate != 0 {
		t.Errorf("scalar counters not zero-filled: %+v", rep)
	}
	if rep.DurationStats != nil || rep.FailureAnalysis != nil || rep.ToolUsage != nil {
		t.Error("composite sections present for empty window, want nil")
	}
	if !rep.GeneratedAt.Equal(fixedNow) {
		t.Errorf("GeneratedAt = %v, want %v", rep.GeneratedAt, fixedNow)
	}
}

func TestAnalyzeWindow_SourceErrors(t *testing.T) {
	t.Parallel()

	t.Run("run query failure propagates", func(t *testing.T) {
		t.Parallel()

		src := newMockSource()
		src.listRunsErr = source.ErrUnavailable
		a := analytics.NewAnalyzer(src)

		if _, err := a.AnalyzeWindow(context.Background(), windowStart, windowEnd, false); !errors.Is(err, source.ErrUnavailable) {
			t.Errorf("AnalyzeWindow() error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("state-filtered query failure propagates", func(t *testing.T) {
		t.Parallel()

		src := newMockSource()
		seedWindow(src)
		src.failForState = plan.StateFailed
		a := analytics.NewAnalyzer(src)

		if _, err := a.AnalyzeWindow(context.Background(), windowStart, windowEnd, false); !errors.Is(err, source.ErrUnavailable) {
			t.Errorf("AnalyzeWindow() error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("plan listing failure degrades to zero created plans", func(t *testing.T) {
		t.Parallel()

		src := newMockSource()
		seedWindow(src)
		src.listPlansErr = source.ErrUnavailable

		rep := analyze(t, src, false)
		if rep.PlansCreated != 0 {
			t.Errorf("PlansCreated = %d, want 0", rep.PlansCreated)
		}
		if rep.TotalRuns != 10 {
			t.Errorf("TotalRuns = %d, want 10 despite plan listing failure", rep.TotalRuns)
		}
	})

	t.Run("plan lookup failure falls back to placeholder name", func(t *testing.T) {
		t.Parallel()

		src := newMockSource()
		seedWindow(src)

		rep := analyze(t, src, false)
		var ghost *struct {
			name string
			rate float64
		}
		for _, psr := range rep.PlanSuccessRates {
			if psr.PlanID == "ghost1234567890" {
				ghost = &struct {
					name string
					rate float64
				}{psr.PlanName, psr.SuccessRate}
			}
		}
		if ghost == nil {
			t.Fatal("ghost plan missing from success rates")
		}
		if ghost.name != "Plan ghost123" {
			t.Errorf("placeholder name = %q, want %q", ghost.name, "Plan ghost123")
		}
	})
}

func TestAnalyzeWindow_Counters(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	seedWindow(src)
	rep := analyze(t, src, false)

	if rep.TotalRuns != 10 {
		t.Errorf("TotalRuns = %d, want 10", rep.TotalRuns)
	}
	if rep.CompletedRuns != 7 {
		t.Errorf("CompletedRuns = %d, want 7", rep.CompletedRuns)
	}
	if rep.FailedRuns != 2 {
		t.Errorf("FailedRuns = %d, want 2", rep.FailedRuns)
	}
	if !almostEqual(rep.SuccessRate, 70) {
		t.Errorf("SuccessRate = %v, want 70", rep.SuccessRate)
	}
}

func TestAnalyzeWindow_DurationStats(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	seedWindow(src)
	rep := analyze(t, src, false)

	ds := rep.DurationStats
	if ds == nil {
		t.Fatal("DurationStats is nil")
	}
	if ds.Count != 6 {
		t.Errorf("Count = %d, want 6 (untimed run excluded)", ds.Count)
	}
	if !almostEqual(ds.MeanSeconds, 35) {
		t.Errorf("MeanSeconds = %v, want 35", ds.MeanSeconds)
	}
	if !almostEqual(ds.MedianSeconds, 35) {
		t.Errorf("MedianSeconds = %v, want 35", ds.MedianSeconds)
	}
	if !almostEqual(ds.MinSeconds, 10) || !almostEqual(ds.MaxSeconds, 60) {
		t.Errorf("Min/Max = %v/%v, want 10/60", ds.MinSeconds, ds.MaxSeconds)
	}
	// index = 0.95*5 = 4.75, blend of 50 and 60.
	if !almostEqual(ds.P95Seconds, 57.5) {
		t.Errorf("P95Seconds = %v, want 57.5", ds.P95Seconds)
	}
}

func TestAnalyzeWindow_DurationStats_NoTimedRuns(t *testing.T) {
	t.Parallel()

	// Completed runs without a reported duration: the window is not empty,
	// but there is nothing to compute order statistics over.
	src := newMockSource()
	src.AddRuns(plan.Run{
		ID:        "run-untimed",
		PlanID:    "plan-a",
		State:     plan.StateComplete,
		CreatedAt: at(1),
	})
	src.AddPlans(plan.Plan{ID: "plan-a", Name: "Nightly Export", CreatedAt: at(0), UpdatedAt: at(0)})

	rep := analyze(t, src, false)

	if rep.TotalRuns != 1 || rep.CompletedRuns != 1 {
		t.Fatalf("TotalRuns/CompletedRuns = %d/%d, want 1/1", rep.TotalRuns, rep.CompletedRuns)
	}
	if rep.DurationStats != nil {
		t.Errorf("DurationStats = %+v, want nil with no timed runs", rep.DurationStats)
	}
	if rep.PlanDurationStats != nil {
		t.Errorf("PlanDurationStats = %+v, want nil with no timed runs", rep.PlanDurationStats)
	}
}

func TestAnalyzeWindow_PerPlanStats(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	seedWindow(src)
	rep := analyze(t, src, false)

	stats := rep.PerPlanStats
	if len(stats) != 3 {
		t.Fatalf("PerPlanStats length = %d, want 3 (plans with timed runs)", len(stats))
	}
	if stats[0].PlanID != "plan-a" || stats[0].RunCount != 3 {
		t.Errorf("top plan = %s (%d runs), want plan-a (3)", stats[0].PlanID, stats[0].RunCount)
	}
	if stats[0].PlanName != "Nightly Export" {
		t.Errorf("top plan name = %q, want %q", stats[0].PlanName, "Nightly Export")
	}

	// Group counts conserve the timed-run population.
	total := 0
	for _, ps := range stats {
		total += ps.RunCount
	}
	if total != rep.DurationStats.Count {
		t.Errorf("sum of per-plan run counts = %d, want %d", total, rep.DurationStats.Count)
	}
}

func TestAnalyzeWindow_Rankings(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	seedWindow(src)
	rep := analyze(t, src, false)

	if len(rep.FastestRuns) != 5 {
		t.Fatalf("FastestRuns length = %d, want 5", len(rep.FastestRuns))
	}
	if rep.FastestRuns[0].RunID != "run-01" || !almostEqual(rep.FastestRuns[0].DurationSeconds, 10) {
		t.Errorf("fastest run = %s (%vs), want run-01 (10s)", rep.FastestRuns[0].RunID, rep.FastestRuns[0].DurationSeconds)
	}
	if rep.SlowestRuns[0].RunID != "run-07" || !almostEqual(rep.SlowestRuns[0].DurationSeconds, 60) {
		t.Errorf("slowest run = %s (%vs), want run-07 (60s)", rep.SlowestRuns[0].RunID, rep.SlowestRuns[0].DurationSeconds)
	}
	if rep.SlowestRuns[0].PlanName != "Plan ghost123" {
		t.Errorf("slowest run plan name = %q, want placeholder", rep.SlowestRuns[0].PlanName)
	}

	// plan-a mean 20, plan-b mean 45, ghost mean 60.
	if rep.FastestPlans[0].PlanID != "plan-a" || !almostEqual(rep.FastestPlans[0].AvgDuration, 20) {
		t.Errorf("fastest plan = %s (%v), want plan-a (20)", rep.FastestPlans[0].PlanID, rep.FastestPlans[0].AvgDuration)
	}
	if rep.SlowestPlans[0].PlanID != "ghost1234567890" {
		t.Errorf("slowest plan = %s, want ghost1234567890", rep.SlowestPlans[0].PlanID)
	}
}

func TestAnalyzeWindow_RankingTieBreak(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	src.AddRuns(
		completedRun("run-b", "plan-a", 10_000, 1),
		completedRun("run-a", "plan-a", 10_000, 1),
		completedRun("run-c", "plan-a", 10_000, 1),
	)
	rep := analyze(t, src, false)

	got := []string{rep.FastestRuns[0].RunID, rep.FastestRuns[1].RunID, rep.FastestRuns[2].RunID}
	want := []string{"run-a", "run-b", "run-c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tied runs ordered %v, want %v", got, want)
	}
}

func TestAnalyzeWindow_PlanSuccessRates(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	seedWindow(src)
	rep := analyze(t, src, false)

	rates := rep.PlanSuccessRates
	if len(rates) != 4 {
		t.Fatalf("PlanSuccessRates length = %d, want 4", len(rates))
	}

	// ghost 100%, plan-a 75%, plan-b 66.7%, plan-c 50%.
	wantOrder := []string{"ghost1234567890", "plan-a", "plan-b", "plan-c"}
	for i, want := range wantOrder {
		if rates[i].PlanID != want {
			t.Fatalf("rates[%d].PlanID = %s, want %s", i, rates[i].PlanID, want)
		}
	}
	if !almostEqual(rates[1].SuccessRate, 75) {
		t.Errorf("plan-a success rate = %v, want 75", rates[1].SuccessRate)
	}
	if rates[3].TotalRuns != 2 || rates[3].CompletedRuns != 1 || rates[3].FailedRuns != 0 {
		t.Errorf("plan-c tally = %+v, want 1 completed of 2 with 0 failed", rates[3])
	}
}

func TestAnalyzeWindow_Distributions(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	seedWindow(src)
	rep := analyze(t, src, false)

	wantHourly := report.HourlyDistribution{1: 2, 2: 2, 3: 2, 4: 1}
	if !reflect.DeepEqual(rep.HourlyDistribution, wantHourly) {
		t.Errorf("HourlyDistribution = %v, want %v", rep.HourlyDistribution, wantHourly)
	}
	wantDaily := map[string]int{"2026-08-01": 7}
	if !reflect.DeepEqual(rep.DailyDistribution, wantDaily) {
		t.Errorf("DailyDistribution = %v, want %v", rep.DailyDistribution, wantDaily)
	}
}

func TestAnalyzeWindow_FailureAnalysis(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	seedWindow(src)
	rep := analyze(t, src, false)

	fa := rep.FailureAnalysis
	if fa == nil {
		t.Fatal("FailureAnalysis is nil")
	}
	if fa.Count != 2 || len(fa.Details) != 2 {
		t.Fatalf("failure count = %d (%d details), want 2", fa.Count, len(fa.Details))
	}

	messages := map[string]string{}
	for _, d := range fa.Details {
		messages[d.RunID] = d.ErrorMessage
	}
	if messages["run-08"] != "tool budget exhausted" {
		t.Errorf("run-08 error = %q, want metadata message", messages["run-08"])
	}
	if messages["run-09"] != "Unknown error" {
		t.Errorf("run-09 error = %q, want %q", messages["run-09"], "Unknown error")
	}
}

func TestAnalyzeWindow_ResourceUsage(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	seedWindow(src)
	rep := analyze(t, src, false)

	ru := rep.ResourceUsage
	if ru == nil {
		t.Fatal("ResourceUsage is nil")
	}
	if !almostEqual(ru.TotalDuration, 210) {
		t.Errorf("TotalDuration = %v, want 210", ru.TotalDuration)
	}
	if ru.TotalRuns != 7 {
		t.Errorf("TotalRuns = %d, want 7", ru.TotalRuns)
	}
	// The mean divides by all seven completed runs, not just the six timed.
	if !almostEqual(ru.AvgDuration, 30) {
		t.Errorf("AvgDuration = %v, want 30", ru.AvgDuration)
	}
}

func TestAnalyzeWindow_ExecutionRate(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	seedWindow(src)
	rep := analyze(t, src, false)

	// Created in window: plan-a, plan-b, plan-x. Executed: plan-a, plan-b.
	er := rep.ExecutionRate
	if er == nil {
		t.Fatal("ExecutionRate is nil")
	}
	if er.TotalPlans != 3 || er.ExecutedPlans != 2 {
		t.Errorf("intersection = %d of %d, want 2 of 3", er.ExecutedPlans, er.TotalPlans)
	}
	if !almostEqual(er.Rate, 200.0/3) {
		t.Errorf("Rate = %v, want %v", er.Rate, 200.0/3)
	}
	if !reflect.DeepEqual(er.ExecutedPlanIDs, []string{"plan-a", "plan-b"}) {
		t.Errorf("ExecutedPlanIDs = %v, want sorted [plan-a plan-b]", er.ExecutedPlanIDs)
	}

	if rep.PlansCreated != 3 {
		t.Errorf("PlansCreated = %d, want 3 (plan-c predates window)", rep.PlansCreated)
	}
	details := rep.PlansCreatedDetails
	if details == nil || details.Count != 3 {
		t.Fatalf("PlansCreatedDetails = %+v, want count 3", details)
	}
	if details.Details[0].PlanID != "plan-x" {
		t.Errorf("newest created plan = %s, want plan-x", details.Details[0].PlanID)
	}
}

func TestAnalyzeWindow_Determinism(t *testing.T) {
	t.Parallel()

	src := newMockSource()
	seedWindow(src)
	a := analytics.NewAnalyzer(src, analytics.WithClock(fixedClock))

	first, err := a.AnalyzeWindow(context.Background(), windowStart, windowEnd, true)
	if err != nil {
		t.Fatalf("AnalyzeWindow() error = %v", err)
	}
	second, err := a.AnalyzeWindow(context.Background(), windowStart, windowEnd, true)
	if err != nil {
		t.Fatalf("AnalyzeWindow() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated analysis differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAnalyzeWindow_Tools(t *testing.T) {
	t.Parallel()

	t.Run("tool sections absent unless requested", func(t *testing.T) {
		t.Parallel()

		src := newMockSource()
		seedWindow(src)
		rep := analyze(t, src, false)
		if rep.ToolUsage != nil || rep.ToolPerformance != nil {
			t.Error("tool sections present without includeTools")
		}
	})

	t.Run("aggregates invocations and malformed entries", func(t *testing.T) {
		t.Parallel()

		src := newMockSource()
		done := at(1)
		src.AddRuns(plan.Run{
			ID: "run-1", PlanID: "plan-a", State: plan.StateComplete,
			CreatedAt: at(1), CompletedAt: &done, DurationMs: ms(5_000),
			Metadata: map[string]any{
				"tools_used": []any{
					map[string]any{"name": "browser", "success": true, "duration_ms": float64(1500)},
					map[string]any{"name": "browser", "success": false, "duration_ms": float64(500)},
					map[string]any{"name": "search"},
					"not a map",
					map[string]any{"success": true},
				},
			},
		})
		rep := analyze(t, src, true)

		tu := rep.ToolUsage
		if tu == nil {
			t.Fatal("ToolUsage is nil")
		}
		if tu.TotalToolInvocations != 3 || tu.UniqueToolsUsed != 2 {
			t.Errorf("invocations = %d across %d tools, want 3 across 2", tu.TotalToolInvocations, tu.UniqueToolsUsed)
		}
		if tu.MalformedEntries != 2 {
			t.Errorf("MalformedEntries = %d, want 2", tu.MalformedEntries)
		}

		browser := tu.TopTools[0]
		if browser.ToolName != "browser" || browser.UsageCount != 2 {
			t.Fatalf("top tool = %s (%d), want browser (2)", browser.ToolName, browser.UsageCount)
		}
		if !almostEqual(browser.SuccessRate, 50) {
			t.Errorf("browser success rate = %v, want 50", browser.SuccessRate)
		}
		if browser.AvgDurationSeconds == nil || !almostEqual(*browser.AvgDurationSeconds, 1) {
			t.Errorf("browser avg duration = %v, want 1s", browser.AvgDurationSeconds)
		}

		search := tu.TopTools[1]
		if search.AvgDurationSeconds != nil {
			t.Errorf("search avg duration = %v, want nil (no timed invocations)", *search.AvgDurationSeconds)
		}

		tp := rep.ToolPerformance
		if tp == nil {
			t.Fatal("ToolPerformance is nil")
		}
		if tp.ToolCount != 1 || tp.PerformanceDetails[0].ToolName != "browser" {
			t.Errorf("ToolPerformance = %+v, want only browser", tp)
		}
	})

	t.Run("top listing caps at ten tools ordered by count", func(t *testing.T) {
		t.Parallel()

		src := newMockSource()
		done := at(1)
		var tools []any
		for i := 0; i < 15; i++ {
			name := fmt.Sprintf("tool-%02d", i)
			// tool-00 invoked once, tool-14 fifteen times.
			for j := 0; j <= i; j++ {
				tools = append(tools, map[string]any{"name": name})
			}
		}
		src.AddRuns(plan.Run{
			ID: "run-1", PlanID: "plan-a", State: plan.StateComplete,
			CreatedAt: at(1), CompletedAt: &done,
			Metadata: map[string]any{"tools_used": tools},
		})
		rep := analyze(t, src, true)

		tu := rep.ToolUsage
		if tu.UniqueToolsUsed != 15 {
			t.Errorf("UniqueToolsUsed = %d, want 15", tu.UniqueToolsUsed)
		}
		if len(tu.TopTools) != 10 {
			t.Fatalf("TopTools length = %d, want 10", len(tu.TopTools))
		}
		if tu.TopTools[0].ToolName != "tool-14" || tu.TopTools[0].UsageCount != 15 {
			t.Errorf("top tool = %s (%d), want tool-14 (15)", tu.TopTools[0].ToolName, tu.TopTools[0].UsageCount)
		}
		if tu.TopTools[9].ToolName != "tool-05" {
			t.Errorf("tenth tool = %s, want tool-05", tu.TopTools[9].ToolName)
		}
		if len(tu.ToolDistribution) != 10 {
			t.Errorf("ToolDistribution size = %d, want 10", len(tu.ToolDistribution))
		}
	})
}
