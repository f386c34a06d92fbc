// Package render turns a report into human-facing output: digest email
// subject and body, markdown, and a prose headline.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rundigest/domain/report"
)

// Summarizer turns a report into prose. The report is read-only input.
// Implementations may call out to an LLM; the headline summarizer below is
// a deterministic local fallback.
type Summarizer interface {
	Summarize(ctx context.Context, rep *report.Report) (string, error)
}

// HeadlineSummarizer produces a short deterministic summary from the
// report's key figures.
type HeadlineSummarizer struct{}

// NewHeadlineSummarizer creates a headline summarizer.
func NewHeadlineSummarizer() *HeadlineSummarizer {
	return &HeadlineSummarizer{}
}

// Summarize builds a few sentences of plain prose from the report.
func (s *HeadlineSummarizer) Summarize(_ context.Context, rep *report.Report) (string, error) {
	if rep.Empty() {
		return "No plan runs were recorded in this window.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d plan runs executed: %d completed and %d failed (%.1f%% success rate).",
		rep.TotalRuns, rep.CompletedRuns, rep.FailedRuns, rep.SuccessRate)

	if ds := rep.DurationStats; ds != nil && ds.Count > 0 {
		fmt.Fprintf(&b, " Completed runs took %.1fs on average (p95 %.1fs).",
			ds.MeanSeconds, ds.P95Seconds)
	}

	if len(rep.PerPlanStats) > 0 {
		top := rep.PerPlanStats[0]
		fmt.Fprintf(&b, " Most active plan: %s with %d runs.", top.PlanName, top.RunCount)
	}

	if er := rep.ExecutionRate; er != nil && er.TotalPlans > 0 {
		fmt.Fprintf(&b, " %d of %d newly created plans were executed (%.1f%%).",
			er.ExecutedPlans, er.TotalPlans, er.Rate)
	}

	return b.String(), nil
}

var _ Summarizer = (*HeadlineSummarizer)(nil)
