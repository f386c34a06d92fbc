package render

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/rundigest/domain/report"
)

// DefaultSubjectPrefix is the email subject prefix when none is configured.
const DefaultSubjectPrefix = "Portia Daily Digest"

// Digest is a rendered email: subject plus plain-text body.
type Digest struct {
	Subject string
	Body    string
}

// Renderer formats reports for human consumption.
type Renderer struct {
	subjectPrefix string
	summarizer    Summarizer
}

// RendererOption customizes a Renderer.
type RendererOption func(*Renderer)

// WithSubjectPrefix overrides the email subject prefix.
func WithSubjectPrefix(prefix string) RendererOption {
	return func(r *Renderer) {
		if prefix != "" {
			r.subjectPrefix = prefix
		}
	}
}

// WithSummarizer overrides the summarizer used for the digest headline.
func WithSummarizer(s Summarizer) RendererOption {
	return func(r *Renderer) {
		if s != nil {
			r.summarizer = s
		}
	}
}

// NewRenderer creates a Renderer with the headline summarizer.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		subjectPrefix: DefaultSubjectPrefix,
		summarizer:    NewHeadlineSummarizer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderEmail produces the digest email for a report. The subject carries
// the run count and the window's start date.
func (r *Renderer) RenderEmail(ctx context.Context, rep *report.Report) (Digest, error) {
	summary, err := r.summarizer.Summarize(ctx, rep)
	if err != nil {
		return Digest{}, fmt.Errorf("summarizing report: %w", err)
	}

	subject := fmt.Sprintf("%s - %d runs on %s",
		r.subjectPrefix, rep.TotalRuns, rep.Window.Since.UTC().Format("2006-01-02"))

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", summary)
	b.WriteString(r.RenderText(rep))

	return Digest{Subject: subject, Body: b.String()}, nil
}

// RenderText formats a report as plain text for terminal output.
func (r *Renderer) RenderText(rep *report.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Window: %s to %s\n",
		rep.Window.Since.UTC().Format("2006-01-02 15:04"),
		rep.Window.Until.UTC().Format("2006-01-02 15:04"))

	if rep.Empty() {
		b.WriteString(rep.Message + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\nRuns: %d total, %d completed, %d failed (%.1f%% success)\n",
		rep.TotalRuns, rep.CompletedRuns, rep.FailedRuns, rep.SuccessRate)
	fmt.Fprintf(&b, "Plans created: %d\n", rep.PlansCreated)

	if er := rep.ExecutionRate; er != nil && er.TotalPlans > 0 {
		fmt.Fprintf(&b, "Execution rate: %.1f%% (%d of %d created plans executed)\n",
			er.Rate, er.ExecutedPlans, er.TotalPlans)
	}

	if ds := rep.DurationStats; ds != nil && ds.Count > 0 {
		b.WriteString("\nDurations (completed runs):\n")
		fmt.Fprintf(&b, "  mean %.1fs  median %.1fs  p95 %.1fs  min %.1fs  max %.1fs\n",
			ds.MeanSeconds, ds.MedianSeconds, ds.P95Seconds, ds.MinSeconds, ds.MaxSeconds)
	}

	if len(rep.PerPlanStats) > 0 {
		b.WriteString("\nTop plans by run count:\n")
		for i, ps := range rep.PerPlanStats {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "  %-32s %d runs, avg %.1fs\n", ps.PlanName, ps.RunCount, ps.MeanDurationSeconds)
		}
	}

	if len(rep.SlowestRuns) > 0 {
		b.WriteString("\nSlowest runs:\n")
		for _, rr := range rep.SlowestRuns {
			fmt.Fprintf(&b, "  %-32s %.1fs (%s)\n", rr.PlanName, rr.DurationSeconds, rr.RunID)
		}
	}

	if fa := rep.FailureAnalysis; fa != nil && fa.Count > 0 {
		fmt.Fprintf(&b, "\nFailures (%d):\n", fa.Count)
		for _, fd := range fa.Details {
			fmt.Fprintf(&b, "  %-32s %s\n", fd.PlanName, fd.ErrorMessage)
		}
	}

	if tu := rep.ToolUsage; tu != nil {
		fmt.Fprintf(&b, "\nTools: %d invocations across %d tools\n",
			tu.TotalToolInvocations, tu.UniqueToolsUsed)
		for _, ts := range tu.TopTools {
			fmt.Fprintf(&b, "  %-32s %d uses, %.1f%% success\n", ts.ToolName, ts.UsageCount, ts.SuccessRate)
		}
	}

	if len(rep.HourlyDistribution) > 0 {
		b.WriteString("\nCompletions by hour (UTC):\n")
		hours := make([]int, 0, len(rep.HourlyDistribution))
		for h := range rep.HourlyDistribution {
			hours = append(hours, h)
		}
		sort.Ints(hours)
		for _, h := range hours {
			fmt.Fprintf(&b, "  %02d:00  %s %d\n", h,
				strings.Repeat("#", rep.HourlyDistribution[h]), rep.HourlyDistribution[h])
		}
	}

	return b.String()
}

// RenderMarkdown formats a report as a markdown document.
func (r *Renderer) RenderMarkdown(rep *report.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Plan Run Digest: %s\n\n", rep.Window.Since.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Window: `%s` to `%s`\n\n",
		rep.Window.Since.UTC().Format("2006-01-02 15:04"),
		rep.Window.Until.UTC().Format("2006-01-02 15:04"))

	if rep.Empty() {
		fmt.Fprintf(&b, "_%s_\n", rep.Message)
		return b.String()
	}

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total runs | %d |\n", rep.TotalRuns)
	fmt.Fprintf(&b, "| Completed | %d |\n", rep.CompletedRuns)
	fmt.Fprintf(&b, "| Failed | %d |\n", rep.FailedRuns)
	fmt.Fprintf(&b, "| Success rate | %.1f%% |\n", rep.SuccessRate)
	fmt.Fprintf(&b, "| Plans created | %d |\n", rep.PlansCreated)
	if er := rep.ExecutionRate; er != nil && er.TotalPlans > 0 {
		fmt.Fprintf(&b, "| Execution rate | %.1f%% |\n", er.Rate)
	}
	b.WriteString("\n")

	if ds := rep.DurationStats; ds != nil && ds.Count > 0 {
		b.WriteString("## Durations\n\n")
		fmt.Fprintf(&b, "| Mean | Median | P95 | Min | Max |\n|---|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %.1fs | %.1fs | %.1fs | %.1fs | %.1fs |\n\n",
			ds.MeanSeconds, ds.MedianSeconds, ds.P95Seconds, ds.MinSeconds, ds.MaxSeconds)
	}

	if len(rep.PerPlanStats) > 0 {
		b.WriteString("## Plans\n\n")
		fmt.Fprintf(&b, "| Plan | Runs | Avg duration |\n|---|---|---|\n")
		for _, ps := range rep.PerPlanStats {
			fmt.Fprintf(&b, "| %s | %d | %.1fs |\n", ps.PlanName, ps.RunCount, ps.MeanDurationSeconds)
		}
		b.WriteString("\n")
	}

	if fa := rep.FailureAnalysis; fa != nil && fa.Count > 0 {
		fmt.Fprintf(&b, "## Failures (%d)\n\n", fa.Count)
		fmt.Fprintf(&b, "| Plan | Run | Error |\n|---|---|---|\n")
		for _, fd := range fa.Details {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", fd.PlanName, fd.RunID, fd.ErrorMessage)
		}
		b.WriteString("\n")
	}

	if tu := rep.ToolUsage; tu != nil {
		b.WriteString("## Tool usage\n\n")
		fmt.Fprintf(&b, "%d invocations across %d tools.\n\n", tu.TotalToolInvocations, tu.UniqueToolsUsed)
		fmt.Fprintf(&b, "| Tool | Uses | Success |\n|---|---|---|\n")
		for _, ts := range tu.TopTools {
			fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", ts.ToolName, ts.UsageCount, ts.SuccessRate)
		}
		b.WriteString("\n")
	}

	return b.String()
}
