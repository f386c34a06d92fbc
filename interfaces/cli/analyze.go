package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rundigest/domain/report"
	"github.com/felixgeelhaar/rundigest/domain/source"
	"github.com/felixgeelhaar/rundigest/infrastructure/config"
	"github.com/felixgeelhaar/rundigest/infrastructure/render"
	"github.com/felixgeelhaar/rundigest/infrastructure/storage/sqlite"
)

// analyzeOptions holds options for the analyze command.
type analyzeOptions struct {
	window      windowFlags
	withTools   bool
	jsonOutput  bool
	markdown    bool
	archivePath string
}

// newAnalyzeCmd creates the analyze command.
func (a *App) newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze plan runs in a time window",
		Long: `Analyze fetches plan runs in a time window and produces an analytics
report: success rates, duration percentiles, plan rankings, failure
summaries, temporal distributions, and (optionally) tool usage.

Examples:
  # Last 24 hours
  rundigest analyze

  # A full UTC day
  rundigest analyze --yesterday

  # Explicit window with tool metrics, as JSON
  rundigest analyze --since 2026-08-01 --until 2026-08-08 --with-tools --json

  # Offline, against a local archive
  rundigest analyze --from-archive digest.db --yesterday`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd.Context(), opts)
		},
	}

	opts.window.register(cmd)
	cmd.Flags().BoolVar(&opts.withTools, "with-tools", false, "Include tool usage and performance metrics")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVar(&opts.markdown, "markdown", false, "Output the report as markdown")
	cmd.Flags().StringVar(&opts.archivePath, "from-archive", "", "Read runs from a local archive instead of the API")

	return cmd
}

// runAnalyze executes the analysis and writes the report.
func (a *App) runAnalyze(ctx context.Context, opts *analyzeOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	since, until, err := opts.window.resolve(timeNow())
	if err != nil {
		return err
	}

	src, cleanup, err := a.resolveSource(cfg, opts.archivePath)
	if err != nil {
		return err
	}
	defer cleanup()

	rep, err := a.analyzer(cfg, src).AnalyzeWindow(ctx, since, until, opts.withTools)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	return a.writeReport(rep, opts.jsonOutput, opts.markdown)
}

// resolveSource picks the archive or the API as the run source.
func (a *App) resolveSource(cfg *config.Config, archivePath string) (source.Source, func(), error) {
	if archivePath != "" {
		archive, err := sqlite.NewArchive(sqlite.DefaultConfig(), sqlite.WithDSN("file:"+archivePath))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open archive: %w", err)
		}
		return archive, func() { _ = archive.Close() }, nil
	}

	src, err := a.newSource(cfg)
	if err != nil {
		return nil, nil, err
	}
	return src, func() {}, nil
}

// writeReport renders a report in the selected format.
func (a *App) writeReport(rep *report.Report, asJSON, asMarkdown bool) error {
	switch {
	case asJSON:
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case asMarkdown:
		_, err := fmt.Fprint(a.stdout, render.NewRenderer().RenderMarkdown(rep))
		return err
	default:
		_, err := fmt.Fprint(a.stdout, render.NewRenderer().RenderText(rep))
		return err
	}
}
