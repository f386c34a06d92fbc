package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rundigest/domain/source"
	"github.com/felixgeelhaar/rundigest/infrastructure/logging"
	"github.com/felixgeelhaar/rundigest/infrastructure/storage/sqlite"
)

// archiveOptions holds options for the archive command.
type archiveOptions struct {
	window windowFlags
	path   string
	limit  int
}

// newArchiveCmd creates the archive command.
func (a *App) newArchiveCmd() *cobra.Command {
	opts := &archiveOptions{}

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Fetch a window of runs and plans into a local archive",
		Long: `Archive fetches all runs in a time window, plus the plans they
reference, and stores them in a local SQLite database. Archived windows
can be analyzed offline with "analyze --from-archive".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runArchive(cmd.Context(), opts)
		},
	}

	opts.window.register(cmd)
	cmd.Flags().StringVar(&opts.path, "out", "digest.db", "Archive database path")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Maximum number of runs to fetch (0 = default)")

	return cmd
}

// runArchive copies one window of records from the API into the archive.
func (a *App) runArchive(ctx context.Context, opts *archiveOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	since, until, err := opts.window.resolve(timeNow())
	if err != nil {
		return err
	}

	src, err := a.newSource(cfg)
	if err != nil {
		return err
	}

	limit := opts.limit
	if limit <= 0 {
		limit = cfg.Analyze.FetchLimit
	}

	runs, err := src.ListRuns(ctx, source.RunQuery{Since: since, Until: until, Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to fetch runs: %w", err)
	}

	plans, err := src.ListPlans(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch plans: %w", err)
	}

	archive, err := sqlite.NewArchive(sqlite.DefaultConfig(), sqlite.WithDSN("file:"+opts.path+"?cache=shared&mode=rwc"))
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = archive.Close() }()

	if err := archive.SaveRuns(ctx, runs...); err != nil {
		return fmt.Errorf("failed to save runs: %w", err)
	}
	if err := archive.SavePlans(ctx, plans...); err != nil {
		return fmt.Errorf("failed to save plans: %w", err)
	}

	snapshotID, err := archive.RecordSnapshot(ctx, since, until, len(runs), len(plans))
	if err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}

	logging.Info().
		Add(logging.Operation("archive")).
		Add(logging.Window(since, until)).
		Add(logging.RunCount(len(runs))).
		Add(logging.PlanCount(len(plans))).
		Msg("archived window")

	fmt.Fprintf(a.stdout, "Archived %d runs and %d plans to %s (snapshot %s)\n",
		len(runs), len(plans), opts.path, snapshotID)
	return nil
}
