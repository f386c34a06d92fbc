package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rundigest/domain/plan"
	"github.com/felixgeelhaar/rundigest/domain/source"
)

// runsOptions holds options for the runs list command.
type runsOptions struct {
	window     windowFlags
	planID     string
	state      string
	limit      int
	jsonOutput bool
}

// newRunsCmd creates the runs command group.
func (a *App) newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect plan runs",
	}
	cmd.AddCommand(a.newRunsListCmd(), a.newRunsGetCmd())
	return cmd
}

// newRunsListCmd creates the runs list command.
func (a *App) newRunsListCmd() *cobra.Command {
	opts := &runsOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plan runs in a time window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listRuns(cmd.Context(), opts)
		},
	}

	opts.window.register(cmd)
	cmd.Flags().StringVar(&opts.planID, "plan", "", "Filter by plan ID")
	cmd.Flags().StringVar(&opts.state, "state", "", "Filter by state (pending, running, complete, failed)")
	cmd.Flags().IntVar(&opts.limit, "limit", 100, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *App) listRuns(ctx context.Context, opts *runsOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	src, err := a.newSource(cfg)
	if err != nil {
		return err
	}

	since, until, err := opts.window.resolve(timeNow())
	if err != nil {
		return err
	}

	runs, err := src.ListRuns(ctx, source.RunQuery{
		PlanID: opts.planID,
		State:  plan.State(opts.state),
		Since:  since,
		Until:  until,
		Limit:  opts.limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, r := range runs {
		duration := "-"
		if secs, ok := r.DurationSeconds(); ok {
			duration = fmt.Sprintf("%.1fs", secs)
		}
		fmt.Fprintf(a.stdout, "%-40s %-10s %-8s %s\n",
			r.ID, r.State, duration, r.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(a.stdout, "\n%d runs\n", len(runs))
	return nil
}

// newRunsGetCmd creates the runs get command.
func (a *App) newRunsGetCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <run-id>",
		Short: "Show one plan run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.getRun(cmd.Context(), args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *App) getRun(ctx context.Context, id string, jsonOutput bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	src, err := a.newSource(cfg)
	if err != nil {
		return err
	}

	getter, ok := src.(source.RunGetter)
	if !ok {
		return errors.New("run lookup is not supported by this source")
	}

	r, err := getter.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(a.stdout, "ID:        %s\n", r.ID)
	fmt.Fprintf(a.stdout, "Plan:      %s\n", r.PlanID)
	fmt.Fprintf(a.stdout, "State:     %s\n", r.State)
	fmt.Fprintf(a.stdout, "Created:   %s\n", r.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	if r.CompletedAt != nil {
		fmt.Fprintf(a.stdout, "Completed: %s\n", r.CompletedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	if secs, ok := r.DurationSeconds(); ok {
		fmt.Fprintf(a.stdout, "Duration:  %.1fs\n", secs)
	}
	if r.State.IsFailure() {
		fmt.Fprintf(a.stdout, "Error:     %s\n", r.ErrorMessage())
	}
	return nil
}
