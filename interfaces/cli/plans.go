package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newPlansCmd creates the plans command group.
func (a *App) newPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect plans",
	}
	cmd.AddCommand(a.newPlansListCmd(), a.newPlansGetCmd())
	return cmd
}

// newPlansListCmd creates the plans list command.
func (a *App) newPlansListCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently created plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listPlans(cmd.Context(), limit, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of plans to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *App) listPlans(ctx context.Context, limit int, jsonOutput bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	src, err := a.newSource(cfg)
	if err != nil {
		return err
	}

	plans, err := src.ListPlans(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list plans: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plans)
	}

	for _, p := range plans {
		fmt.Fprintf(a.stdout, "%-40s %-32s %s\n", p.ID, p.Name, p.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(a.stdout, "\n%d plans\n", len(plans))
	return nil
}

// newPlansGetCmd creates the plans get command.
func (a *App) newPlansGetCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <plan-id>",
		Short: "Show one plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.getPlan(cmd.Context(), args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *App) getPlan(ctx context.Context, id string, jsonOutput bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	src, err := a.newSource(cfg)
	if err != nil {
		return err
	}

	p, err := src.GetPlan(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get plan: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	fmt.Fprintf(a.stdout, "ID:          %s\n", p.ID)
	fmt.Fprintf(a.stdout, "Name:        %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(a.stdout, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(a.stdout, "Created:     %s\n", p.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(a.stdout, "Updated:     %s\n", p.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	return nil
}
