package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rundigest/infrastructure/render"
)

// digestOptions holds options for the digest command.
type digestOptions struct {
	window    windowFlags
	withTools bool
}

// newDigestCmd creates the digest command.
func (a *App) newDigestCmd() *cobra.Command {
	opts := &digestOptions{}

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Preview the digest email for a time window",
		Long: `Digest analyzes a time window and renders the daily digest email
(subject and plain-text body) to stdout. Without window flags it covers
yesterday, matching the daily schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDigest(cmd.Context(), opts)
		},
	}

	opts.window.register(cmd)
	cmd.Flags().BoolVar(&opts.withTools, "with-tools", false, "Include tool usage metrics")

	return cmd
}

// runDigest analyzes the window and prints the rendered email.
func (a *App) runDigest(ctx context.Context, opts *digestOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	// The digest covers yesterday unless a window was given.
	if !opts.window.today && opts.window.since == "" && opts.window.until == "" {
		opts.window.yesterday = true
	}
	since, until, err := opts.window.resolve(timeNow())
	if err != nil {
		return err
	}

	src, err := a.newSource(cfg)
	if err != nil {
		return err
	}

	rep, err := a.analyzer(cfg, src).AnalyzeWindow(ctx, since, until, opts.withTools)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	renderer := render.NewRenderer(render.WithSubjectPrefix(cfg.Digest.SubjectPrefix))
	digest, err := renderer.RenderEmail(ctx, rep)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Subject: %s\n\n%s", digest.Subject, digest.Body)
	return nil
}
