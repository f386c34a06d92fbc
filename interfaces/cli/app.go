// Package cli provides the command-line interface for rundigest.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rundigest/domain/source"
	"github.com/felixgeelhaar/rundigest/infrastructure/analytics"
	"github.com/felixgeelhaar/rundigest/infrastructure/config"
	"github.com/felixgeelhaar/rundigest/infrastructure/logging"
	"github.com/felixgeelhaar/rundigest/infrastructure/portia"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// timeNow is swappable in tests for deterministic windows.
var timeNow = time.Now

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	// newSource builds the run source; tests swap this for a fake.
	newSource func(cfg *config.Config) (source.Source, error)
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	app.newSource = app.portiaSource

	app.root = &cobra.Command{
		Use:   "rundigest",
		Short: "Analytics digests for Portia plan runs",
		Long: `rundigest fetches plan-run records from the Portia API, aggregates them
over a time window, and produces a structured analytics report: success
rates, duration percentiles, plan rankings, failure summaries, tool usage,
and execution-rate cross-references.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if app.logLevel != "" {
				logging.SetLevel(app.logLevel)
			}
		},
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to configuration file")
	app.root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newAnalyzeCmd(),
		app.newPlansCmd(),
		app.newRunsCmd(),
		app.newDigestCmd(),
		app.newArchiveCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithSource overrides the run source factory.
func (a *App) WithSource(src source.Source) *App {
	a.newSource = func(*config.Config) (source.Source, error) { return src, nil }
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadConfig loads the configuration file if one was given, otherwise builds
// configuration from environment variables.
func (a *App) loadConfig() (*config.Config, error) {
	if a.configPath != "" {
		loader := config.NewLoader()
		cfg, err := loader.LoadFile(a.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		return cfg, nil
	}
	return config.FromEnv(), nil
}

// portiaSource builds the Portia API client from configuration.
func (a *App) portiaSource(cfg *config.Config) (source.Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientCfg := portia.DefaultConfig()
	clientCfg.APIKey = cfg.API.APIKey
	clientCfg.OrgID = cfg.API.OrgID
	if cfg.API.BaseURL != "" {
		clientCfg.BaseURL = cfg.API.BaseURL
	}
	if cfg.API.Timeout > 0 {
		clientCfg.Timeout = cfg.API.Timeout
	}
	if cfg.API.MaxRetries > 0 {
		clientCfg.MaxRetries = cfg.API.MaxRetries
	}

	return portia.NewClient(clientCfg)
}

// analyzer builds the window analyzer over the given source.
func (a *App) analyzer(cfg *config.Config, src source.Source) *analytics.Analyzer {
	var opts []analytics.Option
	if cfg.Analyze.FetchLimit > 0 {
		opts = append(opts, analytics.WithFetchLimit(cfg.Analyze.FetchLimit))
	}
	if cfg.Analyze.TopRuns > 0 {
		opts = append(opts, analytics.WithTopRuns(cfg.Analyze.TopRuns))
	}
	if cfg.Analyze.TopPlans > 0 {
		opts = append(opts, analytics.WithTopPlans(cfg.Analyze.TopPlans))
	}
	return analytics.NewAnalyzer(src, opts...)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "rundigest version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
