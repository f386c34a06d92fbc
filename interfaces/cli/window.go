package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// windowFlags are the shared time-window flags for report commands.
type windowFlags struct {
	today     bool
	yesterday bool
	since     string
	until     string
}

// register adds the window flags to a command.
func (w *windowFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&w.today, "today", false, "Analyze today (midnight UTC to now)")
	f.BoolVar(&w.yesterday, "yesterday", false, "Analyze yesterday (full UTC day)")
	f.StringVar(&w.since, "since", "", "Window start (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&w.until, "until", "", "Window end (RFC 3339 or YYYY-MM-DD)")
}

// resolve turns the flags into a concrete [since, until) window. With no
// flags set, the window is the 24 hours ending at now.
func (w *windowFlags) resolve(now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()

	if w.today && w.yesterday {
		return time.Time{}, time.Time{}, fmt.Errorf("--today and --yesterday are mutually exclusive")
	}
	if (w.today || w.yesterday) && (w.since != "" || w.until != "") {
		return time.Time{}, time.Time{}, fmt.Errorf("--since/--until cannot be combined with --today/--yesterday")
	}

	switch {
	case w.today:
		start := now.Truncate(24 * time.Hour)
		return start, now, nil
	case w.yesterday:
		end := now.Truncate(24 * time.Hour)
		return end.Add(-24 * time.Hour), end, nil
	case w.since != "" || w.until != "":
		since := now.Add(-24 * time.Hour)
		until := now
		var err error
		if w.since != "" {
			if since, err = parseTimestamp(w.since); err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid --since: %w", err)
			}
		}
		if w.until != "" {
			if until, err = parseTimestamp(w.until); err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid --until: %w", err)
			}
		}
		return since, until, nil
	default:
		return now.Add(-24 * time.Hour), now, nil
	}
}

// parseTimestamp accepts RFC 3339 timestamps and bare dates.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD, got %q", s)
	}
	return t.UTC(), nil
}
