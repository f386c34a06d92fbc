package plan_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/rundigest/domain/plan"
)

func ms(n int64) *int64 { return &n }

func TestState(t *testing.T) {
	t.Parallel()

	t.Run("complete is the only success state", func(t *testing.T) {
		t.Parallel()

		if !plan.StateComplete.IsSuccess() {
			t.Error("StateComplete.IsSuccess() = false")
		}
		for _, s := range []plan.State{plan.StatePending, plan.StateRunning, plan.StateFailed, "cancelled"} {
			if s.IsSuccess() {
				t.Errorf("%s.IsSuccess() = true", s)
			}
		}
	})

	t.Run("failed is the only failure state", func(t *testing.T) {
		t.Parallel()

		if !plan.StateFailed.IsFailure() {
			t.Error("StateFailed.IsFailure() = false")
		}
		for _, s := range []plan.State{plan.StatePending, plan.StateRunning, plan.StateComplete, "cancelled"} {
			if s.IsFailure() {
				t.Errorf("%s.IsFailure() = true", s)
			}
		}
	})
}

func TestFallback(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("truncates long identifiers to eight characters", func(t *testing.T) {
		t.Parallel()

		p := plan.Fallback("abcdef1234567890", now)
		if p.Name != "Plan abcdef12" {
			t.Errorf("Name = %q, want %q", p.Name, "Plan abcdef12")
		}
		if p.ID != "abcdef1234567890" {
			t.Errorf("ID = %q, want full identifier", p.ID)
		}
		if !p.CreatedAt.Equal(now) || !p.UpdatedAt.Equal(now) {
			t.Errorf("timestamps = %v/%v, want %v", p.CreatedAt, p.UpdatedAt, now)
		}
	})

	t.Run("keeps short identifiers whole", func(t *testing.T) {
		t.Parallel()

		if p := plan.Fallback("abc", now); p.Name != "Plan abc" {
			t.Errorf("Name = %q, want %q", p.Name, "Plan abc")
		}
	})
}

func TestRun_DurationSeconds(t *testing.T) {
	t.Parallel()

	t.Run("converts milliseconds", func(t *testing.T) {
		t.Parallel()

		r := plan.Run{DurationMs: ms(1500)}
		secs, ok := r.DurationSeconds()
		if !ok || secs != 1.5 {
			t.Errorf("DurationSeconds() = %v, %v, want 1.5, true", secs, ok)
		}
	})

	t.Run("reports absent duration", func(t *testing.T) {
		t.Parallel()

		if _, ok := (plan.Run{}).DurationSeconds(); ok {
			t.Error("DurationSeconds() ok = true for nil duration")
		}
	})
}

func TestRun_ErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		metadata map[string]any
		want     string
	}{
		{"reads metadata error", map[string]any{"error": "timeout"}, "timeout"},
		{"nil metadata", nil, "Unknown error"},
		{"missing key", map[string]any{"other": "x"}, "Unknown error"},
		{"empty message", map[string]any{"error": ""}, "Unknown error"},
		{"non-string value", map[string]any{"error": 42}, "Unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := plan.Run{Metadata: tt.metadata}
			if got := r.ErrorMessage(); got != tt.want {
				t.Errorf("ErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRun_ToolInvocations(t *testing.T) {
	t.Parallel()

	t.Run("no metadata yields nothing", func(t *testing.T) {
		t.Parallel()

		invs, malformed := (plan.Run{}).ToolInvocations()
		if len(invs) != 0 || malformed != 0 {
			t.Errorf("ToolInvocations() = %v, %d, want none", invs, malformed)
		}
	})

	t.Run("non-list payload counts as one malformed entry", func(t *testing.T) {
		t.Parallel()

		r := plan.Run{Metadata: map[string]any{"tools_used": "browser,search"}}
		invs, malformed := r.ToolInvocations()
		if len(invs) != 0 || malformed != 1 {
			t.Errorf("ToolInvocations() = %v, %d, want 0 invocations and 1 malformed", invs, malformed)
		}
	})

	t.Run("parses well-formed entries and skips the rest", func(t *testing.T) {
		t.Parallel()

		r := plan.Run{Metadata: map[string]any{"tools_used": []any{
			map[string]any{"name": "browser", "success": false, "duration_ms": float64(1200)},
			map[string]any{"name": "search"},
			map[string]any{"name": ""},
			map[string]any{"duration_ms": float64(10)},
			"bogus",
		}}}
		invs, malformed := r.ToolInvocations()
		if len(invs) != 2 {
			t.Fatalf("got %d invocations, want 2", len(invs))
		}
		if malformed != 3 {
			t.Errorf("malformed = %d, want 3", malformed)
		}

		if invs[0].Name != "browser" || invs[0].Success {
			t.Errorf("invs[0] = %+v, want failed browser call", invs[0])
		}
		if secs, ok := invs[0].DurationSeconds(); !ok || secs != 1.2 {
			t.Errorf("invs[0] duration = %v, %v, want 1.2, true", secs, ok)
		}

		// Absent success flag defaults to true; absent duration stays nil.
		if invs[1].Name != "search" || !invs[1].Success {
			t.Errorf("invs[1] = %+v, want successful search call", invs[1])
		}
		if _, ok := invs[1].DurationSeconds(); ok {
			t.Error("invs[1] reported a duration, want none")
		}
	})

	t.Run("rejects negative durations", func(t *testing.T) {
		t.Parallel()

		r := plan.Run{Metadata: map[string]any{"tools_used": []any{
			map[string]any{"name": "browser", "duration_ms": float64(-5)},
		}}}
		invs, _ := r.ToolInvocations()
		if len(invs) != 1 || invs[0].DurationMs != nil {
			t.Errorf("invocation = %+v, want kept with nil duration", invs)
		}
	})
}
