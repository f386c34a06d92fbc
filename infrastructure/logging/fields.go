package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/rundigest/domain/plan"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for digest pipeline logging.

// RunID adds a run ID field.
func RunID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("run_id", id)
	}
}

// PlanID adds a plan ID field.
func PlanID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("plan_id", id)
	}
}

// State adds a run state field.
func State(s plan.State) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("state", string(s))
	}
}

// Window adds window bound fields in RFC 3339.
func Window(since, until time.Time) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("since", since.Format(time.RFC3339)).Str("until", until.Format(time.RFC3339))
	}
}

// RunCount adds a run count field.
func RunCount(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("run_count", n)
	}
}

// PlanCount adds a plan count field.
func PlanCount(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("plan_count", n)
	}
}

// Query adds a source query kind field.
func Query(kind string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("query", kind)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
