// Package logging wraps bolt behind a process-wide logger plus the Field
// combinators in fields.go, so call sites log domain values without
// repeating key names.
package logging

import (
	"os"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

var (
	defaultLogger *bolt.Logger
	once          sync.Once
)

// Config controls the process-wide logger.
type Config struct {
	// Level is the minimum level emitted: trace, debug, info, warn, error.
	Level string

	// Format selects json or console output.
	Format string

	// NoColor disables color in console output.
	NoColor bool

	// Output is where log lines are written. Defaults to stderr so report
	// output on stdout stays clean.
	Output *os.File
}

// DefaultConfig is the interactive default: console format on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stderr,
	}
}

// ProductionConfig emits JSON lines on stderr.
func ProductionConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// parseLevel maps a level name to bolt.Level, defaulting to info.
func parseLevel(s string) bolt.Level {
	switch s {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "info":
		return bolt.INFO
	case "warn":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// Init builds the process-wide logger. Only the first call takes effect;
// later calls are no-ops.
func Init(config Config) {
	once.Do(func() {
		output := config.Output
		if output == nil {
			output = os.Stderr
		}

		var handler bolt.Handler
		if config.Format == "json" {
			handler = bolt.NewJSONHandler(output)
		} else {
			handler = bolt.NewConsoleHandler(output)
		}

		defaultLogger = bolt.New(handler).SetLevel(parseLevel(config.Level))
	})
}

// Get returns the process-wide logger, initializing with DefaultConfig on
// first use.
func Get() *bolt.Logger {
	if defaultLogger == nil {
		Init(DefaultConfig())
	}
	return defaultLogger
}

// SetLevel adjusts the minimum level of the process-wide logger, for the
// --log-level flag.
func SetLevel(level string) {
	Get().SetLevel(parseLevel(level))
}

// LogEvent carries a bolt.Event so Fields can be chained onto it.
type LogEvent struct {
	event *bolt.Event
}

// NewEvent wraps an existing bolt.Event, typically from a non-default
// logger in tests.
func NewEvent(e *bolt.Event) *LogEvent {
	return &LogEvent{event: e}
}

// Add applies one Field and returns the event for chaining.
func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

// Msg emits the event with a message.
func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}

// Send emits the event without a message.
func (l *LogEvent) Send() {
	l.event.Send()
}

// Per-level entry points on the process-wide logger, wrapped for Field
// chaining.

// Trace starts a trace-level event.
func Trace() *LogEvent {
	return &LogEvent{event: Get().Trace()}
}

// Debug starts a debug-level event.
func Debug() *LogEvent {
	return &LogEvent{event: Get().Debug()}
}

// Info starts an info-level event.
func Info() *LogEvent {
	return &LogEvent{event: Get().Info()}
}

// Warn starts a warn-level event.
func Warn() *LogEvent {
	return &LogEvent{event: Get().Warn()}
}

// Error starts an error-level event.
func Error() *LogEvent {
	return &LogEvent{event: Get().Error()}
}

// Fatal starts a fatal-level event.
func Fatal() *LogEvent {
	return &LogEvent{event: Get().Fatal()}
}
