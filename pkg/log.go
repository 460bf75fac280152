package pkg

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

// Streaming driver component identifiers.
const (
	ComponentEngine    Component = "engine"
	ComponentPool      Component = "pool"
	ComponentReactor   Component = "reactor"
	ComponentSequencer Component = "sequencer"
	ComponentTelemetry Component = "telemetry"
	ComponentTransport Component = "transport"
	ComponentConfig    Component = "config"
	ComponentTool      Component = "tool"
)

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatText LogFormat = iota // Text format (default)
	LogFormatJSON                  // JSON format
)

var (
	// DefaultLogger is the logger shared by every package of the driver.
	DefaultLogger *slog.Logger

	logLevel = new(slog.LevelVar)

	// logMutex protects DefaultLogger replacement.
	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// SetLogLevel sets the minimum log level for all driver logging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() slog.Level {
	return logLevel.Level()
}

// ParseLogLevel converts a level name (debug, info, warn, error) to a
// [slog.Level]. Unknown names yield [slog.LevelWarn] and false.
func ParseLogLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelWarn, false
	}
}

// SetLogger replaces the default logger with a custom logger.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetLogFormat configures the default logger to use the specified format.
// The logger writes to os.Stderr so that stdout stays free for stream data.
func SetLogFormat(format LogFormat) {
	logMutex.Lock()
	defer logMutex.Unlock()
	opts := &slog.HandlerOptions{Level: logLevel}
	switch format {
	case LogFormatJSON:
		DefaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	default:
		DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
}

// NewLogger creates a new text logger writing to the given writer.
func NewLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: logLevel}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewJSONLogger creates a new JSON logger writing to the given writer.
func NewJSONLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: logLevel}
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// logger returns the current default logger.
func logger() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

func withComponent(component Component, args []any) []any {
	return append([]any{"component", string(component)}, args...)
}

// Enabled reports whether a message at level would be emitted. Hot paths use
// it to skip building attributes that would be discarded.
func Enabled(level slog.Level) bool {
	return level >= logLevel.Level()
}

// LogDebug logs a debug message with the given component.
func LogDebug(component Component, msg string, args ...any) {
	logger().Debug(msg, withComponent(component, args)...)
}

// LogInfo logs an info message with the given component.
func LogInfo(component Component, msg string, args ...any) {
	logger().Info(msg, withComponent(component, args)...)
}

// LogWarn logs a warning message with the given component.
func LogWarn(component Component, msg string, args ...any) {
	logger().Warn(msg, withComponent(component, args)...)
}

// LogError logs an error message with the given component.
func LogError(component Component, msg string, args ...any) {
	logger().Error(msg, withComponent(component, args)...)
}
