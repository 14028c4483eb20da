package pkg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

// Audio pipeline component identifiers.
const (
	ComponentDevice    Component = "device"
	ComponentAudio     Component = "audio"
	ComponentStream    Component = "stream"
	ComponentFeedback  Component = "feedback"
	ComponentControl   Component = "control"
	ComponentOutput    Component = "output"
	ComponentRing      Component = "ring"
	ComponentHAL       Component = "hal"
	ComponentConfig    Component = "config"
	ComponentTelemetry Component = "telemetry"
)

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatText LogFormat = iota // Text format (default)
	LogFormatJSON                  // JSON format
)

var (
	// DefaultLogger receives every record emitted through the Log* helpers.
	DefaultLogger *slog.Logger

	// logLevel controls the minimum log level.
	logLevel = new(slog.LevelVar)

	// logMutex protects logger configuration.
	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// SetLogLevel sets the minimum level shared by the default handlers.
func SetLogLevel(level slog.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logLevel.Set(level)
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() slog.Level {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return logLevel.Level()
}

// SetLogger replaces the default logger with a custom logger.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetLogFormat rebuilds the default logger on os.Stderr in the given format.
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

// NewLogger returns a text logger on w. A nil opts uses the shared level.
func NewLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: logLevel}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewJSONLogger returns a JSON logger on w.
func NewJSONLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: logLevel}
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func current() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

func withComponent(component Component, args []any) []any {
	return append([]any{"component", string(component)}, args...)
}

// Enabled reports whether records at level would be emitted. Callers on
// streaming paths use it to skip building attributes.
func Enabled(level slog.Level) bool {
	return current().Enabled(context.Background(), level)
}

// LogDebug logs a debug message tagged with component.
func LogDebug(component Component, msg string, args ...any) {
	current().Debug(msg, withComponent(component, args)...)
}

// LogInfo logs an info message tagged with component.
func LogInfo(component Component, msg string, args ...any) {
	current().Info(msg, withComponent(component, args)...)
}

// LogWarn logs a warning tagged with component.
func LogWarn(component Component, msg string, args ...any) {
	current().Warn(msg, withComponent(component, args)...)
}

// LogError logs an error tagged with component.
func LogError(component Component, msg string, args ...any) {
	current().Error(msg, withComponent(component, args)...)
}

// ParseLevel converts a level name (debug, info, warn, error) to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalidParameter, name)
	}
	return level, nil
}
