package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// defaultLogger is the process-wide logger used by the package helpers
	defaultLogger zerolog.Logger
)

// LogLevel represents the log level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

// Format selects the log encoding
type Format string

const (
	// FormatJSON writes one JSON object per line
	FormatJSON Format = "json"
	// FormatText writes human-readable console lines
	FormatText Format = "text"
)

// Config represents logger configuration
type Config struct {
	Level  LogLevel
	Format Format
	// Output defaults to os.Stdout
	Output io.Writer
}

// Configure installs the process-wide logger and returns it so callers can
// hand it to components as a dependency.
func Configure(config Config) zerolog.Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(config.Level))

	var writer io.Writer = config.Output
	if Format(strings.ToLower(string(config.Format))) == FormatText {
		writer = zerolog.ConsoleWriter{
			Out:        config.Output,
			TimeFormat: time.RFC3339,
		}
	}

	defaultLogger = zerolog.New(writer).With().Timestamp().Logger()
	log.Logger = defaultLogger
	return defaultLogger
}

func parseLevel(level LogLevel) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(string(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// Get returns the configured process-wide logger
func Get() zerolog.Logger {
	return defaultLogger
}

// Component returns a child logger tagged with the component name
func Component(name string) zerolog.Logger {
	return defaultLogger.With().Str("component", name).Logger()
}

// Debug logs a debug message
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info logs an informational message
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn logs a warning message
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error logs an error message
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// Fatal logs a fatal message and then exits
func Fatal() *zerolog.Event {
	return defaultLogger.Fatal()
}

func init() {
	Configure(Config{
		Level:  InfoLevel,
		Format: FormatText,
		Output: os.Stdout,
	})
}
