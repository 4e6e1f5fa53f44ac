package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents a log level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format represents the log output format.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// MaxBodySize is the default number of envelope bytes kept in a log record.
const MaxBodySize = 10 * 1024

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level

	// Format is the output format (text or json).
	Format Format

	// Output is the writer to send logs to. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the configuration used by the CLI when nothing is set.
func DefaultConfig() Config {
	return Config{
		Level:  LevelWarn,
		Format: FormatText,
		Output: os.Stderr,
	}
}

// New creates a new slog.Logger with the given configuration.
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	default:
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return slog.New(handler)
}

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Component returns l tagged with the name of the component logging through
// it. A nil l gives a no-op logger.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l.With("component", name)
}

// ParseLevel parses a log level name, case-insensitively.
// Unrecognized names give LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat parses a log format name. Unrecognized names give FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// TruncateBody shortens a request or response body for logging. maxSize <= 0
// uses MaxBodySize.
func TruncateBody(data string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxBodySize
	}
	if len(data) > maxSize {
		return data[:maxSize] + "...(truncated)"
	}
	return data
}
