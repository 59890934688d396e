// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Component names attached to loggers as the "component" field.
const (
	ComponentClient     = "youtube-client"
	ComponentScraper    = "scraper"
	ComponentPagination = "pagination"
	ComponentQuota      = "quota"
	ComponentServer     = "server"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// parseLevel converts LogLevel to zerolog.Level. Unknown names map to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Outgoing API requests (method, part, page token)
//   - Per-page pagination progress
//   - Ignored attribute names
//   - Quota accounting below the warning threshold
//
// Info: Normal operation events
//   - Completed searches (pages, items, duration)
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Quota usage above 80% of the daily budget
//   - Quota accounting failures (Redis unavailable)
//   - Ignored reserved search parameters
//   - Partial search results
//
// Error: Error conditions requiring attention
//   - Failed API calls (status, message, reason)
//   - Daily quota exhausted
//   - Configuration errors
//
// Context Fields:
//   - component: youtube-client, scraper, pagination, quota, server
//   - method: API method (channels.list, search.list)
//   - status: HTTP status code
//   - reason: API error reason (quotaExceeded, keyInvalid, ...)
//   - error_class: Error classification (client, server, quota, network)
//   - duration: Request duration
//   - quota_used / quota_limit: Daily quota units
//   - request_id: X-Request-ID of a served request
