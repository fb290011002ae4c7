package shared

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevelEnv names the environment variable consulted when NewLogger is given no level.
const LogLevelEnv = "HCS_LOG_LEVEL"

// NewLogger builds a console logger on stderr. An empty level falls back to HCS_LOG_LEVEL and
// then to "info"; "disabled" silences output.
func NewLogger(level string) zerolog.Logger {
	return NewLoggerWithWriter(os.Stderr, level)
}

// NewLoggerWithWriter is NewLogger with an explicit destination. Set HCS_LOG_FORMAT=json to
// emit JSON lines instead of console output.
func NewLoggerWithWriter(writer io.Writer, level string) zerolog.Logger {
	parsed := ParseLogLevel(level)
	if strings.EqualFold(strings.TrimSpace(os.Getenv("HCS_LOG_FORMAT")), "json") {
		return zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
	}
	console := zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339, NoColor: true}
	return zerolog.New(console).Level(parsed).With().Timestamp().Logger()
}

// ParseLogLevel resolves level, or HCS_LOG_LEVEL when level is empty. Unknown values map to info.
func ParseLogLevel(level string) zerolog.Level {
	candidate := strings.TrimSpace(level)
	if candidate == "" {
		candidate = FirstNonEmptyEnv(LogLevelEnv)
	}
	if candidate == "" {
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(candidate))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
