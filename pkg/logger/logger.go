// Package logger builds the zerolog root logger for the service. The level
// comes from LOG_LEVEL and dev mode swaps the JSON stream for a console
// writer that is easier to read during local runs.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New creates the root logger and installs it as the package-level default.
// Unknown level names fall back to info.
func New(level string, dev bool) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if dev {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	l := zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger()
	log.Logger = l
	return l
}

func parseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
