// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global log level and installs a console writer on stderr.
// Unknown levels fall back to info.
func Init(level string) {
	InitWithWriter(level, os.Stderr)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(level string, w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
}

// ParseLevel maps a config string to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}
