package config

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging sets the global level and writer. format "json" keeps
// zerolog's native output; anything else is the human console writer.
func SetupLogging(level, format string) {
	zerolog.SetGlobalLevel(parseLevel(level))

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if strings.EqualFold(format, "json") {
		out = os.Stderr
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "promo-wizard").Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
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
