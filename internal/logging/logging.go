package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

var setupOnce sync.Once

// Setup configures the global zerolog logger. format is "console" (pretty
// output for local runs) or "ecs" (Elastic Common Schema JSON on stdout).
// Only the first call has an effect.
func Setup(app, level, format string) {
	setupOnce.Do(func() {
		log.Logger = New(os.Stdout, app, level, format)
	})
}

// New builds a logger writing to w. Split out from Setup so tests can capture output.
func New(w io.Writer, app, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch strings.ToLower(format) {
	case "ecs":
		logger = ecszerolog.New(w)
	case "json":
		logger = zerolog.New(w).With().Timestamp().Logger()
	default:
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}

	return logger.Level(lvl).With().Str("app", app).Logger()
}
