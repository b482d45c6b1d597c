/*
file: lucidkv/internal/logging/logging.go

Structured logging via zerolog, mirroring the component-logger pattern
pkg/log in the cuemby-warren orchestration example uses: a process-wide
Init sets level/format once at startup, and every subsystem derives its
own child logger with WithComponent so log lines are filterable by
subsystem without each package reaching into zerolog directly.
*/
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger, configured by Init.
var Logger zerolog.Logger

// Config drives Init, mapping directly onto the config.yaml logging
// section.
type Config struct {
	Level  string // debug, info, warn, error
	JSON   bool
	Output io.Writer // nil defaults to os.Stdout
}

// Init configures the global Logger. Call once at process startup,
// before any component logger is derived from it.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSON {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagging every line with
// component=name, e.g. "dispatch", "store", "raft", "bus".
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
