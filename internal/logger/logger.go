// Package logger sets up the application's structured logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// New creates a console logger at the given level and makes it the global
// logger. Unknown levels fall back to info.
func New(level string) zerolog.Logger {
	return NewWithWriter(os.Stderr, level)
}

func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		if level != "" {
			fmt.Fprintf(os.Stderr, "Invalid log level '%s', defaulting to 'info'\n", level)
		}
		logLevel = zerolog.InfoLevel
	}

	l := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(logLevel).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()

	log.Logger = l
	return l
}
