// Package logging configures the global zerolog logger shared by the
// orchestrator and the delay worker processes.
package logging

import (
	"fmt"
	"github.com/rs/zerolog"
)

// Setup sets the global time format and minimum level. Records go to stderr,
// zerolog's default output.
func Setup(level string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)

	return nil
}

func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", level)
	}

	return lvl, nil
}
