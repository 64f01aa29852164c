// Package debug provides env-gated debug logging. Events are dropped unless
// TMCAT_DEBUG is set, so callers may log from warm paths without a level
// check of their own.
package debug

import (
	"os"

	"github.com/rs/zerolog"
)

// Enabled reports whether debug logging is on.
func Enabled() bool {
	return os.Getenv("TMCAT_DEBUG") != ""
}

// Log returns a debug event tagged with the given component, or a disabled
// event when TMCAT_DEBUG is unset.
func Log(component string) *zerolog.Event {
	if !Enabled() {
		return zerolog.Nop().Debug()
	}
	logger := zerolog.New(os.Stderr).With().
		Str("component", component).
		Timestamp().
		Logger()
	return logger.Debug()
}

// Printf logs a formatted debug message under the given component.
func Printf(component string, format string, args ...interface{}) {
	Log(component).Msgf(format, args...)
}
