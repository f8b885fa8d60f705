package debug

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (state changes, prints)
	LevelLive    = 2 // Live info (key presses, photos taken, timers)
	LevelVerbose = 3 // Verbose (actions, render calls)
	LevelTrace   = 4 // Trace (GPIO, LED writes, absorbed events)
)

var (
	level  int
	output io.Writer = os.Stdout
	logger           = zerolog.Nop()
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (state changes, print jobs)
// 2 = live info (key presses, photos taken)
// 3 = verbose (entry/exit actions, rendering)
// 4 = trace (GPIO, very low level)
func Init(debugLevel int) {
	level = debugLevel
	build()
}

// SetOutput redirects log output (e.g. to also feed the web status stream).
func SetOutput(w io.Writer) {
	output = w
	build()
}

func build() {
	if level <= LevelOff {
		logger = zerolog.Nop()
		return
	}
	cw := zerolog.ConsoleWriter{
		Out:        output,
		NoColor:    output != os.Stdout,
		TimeFormat: "15:04:05.000",
	}
	logger = zerolog.New(cw).Level(zerologLevel(level)).With().Timestamp().Str("app", "photobooth").Logger()
}

func zerologLevel(l int) zerolog.Level {
	switch {
	case l >= LevelTrace:
		return zerolog.TraceLevel
	case l >= LevelVerbose:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo {
		logger.Info().Msgf(format, args...)
	}
}

// Warn prints a level 1 warning.
func Warn(format string, args ...interface{}) {
	if level >= LevelInfo {
		logger.Warn().Msgf(format, args...)
	}
}

// Summary prints an important summary (level 1).
func Summary(title string) {
	if level >= LevelInfo {
		logger.Info().Msg("═══════════════════════════════════════")
		logger.Info().Msgf("  %s", title)
		logger.Info().Msg("═══════════════════════════════════════")
	}
}

// Transition prints a state change (level 1).
func Transition(from, to string) {
	if level >= LevelInfo {
		logger.Info().Str("from", from).Str("to", to).Msg("state change")
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive {
		logger.Info().Bool("live", true).Msgf(format, args...)
	}
}

// Key prints an incoming key event (level 2).
func Key(key, source string) {
	if level >= LevelLive {
		logger.Info().Bool("live", true).Str("key", key).Str("source", source).Msg("key press")
	}
}

// Shot prints a photo capture (level 2).
func Shot(number int, id string) {
	if level >= LevelLive {
		logger.Info().Bool("live", true).Int("number", number).Str("id", id).Msg("photo taken")
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose {
		logger.Debug().Msgf(format, args...)
	}
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if level >= LevelVerbose {
		logger.Debug().Msgf("%s: %+v", name, v)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose {
		logger.Debug().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		logger.Debug().Msgf("  %s", name)
		logger.Debug().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose {
		logger.Debug().Int("step", num).Msg(description)
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo {
		logger.Info().Msgf("  %s = %v", name, value)
	}
}

// Timer prints a timer start/stop (level 3).
func Timer(op, key string, period time.Duration) {
	if level >= LevelVerbose {
		logger.Debug().Str("timer", key).Dur("period", period).Msg(op)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace, GPIO).
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace {
		logger.Trace().Msgf(format, args...)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if level >= LevelTrace {
		logger.Trace().Str("op", operation).Int("pin", pin).Interface("value", value).Msg("gpio")
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if level >= LevelInfo {
		logger.Error().Err(err).Msg("error")
	}
}
