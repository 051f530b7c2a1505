package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	base zerolog.Logger
	mu   sync.RWMutex
)

func init() {
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Init configures the process-wide logger for the given environment.
// "development" gets a human-readable console writer at debug level,
// everything else gets JSON at info level. LOG_LEVEL overrides the level.
func Init(env string) {
	var out io.Writer = os.Stderr
	level := zerolog.InfoLevel

	if strings.EqualFold(env, "development") || strings.EqualFold(env, "dev") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}
	if lv, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lv != zerolog.NoLevel {
		level = lv
	}

	SetOutput(out, level)
}

// SetOutput replaces the sink and level. Tests use it to capture output.
func SetOutput(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	base = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Get returns the underlying zerolog logger.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Debug(msg string, keyvals ...any) {
	l := Get()
	write(l.Debug(), msg, keyvals)
}

func Info(msg string, keyvals ...any) {
	l := Get()
	write(l.Info(), msg, keyvals)
}

func Warn(msg string, keyvals ...any) {
	l := Get()
	write(l.Warn(), msg, keyvals)
}

func Error(msg string, keyvals ...any) {
	l := Get()
	write(l.Error(), msg, keyvals)
}

// Fatal logs and exits the process with status 1.
func Fatal(msg string, keyvals ...any) {
	l := Get()
	write(l.Fatal(), msg, keyvals)
}

func write(ev *zerolog.Event, msg string, keyvals []any) {
	if ev == nil {
		return
	}
	if len(keyvals)%2 == 1 {
		keyvals = append(keyvals, "(MISSING)")
	}
	ev.Fields(keyvals).Msg(msg)
}
