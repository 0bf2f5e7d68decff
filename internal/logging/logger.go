// Package logging provides the process-wide structured logger.
package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	logger zerolog.Logger
	inited bool
)

// Init initializes the global logger. Format is "console" or "json".
func Init(level, format string) {
	mu.Lock()
	defer mu.Unlock()

	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn", "warning":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}

	var l zerolog.Logger
	if format == "json" {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger = l.Level(lvl).With().Timestamp().Logger()
	inited = true
}

// Logger returns the global logger, initializing defaults on first use.
func Logger() zerolog.Logger {
	mu.Lock()
	ok := inited
	mu.Unlock()
	if !ok {
		Init("info", "console")
	}
	return logger
}

// Debug logs a debug message with alternating key/value fields.
func Debug(msg string, kv ...any) {
	l := Logger()
	logEvent(l.Debug(), msg, kv)
}

// Info logs an info message with alternating key/value fields.
func Info(msg string, kv ...any) {
	l := Logger()
	logEvent(l.Info(), msg, kv)
}

// Warn logs a warning with alternating key/value fields.
func Warn(msg string, kv ...any) {
	l := Logger()
	logEvent(l.Warn(), msg, kv)
}

// Error logs an error with alternating key/value fields.
func Error(msg string, kv ...any) {
	l := Logger()
	logEvent(l.Error(), msg, kv)
}

func logEvent(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
