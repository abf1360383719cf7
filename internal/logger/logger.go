// Package logger provides leveled, printf-style logging for dfsck.
//
// Verbosity is a property of the Logger value, configured once from the
// invocation's configuration. There is no package-level mutable level:
// a diagnostic tool that is itself part of test harnesses must not leak
// verbosity changes across invocations sharing a process.
package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"strings"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration string into a Level.
// Unknown values fall back to INFO.
func ParseLevel(level string) Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes timestamped, leveled log lines to a single destination.
//
// The zero value is not usable; construct with New or Nop.
type Logger struct {
	level Level
	out   *stdlog.Logger
}

// New creates a Logger writing to w at the given minimum level.
func New(level Level, w io.Writer) *Logger {
	return &Logger{
		level: level,
		out:   stdlog.New(w, "", 0),
	}
}

// Nop returns a Logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{
		level: LevelError + 1,
		out:   stdlog.New(io.Discard, "", 0),
	}
}

func (l *Logger) logf(level Level, format string, v ...any) {
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	message := fmt.Sprintf(format, v...)
	l.out.Println(prefix + message)
}

func (l *Logger) Debug(format string, v ...any) {
	l.logf(LevelDebug, format, v...)
}

func (l *Logger) Info(format string, v ...any) {
	l.logf(LevelInfo, format, v...)
}

func (l *Logger) Warn(format string, v ...any) {
	l.logf(LevelWarn, format, v...)
}

func (l *Logger) Error(format string, v ...any) {
	l.logf(LevelError, format, v...)
}
