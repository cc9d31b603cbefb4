package obs

import (
	"log"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the logging interface used across the module.
type Logger interface {
	Logf(level Level, format string, args ...interface{})
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Logf(level Level, format string, args ...interface{}) {}

// StdLogger adapts the standard library logger. A nil L logs to [log.Default].
type StdLogger struct {
	L   *log.Logger
	Min Level
}

func (s StdLogger) Logf(level Level, format string, args ...interface{}) {
	if level < s.Min {
		return
	}
	l := s.L
	if l == nil {
		l = log.Default()
	}
	l.Printf("[%s] "+format, append([]interface{}{level.String()}, args...)...)
}

// OrNop returns l, or a [NopLogger] when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
