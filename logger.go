package kprod

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// LogLevel designates which level the logger should log at.
type LogLevel int8

const (
	// LogLevelNone disables logging.
	LogLevelNone LogLevel = iota
	// LogLevelError logs all errors. Generally, these should not happen.
	LogLevelError
	// LogLevelWarn logs all warnings, such as dropped messages.
	LogLevelWarn
	// LogLevelInfo logs informational messages, such as retries and
	// backoffs. This is usually the default log level.
	LogLevelInfo
	// LogLevelDebug logs verbose information, and is usually not used in
	// production.
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	}
	return "NONE"
}

// Logger is used to log informational messages.
type Logger interface {
	// Level returns the log level to log at.
	//
	// Implementations can change their log level on the fly, but this
	// function must be safe to call concurrently.
	Level() LogLevel

	// Log logs a message with key, value pair arguments for the given log
	// level.
	//
	// This must be safe to call concurrently.
	Log(level LogLevel, msg string, keyvals ...interface{})
}

// BasicLogger returns a logger that prints to stderr in the following format:
//
//	[LEVEL] message; key: val, key: val
func BasicLogger(level LogLevel) Logger {
	return &basicLogger{level}
}

type basicLogger struct {
	level LogLevel
}

var basicLoggerBufs = sync.Pool{New: func() interface{} { return new(strings.Builder) }}

func (b *basicLogger) Level() LogLevel { return b.level }
func (b *basicLogger) Log(level LogLevel, msg string, keyvals ...interface{}) {
	buf := basicLoggerBufs.Get().(*strings.Builder)
	defer basicLoggerBufs.Put(buf)

	buf.Reset()
	buf.WriteByte('[')
	buf.WriteString(level.String())
	buf.WriteString("] ")
	buf.WriteString(msg)

	if len(keyvals) > 0 {
		buf.WriteString("; ")
		format := strings.Repeat("%v: %v, ", len(keyvals)/2)
		format = format[:len(format)-2] // trim trailing comma and space
		fmt.Fprintf(buf, format, keyvals...)
	}

	buf.WriteByte('\n')

	os.Stderr.WriteString(buf.String())
}

// nopLogger, the default logger, drops everything.
type nopLogger struct{}

func (*nopLogger) Level() LogLevel                                  { return LogLevelNone }
func (*nopLogger) Log(level LogLevel, msg string, keyvals ...interface{}) {}

// wrappedLogger wraps the config logger for convenience at logging callsites.
type wrappedLogger struct {
	inner Logger
}

func (w *wrappedLogger) Level() LogLevel {
	if w.inner == nil {
		return LogLevelNone
	}
	return w.inner.Level()
}

func (w *wrappedLogger) Log(level LogLevel, msg string, keyvals ...interface{}) {
	if w.Level() < level {
		return
	}
	w.inner.Log(level, msg, keyvals...)
}
