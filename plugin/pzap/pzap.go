// Package pzap provides a plug-in kprod.Logger wrapping uber's zap for usage
// in a kprod.Producer.
//
// This can be used like so:
//
//	p, err := kprod.NewProducer(cl,
//	        kprod.WithLogger(pzap.New(zapLogger)),
//	        // ...other opts
//	)
//
// By default, the logger chooses the highest level possible that is enabled
// on the zap logger, and then sticks with that level forever. A variable
// level can be chosen by specifying the LevelFn option. See the
// documentation on Level or LevelFn for more info.
package pzap

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kprod-go/kprod"
)

// Logger provides the kprod.Logger interface for usage in kprod.WithLogger
// when initializing a producer.
type Logger struct {
	zl *zap.Logger

	levelFn func() kprod.LogLevel
}

// New returns a new logger that by default forever logs at the highest level
// enabled in the zap logger.
func New(zl *zap.Logger, opts ...Opt) *Logger {
	static := kprod.LogLevelError
	switch {
	case zl.Core().Enabled(zapcore.DebugLevel):
		static = kprod.LogLevelDebug
	case zl.Core().Enabled(zapcore.InfoLevel):
		static = kprod.LogLevelInfo
	case zl.Core().Enabled(zapcore.WarnLevel):
		static = kprod.LogLevelWarn
	}
	l := &Logger{
		zl:      zl,
		levelFn: func() kprod.LogLevel { return static },
	}
	for _, opt := range opts {
		opt.apply(l)
	}
	return l
}

// Opt applies options to the logger.
type Opt interface {
	apply(*Logger)
}

type opt struct{ fn func(*Logger) }

func (o opt) apply(l *Logger) { o.fn(l) }

// LevelFn sets a function that can dynamically change the log level.
//
// This log level is independent of the zap logger level; it provides the
// initial filter before Log is called, after which the zap logger level
// takes effect.
func LevelFn(fn func() kprod.LogLevel) Opt {
	return opt{func(l *Logger) { l.levelFn = fn }}
}

// Level sets a static level for the kprod.Logger Level function.
func Level(level kprod.LogLevel) Opt {
	return opt{func(l *Logger) { l.levelFn = func() kprod.LogLevel { return level } }}
}

// Level is for the kprod.Logger interface.
func (l *Logger) Level() kprod.LogLevel { return l.levelFn() }

// Log is for the kprod.Logger interface.
func (l *Logger) Log(level kprod.LogLevel, msg string, keyvals ...interface{}) {
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals)/2*2; i += 2 {
		k, v := keyvals[i], keyvals[i+1]
		fields = append(fields, zap.Any(k.(string), v))
	}
	switch level {
	case kprod.LogLevelDebug:
		l.zl.Debug(msg, fields...)
	case kprod.LogLevelError:
		l.zl.Error(msg, fields...)
	case kprod.LogLevelInfo:
		l.zl.Info(msg, fields...)
	case kprod.LogLevelWarn:
		l.zl.Warn(msg, fields...)
	}
}
