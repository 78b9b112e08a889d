// Package logging builds the zap logger maintd writes its diagnostics with.
package logging

import (
	"io"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Syslog severities accepted by --loglevel.
const (
	SyslogError   = 3
	SyslogWarning = 4
	SyslogNotice  = 5
	SyslogInfo    = 6
	SyslogDebug   = 7
)

// Level maps a syslog severity to the zap level. enabled is false for the
// levels below error, which keep maintd silent.
func Level(syslog int) (level zapcore.Level, enabled bool) {
	switch {
	case syslog < SyslogError:
		return zapcore.FatalLevel, false
	case syslog == SyslogError:
		return zapcore.ErrorLevel, true
	case syslog == SyslogWarning:
		return zapcore.WarnLevel, true
	case syslog < SyslogDebug:
		return zapcore.InfoLevel, true
	default:
		return zapcore.DebugLevel, true
	}
}

// New returns a console logger on w. With deltaStamps each line carries the time
// since the previous line instead of the wall clock.
func New(syslog int, deltaStamps bool, w io.Writer) *zap.Logger {
	level, enabled := Level(syslog)
	if !enabled {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if deltaStamps {
		cfg.EncodeTime = newDeltaEncoder()
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core)
}

// newDeltaEncoder renders the seconds elapsed since the previous entry.
func newDeltaEncoder() zapcore.TimeEncoder {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		mu.Lock()
		var delta time.Duration
		if !last.IsZero() {
			delta = t.Sub(last)
		}
		last = t
		mu.Unlock()
		enc.AppendString("+" + strconv.FormatFloat(delta.Seconds(), 'f', 6, 64))
	}
}
