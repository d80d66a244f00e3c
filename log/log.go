// Package log has the logger used by the library, it's a small interface so any
// logger can be plugged. It comes with slog and logrus implementations.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sirupsen/logrus"
)

// Kv is a helper type for structured logging fields usage.
type Kv = map[string]interface{}

// Logger is the interface that the loggers used by the library will use.
type Logger interface {
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	WithValues(values Kv) Logger
}

// Dummy logger doesn't log anything.
const Dummy = dummy(0)

type dummy int

var _ Logger = Dummy

func (d dummy) Infof(format string, args ...interface{})    {}
func (d dummy) Warningf(format string, args ...interface{}) {}
func (d dummy) Errorf(format string, args ...interface{})   {}
func (d dummy) Debugf(format string, args ...interface{})   {}
func (d dummy) WithValues(kv Kv) Logger                     { return d }

type slogLogger struct {
	logger *slog.Logger
}

// NewSlog returns a new Logger that uses a slog logger, if nil it will use the
// default slog logger.
func NewSlog(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{logger: l}
}

func (s slogLogger) Infof(format string, args ...interface{}) {
	s.log(slog.LevelInfo, format, args...)
}

func (s slogLogger) Warningf(format string, args ...interface{}) {
	s.log(slog.LevelWarn, format, args...)
}

func (s slogLogger) Errorf(format string, args ...interface{}) {
	s.log(slog.LevelError, format, args...)
}

func (s slogLogger) Debugf(format string, args ...interface{}) {
	s.log(slog.LevelDebug, format, args...)
}

func (s slogLogger) log(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !s.logger.Enabled(ctx, level) {
		return
	}
	s.logger.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (s slogLogger) WithValues(kv Kv) Logger {
	// Sorted so the attributes are always in the same order.
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(kv)*2)
	for _, k := range keys {
		args = append(args, k, kv[k])
	}

	return slogLogger{logger: s.logger.With(args...)}
}

type logrusLogger struct {
	*logrus.Entry
}

// NewLogrus returns a new Logger that uses a logrus logger entry.
func NewLogrus(l *logrus.Entry) Logger {
	return logrusLogger{Entry: l}
}

func (l logrusLogger) WithValues(kv Kv) Logger {
	return logrusLogger{Entry: l.Entry.WithFields(kv)}
}
