package logging

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logger struct {
	name      string
	level     atomicLevel
	inUTC     bool
	appenders []Appender
}

func newLogger(name string, level Level, inUTC bool, appenders ...Appender) *logger {
	return &logger{name: name, level: newAtomicLevel(level), inUTC: inUTC, appenders: appenders}
}

func (l *logger) AddAppender(appender Appender) {
	l.appenders = append(l.appenders, appender)
}

func (l *logger) SetLevel(level Level) {
	l.level.Set(level)
}

func (l *logger) GetLevel() Level {
	return l.level.Get()
}

func (l *logger) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	return &logger{name: name, level: newAtomicLevel(l.level.Get()), inUTC: l.inUTC, appenders: l.appenders}
}

// Desugar returns a zap logger that writes through the same appenders at the same level.
func (l *logger) Desugar() *zap.Logger {
	return zap.New(&appenderCore{l: l}, zap.AddCaller()).Named(l.name)
}

func (l *logger) enabled(level Level) bool {
	return level >= l.level.Get()
}

// write hands one entry to every appender. Appender failures go to stderr.
func (l *logger) write(entry zapcore.Entry, fields []zapcore.Field) {
	if l.inUTC {
		entry.Time = entry.Time.UTC()
	}
	for _, appender := range l.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// emit must be called directly from the exported logging method so the caller frame resolves.
func (l *logger) emit(level Level, msg string, fields []zapcore.Field) {
	entry := zapcore.Entry{Level: level.AsZap(), Time: time.Now(), LoggerName: l.name, Message: msg}
	if pc, file, line, ok := runtime.Caller(2); ok {
		entry.Caller = zapcore.NewEntryCaller(pc, file, line, true)
	}
	l.write(entry, fields)
}

// pairs turns alternating keys and values into fields. A trailing key gets an error value.
func pairs(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.String(key, "unpaired log key"))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func (l *logger) Debug(args ...interface{}) {
	if l.enabled(DEBUG) {
		l.emit(DEBUG, fmt.Sprint(args...), nil)
	}
}

func (l *logger) Debugf(template string, args ...interface{}) {
	if l.enabled(DEBUG) {
		l.emit(DEBUG, fmt.Sprintf(template, args...), nil)
	}
}

func (l *logger) Debugw(msg string, keysAndValues ...interface{}) {
	if l.enabled(DEBUG) {
		l.emit(DEBUG, msg, pairs(keysAndValues))
	}
}

func (l *logger) CDebug(ctx context.Context, args ...interface{}) {
	if l.enabled(DEBUG) || DebugKey(ctx) != "" {
		l.emit(DEBUG, fmt.Sprint(args...), nil)
	}
}

func (l *logger) CDebugf(ctx context.Context, template string, args ...interface{}) {
	if l.enabled(DEBUG) || DebugKey(ctx) != "" {
		l.emit(DEBUG, fmt.Sprintf(template, args...), nil)
	}
}

func (l *logger) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if l.enabled(DEBUG) || DebugKey(ctx) != "" {
		l.emit(DEBUG, msg, pairs(keysAndValues))
	}
}

func (l *logger) Info(args ...interface{}) {
	if l.enabled(INFO) {
		l.emit(INFO, fmt.Sprint(args...), nil)
	}
}

func (l *logger) Infof(template string, args ...interface{}) {
	if l.enabled(INFO) {
		l.emit(INFO, fmt.Sprintf(template, args...), nil)
	}
}

func (l *logger) Infow(msg string, keysAndValues ...interface{}) {
	if l.enabled(INFO) {
		l.emit(INFO, msg, pairs(keysAndValues))
	}
}

func (l *logger) Warn(args ...interface{}) {
	if l.enabled(WARN) {
		l.emit(WARN, fmt.Sprint(args...), nil)
	}
}

func (l *logger) Warnf(template string, args ...interface{}) {
	if l.enabled(WARN) {
		l.emit(WARN, fmt.Sprintf(template, args...), nil)
	}
}

func (l *logger) Warnw(msg string, keysAndValues ...interface{}) {
	if l.enabled(WARN) {
		l.emit(WARN, msg, pairs(keysAndValues))
	}
}

func (l *logger) Error(args ...interface{}) {
	if l.enabled(ERROR) {
		l.emit(ERROR, fmt.Sprint(args...), nil)
	}
}

func (l *logger) Errorf(template string, args ...interface{}) {
	if l.enabled(ERROR) {
		l.emit(ERROR, fmt.Sprintf(template, args...), nil)
	}
}

func (l *logger) Errorw(msg string, keysAndValues ...interface{}) {
	if l.enabled(ERROR) {
		l.emit(ERROR, msg, pairs(keysAndValues))
	}
}

// Fatal, Fatalf and Fatalw are only reached through utils.ContextualMain. They log at error level
// and exit.
func (l *logger) Fatal(args ...interface{}) {
	l.emit(ERROR, fmt.Sprint(args...), nil)
	os.Exit(1)
}

func (l *logger) Fatalf(template string, args ...interface{}) {
	l.emit(ERROR, fmt.Sprintf(template, args...), nil)
	os.Exit(1)
}

func (l *logger) Fatalw(msg string, keysAndValues ...interface{}) {
	l.emit(ERROR, msg, pairs(keysAndValues))
	os.Exit(1)
}

// appenderCore lets zap loggers obtained from Desugar write to a logger's appenders.
type appenderCore struct {
	l      *logger
	fields []zapcore.Field
}

func (c *appenderCore) Enabled(level zapcore.Level) bool {
	return levelFromZap(level) >= c.l.level.Get()
}

func (c *appenderCore) With(fields []zapcore.Field) zapcore.Core {
	return &appenderCore{l: c.l, fields: append(append([]zapcore.Field{}, c.fields...), fields...)}
}

func (c *appenderCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *appenderCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	c.l.write(entry, append(append([]zapcore.Field{}, c.fields...), fields...))
	return nil
}

func (c *appenderCore) Sync() error {
	var err error
	for _, appender := range c.l.appenders {
		err = multierr.Combine(err, appender.Sync())
	}
	return err
}
