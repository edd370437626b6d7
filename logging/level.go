package logging

import (
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

// Level is a log level: DEBUG, INFO, WARN or ERROR.
type Level int

// Log levels.
const (
	DEBUG Level = iota - 1
	INFO
	WARN
	ERROR
)

func (level Level) String() string {
	switch level {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	}
	return "Unknown"
}

// AsZap converts the level to the zapcore level of the same name. Unknown levels map to error.
func (level Level) AsZap() zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	}
	return zapcore.ErrorLevel
}

// levelFromZap folds zap's panic and fatal levels into ERROR.
func levelFromZap(level zapcore.Level) Level {
	switch {
	case level <= zapcore.DebugLevel:
		return DEBUG
	case level == zapcore.InfoLevel:
		return INFO
	case level == zapcore.WarnLevel:
		return WARN
	}
	return ERROR
}

type atomicLevel struct {
	val *atomic.Int32
}

func newAtomicLevel(level Level) atomicLevel {
	al := atomicLevel{val: &atomic.Int32{}}
	al.Set(level)
	return al
}

func (al atomicLevel) Set(level Level) {
	al.val.Store(int32(level))
}

func (al atomicLevel) Get() Level {
	return Level(al.val.Load())
}
