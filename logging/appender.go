package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

const timeFormat = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. It is the write half of zapcore.Core, so zap cores such
// as the test observer can be used directly.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// ConsoleAppender writes tab separated lines: time, level, logger name, caller, message and the
// fields as JSON.
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender returns a ConsoleAppender on stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewWriterAppender returns a ConsoleAppender on w.
func NewWriterAppender(w io.Writer) ConsoleAppender {
	return ConsoleAppender{w}
}

// Write prints one line for entry.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatLine(entry, fields, false)
	if _, werr := fmt.Fprintln(appender.Writer, line); werr != nil {
		return werr
	}
	return err
}

// Sync does nothing.
func (appender ConsoleAppender) Sync() error {
	return nil
}

// formatLine renders entry. keepEmptyName keeps a column for an unnamed logger. When the fields
// cannot be encoded the line is returned without them, along with the error.
func formatLine(entry zapcore.Entry, fields []zapcore.Field, keepEmptyName bool) (string, error) {
	parts := []string{entry.Time.Format(timeFormat), strings.ToUpper(entry.Level.String())}
	if entry.LoggerName != "" || keepEmptyName {
		parts = append(parts, entry.LoggerName)
	}
	if entry.Caller.Defined {
		parts = append(parts, fmt.Sprintf("%s:%d", shortFile(entry.Caller.File), entry.Caller.Line))
	}
	parts = append(parts, entry.Message)
	if len(fields) == 0 {
		return strings.Join(parts, "\t"), nil
	}

	// The JSON encoder keeps fields in call order.
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return strings.Join(parts, "\t"), err
	}
	defer buf.Free()
	return strings.Join(append(parts, buf.String()), "\t"), nil
}

// shortFile keeps the "<package>/<file>" tail of a caller path.
func shortFile(file string) string {
	dir, name := file, ""
	if i := strings.LastIndexByte(dir, '/'); i >= 0 {
		dir, name = dir[:i], dir[i:]
	}
	if i := strings.LastIndexByte(dir, '/'); i >= 0 {
		return dir[i+1:] + name
	}
	return file
}
