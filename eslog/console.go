package eslog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ConsoleSink is where mirrored log calls go. *zap.SugaredLogger
// satisfies it.
type ConsoleSink interface {
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
}

// StdConsole returns a sink printing info lines to stdout and warnings and
// errors to stderr.
func StdConsole() ConsoleSink {
	return &WriterConsole{Out: os.Stdout, Err: os.Stderr}
}

// WriterConsole is a ConsoleSink over two writers.
type WriterConsole struct {
	Out io.Writer
	Err io.Writer
}

func (c *WriterConsole) Info(args ...any)  { fmt.Fprintln(c.Out, args...) }
func (c *WriterConsole) Warn(args ...any)  { fmt.Fprintln(c.Err, args...) }
func (c *WriterConsole) Error(args ...any) { fmt.Fprintln(c.Err, args...) }

// consoleLine formats a mirrored call:
// "2024-03-05T10:00:00.000Z INFO: data: \"Hello World\"".
func consoleLine(level string, payload any, now time.Time) string {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", fmt.Sprint(payload)))
	}
	return fmt.Sprintf("%s %s: data: %s", FormatTimestamp(now), level, data)
}

func mirror(sink ConsoleSink, level string, payload any, now time.Time) {
	line := consoleLine(level, payload, now)
	switch level {
	case LevelWarn:
		sink.Warn(line)
	case LevelError:
		sink.Error(line)
	default:
		sink.Info(line)
	}
}
