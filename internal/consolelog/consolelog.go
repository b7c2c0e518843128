// Package consolelog builds the zap logger used as the console sink of the
// command-line tool: info lines on stdout, warnings and errors on stderr,
// and optionally a rotating file receiving everything as JSON.
package consolelog

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config configures New.
type Config struct {
	// Level is the minimum level: debug, info, warn or error. Empty means info.
	Level string

	// Out and Err default to os.Stdout and os.Stderr.
	Out io.Writer
	Err io.Writer

	// FilePath, when set, also writes every entry to a rotating file.
	FilePath string
	Rotation RotationConfig
}

// RotationConfig controls file rotation.
type RotationConfig struct {
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultRotationConfig returns the rotation used when Config.Rotation is zero.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
}

// New returns a sugared logger for cfg. Console entries carry only the
// message; the file gets timestamp, level and message as JSON.
func New(cfg Config) (*zap.SugaredLogger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out, errOut := cfg.Out, cfg.Err
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	console := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LineEnding: zapcore.DefaultLineEnding,
	})
	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l < zapcore.WarnLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= level && l >= zapcore.WarnLevel
	})
	cores := []zapcore.Core{
		zapcore.NewCore(console, zapcore.AddSync(out), low),
		zapcore.NewCore(console, zapcore.AddSync(errOut), high),
	}

	if cfg.FilePath != "" {
		rc := cfg.Rotation
		if rc == (RotationConfig{}) {
			rc = DefaultRotationConfig()
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    rc.MaxSize,
			MaxBackups: rc.MaxBackups,
			MaxAge:     rc.MaxAge,
			Compress:   rc.Compress,
		})
		enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:     "ts",
			LevelKey:    "level",
			MessageKey:  "msg",
			LineEnding:  zapcore.DefaultLineEnding,
			EncodeTime:  zapcore.ISO8601TimeEncoder,
			EncodeLevel: zapcore.CapitalLevelEncoder,
		})
		cores = append(cores, zapcore.NewCore(enc, file, zap.NewAtomicLevelAt(level)))
	}

	return zap.New(zapcore.NewTee(cores...)).Sugar(), nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return l, errors.Wrapf(err, "invalid log level %q", s)
	}
	return l, nil
}
