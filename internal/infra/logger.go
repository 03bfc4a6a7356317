package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions controls where logs go besides stdout.
type LogOptions struct {
	// File enables a size-rotated copy of every log line.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// NewLogger constructs a zerolog.Logger with sane defaults for the service.
func NewLogger(appEnv string, opts ...LogOptions) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	var out io.Writer = os.Stdout
	if appEnv == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if len(opts) > 0 && opts[0].File != "" {
		out = zerolog.MultiLevelWriter(out, rotatingFile(opts[0]))
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func rotatingFile(o LogOptions) io.Writer {
	size := o.MaxSizeMB
	if size <= 0 {
		size = 100
	}
	return &lumberjack.Logger{
		Filename:   o.File,
		MaxSize:    size,
		MaxBackups: o.MaxBackups,
		Compress:   true,
	}
}

// DiscardLogger is used by components constructed without a logger.
func DiscardLogger() *Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// Logger aliases zerolog.Logger so callers depend on the logging contract
// through infra.
type Logger = zerolog.Logger
