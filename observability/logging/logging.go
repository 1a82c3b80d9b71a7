// Package logging configures structured JSON logging for the processor
// daemon, with optional file rotation.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls log destination and verbosity.
type Options struct {
	// Verbosity raises the log level: 0 warn, 1 info, 2+ debug.
	Verbosity int
	// File, when set, routes logs through a size-rotated file instead of
	// stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Level maps the repeatable -v flag onto a slog level.
func (o Options) Level() slog.Level {
	switch {
	case o.Verbosity <= 0:
		return slog.LevelWarn
	case o.Verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Setup configures the default logger to emit structured JSON and returns it.
// All lines carry the service name.
func Setup(service string, opts Options) *slog.Logger {
	var out io.Writer = os.Stdout
	if strings.TrimSpace(opts.File) != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: opts.MaxBackups,
		}
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: opts.Level(),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	base := slog.New(handler).With(slog.String("service", strings.TrimSpace(service)))
	slog.SetDefault(base)

	// Bridge the standard library logger so dependencies keep working.
	stdBridge := slog.NewLogLogger(handler, slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}
