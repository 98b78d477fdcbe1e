package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// Output defaults to stdout.
	Output io.Writer
	// File enables a rotating JSON file sink next to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func NewJSONLogger(service, level string) *slog.Logger {
	return New(service, Options{Level: level})
}

func New(service string, opts Options) *slog.Logger {
	if opts.Output != nil {
		return newLogger(service, opts, opts.Output)
	}
	return newLogger(service, opts, os.Stdout)
}

func newLogger(service string, opts Options, stdout io.Writer) *slog.Logger {
	var out io.Writer = stdout
	if path := strings.TrimSpace(opts.File); path != "" {
		out = io.MultiWriter(stdout, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    positiveOr(opts.MaxSizeMB, 10),
			MaxBackups: positiveOr(opts.MaxBackups, 5),
			MaxAge:     positiveOr(opts.MaxAgeDays, 30),
			Compress:   true,
		})
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseLevel(opts.Level),
	})
	return slog.New(handler).With("service", service)
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
