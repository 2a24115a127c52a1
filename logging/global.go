// Package logging configures slog for the service: human readable text on the
// console and JSON lines in a weekly rotating file.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Options configures InitLogger.
type Options struct {
	Dir            string
	Level          slog.Level
	RetentionWeeks int
	MaxFileSize    int64
}

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingFile
}

var DefaultLoggingService *LoggingService

// InitLogger builds the console and file handlers and installs the result as
// the slog default. When the log directory cannot be used it falls back to
// console only and returns the error.
func InitLogger(opts Options) error {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: opts.Level})

	file, err := OpenRotatingFile(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if err != nil {
		DefaultLoggingService = &LoggingService{Logger: slog.New(console)}
		slog.SetDefault(DefaultLoggingService.Logger)
		return fmt.Errorf("file logging disabled: %w", err)
	}

	jsonHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: opts.Level})
	DefaultLoggingService = &LoggingService{
		Logger: slog.New(newFanout(console, jsonHandler)),
		file:   file,
	}
	slog.SetDefault(DefaultLoggingService.Logger)
	return nil
}

// Close flushes and closes the log file, if any.
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	return DefaultLoggingService.file.Close()
}

// ParseLevel maps debug, info, warn and error to slog levels; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the configured logger, or a stderr logger before InitLogger.
func Logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return DefaultLoggingService.Logger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
