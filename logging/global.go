package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/giygas/omeq-api/config"
)

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService
	serviceMu             sync.Mutex
)

// InitLogger initializes the global logger. An empty dir logs to the console only.
func InitLogger(logDir string) {
	InitLoggerWithOptions(Options{Dir: logDir, Env: config.EnvDevelopment})
}

// InitLoggerWithOptions replaces the global logger, closing the previous log file
func InitLoggerWithOptions(opts Options) {
	install(setupLogger(opts, os.Stdout))
}

// InitConsoleLogger logs to w only. Command line tools use it to keep stdout for results.
func InitConsoleLogger(w io.Writer, opts Options) {
	opts.Dir = ""
	install(setupLogger(opts, w))
}

func install(logger *slog.Logger, file *RotatingLogger) {
	serviceMu.Lock()
	previous := DefaultLoggingService
	DefaultLoggingService = &LoggingService{Logger: logger, file: file}
	serviceMu.Unlock()

	slog.SetDefault(logger)

	if previous != nil && previous.file != nil {
		_ = previous.file.Close()
	}
}

// Close flushes and closes the log file of the global logger
func Close() error {
	serviceMu.Lock()
	defer serviceMu.Unlock()

	if DefaultLoggingService == nil || DefaultLoggingService.file == nil {
		return nil
	}
	err := DefaultLoggingService.file.Close()
	DefaultLoggingService.file = nil
	return err
}

// ResetForTest installs a logger for the duration of a test and restores the previous one afterwards
func ResetForTest(t testing.TB, dir string, env config.Environment, level string, retentionWeeks int, maxSize int64) {
	t.Helper()

	serviceMu.Lock()
	previous := DefaultLoggingService
	serviceMu.Unlock()
	previousDefault := slog.Default()

	var console io.Writer = os.Stdout
	if !testing.Verbose() {
		console = io.Discard
	}

	logger, file := setupLogger(Options{
		Dir:            dir,
		Env:            env,
		Level:          level,
		Verbose:        testing.Verbose(),
		RetentionWeeks: retentionWeeks,
		MaxFileSize:    maxSize,
	}, console)

	serviceMu.Lock()
	DefaultLoggingService = &LoggingService{Logger: logger, file: file}
	serviceMu.Unlock()
	slog.SetDefault(logger)

	t.Cleanup(func() {
		_ = Close()
		serviceMu.Lock()
		DefaultLoggingService = previous
		serviceMu.Unlock()
		slog.SetDefault(previousDefault)
	})
}

func current() *slog.Logger {
	serviceMu.Lock()
	defer serviceMu.Unlock()
	if DefaultLoggingService == nil {
		return nil
	}
	return DefaultLoggingService.Logger
}

// Logger returns the global logger, or slog's default before InitLogger
func Logger() *slog.Logger {
	if logger := current(); logger != nil {
		return logger
	}
	return slog.Default()
}

func fallback(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Info(msg, args...)
		return
	}
	fallback(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Error(msg, args...)
		return
	}
	fallback(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Warn(msg, args...)
		return
	}
	fallback(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	if logger := current(); logger != nil {
		logger.Debug(msg, args...)
		return
	}
	fallback(slog.LevelDebug).Debug(msg, args...)
}
