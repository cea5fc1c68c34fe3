package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/omeq-api/config"
)

// Options controls how the global logger is built
type Options struct {
	Dir            string // empty disables the file handler
	Env            config.Environment
	Level          string // console level override, ignored in test
	Verbose        bool   // raises console output in test to info
	RetentionWeeks int
	MaxFileSize    int64
}

// parseLogLevel maps a level name to a slog level, defaulting to info
func parseLogLevel(level string) slog.Level {
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

// GetConsoleLogLevel returns the console level for an environment.
// Test runs stay quiet unless verbose; elsewhere an explicit level wins.
func GetConsoleLogLevel(env config.Environment, levelStr string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if levelStr != "" {
		return parseLogLevel(levelStr)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the file level. Files always keep debug output.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// SetupLogger builds a console and weekly file logger with the default retention and size
func SetupLogger(logDir string) (*slog.Logger, *RotatingLogger) {
	return setupLogger(Options{Dir: logDir, Env: config.EnvDevelopment, RetentionWeeks: 4}, os.Stdout)
}

// SetupLoggerWithRetention builds a logger with a custom retention and size limit
func SetupLoggerWithRetention(logDir string, retentionWeeks int, maxFileSize int64) (*slog.Logger, *RotatingLogger) {
	return setupLogger(Options{
		Dir:            logDir,
		Env:            config.EnvDevelopment,
		RetentionWeeks: retentionWeeks,
		MaxFileSize:    maxFileSize,
	}, os.Stdout)
}

func setupLogger(opts Options, console io.Writer) (*slog.Logger, *RotatingLogger) {
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	if opts.Dir == "" {
		return slog.New(consoleHandler), nil
	}

	retention := opts.RetentionWeeks
	if retention <= 0 {
		retention = 4
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}

	rotatingLogger := NewRotatingLoggerWithSizeLimit(opts.Dir, retention, maxSize)
	if err := rotatingLogger.open(); err != nil {
		consoleLogger := slog.New(consoleHandler)
		consoleLogger.Error("Failed to initialize rotating logger", "error", err)
		return consoleLogger, nil
	}

	// Console gets text, file gets JSON
	fileHandler := slog.NewJSONHandler(rotatingLogger, &slog.HandlerOptions{
		Level: GetFileLogLevel(),
	})

	return slog.New(&multiHandler{
		handlers: []slog.Handler{consoleHandler, fileHandler},
	}), rotatingLogger
}

// multiHandler fans records out to every handler that accepts the level
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
