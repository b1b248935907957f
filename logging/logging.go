// Package logging sets up the process-wide slog logger: console text output plus JSON lines in
// a weekly rotating file, and package-level helpers for the rest of the code.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/giygas/mfds-matcher/config"
)

// Settings configures InitLogger
type Settings struct {
	Dir            string
	Env            config.Environment
	Level          string // LOG_LEVEL, empty for the environment default
	RetentionWeeks int
	MaxFileSize    int64
	Verbose        bool      // raises console output in the test environment
	Console        io.Writer // defaults to os.Stdout
}

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

// Close releases the log file
func (s *LoggingService) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

var DefaultLoggingService *LoggingService

var (
	fallbackOnce sync.Once
	fallback     *slog.Logger
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// GetConsoleLogLevel picks the console level. Tests stay quiet unless verbose, whatever the
// configured level; elsewhere an explicit level wins over the environment default.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}
	if level != "" {
		return parseLogLevel(level)
	}
	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// GetFileLogLevel is the level of the JSON file handler, which keeps everything
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// InitLogger builds the console and file handlers and installs the result as the default
// logger. An empty Dir logs to the console only, as does an unusable one.
func InitLogger(s Settings) error {
	out := s.Console
	if out == nil {
		out = os.Stdout
	}
	console := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(s.Env, s.Level, s.Verbose),
	})

	svc := &LoggingService{}
	if s.Dir == "" {
		svc.Logger = slog.New(console)
		install(svc)
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		svc.Logger = slog.New(console)
		install(svc)
		return fmt.Errorf("failed to create log directory %s: %w", s.Dir, err)
	}

	svc.file = NewRotatingLogger(s.Dir, s.RetentionWeeks, s.MaxFileSize)
	svc.file.startCleanup(cleanupInterval)

	fileHandler := slog.NewJSONHandler(svc.file, &slog.HandlerOptions{Level: GetFileLogLevel()})
	svc.Logger = slog.New(&fanoutHandler{handlers: []slog.Handler{console, fileHandler}})
	install(svc)
	return nil
}

func install(svc *LoggingService) {
	if err := DefaultLoggingService.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close previous log file: %v\n", err)
	}
	DefaultLoggingService = svc
	slog.SetDefault(svc.Logger)
}

// Close closes the default service's log file
func Close() error {
	return DefaultLoggingService.Close()
}

// Logger returns the default logger, or a stderr logger before InitLogger ran
func Logger() *slog.Logger {
	return current()
}

func current() *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	fallbackOnce.Do(func() {
		fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	})
	return fallback
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// fanoutHandler hands every record to each handler that accepts its level
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
