// Package logger configures the process-wide structured logger.
package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes how the application logger should behave.
type Config struct {
	Level   string
	Format  string
	Outputs []string
	File    FileConfig
}

// FileConfig enables a size-rotated log file next to the regular outputs.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu            sync.Mutex
	defaultLogger *slog.Logger
	closers       []io.Closer
)

// Init configures the global logger. Calling it again replaces the previous
// configuration and closes any file it opened.
func Init(cfg Config) error {
	logger, fileClosers, err := build(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	previous := closers
	defaultLogger = logger
	closers = fileClosers
	mu.Unlock()

	slog.SetDefault(logger)
	for _, c := range previous {
		_ = c.Close()
	}
	return nil
}

// New builds a standalone logger writing to w, mostly for tests and CLIs.
func New(w io.Writer, level, format string) *slog.Logger {
	return slog.New(newHandler(w, format, parseLevel(level)))
}

func build(cfg Config) (*slog.Logger, []io.Closer, error) {
	var (
		writers []io.Writer
		opened  []io.Closer
	)
	for _, out := range cfg.Outputs {
		switch strings.ToLower(strings.TrimSpace(out)) {
		case "", "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			return nil, nil, errors.New("unsupported log output " + out + ", use file.path for files")
		}
	}
	if cfg.File.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    orDefault(cfg.File.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.File.MaxBackups, 7),
			MaxAge:     orDefault(cfg.File.MaxAgeDays, 30),
			Compress:   cfg.File.Compress,
		}
		writers = append(writers, rotator)
		opened = append(opened, rotator)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	var writer io.Writer = writers[0]
	if len(writers) > 1 {
		writer = io.MultiWriter(writers...)
	}
	return slog.New(newHandler(writer, cfg.Format, parseLevel(cfg.Level))), opened, nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// L returns the structured logger instance.
func L() *slog.Logger {
	mu.Lock()
	logger := defaultLogger
	mu.Unlock()
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// Named returns a child logger tagged with the component name.
func Named(name string) *slog.Logger {
	return L().With(slog.String("component", name))
}

// Sync closes rotated log files.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	var err error
	for _, c := range closers {
		err = errors.Join(err, c.Close())
	}
	closers = nil
	return err
}
