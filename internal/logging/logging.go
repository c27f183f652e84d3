package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, slog.LevelInfo)
	closer io.Closer
)

func ParseLevel(value string) Level {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Setup points the global logger at w with the given minimum level.
func Setup(w io.Writer, level Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, toSlog(level))
}

// SetupFile appends log lines to path, creating parent directories. The
// returned func closes the file.
func SetupFile(path string, level Level) (func(), error) {
	path = strings.TrimSpace(path)
	if path == "" {
		Setup(io.Discard, level)
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	mu.Lock()
	if closer != nil {
		_ = closer.Close()
	}
	closer = file
	logger = newLogger(file, toSlog(level))
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if closer == file {
			_ = file.Close()
			closer = nil
			logger = newLogger(os.Stderr, toSlog(level))
		}
	}, nil
}

func Debug(msg string, kv ...any) {
	current().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	current().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	current().Error(msg, extended...)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func toSlog(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
