package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
)

// New builds the process logger. Output "file" writes to a rotating file.
func New(cfg config.LogConfig) *slog.Logger {
	return slog.New(NewHandler(cfg, writerFor(cfg)))
}

func NewHandler(cfg config.LogConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func ParseLevel(v string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
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

func writerFor(cfg config.LogConfig) io.Writer {
	switch strings.ToLower(cfg.Output) {
	case "file":
		return &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}

// Discard is a logger for tests and optional dependencies.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
