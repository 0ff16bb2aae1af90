package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nerrad567/gray-logic-fleet/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "graylogic-fleet"

const (
	logDirPermissions  = 0o750
	logFilePermissions = 0o640
)

// Logger is the fleetd logger. Every entry carries service and version
// attributes. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging config section. Format "text"
// selects slog's text handler; anything else logs JSON.
func New(cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	out := openOutput(cfg)

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return &Logger{Logger: slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	}))}
}

// openOutput resolves the destination: stdout, stderr, file, or both
// (stdout and file). A log file that cannot be opened falls back to
// stderr so startup errors are still seen.
func openOutput(cfg config.LoggingConfig) io.Writer {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr
	case "file":
		if f := openLogFile(cfg.File.Path); f != nil {
			return f
		}
		return os.Stderr
	case "both":
		if f := openLogFile(cfg.File.Path); f != nil {
			return io.MultiWriter(os.Stdout, f)
		}
		return os.Stdout
	default:
		return os.Stdout
	}
}

func openLogFile(path string) *os.File {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, logDirPermissions); err != nil {
			return nil
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFilePermissions)
	if err != nil {
		return nil
	}
	return f
}

// parseLevel maps debug, warn (or warning) and error; anything else is info.
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

// With returns a child logger carrying args on every entry.
//
//	regLog := logger.With("component", "registry")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the JSON/info/stdout logger used until the config is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
