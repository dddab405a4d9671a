package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"vocab-go/internal/vocab"
)

// newLogger creates a logger that writes JSON lines to logDir/vocab.log and a
// console rendering to stderr. Every line carries the operation id.
// It returns the logger, the open log file (for cleanup), and any error.
func newLogger(logDir, level, opID string, stderr io.Writer) (zerolog.Logger, *os.File, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "vocab.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: stderr, TimeFormat: "15:04:05", NoColor: true}
	logger := zerolog.New(zerolog.MultiLevelWriter(f, console)).
		Level(lvl).
		With().
		Timestamp().
		Str("op", opID).
		Logger()
	return logger, f, nil
}

// parseLevel maps the config log level onto zerolog. Empty means info.
func parseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

// zerologAdapter wraps zerolog.Logger to satisfy the vocab.Logger interface.
// args are alternating keys and values.
type zerologAdapter struct {
	l zerolog.Logger
}

var _ vocab.Logger = (*zerologAdapter)(nil)

func (a *zerologAdapter) Debug(msg string, args ...any) { a.l.Debug().Fields(args).Msg(msg) }
func (a *zerologAdapter) Info(msg string, args ...any)  { a.l.Info().Fields(args).Msg(msg) }
func (a *zerologAdapter) Warn(msg string, args ...any)  { a.l.Warn().Fields(args).Msg(msg) }
func (a *zerologAdapter) Error(msg string, args ...any) { a.l.Error().Fields(args).Msg(msg) }
