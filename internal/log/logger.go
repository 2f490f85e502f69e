package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures NewLogger.
type Options struct {
	// Writer receives console output, typically os.Stderr.
	Writer io.Writer

	// Verbose sets the level to Debug; otherwise Warn.
	Verbose bool

	// JSON switches the console output to JSON lines.
	JSON bool

	// NoColor disables ANSI colors.
	NoColor bool

	// FilePath, when set, additionally writes logs to a rotating file.
	FilePath string
}

// nopCloser is returned when there is no log file to close.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger creates a logger masking secrets. Console output uses tint
// unless JSON is set. With a FilePath, records are also written to a
// rotating file and colors are disabled. The returned io.Closer closes the
// log file.
func NewLogger(opts Options) (*slog.Logger, io.Closer, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	noColor := opts.NoColor
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		w = io.MultiWriter(w, file)
		closer = file
		noColor = true
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    noColor,
		})
	}

	return slog.New(NewSecureHandler(handler)), closer, nil
}

// NewSecureLogger creates a console logger masking secrets, for callers
// that need no log file.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	logger, _, err := NewLogger(Options{Writer: w, Verbose: verbose, NoColor: true})
	if err != nil {
		// Only the log file can fail.
		return slog.New(NewSecureHandler(slog.NewTextHandler(w, nil)))
	}
	return logger
}
