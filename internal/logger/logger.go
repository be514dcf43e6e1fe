// Package logger provides structured logging for hookguard using log/slog.
//
// Records are JSON lines appended to a single log file. Logging is
// best-effort: if the file cannot be opened or written, records are dropped
// and callers never see an error.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgerlanc/hookguard/internal/constants"
)

// TimeKey replaces slog's default "time" key in every record.
const TimeKey = "ts"

var (
	log     *slog.Logger
	once    sync.Once
	verbose bool
	file    *os.File
	mu      sync.Mutex
)

// Options configures the logger.
type Options struct {
	// Verbose enables debug-level logging and mirrors records to Stderr as text
	Verbose bool
	// Output is the writer for JSON records. When nil, Path is opened in append mode.
	Output io.Writer
	// Path is the append-only log file
	Path string
	// Home is replaced with "~" in every string value before it is written
	Home string
	// Stderr receives the verbose text mirror (defaults to os.Stderr)
	Stderr io.Writer
}

// Init initializes the global logger with the given options.
// It is safe to call multiple times; only the first call takes effect.
func Init(opts Options) {
	once.Do(func() {
		verbose = opts.Verbose

		output := opts.Output
		if output == nil {
			output = openLogFile(opts.Path)
		}

		level := slog.LevelInfo
		if opts.Verbose {
			level = slog.LevelDebug
		}

		handlerOpts := &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceAttr(opts.Home),
		}

		var handler slog.Handler = slog.NewJSONHandler(output, handlerOpts)
		if opts.Verbose {
			stderr := opts.Stderr
			if stderr == nil {
				stderr = os.Stderr
			}
			handler = teeHandler{handler, slog.NewTextHandler(stderr, handlerOpts)}
		}

		log = slog.New(handler).With("pid", os.Getpid())
	})
}

// openLogFile opens path for appending, creating parent directories.
// Any failure degrades to io.Discard.
func openLogFile(path string) io.Writer {
	if path == "" {
		return io.Discard
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirMode); err != nil {
		return io.Discard
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FileMode)
	if err != nil {
		return io.Discard
	}
	mu.Lock()
	file = f
	mu.Unlock()
	return f
}

// replaceAttr renames the time key, normalizes it to UTC and redacts home.
func replaceAttr(home string) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.TimeKey {
			return slog.String(TimeKey, a.Value.Time().UTC().Format(time.RFC3339Nano))
		}
		switch a.Value.Kind() {
		case slog.KindString:
			a.Value = slog.StringValue(Redact(a.Value.String(), home))
		case slog.KindAny:
			a.Value = slog.AnyValue(redactAny(a.Value.Any(), home))
		}
		return a
	}
}

// Close flushes and closes the log file, if one was opened.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// Reset resets the logger for testing purposes.
// This should only be used in tests.
func Reset() {
	Close()
	once = sync.Once{}
	log = nil
	verbose = false
}

// IsVerbose returns true if verbose logging is enabled.
func IsVerbose() bool {
	return verbose
}

// SetCorrelation binds session and trace ids to every subsequent record.
func SetCorrelation(sessionID, traceID string) {
	if log == nil {
		return
	}
	var args []any
	if sessionID != "" {
		args = append(args, "session_id", sessionID)
	}
	if traceID != "" {
		args = append(args, "trace_id", traceID)
	}
	if len(args) > 0 {
		log = log.With(args...)
	}
}

// Log writes one record for component at level. ctx is attached under "ctx".
func Log(component string, level slog.Level, msg string, ctx map[string]any) {
	if log == nil {
		return
	}
	args := []any{"component", component}
	if len(ctx) > 0 {
		args = append(args, "ctx", ctx)
	}
	log.Log(context.Background(), level, msg, args...)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	if log != nil {
		log.Debug(msg, args...)
	}
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if log != nil {
		log.Info(msg, args...)
	}
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	if log != nil {
		log.Warn(msg, args...)
	}
}

// Error logs at error level.
func Error(msg string, args ...any) {
	if log != nil {
		log.Error(msg, args...)
	}
}

// With returns a logger with additional context attributes.
func With(args ...any) *slog.Logger {
	if log == nil {
		return slog.New(discardHandler{})
	}
	return log.With(args...)
}

// For returns a logger tagged with the emitting component's name.
func For(component string) *slog.Logger {
	return With("component", component)
}
