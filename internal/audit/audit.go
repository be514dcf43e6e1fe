// Package audit provides audit logging for hookguard policy decisions.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgerlanc/hookguard/internal/constants"
	"github.com/dgerlanc/hookguard/internal/logger"
)

// Version is the current audit entry format.
const Version = 1

// TimestampFormat is the format used for audit log timestamps.
const TimestampFormat = "2006-01-02T15:04:05.0Z07:00"

// Outcome codes recorded for each rule considered during evaluation.
const (
	OutcomeFired      = "FIRED"
	OutcomeSuppressed = "SUPPRESSED"
	OutcomeEscaped    = "ESCAPED"
	OutcomeRelaxed    = "RELAXED"
	OutcomeError      = "ERROR"
)

// Entry represents a single audit log entry (v1 format).
type Entry struct {
	Version     int          `json:"version"`
	Timestamp   string       `json:"timestamp"`
	TraceID     string       `json:"trace_id"`
	ToolUseID   string       `json:"tool_use_id"`
	SessionID   string       `json:"session_id"`
	Event       string       `json:"event"`
	Tool        string       `json:"tool"`
	Decision    string       `json:"decision"`
	Rule        string       `json:"rule,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	PlanMode    bool         `json:"plan_mode"`
	PlanReason  string       `json:"plan_reason,omitempty"`
	Rules       []RuleResult `json:"rules,omitempty"`
	DurationMs  float64      `json:"duration_ms"`
	Cwd         string       `json:"cwd"`
	Input       string       `json:"input"`
	Output      string       `json:"output"`
	ConfigPath  string       `json:"config_path"`
	ConfigError string       `json:"config_error,omitempty"`
}

// RuleResult records what happened to one rule during evaluation.
type RuleResult struct {
	Rule    string `json:"rule"`
	Outcome string `json:"outcome"`
	Excerpt string `json:"excerpt,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Options configures the audit log.
type Options struct {
	// Path is the log file. Empty means DefaultLogPath.
	Path string
	// Disable turns audit logging off entirely.
	Disable bool
	// MaxBytes triggers rotation once the file would grow past it. Zero disables rotation.
	MaxBytes int64
	// Keep is the number of compressed archives retained after rotation.
	Keep int
}

var (
	auditFile *os.File
	auditPath string
	opts      Options
	size      int64
	mu        sync.Mutex
	enabled   bool
)

// DefaultLogPath returns the default audit log path (~/.local/share/hookguard/audit.log)
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.XDGDataSubdir, constants.AppName, constants.AuditFileName), nil
}

// Init initializes the audit log.
func Init(o Options) error {
	mu.Lock()
	defer mu.Unlock()

	if o.Disable {
		enabled = false
		return nil
	}

	path := o.Path
	if path == "" {
		var err error
		path, err = DefaultLogPath()
		if err != nil {
			logger.Debug("failed to get default audit log path", "error", err)
			return err
		}
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), constants.DirMode); err != nil {
		logger.Debug("failed to create audit log directory", "error", err)
		return err
	}

	if err := openLocked(path); err != nil {
		logger.Debug("failed to open audit log file", "error", err)
		return err
	}

	opts = o
	auditPath = path
	enabled = true
	logger.Debug("audit logging initialized", "path", path)
	return nil
}

// openLocked opens path in append mode and records its current size.
func openLocked(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FileMode)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	auditFile = f
	size = info.Size()
	return nil
}

// Close closes the audit log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if auditFile != nil {
		err := auditFile.Close()
		auditFile = nil
		enabled = false
		return err
	}
	return nil
}

// Log writes an entry to the audit log.
// If audit logging is not initialized or disabled, this is a no-op.
func Log(entry Entry) error {
	mu.Lock()
	defer mu.Unlock()

	if !enabled || auditFile == nil {
		return nil
	}

	entry.Version = Version
	// Format timestamp with tenths of second precision (1 decimal place)
	entry.Timestamp = time.Now().UTC().Format(TimestampFormat)

	data, err := json.Marshal(entry)
	if err != nil {
		logger.Debug("failed to marshal audit entry", "error", err)
		return err
	}
	data = append(data, '\n')

	if shouldRotateLocked(len(data)) {
		if err := rotateLocked(); err != nil {
			// Keep appending to whatever file is open; rotation retries next time.
			logger.Debug("failed to rotate audit log", "error", err)
		}
	}

	if auditFile == nil {
		return nil
	}
	n, err := auditFile.Write(data)
	size += int64(n)
	if err != nil {
		logger.Debug("failed to write audit entry", "error", err)
		return err
	}

	return nil
}

// IsEnabled returns whether audit logging is enabled.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Path returns the active audit log path, or "" when disabled.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return ""
	}
	return auditPath
}

// Reset resets the audit state. Used for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	if auditFile != nil {
		auditFile.Close()
	}
	auditFile = nil
	auditPath = ""
	opts = Options{}
	size = 0
	enabled = false
}
