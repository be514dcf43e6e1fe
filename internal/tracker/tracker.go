// Package tracker counts recurring rule failures per session and escalates
// once a threshold is reached.
//
// Every call to Track appends a record to an errors JSONL log, then bumps
// the "<session>:<rule>" counter. The diagnostic line goes to the error
// stream only when the new count equals the threshold, so a session that
// keeps failing the same rule hears about it once.
package tracker

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dgerlanc/hookguard/internal/constants"
	"github.com/dgerlanc/hookguard/internal/env"
	"github.com/dgerlanc/hookguard/internal/logger"
)

// DefaultThreshold is the count at which a rule escalates.
const DefaultThreshold = 3

// Record is one line of the errors log.
type Record struct {
	Timestamp time.Time `json:"ts"`
	SessionID string    `json:"session_id"`
	RuleID    string    `json:"rule_id"`
	Message   string    `json:"message"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// Tracker escalates repeated failures.
type Tracker struct {
	Store     Store
	LogPath   string
	Threshold int
	// Stderr receives the escalation line. Nil means os.Stderr.
	Stderr io.Writer
	// TraceID is stamped on every record this tracker writes.
	TraceID string
	Now     func() time.Time
}

// New returns a tracker keeping its state in dir.
func New(dir string, threshold int) *Tracker {
	return &Tracker{
		Store:     NewFileStore(filepath.Join(dir, constants.CountsFileName)),
		LogPath:   filepath.Join(dir, constants.ErrorsFileName),
		Threshold: threshold,
	}
}

// ForEnv returns a tracker rooted at the environment's state dir.
func ForEnv(e env.Env, threshold int) *Tracker {
	t := New(e.StateDir(), threshold)
	t.Now = e.Now
	return t
}

// Key is the counter key for a session and rule.
func Key(sessionID, ruleID string) string {
	return sessionID + ":" + ruleID
}

func (t *Tracker) threshold() int {
	if t.Threshold <= 0 {
		return DefaultThreshold
	}
	return t.Threshold
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now().UTC()
	}
	return t.Now().UTC()
}

func (t *Tracker) stderr() io.Writer {
	if t.Stderr == nil {
		return os.Stderr
	}
	return t.Stderr
}

// Track records one failure of ruleID in sessionID and reports whether this
// call crossed the threshold. Persistence problems are logged, never returned.
func (t *Tracker) Track(ruleID, message, sessionID string) bool {
	rec := Record{
		Timestamp: t.now(),
		SessionID: sessionID,
		RuleID:    ruleID,
		Message:   message,
		TraceID:   t.TraceID,
	}
	if err := t.appendRecord(rec); err != nil {
		logger.For("tracker").Warn("append error record failed", "error", err)
	}

	if t.Store == nil {
		return false
	}
	count, err := t.Store.Increment(Key(sessionID, ruleID))
	if err != nil {
		logger.For("tracker").Warn("persist error count failed", "rule", ruleID, "error", err)
	}
	if count != t.threshold() {
		return false
	}

	logger.For("tracker").Warn("rule escalated", "rule", ruleID, "count", count)
	fmt.Fprintf(t.stderr(), "hookguard: rule %s has failed %d times this session (latest: %s). Run `hookguard errors --session %s` for details.\n",
		ruleID, count, message, sessionID)
	return true
}

// appendRecord writes rec as a single line with O_APPEND.
func (t *Tracker) appendRecord(rec Record) error {
	if t.LogPath == "" {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.LogPath), constants.StateDirMode); err != nil {
		return err
	}
	f, err := os.OpenFile(t.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, constants.StateFileMode)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// SessionErrors groups the errors log by rule id for one session. A missing
// log yields an empty map; malformed lines are skipped.
func (t *Tracker) SessionErrors(sessionID string) (map[string][]Record, error) {
	out := map[string][]Record{}
	f, err := os.Open(t.LogPath)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open errors log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec.SessionID == sessionID && rec.RuleID != "" {
			out[rec.RuleID] = append(out[rec.RuleID], rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read errors log: %w", err)
	}
	return out, nil
}
