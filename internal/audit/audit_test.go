package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLogPath(t *testing.T) {
	path, err := DefaultLogPath()
	if err != nil {
		t.Fatalf("DefaultLogPath() error = %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".local", "share", "hookguard", "audit.log")
	if path != expected {
		t.Errorf("DefaultLogPath() = %q, want %q", path, expected)
	}
}

func TestInit(t *testing.T) {
	defer Reset()

	logPath := filepath.Join(t.TempDir(), "subdir", "audit.log")

	if err := Init(Options{Path: logPath}); err != nil {
		t.Errorf("Init() error = %v", err)
	}

	if !IsEnabled() {
		t.Error("Expected audit logging to be enabled")
	}
	if Path() != logPath {
		t.Errorf("Path() = %q, want %q", Path(), logPath)
	}

	// Verify file was created
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Audit log file was not created")
	}
}

func TestInitDisabled(t *testing.T) {
	defer Reset()

	if err := Init(Options{Disable: true}); err != nil {
		t.Errorf("Init(disable) error = %v", err)
	}

	if IsEnabled() {
		t.Error("Expected audit logging to be disabled")
	}
	if Path() != "" {
		t.Errorf("Path() = %q, want empty when disabled", Path())
	}
}

func TestLog(t *testing.T) {
	defer Reset()

	logPath := filepath.Join(t.TempDir(), "audit.log")

	if err := Init(Options{Path: logPath}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// Log a denied command
	entry1 := Entry{
		Tool:     "Bash",
		Decision: "deny",
		Rule:     "pip-install",
		Rules: []RuleResult{
			{Rule: "pip-install", Outcome: OutcomeFired, Excerpt: "pip install requests"},
		},
	}
	if err := Log(entry1); err != nil {
		t.Errorf("Log() error = %v", err)
	}

	// Log an allowed command
	entry2 := Entry{Tool: "Bash", Decision: "allow"}
	if err := Log(entry2); err != nil {
		t.Errorf("Log() error = %v", err)
	}

	// Close and read the log
	Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}

	var parsed1 Entry
	if err := json.Unmarshal([]byte(lines[0]), &parsed1); err != nil {
		t.Fatalf("Failed to parse first entry: %v", err)
	}
	if parsed1.Version != Version {
		t.Errorf("First entry version = %d, want %d", parsed1.Version, Version)
	}
	if parsed1.Rule != "pip-install" {
		t.Errorf("First entry rule = %q, want %q", parsed1.Rule, "pip-install")
	}
	if parsed1.Timestamp == "" {
		t.Error("First entry timestamp should be set")
	}
	if len(parsed1.Rules) != 1 || parsed1.Rules[0].Outcome != OutcomeFired {
		t.Errorf("First entry rules = %+v", parsed1.Rules)
	}

	var parsed2 Entry
	if err := json.Unmarshal([]byte(lines[1]), &parsed2); err != nil {
		t.Fatalf("Failed to parse second entry: %v", err)
	}
	if parsed2.Decision != "allow" {
		t.Errorf("Second entry decision = %q, want allow", parsed2.Decision)
	}
}

func TestLogWhenDisabled(t *testing.T) {
	defer Reset()

	// Should not error when disabled
	if err := Log(Entry{Tool: "Bash", Decision: "allow"}); err != nil {
		t.Errorf("Log() when disabled error = %v", err)
	}
}

func TestClose(t *testing.T) {
	defer Reset()

	logPath := filepath.Join(t.TempDir(), "audit.log")

	if err := Init(Options{Path: logPath}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if IsEnabled() {
		t.Error("Expected audit logging to be disabled after Close")
	}

	// Double close should not error
	if err := Close(); err != nil {
		t.Errorf("Close() second call error = %v", err)
	}
}

func TestRotationCompressesAndReadsBack(t *testing.T) {
	defer Reset()

	logPath := filepath.Join(t.TempDir(), "audit.log")
	if err := Init(Options{Path: logPath, MaxBytes: 600, Keep: 10}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	const total = 20
	for i := 0; i < total; i++ {
		err := Log(Entry{
			SessionID: fmt.Sprintf("s-%d", i%2),
			Tool:      "Bash",
			Decision:  "allow",
			Input:     fmt.Sprintf(`{"tool_name":"Bash","n":%d}`, i),
		})
		if err != nil {
			t.Fatalf("Log(%d) error = %v", i, err)
		}
	}
	Close()

	archives, err := Archives(logPath)
	if err != nil {
		t.Fatalf("Archives() error = %v", err)
	}
	if len(archives) == 0 {
		t.Fatal("expected at least one compressed archive")
	}
	for _, a := range archives {
		if !strings.HasSuffix(a, ArchiveExt) {
			t.Errorf("archive %q lacks %s suffix", a, ArchiveExt)
		}
	}

	all, err := ReadEntries(logPath, Filter{})
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	if len(all) != total {
		t.Fatalf("ReadEntries() returned %d entries, want %d", len(all), total)
	}
	for i, e := range all {
		want := fmt.Sprintf(`{"tool_name":"Bash","n":%d}`, i)
		if e.Input != want {
			t.Errorf("entry %d input = %q, want %q (order must be chronological)", i, e.Input, want)
		}
	}

	session, err := ReadEntries(logPath, Filter{SessionID: "s-1", Limit: 3})
	if err != nil {
		t.Fatalf("ReadEntries(filter) error = %v", err)
	}
	if len(session) != 3 {
		t.Fatalf("filtered entries = %d, want 3", len(session))
	}
	for _, e := range session {
		if e.SessionID != "s-1" {
			t.Errorf("filter leaked session %q", e.SessionID)
		}
	}
}

func TestRotationPrunesOldArchives(t *testing.T) {
	defer Reset()

	logPath := filepath.Join(t.TempDir(), "audit.log")
	if err := Init(Options{Path: logPath, MaxBytes: 200, Keep: 2}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	for i := 0; i < 15; i++ {
		Log(Entry{Tool: "Write", Decision: "ask", Reason: strings.Repeat("x", 100)})
	}
	Close()

	archives, err := Archives(logPath)
	if err != nil {
		t.Fatalf("Archives() error = %v", err)
	}
	if len(archives) > 2 {
		t.Errorf("expected at most 2 archives after pruning, got %d", len(archives))
	}
}

func TestReadEntriesMissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	entries, err := ReadEntries(filepath.Join(dir, "missing.log"), Filter{})
	if err != nil {
		t.Fatalf("ReadEntries(missing) error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}

	path := filepath.Join(dir, "audit.log")
	content := "not json\n" + `{"version":1,"decision":"deny","session_id":"a"}` + "\n\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	entries, err = ReadEntries(path, Filter{Decision: "deny"})
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].SessionID != "a" {
		t.Errorf("entries = %+v", entries)
	}
}
