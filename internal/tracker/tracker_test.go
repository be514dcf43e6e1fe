package tracker

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgerlanc/hookguard/internal/constants"
	"github.com/dgerlanc/hookguard/internal/env"
)

func newTestTracker(t *testing.T) (*Tracker, *bytes.Buffer) {
	t.Helper()
	var stderr bytes.Buffer
	tr := New(t.TempDir(), 0)
	tr.Stderr = &stderr
	tr.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return tr, &stderr
}

func TestTrackEscalatesExactlyOnce(t *testing.T) {
	tr, stderr := newTestTracker(t)

	var escalated []int
	for i := 1; i <= 7; i++ {
		before := stderr.Len()
		if tr.Track("pip-install", "pip install requests", "s1") {
			escalated = append(escalated, i)
		}
		wrote := stderr.Len() > before
		assert.Equal(t, i == DefaultThreshold, wrote, "call %d", i)
	}

	assert.Equal(t, []int{3}, escalated)
	assert.Equal(t, 1, strings.Count(stderr.String(), "\n"))
	assert.Contains(t, stderr.String(), "pip-install")
	assert.Contains(t, stderr.String(), "hookguard errors --session s1")
}

func TestTrackCustomThreshold(t *testing.T) {
	tr, stderr := newTestTracker(t)
	tr.Threshold = 1

	assert.True(t, tr.Track("r", "m", "s"))
	assert.False(t, tr.Track("r", "m", "s"))
	assert.Equal(t, 1, strings.Count(stderr.String(), "\n"))
}

func TestTrackSessionIsolation(t *testing.T) {
	tr, stderr := newTestTracker(t)

	for i := 0; i < 10; i++ {
		tr.Track("rule", "noise", "session-b")
	}
	stderr.Reset()

	assert.False(t, tr.Track("rule", "m", "session-a"))
	assert.False(t, tr.Track("rule", "m", "session-a"))
	assert.True(t, tr.Track("rule", "m", "session-a"))
	assert.Contains(t, stderr.String(), "session-a")
}

func TestTrackRulesAreIndependent(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.Track("a", "m", "s")
	tr.Track("a", "m", "s")
	assert.False(t, tr.Track("b", "m", "s"))
	assert.True(t, tr.Track("a", "m", "s"))
}

func TestTrackPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer
	for i := 0; i < 3; i++ {
		tr := New(dir, 3)
		tr.Stderr = &stderr
		tr.Track("rule", "m", "s")
	}
	assert.Equal(t, 1, strings.Count(stderr.String(), "\n"))

	counts, err := NewFileStore(filepath.Join(dir, constants.CountsFileName)).Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"s:rule": 3}, counts)
}

func TestFileStoreCorruptResets(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{not json"},
		{"null", "null"},
		{"null with newline", "null\n"},
		{"wrong type", `["a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "counts.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			s := NewFileStore(path)
			n, err := s.Increment("s:rule")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			counts, err := s.Load()
			require.NoError(t, err)
			assert.Equal(t, map[string]int{"s:rule": 1}, counts)
		})
	}
}

func TestTrackNullCountsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, constants.CountsFileName), []byte("null"), 0o600))

	var stderr bytes.Buffer
	tr := New(dir, DefaultThreshold)
	tr.Stderr = &stderr

	assert.NotPanics(t, func() {
		tr.Track("pip-install", "msg", "s1")
	})
	counts, err := NewFileStore(filepath.Join(dir, constants.CountsFileName)).Load()
	require.NoError(t, err)
	assert.Equal(t, 1, counts["s1:pip-install"])
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "counts.json"))
	for i := 0; i < 5; i++ {
		_, err := s.Increment("k")
		require.NoError(t, err)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "counts.json", entries[0].Name())

	info, err := os.Stat(filepath.Join(dir, "counts.json"))
	require.NoError(t, err)
	assert.Equal(t, constants.StateFileMode, info.Mode().Perm())
}

func TestFileStoreUnwritableStillCounts(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	// The parent of the counts file is a regular file, so every write fails.
	s := NewFileStore(filepath.Join(blocker, "counts.json"))
	n, err := s.Increment("k")
	assert.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestSessionErrors(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.Track("pip-install", "first", "s1")
	tr.Track("git-no-verify", "second", "s1")
	tr.Track("pip-install", "third", "s1")
	tr.Track("pip-install", "other session", "s2")

	f, err := os.OpenFile(tr.LogPath, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("garbage\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := tr.SessionErrors("s1")
	require.NoError(t, err)

	ts := tr.Now()
	want := map[string][]Record{
		"pip-install": {
			{Timestamp: ts, SessionID: "s1", RuleID: "pip-install", Message: "first"},
			{Timestamp: ts, SessionID: "s1", RuleID: "pip-install", Message: "third"},
		},
		"git-no-verify": {
			{Timestamp: ts, SessionID: "s1", RuleID: "git-no-verify", Message: "second"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SessionErrors() mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionErrorsMissingLog(t *testing.T) {
	tr, _ := newTestTracker(t)
	got, err := tr.SessionErrors("s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestForEnv(t *testing.T) {
	dir := t.TempDir()
	e := env.Env{Getenv: func(k string) string {
		if k == constants.EnvStateDir {
			return dir
		}
		return ""
	}}
	tr := ForEnv(e, 5)
	assert.Equal(t, filepath.Join(dir, constants.ErrorsFileName), tr.LogPath)
	assert.Equal(t, 5, tr.Threshold)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	n, _ := m.Increment("a")
	assert.Equal(t, 1, n)
	n, _ = m.Increment("a")
	assert.Equal(t, 2, n)
}
