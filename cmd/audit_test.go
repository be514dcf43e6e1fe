package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgerlanc/hookguard/internal/audit"
	"github.com/dgerlanc/hookguard/internal/testutil"
)

// seedAudit runs the hook over inputs with auditing on and returns the log path.
func seedAudit(t *testing.T, inputs ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	require.NoError(t, audit.Init(audit.Options{Path: path}))
	for _, in := range inputs {
		runWithInput(in)
	}
	audit.Reset()
	return path
}

func runAuditCmd(t *testing.T) (string, error) {
	t.Helper()
	cmd := &cobra.Command{}
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	err := runAudit(cmd, nil)
	return stdout.String(), err
}

func TestRunAuditShowsDecisions(t *testing.T) {
	setupTestConfig(t)
	auditFile = seedAudit(t,
		testutil.BashInput(t, "ls"),
		testutil.BashInput(t, "pip install requests"),
	)

	out, err := runAuditCmd(t)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[0], "allow")
	assert.Contains(t, out, "deny")
	assert.Contains(t, out, "pip-install")
	assert.Contains(t, out, "session=test-session")
	assert.Contains(t, out, "uv add requests")
}

func TestRunAuditFilters(t *testing.T) {
	setupTestConfig(t)
	auditFile = seedAudit(t,
		testutil.BashInput(t, "ls"),
		testutil.BashInput(t, "pip install a"),
		testutil.BashInput(t, "pip install b"),
		testutil.HookInput(t, "Bash", map[string]any{"command": "pip install c"}, map[string]any{"session_id": "other"}),
	)
	auditJSON = true

	auditDecision = "deny"
	auditSession = "test-session"
	auditLimit = 1

	out, err := runAuditCmd(t)
	require.NoError(t, err)

	var entries []audit.Entry
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var e audit.Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 1)
	assert.Equal(t, "deny", entries[0].Decision)
	assert.Equal(t, "test-session", entries[0].SessionID)
	assert.Contains(t, entries[0].Input, "pip install b")
}

func TestRunAuditShowsEscapes(t *testing.T) {
	setupTestConfig(t)
	auditFile = seedAudit(t, testutil.BashInput(t, "pip install x # hookguard:allow=pip-install"))

	out, err := runAuditCmd(t)
	require.NoError(t, err)
	assert.Contains(t, out, "ESCAPED pip-install: hookguard:allow=pip-install")
}

func TestRunAuditMissingLog(t *testing.T) {
	setupTestConfig(t)
	auditFile = filepath.Join(t.TempDir(), "absent.log")

	out, err := runAuditCmd(t)
	require.NoError(t, err)
	assert.Contains(t, out, "No audit entries")
}
