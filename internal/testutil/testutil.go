// Package testutil provides shared test utilities for hookguard tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgerlanc/hookguard/internal/config"
	"github.com/dgerlanc/hookguard/internal/constants"
)

// SetupTestConfig creates a temporary config directory with test configuration
// and points HOOKGUARD_CONFIG at it. Tracker state goes to a temp dir too.
// Returns a cleanup function that should be deferred.
func SetupTestConfig(t *testing.T, configContent string) func() {
	t.Helper()

	tmpDir := t.TempDir()
	t.Setenv(constants.EnvConfigDir, tmpDir)
	t.Setenv(constants.EnvStateDir, t.TempDir())

	if configContent != "" {
		configPath := filepath.Join(tmpDir, constants.ConfigFileName)
		if err := os.WriteFile(configPath, []byte(configContent), constants.FileMode); err != nil {
			t.Fatal(err)
		}
	}

	config.Reset()
	_ = config.Init()

	return config.Reset
}

// MinimalTestConfig is a minimal config for testing.
const MinimalTestConfig = `
[escalation]
threshold = 2

[rules]
disabled = ["markdown-sprawl"]

[[rules.regex]]
id = "no-npm"
summary = "this project uses pnpm"
pattern = '^npm\s+install\b'
fix = "Run pnpm install instead"
`

// HookInput encodes a hook invocation for tool with the given tool_input.
// extra adds top-level fields such as session_id or permission_mode.
func HookInput(t testing.TB, tool string, toolInput map[string]any, extra map[string]any) string {
	t.Helper()
	in := map[string]any{
		"tool_name":  tool,
		"tool_input": toolInput,
	}
	for k, v := range extra {
		in[k] = v
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// BashInput encodes a Bash invocation of cmd in session "test-session".
func BashInput(t testing.TB, cmd string) string {
	t.Helper()
	return HookInput(t, "Bash", map[string]any{"command": cmd}, map[string]any{"session_id": "test-session"})
}

// WriteInput encodes a Write invocation in session "test-session".
func WriteInput(t testing.TB, path, content string) string {
	t.Helper()
	return HookInput(t, "Write", map[string]any{"file_path": path, "content": content}, map[string]any{"session_id": "test-session"})
}
