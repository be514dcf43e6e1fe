package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runRulesCmd(t *testing.T, format string) (string, error) {
	t.Helper()
	setupTestConfig(t)
	rulesOutput = format

	cmd := &cobra.Command{}
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	err := runRules(cmd, nil)
	return stdout.String(), err
}

func TestRunRulesText(t *testing.T) {
	out, err := runRulesCmd(t, "text")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "ID"), "header first, got %q", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "destructive-rm "), "highest-risk rule first, got %q", lines[1])
	assert.Contains(t, out, "hookguard:allow=pip-install")
	assert.Contains(t, out, "no-npm")
	assert.NotContains(t, out, "markdown-sprawl")
	assert.Contains(t, out, "relaxed in plan mode")
}

func TestRunRulesJSON(t *testing.T) {
	out, err := runRulesCmd(t, "json")
	require.NoError(t, err)

	var infos []ruleInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))

	byID := map[string]ruleInfo{}
	for _, r := range infos {
		byID[r.ID] = r
	}
	require.Contains(t, byID, "git-force-push")
	assert.Equal(t, "ask", byID["git-force-push"].Action)
	assert.Equal(t, []string{"PreToolUse"}, byID["git-force-push"].Events)

	require.Contains(t, byID, "debug-statement")
	assert.Equal(t, []string{"PostToolUse"}, byID["debug-statement"].Events)
	assert.Contains(t, byID["debug-statement"].Extensions, ".py")

	require.Contains(t, byID, "no-npm")
	assert.Equal(t, "workflow", byID["no-npm"].Category)
	assert.Equal(t, []string{"Bash"}, byID["no-npm"].Tools)
}

func TestRunRulesYAML(t *testing.T) {
	out, err := runRulesCmd(t, "yaml")
	require.NoError(t, err)

	var infos []ruleInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &infos))
	require.NotEmpty(t, infos)
	assert.Equal(t, "destructive-rm", infos[0].ID)
	assert.Equal(t, "hookguard:allow=destructive-rm", infos[0].Marker)
}

func TestRunRulesUnknownFormat(t *testing.T) {
	_, err := runRulesCmd(t, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
