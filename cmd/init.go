package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgerlanc/hookguard/internal/config"
	"github.com/dgerlanc/hookguard/internal/constants"
)

var (
	initForce          bool
	initConfigOnly     bool
	initClaudeSettings string
)

// hookEntry is one hookguard registration in Claude's settings.json.
type hookEntry struct {
	Event   string
	Matcher string
	Command string
}

// hookEntries are the registrations init installs.
var hookEntries = []hookEntry{
	{Event: "PreToolUse", Matcher: "Bash|Write|Edit|MultiEdit", Command: constants.AppName},
	{Event: "PostToolUse", Matcher: "Write|Edit|MultiEdit", Command: constants.AppName + " --event post"},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config and register hookguard with Claude Code",
	Long: `Init writes the default hookguard configuration and adds hookguard to the
PreToolUse and PostToolUse hooks in Claude Code's settings.json.

The config file is written to ~/.config/hookguard/config.toml (or the
directory named by HOOKGUARD_CONFIG). An existing config is left alone
unless --force is given.

Settings are read from ~/.claude/settings.json (or --claude-settings). Other
settings and hooks are preserved; events that already run hookguard are not
touched. Use --config-only to skip this step.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config file")
	initCmd.Flags().BoolVar(&initConfigOnly, "config-only", false, "Only write the config file, leave Claude settings alone")
	initCmd.Flags().StringVar(&initClaudeSettings, "claude-settings", "", "Path to Claude Code settings.json (default ~/.claude/settings.json)")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	configDir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, constants.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Fprintf(out, "Config already exists at %s (use --force to overwrite)\n", configPath)
	} else {
		if err := os.MkdirAll(configDir, constants.DirMode); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, config.GetDefaultConfig(), constants.FileMode); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		fmt.Fprintf(out, "Configuration written to: %s\n", configPath)
	}

	if !initConfigOnly {
		settingsPath, err := claudeSettingsPath()
		if err != nil {
			return err
		}
		changed, err := installHooks(settingsPath)
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintf(out, "Registered hookguard in: %s\n", settingsPath)
		} else {
			fmt.Fprintf(out, "hookguard already registered in: %s\n", settingsPath)
		}
	}

	fmt.Fprintf(out, "Run '%s validate' to verify your configuration.\n", constants.AppName)
	return nil
}

func claudeSettingsPath() (string, error) {
	if initClaudeSettings != "" {
		return initClaudeSettings, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, constants.ClaudeConfigDir, "settings.json"), nil
}

// installHooks adds the missing hookguard registrations to the settings file
// at path and reports whether it wrote the file.
func installHooks(path string) (bool, error) {
	settings := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	case len(bytes.TrimSpace(data)) > 0:
		if err := json.Unmarshal(data, &settings); err != nil {
			return false, fmt.Errorf("failed to parse %s: invalid JSON: %w", path, err)
		}
	}

	if allHooksPresent(settings) {
		return false, nil
	}
	settings = addHooks(settings)

	data, err = json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirMode); err != nil {
		return false, fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), constants.FileMode); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// isHookguardCommand reports whether a hook command runs hookguard.
func isHookguardCommand(command string) bool {
	fields := strings.Fields(command)
	return len(fields) > 0 && filepath.Base(fields[0]) == constants.AppName
}

// isHookPresent reports whether any matcher under event runs hookguard.
func isHookPresent(settings map[string]any, event string) bool {
	hooks, _ := settings["hooks"].(map[string]any)
	matchers, _ := hooks[event].([]any)
	for _, m := range matchers {
		matcher, ok := m.(map[string]any)
		if !ok {
			continue
		}
		entries, _ := matcher["hooks"].([]any)
		for _, e := range entries {
			entry, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if command, ok := entry["command"].(string); ok && isHookguardCommand(command) {
				return true
			}
		}
	}
	return false
}

func allHooksPresent(settings map[string]any) bool {
	for _, h := range hookEntries {
		if !isHookPresent(settings, h.Event) {
			return false
		}
	}
	return true
}

// addHooks appends a matcher for every event that does not run hookguard yet.
// Existing keys, events and matchers are preserved.
func addHooks(settings map[string]any) map[string]any {
	if settings == nil {
		settings = map[string]any{}
	}
	hooks, ok := settings["hooks"].(map[string]any)
	if !ok {
		hooks = map[string]any{}
		settings["hooks"] = hooks
	}
	for _, h := range hookEntries {
		if isHookPresent(settings, h.Event) {
			continue
		}
		matchers, _ := hooks[h.Event].([]any)
		hooks[h.Event] = append(matchers, map[string]any{
			"matcher": h.Matcher,
			"hooks": []any{
				map[string]any{"type": "command", "command": h.Command},
			},
		})
	}
	return settings
}
