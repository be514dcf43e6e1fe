// Package cmd implements the CLI commands for hookguard.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dgerlanc/hookguard/internal/audit"
	"github.com/dgerlanc/hookguard/internal/config"
	"github.com/dgerlanc/hookguard/internal/env"
	"github.com/dgerlanc/hookguard/internal/logger"
	"github.com/dgerlanc/hookguard/internal/rules"
)

var (
	// Global flags
	verbose    bool
	dryRun     bool
	eventName  string
	noAuditLog bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hookguard",
	Short: "Policy hook for Claude Code tool calls",
	Long: `hookguard is a PreToolUse/PostToolUse hook for Claude Code that inspects
shell commands and file writes and denies, questions or annotates the ones
that break project policy: destructive deletes, piping downloads into a
shell, skipping git hooks, force pushes, pip instead of uv, committed secrets,
stray markdown files and leftover debug statements.

When called without arguments, it reads one hook invocation as JSON from
stdin and writes exactly one decision as JSON to stdout. It always exits 0.

Usage in ~/.claude/settings.json:
  "hooks": {
    "PreToolUse": [{
      "matcher": "Bash|Write|Edit|MultiEdit",
      "hooks": [{"type": "command", "command": "hookguard"}]
    }],
    "PostToolUse": [{
      "matcher": "Write|Edit|MultiEdit",
      "hooks": [{"type": "command", "command": "hookguard --event post"}]
    }]
  }

Any rule can be bypassed for one call by adding its marker to the command or
content, e.g. "# hookguard:allow=pip-install".`,
	// Run the hook by default when no subcommand is given
	Run: runHook,
	// Silence usage on errors
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize before running any command
	cobra.OnInitialize(initApp)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (debug logging to stderr)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print the decision to stderr instead of JSON to stdout")
	rootCmd.PersistentFlags().StringVar(&eventName, "event", "pre", "Hook event when the input does not name one (pre or post)")
	rootCmd.PersistentFlags().BoolVar(&noAuditLog, "no-audit-log", false, "Disable audit logging")
}

// initApp initializes the application (config, logger, audit).
// Configuration is loaded first because it names the log and audit paths.
func initApp() {
	_ = config.Init()
	cfg := config.Get()
	e := env.FromOS()

	logger.Init(logger.Options{
		Verbose: verbose,
		Path:    cfg.LogPath(e),
		Home:    e.Home,
	})
	config.LogStatus()

	err := audit.Init(audit.Options{
		Path:     cfg.AuditPath(e),
		Disable:  noAuditLog || cfg.Audit.Disabled,
		MaxBytes: int64(cfg.Audit.MaxSizeMB) << 20,
		Keep:     cfg.Audit.Keep,
	})
	if err != nil {
		logger.Debug("audit log unavailable", "error", err)
	}
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose
}

// IsDryRun returns whether dry-run mode is enabled
func IsDryRun() bool {
	return dryRun
}

// DefaultEvent returns the event selected by --event, falling back to
// PreToolUse for values it does not recognize.
func DefaultEvent() rules.Event {
	event, err := rules.ParseEvent(eventName)
	if err != nil {
		logger.Warn("unknown --event value, using PreToolUse", "event", eventName)
		return rules.EventPreToolUse
	}
	return event
}
