package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgerlanc/hookguard/internal/config"
	"github.com/dgerlanc/hookguard/internal/env"
	"github.com/dgerlanc/hookguard/internal/hook"
)

// runHook is the default command: one invocation on stdin, one decision on
// stdout. It never fails, so Claude Code always sees exit status 0.
func runHook(cmd *cobra.Command, args []string) {
	opts := hook.OptionsFromConfig(config.Get(), env.FromOS(), DefaultEvent())
	result := hook.Process(cmd.InOrStdin(), opts)

	if dryRun {
		// In dry-run mode, output to stderr instead of JSON to stdout
		writeDryRun(cmd.ErrOrStderr(), result)
		return
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Output)
}

// writeDryRun prints result in a form meant for people.
func writeDryRun(w io.Writer, result hook.Result) {
	var b strings.Builder
	b.WriteString(strings.ToUpper(string(result.Decision.Kind)))
	if result.Decision.RuleID != "" {
		fmt.Fprintf(&b, " [%s]", result.Decision.RuleID)
	}
	tool := result.Tool
	if tool == "" {
		tool = "-"
	}
	fmt.Fprintf(&b, " %s %s", result.Event, tool)
	if result.PlanMode != nil && result.PlanMode.InPlanMode {
		fmt.Fprintf(&b, " (plan mode: %s)", result.PlanMode.Reason)
	}
	if result.InputError != nil {
		fmt.Fprintf(&b, " (input error: %v)", result.InputError)
	}
	b.WriteString("\n")
	if result.Decision.Reason != "" {
		fmt.Fprintf(&b, "  %s\n", result.Decision.Reason)
	}
	fmt.Fprintf(&b, "  trace %s\n", result.TraceID)
	_, _ = io.WriteString(w, b.String())
}
