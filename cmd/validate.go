package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgerlanc/hookguard/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and show the active rules",
	Long: `Validate loads the hookguard configuration, including every included file,
and reports the first error it finds. On success it shows the escalation
threshold, plan-mode settings and the rules that will run.

Unknown keys do not make a configuration invalid but are listed as warnings.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := config.Init(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	cfg := config.Get()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Configuration valid!")
	if path := config.GetConfigPath(); path != "" {
		fmt.Fprintf(out, "Config file: %s\n", path)
	}
	for _, key := range cfg.Undecoded {
		fmt.Fprintf(out, "Warning: unknown key %q ignored\n", key)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Escalation threshold: %d\n", cfg.Escalation.Threshold)

	var signals []string
	if cfg.PlanMode.PermissionMode {
		signals = append(signals, "permission_mode")
	}
	if cfg.PlanMode.FilePath {
		signals = append(signals, "file_path")
	}
	if cfg.PlanMode.PlanFiles {
		signals = append(signals, "plan_files")
	}
	if len(signals) == 0 {
		signals = append(signals, "none")
	}
	fmt.Fprintf(out, "Plan-mode signals: %s\n", strings.Join(signals, ", "))
	if len(cfg.Rules.Disabled) > 0 {
		fmt.Fprintf(out, "Disabled rules: %s\n", strings.Join(cfg.Rules.Disabled, ", "))
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Rules: %d\n", cfg.Registry.Len())
	for _, r := range cfg.Registry.Rules() {
		fmt.Fprintf(out, "  - %s (%s, %s): %s\n", r.ID, r.Category, r.Action, r.Summary)
	}
	return nil
}
