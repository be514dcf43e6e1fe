package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgerlanc/hookguard/internal/config"
	"github.com/dgerlanc/hookguard/internal/rules"
)

var rulesOutput string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the active rules",
	Long: `Rules lists every enabled rule in evaluation order: built-in rules minus
those in rules.disabled, plus the [[rules.regex]] entries from the config.

The marker column is the escape hatch that suppresses a rule for one call.`,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().StringVarP(&rulesOutput, "output", "o", "text", "Output format: text, json or yaml")
}

// ruleInfo is the listing form of a rules.Rule.
type ruleInfo struct {
	ID            string   `json:"id" yaml:"id"`
	Summary       string   `json:"summary" yaml:"summary"`
	Category      string   `json:"category" yaml:"category"`
	Priority      int      `json:"priority" yaml:"priority"`
	Events        []string `json:"events" yaml:"events"`
	Tools         []string `json:"tools" yaml:"tools"`
	Action        string   `json:"action" yaml:"action"`
	Marker        string   `json:"marker" yaml:"marker"`
	RelaxedInPlan bool     `json:"relaxed_in_plan,omitempty" yaml:"relaxed_in_plan,omitempty"`
	Extensions    []string `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	Exclude       []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

func describeRules(reg *rules.Registry) []ruleInfo {
	var out []ruleInfo
	for _, r := range reg.Rules() {
		info := ruleInfo{
			ID:            r.ID,
			Summary:       r.Summary,
			Category:      string(r.Category),
			Priority:      r.Priority,
			Tools:         r.Tools,
			Action:        string(r.Action),
			Marker:        r.Hatch(),
			RelaxedInPlan: r.RelaxedInPlan,
			Extensions:    r.Paths.Extensions,
			Exclude:       r.Paths.Exclude,
		}
		for _, e := range r.Events {
			info.Events = append(info.Events, string(e))
		}
		out = append(out, info)
	}
	return out
}

func runRules(cmd *cobra.Command, args []string) error {
	infos := describeRules(config.Get().Registry)
	out := cmd.OutOrStdout()

	switch strings.ToLower(rulesOutput) {
	case "text", "":
		return writeRulesText(out, infos)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return fmt.Errorf("failed to encode rules: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", rulesOutput)
	}
}

func writeRulesText(w io.Writer, infos []ruleInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tACTION\tEVENTS\tTOOLS\tMARKER")
	for _, r := range infos {
		id := r.ID
		if r.RelaxedInPlan {
			id += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			id, r.Category, r.Action,
			strings.Join(r.Events, ","), strings.Join(r.Tools, ","), r.Marker)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "\n* relaxed in plan mode")
	return err
}
