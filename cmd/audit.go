package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dgerlanc/hookguard/internal/audit"
	"github.com/dgerlanc/hookguard/internal/config"
	"github.com/dgerlanc/hookguard/internal/env"
	"github.com/dgerlanc/hookguard/internal/rules"
)

var (
	auditSession  string
	auditDecision string
	auditLimit    int
	auditFile     string
	auditJSON     bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent decisions from the audit log",
	Long: `Audit prints decisions recorded in the audit log, oldest first. Rotated
archives (*.zst) are read before the live log, so --limit always shows the
newest entries.`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVarP(&auditSession, "session", "s", "", "Only show entries for this session")
	auditCmd.Flags().StringVar(&auditDecision, "decision", "", "Only show entries with this decision (allow, deny, ask, block)")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Show at most this many entries (0 for all)")
	auditCmd.Flags().StringVar(&auditFile, "file", "", "Audit log to read (default from config)")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Print entries as JSON lines")
}

// ErrNoAuditLog is returned when no audit log path can be resolved.
var ErrNoAuditLog = errors.New("no audit log path: set [audit] path or pass --file")

func runAudit(cmd *cobra.Command, args []string) error {
	path := auditFile
	if path == "" {
		path = audit.Path()
	}
	if path == "" {
		path = config.Get().AuditPath(env.FromOS())
	}
	if path == "" {
		return ErrNoAuditLog
	}

	entries, err := audit.ReadEntries(path, audit.Filter{
		SessionID: auditSession,
		Decision:  auditDecision,
		Limit:     auditLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	out := cmd.OutOrStdout()
	if auditJSON {
		enc := json.NewEncoder(out)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "No audit entries in %s\n", path)
		return nil
	}
	for _, e := range entries {
		writeAuditEntry(out, e)
	}
	return nil
}

func writeAuditEntry(w io.Writer, e audit.Entry) {
	fmt.Fprintf(w, "%s  %-5s  %-11s  %-9s", e.Timestamp, e.Decision, e.Event, e.Tool)
	if e.Rule != "" {
		fmt.Fprintf(w, "  %s", e.Rule)
	}
	if e.PlanMode {
		fmt.Fprint(w, "  [plan]")
	}
	fmt.Fprintf(w, "  session=%s\n", e.SessionID)
	if e.Reason != "" {
		fmt.Fprintf(w, "    %s\n", rules.Shorten(e.Reason, 160))
	}
	for _, r := range e.Rules {
		if r.Outcome == audit.OutcomeFired {
			continue
		}
		fmt.Fprintf(w, "    %s %s", r.Outcome, r.Rule)
		if r.Detail != "" {
			fmt.Fprintf(w, ": %s", r.Detail)
		}
		fmt.Fprintln(w)
	}
}
