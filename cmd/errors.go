package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgerlanc/hookguard/internal/config"
	"github.com/dgerlanc/hookguard/internal/constants"
	"github.com/dgerlanc/hookguard/internal/env"
	"github.com/dgerlanc/hookguard/internal/tracker"
)

var (
	errorsSession string
	errorsJSON    bool
)

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Summarize tracked rule failures for a session",
	Long: `Errors prints every failure the escalation tracker recorded for one
session, grouped by rule: rules that fired, rules that failed to evaluate
("<rule>/error") and unreadable hook input ("input").

The session defaults to HOOKGUARD_SESSION_ID.`,
	RunE: runErrors,
}

func init() {
	rootCmd.AddCommand(errorsCmd)
	errorsCmd.Flags().StringVarP(&errorsSession, "session", "s", "", "Session id to summarize")
	errorsCmd.Flags().BoolVar(&errorsJSON, "json", false, "Print the grouped records as JSON")
}

// ErrNoSession is returned when no session id was given.
var ErrNoSession = errors.New("no session id: pass --session or set " + constants.EnvSessionID)

func runErrors(cmd *cobra.Command, args []string) error {
	e := env.FromOS()
	session := errorsSession
	if session == "" {
		session = e.Lookup(constants.EnvSessionID)
	}
	if session == "" {
		return ErrNoSession
	}

	t := tracker.ForEnv(e, config.Get().Escalation.Threshold)
	grouped, err := t.SessionErrors(session)
	if err != nil {
		return fmt.Errorf("failed to read session errors: %w", err)
	}

	out := cmd.OutOrStdout()
	if errorsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(grouped)
	}
	writeErrorSummary(out, session, grouped)
	return nil
}

// writeErrorSummary prints one block per rule, most frequent first.
func writeErrorSummary(w io.Writer, session string, grouped map[string][]tracker.Record) {
	if len(grouped) == 0 {
		fmt.Fprintf(w, "No errors recorded for session %s\n", session)
		return
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if n := len(grouped[b]) - len(grouped[a]); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})

	fmt.Fprintf(w, "Errors for session %s:\n", session)
	for _, id := range ids {
		records := grouped[id]
		latest := records[len(records)-1]
		fmt.Fprintf(w, "\n%s: %d time(s), last at %s\n", id, len(records), latest.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(w, "  %s\n", latest.Message)
	}
}
