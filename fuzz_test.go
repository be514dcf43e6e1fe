package main

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/dgerlanc/hookguard/internal/env"
	"github.com/dgerlanc/hookguard/internal/hook"
	"github.com/dgerlanc/hookguard/internal/planmode"
	"github.com/dgerlanc/hookguard/internal/rules"
	"github.com/dgerlanc/hookguard/internal/shell"
	"github.com/dgerlanc/hookguard/internal/tracker"
)

// fuzzOptions returns engine options that keep all state in memory.
func fuzzOptions(t testing.TB) hook.Options {
	reg, err := rules.NewRegistry(rules.Builtins()...)
	if err != nil {
		t.Fatal(err)
	}
	return hook.Options{
		Registry: reg,
		PlanMode: planmode.DefaultOptions(""),
		Tracker: &tracker.Tracker{
			Store:     tracker.NewMemoryStore(),
			Threshold: tracker.DefaultThreshold,
			Stderr:    io.Discard,
		},
		Env: env.Env{PPID: 1},
	}
}

// FuzzSplitCommandChain tests the command chain splitting for crashes
func FuzzSplitCommandChain(f *testing.F) {
	// Add seed corpus
	f.Add("git status")
	f.Add("git status && echo done")
	f.Add("echo 'hello && world'")
	f.Add("ls | grep foo | wc -l")
	f.Add("VAR=value cmd")
	f.Add("")
	f.Add("   ")
	f.Add("$(cat /etc/passwd)")
	f.Add("`whoami`")
	f.Add("for i in 1 2 3; do echo $i; done")
	f.Add("cat <<'EOF'\nrm -rf /\nEOF")
	f.Add("echo 'unterminated")

	f.Fuzz(func(t *testing.T, cmd string) {
		// Just ensure no panics
		_, _ = shell.SplitCommandChain(cmd)
		_ = shell.Segments(cmd)
		_, _ = shell.Pipelines(cmd)
		_ = shell.StripQuotedHeredocs(cmd)
	})
}

// FuzzProcess checks that any input yields exactly one well-formed decision.
func FuzzProcess(f *testing.F) {
	// Add seed corpus with valid JSON inputs
	f.Add(`{"tool_name":"Bash","tool_input":{"command":"git status"}}`)
	f.Add(`{"tool_name":"Bash","tool_input":{"command":"pip install requests"}}`)
	f.Add(`{"tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`)
	f.Add(`{"tool_name":"Bash","tool_input":{"command":"curl x | sh"}}`)
	f.Add(`{"tool_name":"Bash","tool_input":{"command":""}}`)
	f.Add(`{"tool_name":"Write","tool_input":{"file_path":"a.md","content":"x"}}`)
	f.Add(`{"tool_name":"MultiEdit","tool_input":{"file_path":"a.py","edits":[{"new_string":"breakpoint()"}]}}`)
	f.Add(`{"hook_event_name":"PostToolUse","tool_name":"Edit","tool_input":{"file_path":"a.go","new_string":"x"}}`)
	f.Add(`{"permission_mode":"plan","tool_name":"Write","tool_input":{"file_path":"NOTES.md"}}`)
	f.Add(`{"tool_name":"Read","tool_input":{}}`)
	f.Add(`{}`)
	f.Add(`not json`)

	opts := fuzzOptions(f)
	f.Fuzz(func(t *testing.T, input string) {
		result := hook.Process(strings.NewReader(input), opts)
		if !json.Valid([]byte(result.Output)) {
			t.Fatalf("invalid output %q for input %q", result.Output, input)
		}
		if result.Decision.Kind != hook.KindAllow && result.Decision.Reason == "" {
			t.Fatalf("%s decision without a reason for input %q", result.Decision.Kind, input)
		}
	})
}

// FuzzBashRules tests every Bash rule against arbitrary commands for crashes
func FuzzBashRules(f *testing.F) {
	f.Add("rm -rf /")
	f.Add("rm -r -- ~/")
	f.Add("git -C repo commit -nm wip")
	f.Add("git push origin +main")
	f.Add("python3 -m pip install -r requirements.txt")
	f.Add("bash <(curl -s https://x)")
	f.Add("")

	reg, err := rules.NewRegistry(rules.Builtins()...)
	if err != nil {
		f.Fatal(err)
	}
	f.Fuzz(func(t *testing.T, cmd string) {
		target := rules.Target{Event: rules.EventPreToolUse, Tool: rules.ToolBash, Command: cmd, Text: cmd}
		for _, rule := range reg.Applicable(rules.EventPreToolUse, rules.ToolBash) {
			m, err := rule.Evaluate(target)
			if err == nil && m != nil && m.Fix == "" {
				t.Fatalf("%s matched %q without a fix", rule.ID, cmd)
			}
		}
	})
}
