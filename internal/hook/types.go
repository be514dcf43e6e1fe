package hook

/*
Type Relationships in the hook package:

Data Flow:
  Input (JSON from Claude Code)
    → Process()
      → Input.Target() → rules.Target
      → rules.Registry.Applicable() → candidate rules
      → planmode.Detect() (only when a candidate is relaxed in plan mode)
      → rules.Rule.Evaluate() → *rules.Match
    → Decision (first firing rule in registry order)
    → Result.Output (JSON to Claude Code)

Side channels:
  - logger: one structured record per decision plus diagnostics
  - audit.Entry: one per invocation, with the outcome of every rule considered
  - tracker.Tracker: counts firing rules, rule errors and input failures per session
*/

import (
	"strings"

	"github.com/dgerlanc/hookguard/internal/planmode"
	"github.com/dgerlanc/hookguard/internal/rules"
)

// Input represents the JSON input received from a Claude Code hook.
//
// See: https://docs.anthropic.com/en/docs/claude-code/hooks
type Input struct {
	SessionID      string         `json:"session_id"`
	TranscriptPath string         `json:"transcript_path"`
	Cwd            string         `json:"cwd"`
	PermissionMode string         `json:"permission_mode"`
	HookEventName  string         `json:"hook_event_name"`
	ToolName       string         `json:"tool_name"`
	ToolInput      map[string]any `json:"tool_input"`
	ToolUseID      string         `json:"tool_use_id"`
}

// str returns a string field of tool_input, or "".
func (in Input) str(key string) string {
	s, _ := in.ToolInput[key].(string)
	return s
}

// Command returns tool_input.command.
func (in Input) Command() string { return in.str("command") }

// FilePath returns tool_input.file_path.
func (in Input) FilePath() string { return in.str("file_path") }

// EditTexts returns the new_string of every MultiEdit edit.
func (in Input) EditTexts() []string {
	edits, _ := in.ToolInput["edits"].([]any)
	var out []string
	for _, e := range edits {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := m["new_string"].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Target builds the rule target for event.
func (in Input) Target(event rules.Event) rules.Target {
	t := rules.Target{Event: event, Tool: in.ToolName, FilePath: in.FilePath()}
	switch in.ToolName {
	case rules.ToolBash:
		t.Command = in.Command()
		t.Text = t.Command
	case rules.ToolWrite:
		t.Text = in.str("content")
	case rules.ToolEdit:
		t.Text = in.str("new_string")
	case rules.ToolMultiEdit:
		t.Text = strings.Join(in.EditTexts(), "\n")
	}
	return t
}

// PlanInvocation is the part of the input the plan-mode detector reads.
func (in Input) PlanInvocation() planmode.Invocation {
	return planmode.Invocation{PermissionMode: in.PermissionMode, FilePath: in.FilePath()}
}

// Kind is the decision variant.
type Kind string

// Decision kinds
const (
	KindAllow Kind = "allow"
	KindDeny  Kind = "deny"
	KindAsk   Kind = "ask"
	// KindBlock is the PostToolUse variant: the tool already ran and the
	// reason is shown to the assistant.
	KindBlock Kind = "block"
)

// Decision is the single outcome of an invocation.
type Decision struct {
	Kind   Kind
	Reason string
	// RuleID is the rule that produced the decision, "" for Allow.
	RuleID string
}

// Allow is the zero-reason allow decision.
var Allow = Decision{Kind: KindAllow}

func decisionFor(rule rules.Rule, reason string) Decision {
	kind := KindDeny
	switch rule.Action {
	case rules.ActionAsk:
		kind = KindAsk
	case rules.ActionBlock:
		kind = KindBlock
	}
	return Decision{Kind: kind, Reason: reason, RuleID: rule.ID}
}

// PreOutput is the PreToolUse response.
type PreOutput struct {
	HookSpecificOutput SpecificOutput `json:"hookSpecificOutput"`
}

// SpecificOutput contains the permission decision details.
type SpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
}

// PostOutput is the PostToolUse response. The zero value encodes as {}.
type PostOutput struct {
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Result contains the outcome of processing one invocation.
type Result struct {
	Event    rules.Event
	Tool     string
	Decision Decision
	// Output is the JSON line written to stdout, without the newline.
	Output  string
	TraceID string
	// PlanMode is set when the detector ran.
	PlanMode *planmode.Context
	// InputError is set when the input could not be read or decoded.
	InputError error
}
