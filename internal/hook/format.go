package hook

import (
	"encoding/json"

	"github.com/dgerlanc/hookguard/internal/logger"
	"github.com/dgerlanc/hookguard/internal/rules"
)

// fallbackPre is emitted if encoding ever fails; it allows, like every other failure.
const fallbackPre = `{"hookSpecificOutput":{"hookEventName":"PreToolUse","permissionDecision":"allow"}}`

// Format renders d in the schema for event.
func Format(event rules.Event, d Decision) string {
	if event == rules.EventPostToolUse {
		return FormatPost(d)
	}
	return FormatPre(d)
}

// FormatPre returns the PreToolUse JSON output.
func FormatPre(d Decision) string {
	kind := d.Kind
	if kind == KindBlock || kind == "" {
		kind = KindAllow
	}
	output := PreOutput{
		HookSpecificOutput: SpecificOutput{
			HookEventName:      string(rules.EventPreToolUse),
			PermissionDecision: string(kind),
		},
	}
	if kind != KindAllow {
		output.HookSpecificOutput.PermissionDecisionReason = d.Reason
	}
	data, err := json.Marshal(output)
	if err != nil {
		logger.Debug("failed to marshal pre output", "error", err)
		return fallbackPre
	}
	return string(data)
}

// FormatPost returns the PostToolUse JSON output: {"decision":"block"}
// with the reason when a rule fired, {} otherwise.
func FormatPost(d Decision) string {
	var output PostOutput
	if d.Kind != KindAllow && d.Kind != "" {
		output = PostOutput{Decision: string(KindBlock), Reason: d.Reason}
	}
	data, err := json.Marshal(output)
	if err != nil {
		logger.Debug("failed to marshal post output", "error", err)
		return "{}"
	}
	return string(data)
}
