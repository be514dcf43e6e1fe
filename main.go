// hookguard - policy hook for Claude Code tool calls
//
// hookguard reads one PreToolUse or PostToolUse invocation as JSON on stdin
// and answers with exactly one decision on stdout:
//
//	destructive-rm, curl-pipe-shell, secret-in-content  -> deny
//	git-no-verify, pip-install                          -> deny with a fix
//	git-force-push, markdown-sprawl                     -> ask
//	debug-statement (PostToolUse)                       -> block (shown to the assistant)
//
// Usage in ~/.claude/settings.json (or run "hookguard init"):
//
//	"hooks": {
//	  "PreToolUse": [{
//	    "matcher": "Bash|Write|Edit|MultiEdit",
//	    "hooks": [{"type": "command", "command": "hookguard"}]
//	  }],
//	  "PostToolUse": [{
//	    "matcher": "Write|Edit|MultiEdit",
//	    "hooks": [{"type": "command", "command": "hookguard --event post"}]
//	  }]
//	}
//
// Test:
//
//	echo '{"tool_name": "Bash", "tool_input": {"command": "pip install requests"}}' | hookguard
package main

import (
	"os"

	"github.com/dgerlanc/hookguard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
