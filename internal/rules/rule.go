// Package rules implements hookguard's pattern rule library.
//
// A Rule is a plain data record: which events and tools it applies to, an
// optional path guard, an escape-hatch marker and a pure match function.
// Rules never perform I/O, so the same Target always yields the same Match.
package rules

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgerlanc/hookguard/internal/patterns"
	"github.com/dgerlanc/hookguard/internal/shell"
)

// ErrInvalidRule is returned when a rule definition cannot be compiled.
var ErrInvalidRule = errors.New("invalid rule")

// Event is the hook event a rule runs on.
type Event string

// Hook event names
const (
	EventPreToolUse  Event = "PreToolUse"
	EventPostToolUse Event = "PostToolUse"
)

// ParseEvent accepts the full event name or the short forms "pre" and "post".
func ParseEvent(s string) (Event, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pre", "pretooluse":
		return EventPreToolUse, nil
	case "post", "posttooluse":
		return EventPostToolUse, nil
	default:
		return "", fmt.Errorf("unknown hook event %q (want pre or post)", s)
	}
}

// Tool names
const (
	ToolBash      = "Bash"
	ToolWrite     = "Write"
	ToolEdit      = "Edit"
	ToolMultiEdit = "MultiEdit"
)

// Action is what a firing rule asks the host to do.
type Action string

// Rule actions. ActionBlock only exists for PostToolUse, where the tool has
// already run and "block" means "show this text".
const (
	ActionDeny  Action = "deny"
	ActionAsk   Action = "ask"
	ActionBlock Action = "block"
)

// ParseAction converts a config string to an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionDeny, ActionAsk, ActionBlock:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Category groups rules by risk. Lower rank wins ties between firing rules.
type Category string

// Rule categories, highest risk first.
const (
	CategoryDestructive Category = "destructive"
	CategorySecurity    Category = "security"
	CategoryWorkflow    Category = "workflow"
	CategoryStyle       Category = "style"
)

// Rank orders categories for tie-breaking. Unknown categories rank last.
func (c Category) Rank() int {
	switch c {
	case CategoryDestructive:
		return 0
	case CategorySecurity:
		return 1
	case CategoryWorkflow:
		return 2
	case CategoryStyle:
		return 3
	default:
		return 4
	}
}

// Target is the text and metadata a rule inspects.
type Target struct {
	Event    Event
	Tool     string
	Command  string
	FilePath string
	// Text is what the rule scans: the command for Bash, the written
	// content for Write, the replacement text for Edit and MultiEdit.
	Text string
}

// Segments returns the simple commands of a Bash target with quoted heredoc
// bodies removed and wrapper prefixes (sudo, timeout, env vars) stripped.
func (t Target) Segments() []string {
	if t.Command == "" {
		return nil
	}
	raw := shell.Segments(shell.StripQuotedHeredocs(t.Command))
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		core, _ := patterns.StripWrappers(seg, patterns.DefaultWrappers)
		if core != "" {
			out = append(out, core)
		}
	}
	return out
}

// Match is the structured result of a firing rule. The decision reason is
// derived from it, never authored at the call site.
type Match struct {
	// Excerpt is the offending text, shortened for display.
	Excerpt string
	// Matches lists the matched items (packages, secret kinds, statements).
	Matches []string
	// Count is the number of occurrences found.
	Count int
	// Fix is one concrete remediation for this match.
	Fix string
}

// PathGuard limits a rule to certain file paths. The zero value allows every path.
type PathGuard struct {
	// Extensions the path must end with (".md"). Empty means any.
	Extensions []string
	// Exclude globs; a matching path is never checked.
	Exclude []string
}

// Allows reports whether the guard lets the rule run on path.
func (g PathGuard) Allows(path string) bool {
	if len(g.Extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		if !slices.Contains(g.Extensions, ext) {
			return false
		}
	}
	return !patterns.MatchAnyGlob(g.Exclude, path)
}

// Rule is a single stateless policy check.
type Rule struct {
	ID       string
	Summary  string
	Category Category
	// Priority breaks ties within a category; lower wins.
	Priority int
	Events   []Event
	Tools    []string
	Action   Action
	// RelaxedInPlan skips the rule while the assistant is planning.
	RelaxedInPlan bool
	Paths         PathGuard
	// EscapeHatch is the literal marker that suppresses the rule. Empty means Marker(ID).
	EscapeHatch string
	Match       func(Target) (*Match, error)
}

// Marker returns the default escape-hatch marker for a rule id.
func Marker(id string) string {
	return "hookguard:allow=" + id
}

// Hatch returns the rule's escape-hatch marker.
func (r Rule) Hatch() string {
	if r.EscapeHatch != "" {
		return r.EscapeHatch
	}
	return Marker(r.ID)
}

// AppliesTo reports whether the rule runs for this event and tool.
func (r Rule) AppliesTo(event Event, tool string) bool {
	return slices.Contains(r.Events, event) && slices.Contains(r.Tools, tool)
}

// Escaped reports whether text carries the rule's escape-hatch marker.
// Matching is exact and case-sensitive.
func (r Rule) Escaped(text string) bool {
	return strings.Contains(text, r.Hatch())
}

// Admits reports whether the rule's path guard lets it inspect t.
func (r Rule) Admits(t Target) bool {
	if t.FilePath == "" && len(r.Paths.Extensions) == 0 {
		return true
	}
	return r.Paths.Allows(t.FilePath)
}

// Evaluate runs the rule against t. A panic inside the match function is
// converted to an error so one broken rule cannot abort evaluation.
func (r Rule) Evaluate(t Target) (m *Match, err error) {
	if r.Match == nil {
		return nil, fmt.Errorf("rule %s: %w: no match function", r.ID, ErrInvalidRule)
	}
	if !r.Admits(t) {
		return nil, nil
	}
	defer func() {
		if p := recover(); p != nil {
			m = nil
			err = fmt.Errorf("rule %s panicked: %v", r.ID, p)
		}
	}()
	return r.Match(t)
}

// maxExcerpt bounds excerpts shown in reasons.
const maxExcerpt = 120

// Reason renders the decision reason for a match: which rule fired, the
// offending excerpt, one remediation and the escape hatch.
func (r Rule) Reason(m *Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", r.ID, r.Summary)
	if m != nil && m.Excerpt != "" {
		fmt.Fprintf(&b, ": `%s`", Shorten(m.Excerpt, maxExcerpt))
	}
	b.WriteString(". ")
	fix := ""
	if m != nil {
		fix = m.Fix
	}
	if fix == "" {
		fix = "Rework the change so it no longer matches this rule"
	}
	b.WriteString(strings.TrimSuffix(fix, "."))
	fmt.Fprintf(&b, ". To override, include `%s`", r.Hatch())
	if slices.Contains(r.Tools, ToolBash) && len(r.Tools) == 1 {
		b.WriteString(" as a trailing comment")
	}
	b.WriteString(".")
	return b.String()
}

// Shorten collapses whitespace and truncates s to at most n runes.
func Shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
