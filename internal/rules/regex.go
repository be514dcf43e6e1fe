package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/dgerlanc/hookguard/internal/patterns"
)

// RegexSpec describes a rule defined in configuration.
type RegexSpec struct {
	ID            string
	Summary       string
	Category      string
	Priority      int
	Event         string
	Tools         []string
	Action        string
	Pattern       string
	Fix           string
	Marker        string
	Extensions    []string
	Exclude       []string
	RelaxedInPlan bool
}

var knownTools = []string{ToolBash, ToolWrite, ToolEdit, ToolMultiEdit}

// CompileRegex turns a RegexSpec into a Rule. Bash rules match each command
// segment; file rules match the written text.
func CompileRegex(spec RegexSpec) (Rule, error) {
	if spec.ID == "" {
		return Rule{}, fmt.Errorf("%w: regex rule without id", ErrInvalidRule)
	}
	if spec.Fix == "" {
		return Rule{}, fmt.Errorf("%w: rule %s: fix is required", ErrInvalidRule, spec.ID)
	}
	p, err := patterns.Compile(spec.Pattern, spec.ID)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: rule %s: %v", ErrInvalidRule, spec.ID, err)
	}
	event, err := ParseEvent(spec.Event)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: rule %s: %v", ErrInvalidRule, spec.ID, err)
	}

	action := ActionDeny
	if event == EventPostToolUse {
		action = ActionBlock
	}
	if spec.Action != "" {
		if action, err = ParseAction(spec.Action); err != nil {
			return Rule{}, fmt.Errorf("%w: rule %s: %v", ErrInvalidRule, spec.ID, err)
		}
	}
	if (event == EventPostToolUse) != (action == ActionBlock) {
		return Rule{}, fmt.Errorf("%w: rule %s: action %s is not valid for %s", ErrInvalidRule, spec.ID, action, event)
	}

	tools := spec.Tools
	if len(tools) == 0 {
		tools = []string{ToolBash}
	}
	for _, tool := range tools {
		if !slices.Contains(knownTools, tool) {
			return Rule{}, fmt.Errorf("%w: rule %s: unknown tool %q", ErrInvalidRule, spec.ID, tool)
		}
	}

	category := Category(spec.Category)
	if category == "" {
		category = CategoryWorkflow
	}
	summary := spec.Summary
	if summary == "" {
		summary = "matched pattern " + spec.Pattern
	}

	exts := make([]string, 0, len(spec.Extensions))
	for _, ext := range spec.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, strings.ToLower(ext))
	}

	return Rule{
		ID:            spec.ID,
		Summary:       summary,
		Category:      category,
		Priority:      spec.Priority,
		Events:        []Event{event},
		Tools:         tools,
		Action:        action,
		RelaxedInPlan: spec.RelaxedInPlan,
		Paths:         PathGuard{Extensions: exts, Exclude: spec.Exclude},
		EscapeHatch:   spec.Marker,
		Match:         regexMatcher(p.Regex, spec.Fix),
	}, nil
}

func regexMatcher(re *regexp.Regexp, fix string) func(Target) (*Match, error) {
	return func(t Target) (*Match, error) {
		texts := []string{t.Text}
		if t.Tool == ToolBash {
			texts = t.Segments()
		}
		var found []string
		for _, text := range texts {
			found = append(found, re.FindAllString(text, -1)...)
		}
		if len(found) == 0 {
			return nil, nil
		}
		return &Match{Excerpt: found[0], Matches: found, Count: len(found), Fix: fix}, nil
	}
}
