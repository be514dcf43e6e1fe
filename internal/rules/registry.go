package rules

import (
	"cmp"
	"fmt"
	"slices"
)

// Registry is an ordered rule list. Rules are kept sorted by category rank,
// then priority, then id, so registration order never changes outcomes.
type Registry struct {
	rules []Rule
}

// NewRegistry returns a registry holding rules. Duplicate ids are rejected.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{}
	if err := r.Add(rules...); err != nil {
		return nil, err
	}
	return r, nil
}

// Add registers rules, keeping the registry sorted.
func (r *Registry) Add(rules ...Rule) error {
	for _, rule := range rules {
		if rule.ID == "" {
			return fmt.Errorf("%w: empty id", ErrInvalidRule)
		}
		if _, exists := r.Get(rule.ID); exists {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidRule, rule.ID)
		}
		r.rules = append(r.rules, rule)
	}
	slices.SortStableFunc(r.rules, compareRules)
	return nil
}

func compareRules(a, b Rule) int {
	return cmp.Or(
		cmp.Compare(a.Category.Rank(), b.Category.Rank()),
		cmp.Compare(a.Priority, b.Priority),
		cmp.Compare(a.ID, b.ID),
	)
}

// Rules returns all rules in evaluation order.
func (r *Registry) Rules() []Rule {
	return slices.Clone(r.rules)
}

// Get returns the rule with id.
func (r *Registry) Get(id string) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}

// Without returns a copy of the registry minus the given ids.
func (r *Registry) Without(ids ...string) *Registry {
	out := &Registry{}
	for _, rule := range r.rules {
		if !slices.Contains(ids, rule.ID) {
			out.rules = append(out.rules, rule)
		}
	}
	return out
}

// Applicable returns the rules that run for event and tool, in evaluation order.
func (r *Registry) Applicable(event Event, tool string) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.AppliesTo(event, tool) {
			out = append(out, rule)
		}
	}
	return out
}

// Tools returns the set of tool names any rule for event applies to.
func (r *Registry) Tools(event Event) map[string]bool {
	tools := make(map[string]bool)
	for _, rule := range r.rules {
		if !slices.Contains(rule.Events, event) {
			continue
		}
		for _, tool := range rule.Tools {
			tools[tool] = true
		}
	}
	return tools
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules)
}
