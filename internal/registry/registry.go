package registry

import (
	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/sweep"
)

// Module is the interface that in-process action packages implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the rules and in-process action handlers of one pipeline.
type Registry struct {
	sweeps   *sweep.Set
	rules    []*Rule
	byName   map[string]*Rule
	handlers map[string]action.Func
}

// New creates an empty Registry. Rule validation checks wildcard names
// against the given sweeps.
func New(sweeps *sweep.Set) *Registry {
	if sweeps == nil {
		sweeps = sweep.Empty()
	}
	return &Registry{
		sweeps:   sweeps,
		byName:   make(map[string]*Rule),
		handlers: make(map[string]action.Func),
	}
}

// Sweeps returns the parameter sweeps the registry validates against.
func (r *Registry) Sweeps() *sweep.Set {
	return r.sweeps
}

// AddRule validates rule and adds it. Checks that involve other rules run
// in Validate, once every rule is known.
func (r *Registry) AddRule(rule *Rule) error {
	if err := r.checkRule(rule); err != nil {
		return err
	}
	r.rules = append(r.rules, rule)
	r.byName[rule.Name] = rule
	return nil
}

// Rule looks a rule up by name.
func (r *Registry) Rule(name string) (*Rule, bool) {
	rule, ok := r.byName[name]
	return rule, ok
}

// Rules returns all rules in registration order.
func (r *Registry) Rules() []*Rule {
	out := make([]*Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Producers returns every rule with an output template matching path, in
// registration order, one entry per rule.
func (r *Registry) Producers(path string) []Match {
	var matches []Match
	for _, rule := range r.rules {
		for i, out := range rule.Outputs {
			if b, ok := out.Match(path); ok {
				matches = append(matches, Match{Rule: rule, Binding: b, Output: i})
				break
			}
		}
	}
	return matches
}
