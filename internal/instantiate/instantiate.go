// Package instantiate turns rules into tasks.
//
// Two modes are offered. OnDemand creates exactly the task for a binding
// taken from a requested path; the graph builder uses it while walking
// backward from goals. Eager creates every task a rule's sweeps allow and is
// used when a whole rule is requested as a goal.
//
// In both modes, input wildcards that the binding does not fix are expanded
// over their sweeps, so a per-seed aggregate depends on the simulations of
// every chromosome.
package instantiate

import (
	"errors"
	"fmt"

	"github.com/vk/gridflow/internal/pattern"
	"github.com/vk/gridflow/internal/registry"
	"github.com/vk/gridflow/internal/sweep"
	"github.com/vk/gridflow/internal/task"
)

// UnresolvedError reports a wildcard that is neither bound nor backed by a
// sweep, so the set of paths it stands for is unknown.
type UnresolvedError struct {
	Rule     string
	Template string
	Wildcard string
}

func (e *UnresolvedError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("'%s': wildcard '%s' has no binding and no parameter sweep", e.Template, e.Wildcard)
	}
	return fmt.Sprintf("rule '%s', '%s': wildcard '%s' has no binding and no parameter sweep", e.Rule, e.Template, e.Wildcard)
}

// Instantiator creates tasks from the rules of one registry.
type Instantiator struct {
	reg    *registry.Registry
	sweeps *sweep.Set
}

// New returns an Instantiator expanding over sweeps.
func New(reg *registry.Registry, sweeps *sweep.Set) *Instantiator {
	if sweeps == nil {
		sweeps = sweep.Empty()
	}
	return &Instantiator{reg: reg, sweeps: sweeps}
}

// OnDemand instantiates rule for binding. Binding entries that are not
// wildcards of the rule are ignored.
func (in *Instantiator) OnDemand(rule *registry.Rule, binding pattern.Binding) (*task.Task, error) {
	b := binding.Restrict(rule.Wildcards())
	for _, name := range rule.Wildcards() {
		if _, ok := b[name]; !ok {
			return nil, &UnresolvedError{Rule: rule.Name, Template: rule.Outputs[0].String(), Wildcard: name}
		}
	}

	outputs := make([]string, 0, len(rule.Outputs))
	for _, t := range rule.Outputs {
		p, err := t.Expand(b)
		if err != nil {
			return nil, fmt.Errorf("rule '%s': %w", rule.Name, err)
		}
		outputs = append(outputs, p)
	}

	inputs, err := in.resolveInputs(rule, b)
	if err != nil {
		return nil, err
	}
	return task.New(rule, b, inputs, outputs), nil
}

// Eager instantiates rule for every combination of the sweeps named by its
// wildcards.
func (in *Instantiator) Eager(rule *registry.Rule) ([]*task.Task, error) {
	bindings, err := in.sweeps.Product(rule.Wildcards(), pattern.Binding{})
	if err != nil {
		return nil, in.unresolved(rule.Name, rule.Outputs[0].String(), err)
	}
	tasks := make([]*task.Task, 0, len(bindings))
	for _, b := range bindings {
		t, err := in.OnDemand(rule, b)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Goals expands goal templates over the sweeps. Plain paths pass through.
// The result keeps first-occurrence order without duplicates.
func (in *Instantiator) Goals(raw []string) ([]string, error) {
	var out []string
	for _, r := range raw {
		t, err := pattern.Compile(r, nil)
		if err != nil {
			return nil, err
		}
		paths, err := Expand(t, nil, in.sweeps)
		if err != nil {
			return nil, err
		}
		out = append(out, paths...)
	}
	return dedupe(out), nil
}

func (in *Instantiator) resolveInputs(rule *registry.Rule, b pattern.Binding) ([]string, error) {
	var paths []string
	for _, input := range rule.Inputs {
		templates := []*pattern.Template{input.Template}
		if input.Uses != "" {
			used, ok := in.reg.Rule(input.Uses)
			if !ok {
				return nil, fmt.Errorf("rule '%s' uses unknown rule '%s'", rule.Name, input.Uses)
			}
			templates = used.Outputs
		}
		for _, t := range templates {
			expanded, err := Expand(t, b, in.sweeps)
			if err != nil {
				return nil, in.unresolved(rule.Name, t.String(), err)
			}
			paths = append(paths, expanded...)
		}
	}
	return dedupe(paths), nil
}

func (in *Instantiator) unresolved(rule, template string, err error) error {
	var missing *sweep.MissingError
	if errors.As(err, &missing) {
		return &UnresolvedError{Rule: rule, Template: template, Wildcard: missing.Name}
	}
	var ue *UnresolvedError
	if errors.As(err, &ue) {
		return &UnresolvedError{Rule: rule, Template: ue.Template, Wildcard: ue.Wildcard}
	}
	return err
}

// Expand returns every path t stands for: wildcards bound in base are
// substituted and the rest range over their sweeps.
func Expand(t *pattern.Template, base pattern.Binding, sweeps *sweep.Set) ([]string, error) {
	partial, err := t.Partial(base)
	if err != nil {
		return nil, err
	}

	bindings, err := sweeps.Product(partial.Wildcards(), pattern.Binding{})
	if err != nil {
		var missing *sweep.MissingError
		if errors.As(err, &missing) {
			return nil, &UnresolvedError{Template: t.String(), Wildcard: missing.Name}
		}
		return nil, err
	}

	paths := make([]string, 0, len(bindings))
	for _, b := range bindings {
		p, err := partial.Expand(b)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
