package dag

import (
	"github.com/vk/gridflow/internal/instantiate"
	"github.com/vk/gridflow/internal/registry"
	"github.com/vk/gridflow/internal/sweep"
)

// ResolveTargets turns requested targets into concrete goal paths. A target
// naming a rule stands for every output of every task the rule's sweeps
// allow. Any other target is a path, possibly a template expanded over the
// sweeps.
func ResolveTargets(reg *registry.Registry, sweeps *sweep.Set, targets []string) ([]string, error) {
	inst := instantiate.New(reg, sweeps)
	var goals []string
	seen := make(map[string]bool)
	add := func(paths ...string) {
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				goals = append(goals, p)
			}
		}
	}

	for _, target := range targets {
		if rule, ok := reg.Rule(target); ok {
			tasks, err := inst.Eager(rule)
			if err != nil {
				return nil, &DefinitionError{Rules: []string{rule.Name}, Msg: err.Error(), Err: err}
			}
			for _, t := range tasks {
				add(t.Outputs...)
			}
			continue
		}

		paths, err := inst.Goals([]string{target})
		if err != nil {
			return nil, &DefinitionError{Path: target, Msg: err.Error(), Err: err}
		}
		add(paths...)
	}
	return goals, nil
}
