// Package task defines the concrete unit of work the scheduler runs: one
// rule instantiated with one wildcard binding.
package task

import (
	"fmt"

	"github.com/vk/gridflow/internal/pattern"
	"github.com/vk/gridflow/internal/registry"
)

// Task is a rule instantiated with a concrete binding. It is immutable once
// created.
type Task struct {
	// ID is unique per (rule, binding) and stable across runs.
	ID      string
	Rule    *registry.Rule
	Binding pattern.Binding
	// Inputs and Outputs are paths relative to the run root, in declaration
	// order.
	Inputs  []string
	Outputs []string
}

// New builds a task. inputs and outputs are copied.
func New(rule *registry.Rule, binding pattern.Binding, inputs, outputs []string) *Task {
	return &Task{
		ID:      MakeID(rule.Name, binding),
		Rule:    rule,
		Binding: binding.Clone(),
		Inputs:  append([]string(nil), inputs...),
		Outputs: append([]string(nil), outputs...),
	}
}

// MakeID returns the identity of the task rule would produce for binding,
// for example "sim[chrom=chr1,seed=7]". Rules without wildcards use the bare
// rule name.
func MakeID(rule string, binding pattern.Binding) string {
	if len(binding) == 0 {
		return rule
	}
	return fmt.Sprintf("%s[%s]", rule, binding.Key())
}

// Weight returns the share of the resource budget the task holds while
// running.
func (t *Task) Weight() int {
	return t.Rule.Weight()
}

func (t *Task) String() string {
	return t.ID
}
