package registry

import (
	"time"

	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/pattern"
)

// Input is one declared input of a rule: either a path template, or a
// reference to every output of another rule.
type Input struct {
	Template *pattern.Template
	Uses     string
}

// Rule is a task template. It is never modified after AddRule accepts it.
type Rule struct {
	Name    string
	Outputs []*pattern.Template
	Inputs  []Input
	// Threads is the share of the run's resource budget a task of this
	// rule holds while running. Zero means 1.
	Threads int
	Action  action.Action

	// Constraints lists the per-wildcard regular expressions the output
	// templates were compiled with; kept for validation and display.
	Constraints map[string]string

	// Workdir is the working directory for the action, relative to the
	// run root. It may use output wildcards. Empty means the run root.
	Workdir    string
	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration

	wildcards []string
}

// Wildcards returns the rule's wildcard names, taken from its first output
// template. All outputs share the same set.
func (r *Rule) Wildcards() []string {
	out := make([]string, len(r.wildcards))
	copy(out, r.wildcards)
	return out
}

// Weight returns the rule's resource weight.
func (r *Rule) Weight() int {
	if r.Threads <= 0 {
		return 1
	}
	return r.Threads
}

// Match is a rule whose output template matched a requested path.
type Match struct {
	Rule    *Rule
	Binding pattern.Binding
	// Output is the index of the matching output template.
	Output int
}
