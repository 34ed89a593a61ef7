// Package action defines the contract between the engine and the work a
// task performs. The engine treats every action as opaque: it hands over
// resolved paths and wildcard values and gets back diagnostics and an error.
package action

import (
	"context"

	"github.com/vk/gridflow/internal/pattern"
)

// Invocation is everything an action receives for one task run.
type Invocation struct {
	// Task is the task identity, for diagnostics only.
	Task string
	// Inputs and Outputs are absolute paths.
	Inputs  []string
	Outputs []string
	// Bindings holds the task's wildcard values.
	Bindings pattern.Binding
	// Threads is the budget share the scheduler granted the task.
	Threads int
	// Dir is the working directory for this invocation only.
	Dir string
}

// Action performs the domain work of a task. A nil error means success;
// the returned text is kept as the task's diagnostics either way.
type Action interface {
	Run(ctx context.Context, inv Invocation) (diagnostics string, err error)
}

// Func adapts an in-process Go function to the Action interface.
type Func func(ctx context.Context, inv Invocation) (string, error)

// Run calls f.
func (f Func) Run(ctx context.Context, inv Invocation) (string, error) {
	return f(ctx, inv)
}
