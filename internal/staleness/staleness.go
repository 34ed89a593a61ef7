// Package staleness decides which tasks must run.
//
// A task is up to date when every declared output exists and no output is
// older than any input. A task whose outputs are only partly present is
// treated as needing to run. A task also needs to run when any of its
// dependencies does. Action parameters are not considered: editing a
// rule's command does not make its outputs stale.
package staleness

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/dag"
	"github.com/vk/gridflow/internal/task"
)

// Reason classifies why a task needs to run.
type Reason string

const (
	UpToDate        Reason = ""
	MissingOutput   Reason = "missing-output"
	PartialOutputs  Reason = "partial-outputs"
	OlderThanInput  Reason = "older-than-input"
	MissingInput    Reason = "missing-input"
	DependencyStale Reason = "dependency-runs"
)

// Verdict is the outcome of checking one task.
type Verdict struct {
	Reason Reason
	// Detail names the paths or task behind Reason.
	Detail string
}

// NeedsRun reports whether the verdict requires running the task.
func (v Verdict) NeedsRun() bool {
	return v.Reason != UpToDate
}

func (v Verdict) String() string {
	if !v.NeedsRun() {
		return "up to date"
	}
	if v.Detail == "" {
		return string(v.Reason)
	}
	return fmt.Sprintf("%s: %s", v.Reason, v.Detail)
}

// Analyzer compares file modification times. Its FS is rooted at the run
// root.
type Analyzer struct {
	FS afero.Fs
}

// Check inspects t's own files, ignoring its dependencies.
func (a *Analyzer) Check(t *task.Task) (Verdict, error) {
	var oldest time.Time
	var oldestPath string
	var missing []string
	for _, out := range t.Outputs {
		info, err := a.FS.Stat(out)
		if os.IsNotExist(err) {
			missing = append(missing, out)
			continue
		}
		if err != nil {
			return Verdict{}, fmt.Errorf("stat %s: %w", out, err)
		}
		if oldestPath == "" || info.ModTime().Before(oldest) {
			oldest, oldestPath = info.ModTime(), out
		}
	}

	switch {
	case len(missing) == len(t.Outputs):
		return Verdict{Reason: MissingOutput, Detail: missing[0]}, nil
	case len(missing) > 0:
		return Verdict{Reason: PartialOutputs, Detail: fmt.Sprintf("%s missing, %s present", missing[0], oldestPath)}, nil
	}

	for _, in := range t.Inputs {
		info, err := a.FS.Stat(in)
		if os.IsNotExist(err) {
			return Verdict{Reason: MissingInput, Detail: in}, nil
		}
		if err != nil {
			return Verdict{}, fmt.Errorf("stat %s: %w", in, err)
		}
		if info.ModTime().After(oldest) {
			return Verdict{Reason: OlderThanInput, Detail: fmt.Sprintf("%s is newer than %s", in, oldestPath)}, nil
		}
	}
	return Verdict{}, nil
}

// Plan holds a verdict for every task of a graph.
type Plan struct {
	verdicts map[string]Verdict
	order    []string
}

// Verdict returns the verdict for a task ID.
func (p *Plan) Verdict(id string) Verdict {
	return p.verdicts[id]
}

// NeedsRun reports whether the task must run.
func (p *Plan) NeedsRun(id string) bool {
	return p.verdicts[id].NeedsRun()
}

// Stale returns the IDs of tasks that need to run, dependencies first.
func (p *Plan) Stale() []string {
	var out []string
	for _, id := range p.order {
		if p.verdicts[id].NeedsRun() {
			out = append(out, id)
		}
	}
	return out
}

// Analyze checks every task of g, dependencies first, and propagates
// needs-run to dependents.
func (a *Analyzer) Analyze(ctx context.Context, g *dag.Graph) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	p := &Plan{verdicts: make(map[string]Verdict, g.Len())}

	for _, t := range g.TopologicalOrder() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.order = append(p.order, t.ID)

		v, err := a.Check(t)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", t.ID, err)
		}
		// A rerunning dependency takes precedence over input-based reasons.
		if v.Reason != MissingOutput && v.Reason != PartialOutputs {
			for _, dep := range g.Dependencies(t.ID) {
				if p.verdicts[dep].NeedsRun() {
					v = Verdict{Reason: DependencyStale, Detail: dep}
					break
				}
			}
		}
		p.verdicts[t.ID] = v
		logger.Debug("Staleness checked.", "task", t.ID, "verdict", v.String())
	}
	return p, nil
}
