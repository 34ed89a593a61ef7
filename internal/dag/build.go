package dag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/instantiate"
	"github.com/vk/gridflow/internal/registry"
	"github.com/vk/gridflow/internal/sweep"
	"github.com/vk/gridflow/internal/task"
)

// DefaultMaxDepth bounds the length of a chain of on-demand instantiations.
const DefaultMaxDepth = 1000

// Params holds everything Build needs.
type Params struct {
	Registry *registry.Registry
	Sweeps   *sweep.Set
	// FS is rooted at the run root; all paths are relative to it.
	FS afero.Fs
	// Goals are concrete paths.
	Goals []string
	// MaxDepth defaults to DefaultMaxDepth.
	MaxDepth int
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

type builder struct {
	ctx   context.Context
	p     Params
	inst  *instantiate.Instantiator
	g     *Graph
	state map[string]visitState
	// stack holds the tasks being resolved; stackPaths[i] is the path
	// through which stack[i] was requested.
	stack      []*task.Task
	stackPaths []string
	leafSeen   map[string]bool
}

// Build constructs the dependency graph needed for p.Goals.
func Build(ctx context.Context, p Params) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "goals", len(p.Goals))

	if p.Registry == nil {
		return nil, errors.New("build: nil registry")
	}
	if p.FS == nil {
		p.FS = afero.NewOsFs()
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = DefaultMaxDepth
	}

	b := &builder{
		ctx:      ctx,
		p:        p,
		inst:     instantiate.New(p.Registry, p.Sweeps),
		g:        newGraph(),
		state:    make(map[string]visitState),
		leafSeen: make(map[string]bool),
	}

	for _, goal := range p.Goals {
		goal = filepath.ToSlash(filepath.Clean(goal))
		id, err := b.require(goal, nil)
		if err != nil {
			return nil, err
		}
		b.g.goalPaths = append(b.g.goalPaths, goal)
		if id != "" && !slices.Contains(b.g.goals, id) {
			b.g.goals = append(b.g.goals, id)
		}
	}
	logger.Debug("Build: Task discovery complete.", "task_count", b.g.Len(), "leaf_count", len(b.g.leaves))

	b.g.computeDistances()
	logger.Debug("Build: Graph construction successful.")
	return b.g, nil
}

// require resolves path to the ID of its producing task, or to "" when the
// path is an existing leaf file.
func (b *builder) require(path string, requester *task.Task) (string, error) {
	if err := b.ctx.Err(); err != nil {
		return "", err
	}

	matches := b.p.Registry.Producers(path)
	switch len(matches) {
	case 0:
		return "", b.leaf(path, requester)
	case 1:
	default:
		rules := make([]string, len(matches))
		for i, m := range matches {
			rules[i] = m.Rule.Name
		}
		return "", &DefinitionError{Rules: rules, Path: path, Msg: "more than one rule can produce this path"}
	}

	m := matches[0]
	id := task.MakeID(m.Rule.Name, m.Binding)
	switch b.state[id] {
	case visited:
		return id, nil
	case visiting:
		return "", b.cycle(id, path)
	}

	if len(b.stack) >= b.p.MaxDepth {
		return "", &DefinitionError{
			Rules: []string{m.Rule.Name},
			Path:  path,
			Msg:   fmt.Sprintf("instantiation depth exceeds %d; a rule probably feeds itself through ever-growing paths", b.p.MaxDepth),
		}
	}

	t, err := b.inst.OnDemand(m.Rule, m.Binding)
	if err != nil {
		return "", &DefinitionError{Rules: []string{m.Rule.Name}, Path: path, Msg: err.Error(), Err: err}
	}
	if err := b.addTask(t); err != nil {
		return "", err
	}
	ctxlog.FromContext(b.ctx).Debug("Build: Instantiated task.", "task", t.ID, "path", path)

	b.state[id] = visiting
	b.stack = append(b.stack, t)
	b.stackPaths = append(b.stackPaths, path)

	for _, in := range t.Inputs {
		depID, err := b.require(in, t)
		if err != nil {
			return "", err
		}
		if depID != "" {
			b.g.addEdge(depID, id)
		}
	}

	b.stack = b.stack[:len(b.stack)-1]
	b.stackPaths = b.stackPaths[:len(b.stackPaths)-1]
	b.state[id] = visited
	b.g.topo = append(b.g.topo, id)
	return id, nil
}

func (b *builder) addTask(t *task.Task) error {
	for _, out := range t.Outputs {
		if other, ok := b.g.producers[out]; ok && other != t.ID {
			return &DefinitionError{
				Rules: []string{b.g.nodes[other].task.Rule.Name, t.Rule.Name},
				Path:  out,
				Msg:   fmt.Sprintf("declared as output by both %s and %s", other, t.ID),
			}
		}
	}
	for _, out := range t.Outputs {
		b.g.producers[out] = t.ID
	}
	b.g.nodes[t.ID] = &node{task: t}
	b.g.inserted = append(b.g.inserted, t.ID)
	return nil
}

func (b *builder) leaf(path string, requester *task.Task) error {
	if b.leafSeen[path] {
		return nil
	}
	exists, err := afero.Exists(b.p.FS, path)
	if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if !exists {
		e := &MissingProducerError{Path: path}
		if requester != nil {
			e.RequestedBy = requester.ID
		}
		return e
	}
	b.leafSeen[path] = true
	b.g.leaves = append(b.g.leaves, path)
	return nil
}

// cycle builds the error for a request of path, produced by the task id
// that is already on the stack.
func (b *builder) cycle(id, path string) error {
	start := 0
	for i, t := range b.stack {
		if t.ID == id {
			start = i
			break
		}
	}
	e := &CycleError{}
	for i := start; i < len(b.stack); i++ {
		e.Tasks = append(e.Tasks, b.stack[i].ID)
		if i+1 < len(b.stack) {
			e.Paths = append(e.Paths, b.stackPaths[i+1])
		}
	}
	e.Paths = append(e.Paths, path)
	return e
}
