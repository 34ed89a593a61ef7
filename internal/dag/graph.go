package dag

import (
	"github.com/vk/gridflow/internal/task"
)

// Graph is the dependency graph of one run. It is read-only once Build
// returns and may be shared between goroutines.
type Graph struct {
	nodes map[string]*node
	// inserted lists task IDs in the order they were discovered.
	inserted []string
	// topo lists task IDs with every task after all of its dependencies.
	topo      []string
	producers map[string]string
	goals     []string
	goalPaths []string
	leaves    []string
}

// node is one task with its edges. Edge lists are ordered by discovery and
// hold no duplicates.
type node struct {
	task       *task.Task
	deps       []string
	dependents []string
	distance   int
}

func newGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*node),
		producers: make(map[string]string),
	}
}

// Len returns the number of tasks.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Tasks returns every task in discovery order.
func (g *Graph) Tasks() []*task.Task {
	out := make([]*task.Task, len(g.inserted))
	for i, id := range g.inserted {
		out[i] = g.nodes[id].task
	}
	return out
}

// TopologicalOrder returns every task after all of its dependencies.
func (g *Graph) TopologicalOrder() []*task.Task {
	out := make([]*task.Task, len(g.topo))
	for i, id := range g.topo {
		out[i] = g.nodes[id].task
	}
	return out
}

// Task looks a task up by ID.
func (g *Graph) Task(id string) (*task.Task, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.task, true
}

// Producer returns the ID of the task producing path.
func (g *Graph) Producer(path string) (string, bool) {
	id, ok := g.producers[path]
	return id, ok
}

// Dependencies returns the IDs of the tasks id depends on.
func (g *Graph) Dependencies(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return append([]string(nil), n.deps...)
}

// Dependents returns the IDs of the tasks that depend on id.
func (g *Graph) Dependents(id string) []string {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return append([]string(nil), n.dependents...)
}

// Goals returns the IDs of the tasks producing the goal paths.
func (g *Graph) Goals() []string {
	return append([]string(nil), g.goals...)
}

// GoalPaths returns the concrete goal paths the graph was built for.
func (g *Graph) GoalPaths() []string {
	return append([]string(nil), g.goalPaths...)
}

// Leaves returns the existing files the graph depends on that no rule
// produces, in discovery order.
func (g *Graph) Leaves() []string {
	return append([]string(nil), g.leaves...)
}

// Distance returns the length of the longest dependency chain from id to a
// task nothing depends on. Such tasks are at distance 0.
func (g *Graph) Distance(id string) int {
	if n, ok := g.nodes[id]; ok {
		return n.distance
	}
	return 0
}

func (g *Graph) addEdge(from, to string) {
	dep, dependent := g.nodes[from], g.nodes[to]
	for _, id := range dependent.deps {
		if id == from {
			return
		}
	}
	dependent.deps = append(dependent.deps, from)
	dep.dependents = append(dep.dependents, to)
}

// computeDistances fills node distances walking the topological order
// backward, so every dependent is final before its dependencies.
func (g *Graph) computeDistances() {
	for i := len(g.topo) - 1; i >= 0; i-- {
		n := g.nodes[g.topo[i]]
		n.distance = 0
		for _, id := range n.dependents {
			if d := g.nodes[id].distance + 1; d > n.distance {
				n.distance = d
			}
		}
	}
}
