package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/dag"
	"github.com/vk/gridflow/internal/executor"
	"github.com/vk/gridflow/internal/report"
	"github.com/vk/gridflow/internal/staleness"
	"github.com/vk/gridflow/internal/task"
	"golang.org/x/sync/semaphore"
)

// Runner executes a single task. *executor.Executor implements it.
type Runner interface {
	Execute(ctx context.Context, t *task.Task, threads int) executor.Result
}

// Event is a task state transition.
type Event struct {
	Task   *task.Task
	Status report.Status
	// Weight is the budget the task holds while running, reported with the
	// running transition and with the one that ends the run.
	Weight  int
	Elapsed time.Duration
}

// Observer is told about every transition. It is called from the
// coordinating goroutine and must not block.
type Observer interface {
	TaskTransition(ev Event)
}

// Options configure a Scheduler.
type Options struct {
	// Budget is the total weight of tasks allowed to run at once. Zero
	// means the number of CPUs.
	Budget   int
	Observer Observer
	// RunID identifies the run in the report. Generated when empty.
	RunID string
}

// Scheduler runs one graph once.
type Scheduler struct {
	graph  *dag.Graph
	plan   *staleness.Plan
	runner Runner
	opts   Options
}

// New creates a Scheduler. The plan must cover every task of graph.
func New(graph *dag.Graph, plan *staleness.Plan, runner Runner, opts Options) *Scheduler {
	if opts.Budget <= 0 {
		opts.Budget = runtime.NumCPU()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Scheduler{graph: graph, plan: plan, runner: runner, opts: opts}
}

// taskState is owned by the coordinating goroutine.
type taskState struct {
	task    *task.Task
	status  report.Status
	weight  int
	waiting int
	rep     *report.TaskReport
}

type completion struct {
	id  string
	res executor.Result
}

type run struct {
	s        *Scheduler
	ctx      context.Context
	execCtx  context.Context
	sem      *semaphore.Weighted
	states   map[string]*taskState
	ready    readyQueue
	seq      uint64
	inFlight int
	aborted  bool
	results  chan completion
}

// Run executes the graph and blocks until no task is running. The returned
// report has an entry for every task, in dependency order.
func (s *Scheduler) Run(ctx context.Context) *report.RunReport {
	logger := ctxlog.FromContext(ctx).With("run_id", s.opts.RunID)
	ctx = ctxlog.WithLogger(ctx, logger)

	rep := &report.RunReport{
		RunID:   s.opts.RunID,
		Started: time.Now(),
		Goals:   s.graph.GoalPaths(),
		Budget:  s.opts.Budget,
	}

	r := &run{
		s:       s,
		ctx:     ctx,
		execCtx: context.WithoutCancel(ctx),
		sem:     semaphore.NewWeighted(int64(s.opts.Budget)),
		states:  make(map[string]*taskState, s.graph.Len()),
		results: make(chan completion),
	}

	order := s.graph.TopologicalOrder()
	rep.Tasks = make([]report.TaskReport, len(order))
	for i, t := range order {
		weight := t.Weight()
		if weight > s.opts.Budget {
			logger.Warn("Task weight exceeds the budget; clamping.", "task", t.ID, "weight", weight, "budget", s.opts.Budget)
			weight = s.opts.Budget
		}
		rep.Tasks[i] = report.TaskReport{ID: t.ID, Rule: t.Rule.Name, Bindings: t.Binding.Clone(), Status: report.Pending}
		r.states[t.ID] = &taskState{
			task:    t,
			status:  report.Pending,
			weight:  weight,
			waiting: len(s.graph.Dependencies(t.ID)),
			rep:     &rep.Tasks[i],
		}
	}

	logger.Info("Run started.", "tasks", len(order), "stale", len(s.plan.Stale()), "budget", s.opts.Budget)
	if ctx.Err() != nil {
		r.abort()
	}
	for _, t := range order {
		if st := r.states[t.ID]; st.waiting == 0 && st.status == report.Pending {
			r.markReady(st)
		}
	}
	r.loop()

	for _, t := range order {
		st := r.states[t.ID]
		if !st.status.Terminal() {
			st.rep.Reason = "run aborted before the task started"
			r.transition(st, report.Cancelled, 0)
		}
	}

	rep.Finished = time.Now()
	counts := rep.Counts()
	logger.Info("Run finished.",
		"success", rep.Success(),
		"succeeded", counts[report.Succeeded],
		"skipped", counts[report.Skipped],
		"failed", counts[report.Failed],
		"blocked", counts[report.Blocked],
		"cancelled", counts[report.Cancelled],
		"duration", rep.Finished.Sub(rep.Started),
	)
	return rep
}

func (r *run) loop() {
	done := r.ctx.Done()
	for {
		if !r.aborted && r.ctx.Err() != nil {
			r.abort()
		}
		if !r.aborted {
			r.dispatch()
		}
		if r.inFlight == 0 {
			return
		}
		select {
		case c := <-r.results:
			r.inFlight--
			r.complete(c)
		case <-done:
			done = nil
			if !r.aborted {
				r.abort()
			}
		}
	}
}

func (r *run) abort() {
	r.aborted = true
	ctxlog.FromContext(r.ctx).Warn("Run aborted; waiting for running tasks to finish.", "running", r.inFlight)
}

// dispatch starts ready tasks in priority order while their weight fits.
// Tasks that do not fit stay queued for the next round.
func (r *run) dispatch() {
	var deferred []*entry
	for r.ready.Len() > 0 {
		e := heap.Pop(&r.ready).(*entry)
		if !r.sem.TryAcquire(int64(e.weight)) {
			deferred = append(deferred, e)
			continue
		}
		r.start(r.states[e.id])
	}
	for _, e := range deferred {
		heap.Push(&r.ready, e)
	}
}

func (r *run) start(st *taskState) {
	r.inFlight++
	r.transition(st, report.Running, st.weight)
	ctxlog.FromContext(r.ctx).Info("Task started.", "task", st.task.ID, "weight", st.weight)

	go func(t *task.Task, weight int) {
		ctx := ctxlog.With(executor.WithRetryContext(r.execCtx, r.ctx), "task", t.ID)
		res := r.s.runner.Execute(ctx, t, weight)
		r.sem.Release(int64(weight))
		r.results <- completion{id: t.ID, res: res}
	}(st.task, st.weight)
}

func (r *run) complete(c completion) {
	st := r.states[c.id]
	logger := ctxlog.FromContext(r.ctx)

	st.rep.Start = c.res.Start
	st.rep.End = c.res.End
	st.rep.Attempts = c.res.Attempts
	st.rep.Diagnostics = c.res.Diagnostics
	elapsed := c.res.End.Sub(c.res.Start)

	if c.res.Status != report.Succeeded {
		if c.res.Err != nil {
			st.rep.Error = c.res.Err.Error()
		}
		logger.Error("Task failed.", "task", c.id, "attempts", c.res.Attempts, "error", c.res.Err)
		r.transitionTimed(st, report.Failed, st.weight, elapsed)
		r.block(st)
		return
	}

	logger.Info("Task succeeded.", "task", c.id, "duration", elapsed)
	r.transitionTimed(st, report.Succeeded, st.weight, elapsed)
	r.release(st)
}

// markReady queues st, or skips it at once when the plan says its outputs
// are current.
func (r *run) markReady(st *taskState) {
	r.transition(st, report.Ready, 0)
	if r.aborted {
		return
	}

	if !r.s.plan.NeedsRun(st.task.ID) {
		st.rep.Reason = "up to date"
		ctxlog.FromContext(r.ctx).Debug("Task is up to date; skipping.", "task", st.task.ID)
		r.transition(st, report.Skipped, 0)
		r.release(st)
		return
	}

	st.rep.Reason = r.s.plan.Verdict(st.task.ID).String()
	r.seq++
	heap.Push(&r.ready, &entry{
		id:       st.task.ID,
		weight:   st.weight,
		distance: r.s.graph.Distance(st.task.ID),
		seq:      r.seq,
	})
}

// release lets dependents of a satisfied task proceed.
func (r *run) release(st *taskState) {
	for _, id := range r.s.graph.Dependents(st.task.ID) {
		dep := r.states[id]
		dep.waiting--
		if dep.waiting == 0 && dep.status == report.Pending {
			r.markReady(dep)
		}
	}
}

// block marks every transitive dependent of a failed task as blocked.
func (r *run) block(failed *taskState) {
	queue := []string{failed.task.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, depID := range r.s.graph.Dependents(id) {
			dep := r.states[depID]
			if dep.status.Terminal() {
				continue
			}
			dep.rep.Reason = fmt.Sprintf("dependency %s failed", failed.task.ID)
			r.transition(dep, report.Blocked, 0)
			queue = append(queue, depID)
		}
	}
}

func (r *run) transition(st *taskState, to report.Status, weight int) {
	r.transitionTimed(st, to, weight, 0)
}

func (r *run) transitionTimed(st *taskState, to report.Status, weight int, elapsed time.Duration) {
	st.status = to
	st.rep.Status = to
	if obs := r.s.opts.Observer; obs != nil {
		obs.TaskTransition(Event{Task: st.task, Status: to, Weight: weight, Elapsed: elapsed})
	}
}
