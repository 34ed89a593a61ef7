package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/dag"
	"github.com/vk/gridflow/internal/executor"
	"github.com/vk/gridflow/internal/fsutil"
	"github.com/vk/gridflow/internal/report"
	"github.com/vk/gridflow/internal/scheduler"
	"github.com/vk/gridflow/internal/staleness"
)

// ErrNoTargets is returned when neither the caller nor the pipeline names
// anything to build.
var ErrNoTargets = errors.New("nothing to build: no targets given and the pipeline declares no target block")

// Run builds the requested targets. Definition problems (unknown producers,
// cycles, ambiguous rules) are returned as errors before anything executes;
// task failures are reported in the returned report only. In dry-run mode
// nothing executes and the report lists what would run.
func (a *App) Run(ctx context.Context) (*report.RunReport, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "root", a.run.Root, "budget", a.run.Budget)

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	if !a.run.DryRun {
		lock, err := fsutil.LockRoot(a.run.Root)
		if err != nil {
			return nil, err
		}
		defer lock.Unlock()
	}

	graph, plan, err := a.plan(ctx)
	if err != nil {
		return nil, err
	}

	var rep *report.RunReport
	if a.run.DryRun {
		a.logger.Info("Dry run: nothing will be executed.", "tasks", graph.Len(), "stale", len(plan.Stale()))
		rep = dryRunReport(graph, plan, a.run.Budget)
	} else {
		a.logger.Info("🚀 Starting concurrent execution...", "tasks", graph.Len())
		sched := scheduler.New(graph, plan, executor.New(a.run.Root), scheduler.Options{
			Budget:   a.run.Budget,
			Observer: a.metrics,
		})
		rep = sched.Run(ctx)
		a.logger.Info("🏁 Execution finished.", "success", rep.Success())
	}

	if err := rep.Write(a.outW, a.config.Color); err != nil {
		return rep, fmt.Errorf("writing report: %w", err)
	}
	if a.config.ReportPath != "" {
		if err := writeReportFile(a.config.ReportPath, rep); err != nil {
			return rep, err
		}
	}
	a.logger.Debug("App.Run method finished.")
	return rep, nil
}

// plan builds the dependency graph for the targets and decides which tasks
// need to run.
func (a *App) plan(ctx context.Context) (*dag.Graph, *staleness.Plan, error) {
	targets, err := a.targets()
	if err != nil {
		return nil, nil, err
	}
	goals, err := dag.ResolveTargets(a.registry, a.run.Sweeps, targets)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve targets: %w", err)
	}
	a.logger.Debug("Targets resolved.", "targets", targets, "goals", len(goals))

	fs := afero.NewBasePathFs(afero.NewOsFs(), a.run.Root)
	graph, err := dag.Build(ctx, dag.Params{
		Registry: a.registry,
		Sweeps:   a.run.Sweeps,
		FS:       fs,
		Goals:    goals,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", graph.Len(), "leaves", len(graph.Leaves()))

	plan, err := (&staleness.Analyzer{FS: fs}).Analyze(ctx, graph)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check outputs: %w", err)
	}
	return graph, plan, nil
}

// targets returns the requested targets with absolute paths made relative
// to the root.
func (a *App) targets() ([]string, error) {
	if len(a.run.Targets) == 0 {
		return nil, ErrNoTargets
	}
	out := make([]string, len(a.run.Targets))
	for i, t := range a.run.Targets {
		if !filepath.IsAbs(t) {
			out[i] = t
			continue
		}
		rel, err := filepath.Rel(a.run.Root, t)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("target %s is outside the output root %s", t, a.run.Root)
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out, nil
}

func dryRunReport(g *dag.Graph, plan *staleness.Plan, budget int) *report.RunReport {
	now := time.Now()
	rep := &report.RunReport{
		RunID:    uuid.NewString(),
		Started:  now,
		Finished: now,
		Goals:    g.GoalPaths(),
		Budget:   budget,
		DryRun:   true,
	}
	for _, t := range g.TopologicalOrder() {
		tr := report.TaskReport{
			ID:       t.ID,
			Rule:     t.Rule.Name,
			Bindings: t.Binding.Clone(),
			Status:   report.Pending,
			Reason:   plan.Verdict(t.ID).String(),
		}
		if !plan.NeedsRun(t.ID) {
			tr.Status = report.Skipped
		}
		rep.Tasks = append(rep.Tasks, tr)
	}
	return rep
}

func writeReportFile(path string, rep *report.RunReport) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing report file: %w", cerr)
		}
	}()
	return rep.WriteJSON(f)
}
