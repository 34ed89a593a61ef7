package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gridflow/internal/config"
	"github.com/vk/gridflow/internal/ctxlog"
)

func (l *Loader) translateSweep(ctx context.Context, s *SweepBlock) (*config.Sweep, error) {
	ev := &evaluator{ctx: ctx, ectx: sweepEvalContext(), owner: fmt.Sprintf("sweep '%s'", s.Name)}
	values := ev.strList(s.Values, "values")
	if ev.err != nil {
		return nil, ev.err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("sweep '%s' has no values", s.Name)
	}
	ctxlog.FromContext(ctx).Debug("Translated sweep.", "sweep", s.Name, "values", len(values))
	return &config.Sweep{Name: s.Name, Values: values}, nil
}

// translateSettings resolves a relative root against dir, the directory of
// the file that declared it.
func (l *Loader) translateSettings(ctx context.Context, ectx *hcl.EvalContext, s *SettingsBlock, dir string) (*config.Settings, error) {
	ev := &evaluator{ctx: ctx, ectx: ectx, owner: "settings"}
	settings := &config.Settings{
		Root:   ev.str(s.Root, "root"),
		Budget: ev.integer(s.Budget, "budget"),
		Keep:   ev.strList(s.Keep, "keep"),
	}
	if ev.err != nil {
		return nil, ev.err
	}
	if settings.Root != "" && !filepath.IsAbs(settings.Root) {
		settings.Root = filepath.Join(dir, settings.Root)
	}
	return settings, nil
}

func (l *Loader) translateRule(ctx context.Context, ectx *hcl.EvalContext, r *RuleBlock) (*config.Rule, error) {
	logger := ctxlog.FromContext(ctx).With("rule", r.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL rule to internal config model.")

	if !isExprDefined(ctx, r.Output, "output") {
		return nil, fmt.Errorf("rule '%s': attribute 'output' is required", r.Name)
	}

	ev := &evaluator{ctx: ctx, ectx: ectx, owner: fmt.Sprintf("rule '%s'", r.Name)}
	rule := &config.Rule{
		Name:        r.Name,
		Outputs:     ev.strList(r.Output, "output"),
		Inputs:      ev.strList(r.Input, "input"),
		Uses:        ev.strList(r.Uses, "uses"),
		Threads:     ev.integer(r.Threads, "threads"),
		Shell:       ev.str(r.Shell, "shell"),
		Command:     ev.str(r.Command, "command"),
		Handler:     ev.str(r.Handler, "handler"),
		Workdir:     ev.str(r.Workdir, "workdir"),
		Retries:     ev.integer(r.Retries, "retries"),
		RetryDelay:  ev.duration(r.RetryDelay, "retry_delay"),
		Timeout:     ev.duration(r.Timeout, "timeout"),
		Constraints: ev.stringMap(r.Constraints, "constraints"),
	}
	if ev.err != nil {
		return nil, ev.err
	}
	return rule, nil
}

func (l *Loader) translateTarget(ctx context.Context, ectx *hcl.EvalContext, t *TargetBlock, owner string) (*config.Target, error) {
	ev := &evaluator{ctx: ctx, ectx: ectx, owner: owner}
	target := &config.Target{
		Goals: ev.strList(t.Goals, "goals"),
		Rules: ev.strList(t.Rules, "rules"),
	}
	if ev.err != nil {
		return nil, ev.err
	}
	return target, nil
}
