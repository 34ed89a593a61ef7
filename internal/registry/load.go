package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/config"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/pattern"
)

// LoadRules translates rule definitions into rules and adds them, then runs
// Validate. Handlers referenced by name must be registered beforehand.
func (r *Registry) LoadRules(ctx context.Context, defs []*config.Rule) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading rule definitions...", "count", len(defs))

	for _, def := range defs {
		rule, err := r.translateRule(def)
		if err != nil {
			return err
		}
		if err := r.AddRule(rule); err != nil {
			return err
		}
		logger.Debug("Registered rule.", "rule", rule.Name, "wildcards", rule.Wildcards())
	}

	if err := r.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	logger.Debug("Registry loaded successfully.", "rules", len(r.rules))
	return nil
}

func (r *Registry) translateRule(def *config.Rule) (*Rule, error) {
	rule := &Rule{
		Name:        def.Name,
		Threads:     def.Threads,
		Constraints: def.Constraints,
		Workdir:     def.Workdir,
		Retries:     def.Retries,
		RetryDelay:  def.RetryDelay,
		Timeout:     def.Timeout,
	}

	for _, raw := range def.Outputs {
		t, err := pattern.Compile(raw, def.Constraints)
		if err != nil {
			return nil, &RuleError{Rule: def.Name, Msg: fmt.Sprintf("output: %v", err)}
		}
		rule.Outputs = append(rule.Outputs, t)
	}
	for _, raw := range def.Inputs {
		t, err := pattern.Compile(raw, nil)
		if err != nil {
			return nil, &RuleError{Rule: def.Name, Msg: fmt.Sprintf("input: %v", err)}
		}
		rule.Inputs = append(rule.Inputs, Input{Template: t})
	}
	for _, name := range def.Uses {
		rule.Inputs = append(rule.Inputs, Input{Uses: name})
	}

	act, err := r.translateAction(def)
	if err != nil {
		return nil, &RuleError{Rule: def.Name, Msg: err.Error()}
	}
	rule.Action = act
	return rule, nil
}

func (r *Registry) translateAction(def *config.Rule) (action.Action, error) {
	set := 0
	for _, s := range []string{def.Shell, def.Command, def.Handler} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of shell, command and handler must be set")
	}

	switch {
	case def.Shell != "":
		return &action.Shell{Script: def.Shell}, nil
	case def.Command != "":
		return &action.Command{Line: def.Command}, nil
	}
	fn, ok := r.Handler(def.Handler)
	if !ok {
		return nil, fmt.Errorf("unknown handler '%s'", def.Handler)
	}
	return fn, nil
}
