package registry

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/vk/gridflow/internal/pattern"
)

// ErrInvalidRule is matched by every rule validation error.
var ErrInvalidRule = errors.New("invalid rule")

// RuleError describes why a rule was rejected.
type RuleError struct {
	Rule string
	Msg  string
}

func (e *RuleError) Error() string {
	if e.Rule == "" {
		return "invalid rule: " + e.Msg
	}
	return fmt.Sprintf("rule '%s': %s", e.Rule, e.Msg)
}

func (e *RuleError) Unwrap() error { return ErrInvalidRule }

func ruleErr(rule, format string, args ...any) error {
	return &RuleError{Rule: rule, Msg: fmt.Sprintf(format, args...)}
}

// checkRule runs the checks that need only the rule itself and the sweeps.
// On success it records the rule's wildcard set.
func (r *Registry) checkRule(rule *Rule) error {
	if rule == nil {
		return ruleErr("", "nil rule")
	}
	if rule.Name == "" {
		return ruleErr("", "rule name must not be empty")
	}
	if _, exists := r.byName[rule.Name]; exists {
		return ruleErr(rule.Name, "a rule with this name is already registered")
	}
	if len(rule.Outputs) == 0 {
		return ruleErr(rule.Name, "at least one output is required")
	}
	for _, out := range rule.Outputs {
		if path.IsAbs(out.String()) || filepath.IsAbs(out.String()) {
			return ruleErr(rule.Name, "output '%s' must be relative to the output root", out)
		}
	}
	if rule.Action == nil {
		return ruleErr(rule.Name, "no action")
	}
	if rule.Threads < 0 {
		return ruleErr(rule.Name, "threads must not be negative, got %d", rule.Threads)
	}
	if rule.Retries < 0 {
		return ruleErr(rule.Name, "retries must not be negative, got %d", rule.Retries)
	}
	if rule.RetryDelay < 0 || rule.Timeout < 0 {
		return ruleErr(rule.Name, "durations must not be negative")
	}

	wildcards := rule.Outputs[0].Wildcards()
	sort.Strings(wildcards)
	for _, out := range rule.Outputs[1:] {
		got := out.Wildcards()
		sort.Strings(got)
		if !slices.Equal(got, wildcards) {
			return ruleErr(rule.Name, "output '%s' has wildcards [%s] but '%s' has [%s]",
				out, strings.Join(got, ", "), rule.Outputs[0], strings.Join(wildcards, ", "))
		}
	}

	for name := range rule.Constraints {
		if !slices.Contains(wildcards, name) {
			return ruleErr(rule.Name, "constraint for '%s' which is not an output wildcard", name)
		}
	}

	if rule.Workdir != "" {
		wd, err := pattern.Compile(rule.Workdir, nil)
		if err != nil {
			return ruleErr(rule.Name, "workdir: %v", err)
		}
		for _, name := range wd.Wildcards() {
			if !slices.Contains(wildcards, name) {
				return ruleErr(rule.Name, "workdir uses wildcard '%s' which is not an output wildcard", name)
			}
		}
	}

	for i, in := range rule.Inputs {
		switch {
		case in.Template != nil && in.Uses != "":
			return ruleErr(rule.Name, "input %d sets both a path and uses", i)
		case in.Template == nil && in.Uses == "":
			return ruleErr(rule.Name, "input %d is empty", i)
		case in.Uses == rule.Name:
			return ruleErr(rule.Name, "input %d uses the rule itself", i)
		case in.Template != nil:
			for _, name := range in.Template.Wildcards() {
				if !slices.Contains(wildcards, name) && !r.sweeps.Has(name) {
					return ruleErr(rule.Name, "input '%s' uses wildcard '%s' which is neither an output wildcard nor a sweep", in.Template, name)
				}
			}
		}
	}

	rule.wildcards = wildcards
	return nil
}

// Validate runs the checks that span rules. It reports every problem found.
func (r *Registry) Validate() error {
	var errs []error
	for _, rule := range r.rules {
		for _, in := range rule.Inputs {
			if in.Uses == "" {
				continue
			}
			used, ok := r.byName[in.Uses]
			if !ok {
				errs = append(errs, ruleErr(rule.Name, "uses unknown rule '%s'", in.Uses))
				continue
			}
			for _, name := range used.wildcards {
				if !slices.Contains(rule.wildcards, name) && !r.sweeps.Has(name) {
					errs = append(errs, ruleErr(rule.Name, "uses rule '%s' whose wildcard '%s' is neither an output wildcard here nor a sweep", used.Name, name))
				}
			}
		}
	}
	return errors.Join(errs...)
}
