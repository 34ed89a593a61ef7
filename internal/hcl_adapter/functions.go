package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gridflow/internal/instantiate"
	"github.com/vk/gridflow/internal/pattern"
	"github.com/vk/gridflow/internal/sweep"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// baseFunctions are available everywhere, including in sweep blocks.
func baseFunctions() map[string]function.Function {
	return map[string]function.Function{
		"range":    stdlib.RangeFunc,
		"join":     stdlib.JoinFunc,
		"format":   stdlib.FormatFunc,
		"concat":   stdlib.ConcatFunc,
		"upper":    stdlib.UpperFunc,
		"lower":    stdlib.LowerFunc,
		"length":   stdlib.LengthFunc,
		"flatten":  stdlib.FlattenFunc,
		"distinct": stdlib.DistinctFunc,
	}
}

// sweepEvalContext is used for sweep values, which cannot refer to other
// sweeps.
func sweepEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{Functions: baseFunctions()}
}

// ruleEvalContext exposes every sweep as `sweep.<name>` and adds expand().
func ruleEvalContext(sweeps *sweep.Set) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(sweeps.Names()))
	for _, name := range sweeps.Names() {
		values, _ := sweeps.Values(name)
		vars[name] = fromStrings(values)
	}
	sweepObj := cty.EmptyObjectVal
	if len(vars) > 0 {
		sweepObj = cty.ObjectVal(vars)
	}

	funcs := baseFunctions()
	funcs["expand"] = expandFunc(sweeps)
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"sweep": sweepObj},
		Functions: funcs,
	}
}

// expandFunc builds expand(template, overrides...). The template's wildcards
// range over the sweeps; each optional override object replaces the values
// of the sweeps it names, e.g. expand("fits/{model}.json", {model = ["a"]}).
func expandFunc(sweeps *sweep.Set) function.Function {
	return function.New(&function.Spec{
		Description: "Expands a path template over the parameter sweeps.",
		Params: []function.Parameter{
			{Name: "template", Type: cty.String},
		},
		VarParam: &function.Parameter{Name: "overrides", Type: cty.DynamicPseudoType},
		Type:     function.StaticReturnType(cty.List(cty.String)),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			t, err := pattern.Compile(args[0].AsString(), nil)
			if err != nil {
				return cty.NilVal, function.NewArgError(0, err)
			}
			set := sweeps
			for i, override := range args[1:] {
				set, err = overrideSweeps(set, override)
				if err != nil {
					return cty.NilVal, function.NewArgError(i+1, err)
				}
			}
			paths, err := instantiate.Expand(t, nil, set)
			if err != nil {
				return cty.NilVal, err
			}
			return fromStrings(paths), nil
		},
	})
}

func overrideSweeps(base *sweep.Set, override cty.Value) (*sweep.Set, error) {
	ty := override.Type()
	if override.IsNull() || (!ty.IsObjectType() && !ty.IsMapType()) {
		return nil, fmt.Errorf("override must be an object of sweep values, got %s", ty.FriendlyName())
	}

	names := base.Names()
	values := make(map[string][]string, len(names))
	for _, name := range names {
		values[name], _ = base.Values(name)
	}
	for name, v := range override.AsValueMap() {
		list, err := toStrings(v)
		if err != nil {
			return nil, fmt.Errorf("override '%s': %w", name, err)
		}
		if _, exists := values[name]; !exists {
			names = append(names, name)
		}
		values[name] = list
	}
	return sweep.New(names, values)
}
