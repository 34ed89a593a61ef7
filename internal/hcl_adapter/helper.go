package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. gohcl fills omitted optional expression fields with a zero-width
// placeholder, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", defined,
	)
	return defined
}

// evaluator evaluates attribute expressions of one block and keeps the first
// error, so translation code can read attributes in sequence and check once.
type evaluator struct {
	ctx   context.Context
	ectx  *hcl.EvalContext
	owner string
	err   error
}

func (e *evaluator) value(expr hcl.Expression, attr string) (cty.Value, bool) {
	if e.err != nil || !isExprDefined(e.ctx, expr, attr) {
		return cty.NilVal, false
	}
	val, diags := expr.Value(e.ectx)
	if diags.HasErrors() {
		e.err = fmt.Errorf("%s: attribute '%s': %w", e.owner, attr, diags)
		return cty.NilVal, false
	}
	if val.IsNull() {
		return cty.NilVal, false
	}
	if !val.IsWhollyKnown() {
		e.fail(attr, "value is not known")
		return cty.NilVal, false
	}
	return val, true
}

func (e *evaluator) fail(attr, format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("%s: attribute '%s': %s", e.owner, attr, fmt.Sprintf(format, args...))
	}
}

func (e *evaluator) str(expr hcl.Expression, attr string) string {
	val, ok := e.value(expr, attr)
	if !ok {
		return ""
	}
	s, err := toString(val)
	if err != nil {
		e.fail(attr, "%v", err)
	}
	return s
}

// strList accepts a single string or a list, tuple or set of values
// convertible to strings.
func (e *evaluator) strList(expr hcl.Expression, attr string) []string {
	val, ok := e.value(expr, attr)
	if !ok {
		return nil
	}
	out, err := toStrings(val)
	if err != nil {
		e.fail(attr, "%v", err)
	}
	return out
}

func (e *evaluator) integer(expr hcl.Expression, attr string) int {
	val, ok := e.value(expr, attr)
	if !ok {
		return 0
	}
	num, err := convert.Convert(val, cty.Number)
	if err != nil {
		e.fail(attr, "expected a number: %v", err)
		return 0
	}
	var n int
	if err := gocty.FromCtyValue(num, &n); err != nil {
		e.fail(attr, "expected a whole number: %v", err)
	}
	return n
}

func (e *evaluator) duration(expr hcl.Expression, attr string) time.Duration {
	s := e.str(expr, attr)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		e.fail(attr, "%v", err)
	}
	return d
}

func (e *evaluator) stringMap(expr hcl.Expression, attr string) map[string]string {
	val, ok := e.value(expr, attr)
	if !ok {
		return nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		e.fail(attr, "expected a map, got %s", ty.FriendlyName())
		return nil
	}
	out := make(map[string]string, val.LengthInt())
	for k, v := range val.AsValueMap() {
		s, err := toString(v)
		if err != nil {
			e.fail(attr, "key '%s': %v", k, err)
			return nil
		}
		out[k] = s
	}
	return out
}

func toString(val cty.Value) (string, error) {
	if val.IsNull() {
		return "", fmt.Errorf("null value")
	}
	s, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("expected a string, got %s", val.Type().FriendlyName())
	}
	return s.AsString(), nil
}

func toStrings(val cty.Value) ([]string, error) {
	ty := val.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		s, err := toString(val)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	out := make([]string, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		s, err := toString(v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func fromStrings(values []string) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(values))
	for i, v := range values {
		vals[i] = cty.StringVal(v)
	}
	return cty.ListVal(vals)
}
