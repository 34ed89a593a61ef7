// Package sweep holds the named, finite value sets (replicate seeds,
// chromosome names, model identifiers) that wildcards are expanded over.
//
// A Set is resolved once per run and never mutated afterwards; accessors
// return copies.
package sweep

import (
	"fmt"
	"sort"

	"github.com/vk/gridflow/internal/pattern"
)

// Set is an immutable collection of named parameter sweeps.
type Set struct {
	values map[string][]string
	order  []string
}

// New builds a Set. Sweep names keep the order given by names; values
// keep their declared order. Empty sweeps and duplicate values are rejected.
func New(names []string, values map[string][]string) (*Set, error) {
	s := &Set{values: make(map[string][]string, len(values))}
	for _, name := range names {
		vals, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("sweep %q has no values", name)
		}
		if _, dup := s.values[name]; dup {
			return nil, fmt.Errorf("sweep %q declared twice", name)
		}
		if len(vals) == 0 {
			return nil, fmt.Errorf("sweep %q is empty", name)
		}
		seen := make(map[string]struct{}, len(vals))
		for _, v := range vals {
			if _, dup := seen[v]; dup {
				return nil, fmt.Errorf("sweep %q lists value %q twice", name, v)
			}
			seen[v] = struct{}{}
		}
		cp := make([]string, len(vals))
		copy(cp, vals)
		s.values[name] = cp
		s.order = append(s.order, name)
	}
	if len(s.order) != len(values) {
		return nil, fmt.Errorf("sweep names and values disagree: %d names, %d value sets", len(s.order), len(values))
	}
	return s, nil
}

// FromMap builds a Set with names in sorted order.
func FromMap(values map[string][]string) (*Set, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return New(names, values)
}

// Empty returns a Set without sweeps.
func Empty() *Set {
	return &Set{values: map[string][]string{}}
}

// Names returns the sweep names in declaration order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Has reports whether a sweep with the given name exists.
func (s *Set) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.values[name]
	return ok
}

// Values returns a copy of the named sweep's values.
func (s *Set) Values(name string) ([]string, bool) {
	if s == nil {
		return nil, false
	}
	vals, ok := s.values[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out, true
}

// Product returns the cartesian product of the named sweeps, each element
// extending base. The first name varies slowest. A name without a sweep is
// an error naming the missing domain.
func (s *Set) Product(names []string, base pattern.Binding) ([]pattern.Binding, error) {
	out := []pattern.Binding{base.Clone()}
	for _, name := range names {
		vals, ok := s.Values(name)
		if !ok {
			return nil, &MissingError{Name: name}
		}
		next := make([]pattern.Binding, 0, len(out)*len(vals))
		for _, b := range out {
			for _, v := range vals {
				next = append(next, b.With(name, v))
			}
		}
		out = next
	}
	return out, nil
}

// MissingError reports a wildcard that has no sweep to expand over.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("wildcard %q has no parameter sweep to expand over", e.Name)
}
