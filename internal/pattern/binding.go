package pattern

import (
	"sort"
	"strings"
)

// Binding maps wildcard names to their concrete values for one task
// instance. Iteration through Names is sorted, which gives every binding a
// canonical form; equality is structural.
type Binding map[string]string

// Names returns the bound wildcard names in sorted order.
func (b Binding) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Key is the canonical "k=v,k=v" form used in task identities. Backslash,
// comma, equals sign and square brackets in values are escaped with a
// backslash, so distinct bindings never share a key.
func (b Binding) Key() string {
	var sb strings.Builder
	for i, name := range b.Names() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		keyEscaper.WriteString(&sb, b[name])
	}
	return sb.String()
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, ",", `\,`, "=", `\=`, "[", `\[`, "]", `\]`)

func (b Binding) String() string {
	return b.Key()
}

// Equal reports whether both bindings hold the same names and values.
func (b Binding) Equal(other Binding) bool {
	if len(b) != len(other) {
		return false
	}
	for name, value := range b {
		if v, ok := other[name]; !ok || v != value {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the binding.
func (b Binding) Clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// With returns a copy of b extended with name=value.
func (b Binding) With(name, value string) Binding {
	out := b.Clone()
	out[name] = value
	return out
}

// Restrict returns a copy holding only the given names that are bound in b.
func (b Binding) Restrict(names []string) Binding {
	out := make(Binding, len(names))
	for _, name := range names {
		if v, ok := b[name]; ok {
			out[name] = v
		}
	}
	return out
}
