package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/gridflow/internal/action"
)

// RegisterHandler registers an in-process action under name. Registering a
// name twice is a programming error and panics.
func (r *Registry) RegisterHandler(name string, fn action.Func) {
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("action handler with name '%s' already registered", name))
	}
	slog.Debug("Registering action handler.", "name", name)
	r.handlers[name] = fn
}

// Handler returns the in-process action registered under name.
func (r *Registry) Handler(name string) (action.Func, bool) {
	fn, ok := r.handlers[name]
	return fn, ok
}

// HandlerNames returns the registered handler names, sorted.
func (r *Registry) HandlerNames() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
