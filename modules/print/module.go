// Package print provides the "print" handler, which records a task's
// wildcard values and inputs as a small manifest.
package print

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunPrint writes one `name = "value"` line per wildcard, in name order,
// followed by one `input = "path"` line per input, to every output. The
// same text is returned as diagnostics.
func OnRunPrint(ctx context.Context, inv action.Invocation) (string, error) {
	ctxlog.FromContext(ctx).Info("Printing task manifest.", "task", inv.Task)

	var sb strings.Builder
	for _, name := range inv.Bindings.Names() {
		fmt.Fprintf(&sb, "%s = %q\n", name, inv.Bindings[name])
	}
	for _, in := range inv.Inputs {
		fmt.Fprintf(&sb, "input = %q\n", in)
	}
	if sb.Len() == 0 {
		sb.WriteString("(null)\n")
	}

	text := sb.String()
	for _, out := range inv.Outputs {
		if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
			return "", err
		}
	}
	return text, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("print", OnRunPrint)
}
