package testutil

import (
	"context"
	"os"

	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/registry"
)

// NoOpModule registers a "noop" handler that creates its declared outputs
// empty and does nothing else.
type NoOpModule struct{}

// Register registers the "noop" handler.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterHandler("noop", func(_ context.Context, inv action.Invocation) (string, error) {
		for _, out := range inv.Outputs {
			if err := os.WriteFile(out, nil, 0o644); err != nil {
				return "", err
			}
		}
		return "", nil
	})
}
