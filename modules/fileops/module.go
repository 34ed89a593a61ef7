// Package fileops provides in-process file handlers for rules that only
// move bytes around: touch, concat and copy.
package fileops

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the touch, concat and copy handlers.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("touch", Touch)
	r.RegisterHandler("concat", Concat)
	r.RegisterHandler("copy", Copy)
}

// Touch creates every output, or updates its modification time when it
// already exists.
func Touch(ctx context.Context, inv action.Invocation) (string, error) {
	now := time.Now()
	for _, out := range inv.Outputs {
		f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		if err := os.Chtimes(out, now, now); err != nil {
			return "", err
		}
	}
	ctxlog.FromContext(ctx).Debug("Touched outputs.", "count", len(inv.Outputs))
	return "", nil
}

// Concat writes the inputs, in order, into every output.
func Concat(ctx context.Context, inv action.Invocation) (string, error) {
	for _, out := range inv.Outputs {
		if err := concatInto(ctx, out, inv.Inputs); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("concatenated %d input(s)", len(inv.Inputs)), nil
}

// Copy copies input i to output i. Input and output counts must match.
func Copy(ctx context.Context, inv action.Invocation) (string, error) {
	if len(inv.Inputs) != len(inv.Outputs) {
		return "", fmt.Errorf("copy needs as many inputs as outputs, got %d and %d", len(inv.Inputs), len(inv.Outputs))
	}
	for i, out := range inv.Outputs {
		if err := concatInto(ctx, out, inv.Inputs[i:i+1]); err != nil {
			return "", err
		}
	}
	return "", nil
}

func concatInto(ctx context.Context, out string, inputs []string) (err error) {
	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
	}()

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := appendFile(dst, in); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(dst io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying %s: %w", path, err)
	}
	return nil
}
