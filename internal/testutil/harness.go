package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/gridflow/internal/app"
	"github.com/vk/gridflow/internal/hcl_adapter"
	"github.com/vk/gridflow/internal/registry"
	"github.com/vk/gridflow/internal/report"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
	Report    *report.RunReport
}

// Harness is a pipeline written to a temporary directory. Pipeline files go
// under grid/ and the output root is out/, so a test can run the same
// pipeline several times and inspect the outputs in between.
type Harness struct {
	t       *testing.T
	Dir     string
	GridDir string
	Root    string
	modules []registry.Module
}

// NewHarness writes files, keyed by paths relative to the harness
// directory (e.g. "grid/main.hcl", "out/maps/chr1.txt").
func NewHarness(t *testing.T, files map[string]string, modules ...registry.Module) *Harness {
	t.Helper()

	dir := t.TempDir()
	h := &Harness{
		t:       t,
		Dir:     dir,
		GridDir: filepath.Join(dir, "grid"),
		Root:    filepath.Join(dir, "out"),
		modules: modules,
	}
	require.NoError(t, os.MkdirAll(h.GridDir, 0o755))
	require.NoError(t, os.MkdirAll(h.Root, 0o755))
	for name, content := range files {
		h.WriteFile(name, content)
	}
	return h
}

// WriteFile writes content to a path relative to the harness directory.
func (h *Harness) WriteFile(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.Dir, filepath.FromSlash(name))
	require.NoError(h.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Output returns the absolute path of a file under the output root.
func (h *Harness) Output(rel string) string {
	return filepath.Join(h.Root, filepath.FromSlash(rel))
}

// Config returns the configuration Run starts from.
func (h *Harness) Config() app.Config {
	return app.Config{
		GridPath:  h.GridDir,
		Root:      h.Root,
		Budget:    4,
		LogLevel:  "debug",
		LogFormat: "text",
	}
}

// Run builds a fresh App and runs it. configure, when not nil, adjusts the
// configuration first.
func (h *Harness) Run(ctx context.Context, configure func(*app.Config)) *HarnessResult {
	h.t.Helper()

	cfg := h.Config()
	if configure != nil {
		configure(&cfg)
	}

	logBuffer := &SafeBuffer{}
	res := &HarnessResult{}
	res.App, res.Err = app.NewApp(logBuffer, &cfg, hcl_adapter.NewLoader(), h.modules...)
	if res.Err == nil {
		res.Report, res.Err = res.App.Run(ctx)
	}
	res.LogOutput = logBuffer.String()

	if os.Getenv("GRIDFLOW_TEST_LOGS") == "true" {
		h.t.Logf("--- Full Log Output for %s ---\n%s", h.t.Name(), res.LogOutput)
	}
	return res
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, modules...)
}

// RunIntegrationTestWithContext runs a pipeline once with a specific
// context provided by the caller.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return NewHarness(t, files, modules...).Run(ctx, nil)
}
