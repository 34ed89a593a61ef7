package fileops

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/registry"
)

func write(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRegister(t *testing.T) {
	reg := registry.New(nil)
	(&Module{}).Register(reg)

	assert.ElementsMatch(t, []string{"touch", "concat", "copy"}, reg.HandlerNames())
}

func TestTouch(t *testing.T) {
	dir := t.TempDir()
	existing := write(t, filepath.Join(dir, "old.txt"), "keep me")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(existing, past, past))
	fresh := filepath.Join(dir, "new.txt")

	_, err := Touch(context.Background(), action.Invocation{Outputs: []string{existing, fresh}})

	require.NoError(t, err)
	assert.Equal(t, "keep me", read(t, existing), "touch must not truncate")
	info, err := os.Stat(existing)
	require.NoError(t, err)
	assert.True(t, info.ModTime().After(past))
	assert.FileExists(t, fresh)
}

func TestConcat(t *testing.T) {
	dir := t.TempDir()
	a := write(t, filepath.Join(dir, "a.txt"), "alpha\n")
	b := write(t, filepath.Join(dir, "b.txt"), "beta\n")
	out1 := filepath.Join(dir, "out1.txt")
	out2 := filepath.Join(dir, "out2.txt")

	diag, err := Concat(context.Background(), action.Invocation{Inputs: []string{a, b}, Outputs: []string{out1, out2}})

	require.NoError(t, err)
	assert.Equal(t, "concatenated 2 input(s)", diag)
	assert.Equal(t, "alpha\nbeta\n", read(t, out1))
	assert.Equal(t, "alpha\nbeta\n", read(t, out2))
}

func TestConcat_MissingInput(t *testing.T) {
	dir := t.TempDir()

	_, err := Concat(context.Background(), action.Invocation{
		Inputs:  []string{filepath.Join(dir, "absent.txt")},
		Outputs: []string{filepath.Join(dir, "out.txt")},
	})

	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	a := write(t, filepath.Join(dir, "a.txt"), "alpha")
	b := write(t, filepath.Join(dir, "b.txt"), "beta")
	outA := filepath.Join(dir, "a.copy")
	outB := filepath.Join(dir, "b.copy")

	_, err := Copy(context.Background(), action.Invocation{Inputs: []string{a, b}, Outputs: []string{outA, outB}})

	require.NoError(t, err)
	assert.Equal(t, "alpha", read(t, outA))
	assert.Equal(t, "beta", read(t, outB))
}

func TestCopy_CountMismatch(t *testing.T) {
	_, err := Copy(context.Background(), action.Invocation{Inputs: []string{"a"}, Outputs: []string{"x", "y"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 and 2")
}
