package print

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/pattern"
)

func TestOnRunPrint(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "manifest.txt")

	diag, err := OnRunPrint(context.Background(), action.Invocation{
		Task:     "sim[chrom=chr1,seed=2]",
		Inputs:   []string{"/data/maps/chr1.txt"},
		Outputs:  []string{out},
		Bindings: pattern.Binding{"seed": "2", "chrom": "chr1"},
	})

	require.NoError(t, err)
	want := "chrom = \"chr1\"\nseed = \"2\"\ninput = \"/data/maps/chr1.txt\"\n"
	assert.Equal(t, want, diag)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestOnRunPrint_Empty(t *testing.T) {
	diag, err := OnRunPrint(context.Background(), action.Invocation{})

	require.NoError(t, err)
	assert.Equal(t, "(null)\n", diag)
}
