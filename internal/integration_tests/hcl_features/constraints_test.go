package hcl_features

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridflow/internal/app"
	"github.com/vk/gridflow/internal/report"
	"github.com/vk/gridflow/internal/testutil"
)

// Test for: Wildcard constraints keep two rules with overlapping output
// shapes from being ambiguous.
func TestHCLFeatures_ConstraintsDisambiguateProducers(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"grid/main.hcl": `
rule "by_number" {
  output  = "data/{id}.txt"
  shell   = "echo number {id} > {output}"
  constraints = {
    id = "[0-9]+"
  }
}

rule "by_name" {
  output = "data/{name,[a-z]+}.txt"
  shell  = "echo name {name} > {output}"
}
`,
	}
	h := testutil.NewHarness(t, files)

	// --- Act ---
	res := h.Run(context.Background(), func(c *app.Config) {
		c.Targets = []string{"data/42.txt", "data/abc.txt"}
	})

	// --- Assert ---
	require.NoError(t, res.Err, res.LogOutput)
	testutil.AssertTaskStatus(t, res.Report, "by_number[id=42]", report.Succeeded)
	testutil.AssertTaskStatus(t, res.Report, "by_name[name=abc]", report.Succeeded)

	got, err := os.ReadFile(h.Output("data/42.txt"))
	require.NoError(t, err)
	assert.Equal(t, "number 42\n", string(got))
}
