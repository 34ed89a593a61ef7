package error_handling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridflow/internal/registry"
	"github.com/vk/gridflow/internal/testutil"
)

// Test for: Definition mistakes are rejected before anything runs.
func TestErrorHandling_InvalidPipelineIsRejected(t *testing.T) {
	testCases := []struct {
		name     string
		hcl      string
		wantErr  string
		wantRule bool
	}{
		{
			name: "typo in input wildcard",
			hcl: `
sweep "seed" {
  values = [1]
}

rule "agg" {
  output  = "agg_{seed}.txt"
  input   = "sims/{sede}.trees"
  handler = "noop"
}
`,
			wantErr:  "wildcard 'sede'",
			wantRule: true,
		},
		{
			name: "outputs with different wildcards",
			hcl: `
rule "split" {
  output  = ["a/{x}.txt", "b/{y}.txt"]
  handler = "noop"
}
`,
			wantErr:  "has wildcards",
			wantRule: true,
		},
		{
			name: "uses an unknown rule",
			hcl: `
rule "summary" {
  output  = "summary.txt"
  uses    = ["nothing"]
  handler = "noop"
}
`,
			wantErr:  "uses unknown rule 'nothing'",
			wantRule: true,
		},
		{
			name: "two actions",
			hcl: `
rule "both" {
  output  = "x.txt"
  shell   = "true"
  handler = "noop"
}
`,
			wantErr:  "exactly one of shell, command and handler",
			wantRule: true,
		},
		{
			name: "constraint on unknown wildcard",
			hcl: `
rule "fit" {
  output      = "fits/{model}.json"
  constraints = { modle = "[a-z]+" }
  handler     = "noop"
}
`,
			wantErr:  "constraint for 'modle'",
			wantRule: true,
		},
		{
			name:    "syntax error",
			hcl:     `rule "x" {`,
			wantErr: "failed to parse HCL file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			files := map[string]string{"grid/main.hcl": tc.hcl}

			// --- Act ---
			res := testutil.RunIntegrationTest(t, files, &testutil.NoOpModule{})

			// --- Assert ---
			require.Error(t, res.Err)
			assert.Contains(t, res.Err.Error(), tc.wantErr)
			assert.Equal(t, tc.wantRule, errorIsInvalidRule(res.Err))
			assert.Nil(t, res.Report, "nothing runs")
		})
	}
}

func errorIsInvalidRule(err error) bool {
	var re *registry.RuleError
	return errors.As(err, &re)
}
