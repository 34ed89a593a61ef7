package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridflow/internal/config"
)

func writePipeline(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullPipeline(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	writePipeline(t, dir, "pipeline.hcl", `
settings {
  root   = "out"
  budget = 4
  keep   = ["maps/**"]
}

sweep "seed" {
  values = range(1, 4)
}

sweep "chrom" {
  values = ["chr1", "chr2"]
}

rule "simulate" {
  output      = "sims/{chrom}/sim_{seed}.trees"
  input       = "maps/{chrom}.txt"
  threads     = 2
  shell       = "simulate --seed {seed} --map {input} > {output}"
  retries     = 2
  retry_delay = "250ms"
  timeout     = "1m"
  constraints = { seed = "[0-9]+" }
}

rule "summarize" {
  output  = "results/summary.txt"
  input   = expand("sims/{chrom}/sim_{seed}.trees", { seed = ["1"] })
  uses    = ["simulate"]
  command = "summarize {output} {input}"
  workdir = "results"
}

target {
  goals = ["results/summary.txt"]
  rules = ["simulate"]
}
`)

	// Act
	model, err := NewLoader().Load(context.Background(), dir)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, model.Settings)
	assert.Equal(t, filepath.Join(dir, "out"), model.Settings.Root)
	assert.Equal(t, 4, model.Settings.Budget)
	assert.Equal(t, []string{"maps/**"}, model.Settings.Keep)

	want := []*config.Sweep{
		{Name: "seed", Values: []string{"1", "2", "3"}},
		{Name: "chrom", Values: []string{"chr1", "chr2"}},
	}
	if diff := cmp.Diff(want, model.Sweeps); diff != "" {
		t.Errorf("sweeps mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, model.Rules, 2)
	sim := model.Rules[0]
	assert.Equal(t, "simulate", sim.Name)
	assert.Equal(t, []string{"sims/{chrom}/sim_{seed}.trees"}, sim.Outputs)
	assert.Equal(t, []string{"maps/{chrom}.txt"}, sim.Inputs)
	assert.Equal(t, 2, sim.Threads)
	assert.Equal(t, 2, sim.Retries)
	assert.Equal(t, 250*time.Millisecond, sim.RetryDelay)
	assert.Equal(t, time.Minute, sim.Timeout)
	assert.Equal(t, map[string]string{"seed": "[0-9]+"}, sim.Constraints)
	assert.Contains(t, sim.Shell, "simulate --seed {seed}")

	sum := model.Rules[1]
	assert.Equal(t, []string{"sims/chr1/sim_1.trees", "sims/chr2/sim_1.trees"}, sum.Inputs)
	assert.Equal(t, []string{"simulate"}, sum.Uses)
	assert.Equal(t, "summarize {output} {input}", sum.Command)
	assert.Equal(t, "results", sum.Workdir)
	assert.Empty(t, sum.Shell)

	require.Len(t, model.Targets, 1)
	assert.Equal(t, []string{"results/summary.txt"}, model.Targets[0].Goals)
	assert.Equal(t, []string{"simulate"}, model.Targets[0].Rules)
}

func TestLoad_SweepVariablesAndFunctions(t *testing.T) {
	dir := t.TempDir()
	path := writePipeline(t, dir, "p.hcl", `
sweep "model" {
  values = ["a", "b"]
}

rule "fit" {
  output  = "fits/{model}.json"
  handler = "touch"
}

rule "report" {
  output = "report.txt"
  input  = [for m in sweep.model : format("fits/%s.json", m)]
  shell  = upper("echo")
}
`)

	model, err := NewLoader().Load(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, model.Rules, 2)
	assert.Nil(t, model.Settings)
	assert.Equal(t, "touch", model.Rules[0].Handler)
	assert.Equal(t, []string{"fits/a.json", "fits/b.json"}, model.Rules[1].Inputs)
	assert.Equal(t, "ECHO", model.Rules[1].Shell)
}

func TestLoad_MergesFilesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writePipeline(t, dir, "b_rules.hcl", `
rule "use" {
  output = "out/{seed}.txt"
  shell  = "true"
}
`)
	writePipeline(t, dir, "a_sweeps.hcl", `
sweep "seed" {
  values = [1, 2]
}
`)
	writePipeline(t, dir, "notes.txt", "not a pipeline")

	model, err := NewLoader().Load(context.Background(), dir)

	require.NoError(t, err)
	require.Len(t, model.Sweeps, 1)
	assert.Equal(t, []string{"1", "2"}, model.Sweeps[0].Values)
	require.Len(t, model.Rules, 1)
}

func TestLoad_RelativeRootFromNestedFile(t *testing.T) {
	dir := t.TempDir()
	writePipeline(t, dir, "conf/settings.hcl", `
settings {
  root = "../data"
}
`)

	model, err := NewLoader().Load(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), model.Settings.Root)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "syntax error",
			content: `rule "x" {`,
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown block",
			content: `step "x" "y" {}`,
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "missing output",
			content: `rule "x" { shell = "true" }`,
			wantErr: "attribute 'output' is required",
		},
		{
			name:    "unknown attribute",
			content: `rule "x" {
  output = "a"
  shell  = "true"
  colour = "red"
}`,
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "empty sweep",
			content: `sweep "seed" { values = [] }`,
			wantErr: "sweep 'seed' has no values",
		},
		{
			name: "duplicate sweep",
			content: `
sweep "seed" { values = [1] }
sweep "seed" { values = [2] }
`,
			wantErr: `sweep "seed" declared twice`,
		},
		{
			name: "duplicate settings",
			content: `
settings { budget = 1 }
settings { budget = 2 }
`,
			wantErr: "settings block declared more than once",
		},
		{
			name:    "bad duration",
			content: `rule "x" {
  output  = "a"
  shell   = "true"
  timeout = "soon"
}`,
			wantErr: "attribute 'timeout'",
		},
		{
			name:    "fractional threads",
			content: `rule "x" {
  output  = "a"
  shell   = "true"
  threads = 1.5
}`,
			wantErr: "attribute 'threads'",
		},
		{
			name:    "unknown sweep variable",
			content: `rule "x" {
  output = "a"
  input  = sweep.nope
  shell  = "true"
}`,
			wantErr: "attribute 'input'",
		},
		{
			name:    "expand over undeclared wildcard",
			content: `rule "x" {
  output = "a"
  input  = expand("b/{nope}")
  shell  = "true"
}`,
			wantErr: "attribute 'input'",
		},
		{
			name:    "constraints not a map",
			content: `rule "x" {
  output      = "a/{n}"
  shell       = "true"
  constraints = ["n"]
}`,
			wantErr: "expected a map",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writePipeline(t, dir, "p.hcl", tc.content)

			_, err := NewLoader().Load(context.Background(), dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_NoFiles(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .hcl pipeline files found")
}
