package instantiate

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/pattern"
	"github.com/vk/gridflow/internal/registry"
	"github.com/vk/gridflow/internal/sweep"
)

var noop = action.Func(func(context.Context, action.Invocation) (string, error) { return "", nil })

// simPipeline registers sim(seed, chrom), agg(seed) and a uses-based
// summary rule.
func simPipeline(t *testing.T) (*registry.Registry, *sweep.Set) {
	t.Helper()
	sweeps, err := sweep.New([]string{"seed", "chrom"}, map[string][]string{
		"seed":  {"1", "2"},
		"chrom": {"chr1", "chr2"},
	})
	require.NoError(t, err)

	reg := registry.New(sweeps)
	require.NoError(t, reg.AddRule(&registry.Rule{
		Name:    "sim",
		Outputs: []*pattern.Template{pattern.MustCompile("sims/{chrom}/sim_{seed}.trees")},
		Inputs: []registry.Input{
			{Template: pattern.MustCompile("maps/{chrom}.txt")},
			{Template: pattern.MustCompile("maps/{chrom}.txt")},
		},
		Threads: 2,
		Action:  noop,
	}))
	require.NoError(t, reg.AddRule(&registry.Rule{
		Name:    "agg",
		Outputs: []*pattern.Template{pattern.MustCompile("results/agg_{seed}.txt")},
		Inputs:  []registry.Input{{Template: pattern.MustCompile("sims/{chrom}/sim_{seed}.trees")}},
		Action:  noop,
	}))
	require.NoError(t, reg.AddRule(&registry.Rule{
		Name:    "summary",
		Outputs: []*pattern.Template{pattern.MustCompile("results/summary.txt")},
		Inputs:  []registry.Input{{Uses: "agg"}},
		Action:  noop,
	}))
	require.NoError(t, reg.Validate())
	return reg, sweeps
}

func TestOnDemand(t *testing.T) {
	// Arrange
	reg, sweeps := simPipeline(t)
	in := New(reg, sweeps)
	sim, _ := reg.Rule("sim")

	// Act
	tk, err := in.OnDemand(sim, pattern.Binding{"seed": "7", "chrom": "chrX"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sim[chrom=chrX,seed=7]", tk.ID)
	assert.Equal(t, []string{"sims/chrX/sim_7.trees"}, tk.Outputs)
	assert.Equal(t, []string{"maps/chrX.txt"}, tk.Inputs, "duplicate inputs collapse")
	assert.Equal(t, 2, tk.Weight())
}

func TestOnDemand_AggregatesOverSweep(t *testing.T) {
	reg, sweeps := simPipeline(t)
	agg, _ := reg.Rule("agg")

	tk, err := New(reg, sweeps).OnDemand(agg, pattern.Binding{"seed": "1"})

	require.NoError(t, err)
	want := []string{"sims/chr1/sim_1.trees", "sims/chr2/sim_1.trees"}
	if diff := cmp.Diff(want, tk.Inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestOnDemand_Uses(t *testing.T) {
	reg, sweeps := simPipeline(t)
	summary, _ := reg.Rule("summary")

	tk, err := New(reg, sweeps).OnDemand(summary, pattern.Binding{})

	require.NoError(t, err)
	assert.Equal(t, "summary", tk.ID)
	assert.Equal(t, []string{"results/agg_1.txt", "results/agg_2.txt"}, tk.Inputs)
}

func TestOnDemand_UnboundWildcard(t *testing.T) {
	reg, sweeps := simPipeline(t)
	sim, _ := reg.Rule("sim")

	_, err := New(reg, sweeps).OnDemand(sim, pattern.Binding{"seed": "1"})

	var ue *UnresolvedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "chrom", ue.Wildcard)
	assert.Equal(t, "sim", ue.Rule)
}

func TestEager(t *testing.T) {
	reg, sweeps := simPipeline(t)
	sim, _ := reg.Rule("sim")

	tasks, err := New(reg, sweeps).Eager(sim)

	require.NoError(t, err)
	ids := make([]string, len(tasks))
	for i, tk := range tasks {
		ids[i] = tk.ID
	}
	assert.ElementsMatch(t, []string{
		"sim[chrom=chr1,seed=1]", "sim[chrom=chr2,seed=1]",
		"sim[chrom=chr1,seed=2]", "sim[chrom=chr2,seed=2]",
	}, ids)
}

func TestEager_NoSweepForWildcard(t *testing.T) {
	reg := registry.New(nil)
	rule := &registry.Rule{
		Name:    "fit",
		Outputs: []*pattern.Template{pattern.MustCompile("fits/{model}.json")},
		Action:  noop,
	}
	require.NoError(t, reg.AddRule(rule))

	_, err := New(reg, nil).Eager(rule)

	var ue *UnresolvedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "model", ue.Wildcard)
	assert.Equal(t, "fit", ue.Rule)
}

func TestGoals(t *testing.T) {
	reg, sweeps := simPipeline(t)

	goals, err := New(reg, sweeps).Goals([]string{
		"results/agg_{seed}.txt",
		"results/summary.txt",
		"results/agg_1.txt",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"results/agg_1.txt", "results/agg_2.txt", "results/summary.txt"}, goals)

	_, err = New(reg, sweeps).Goals([]string{"out/{unknown}"})
	require.Error(t, err)
}

func TestExpand_PartialBinding(t *testing.T) {
	_, sweeps := simPipeline(t)

	paths, err := Expand(pattern.MustCompile("{chrom}/{seed}"), pattern.Binding{"seed": "9", "other": "x"}, sweeps)

	require.NoError(t, err)
	assert.Equal(t, []string{"chr1/9", "chr2/9"}, paths)
}
