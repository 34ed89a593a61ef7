package pattern

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Errors(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{name: "unterminated slot", raw: "sims/{seed"},
		{name: "stray closing brace", raw: "sims/seed}"},
		{name: "invalid name", raw: "sims/{1seed}"},
		{name: "empty name", raw: "sims/{}"},
		{name: "bad constraint", raw: "sims/{seed,[0-9}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.raw, nil)
			require.Error(t, err)
		})
	}
}

func TestTemplate_Match(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		constraints map[string]string
		path        string
		want        Binding
		wantOK      bool
	}{
		{
			name:   "two wildcards",
			raw:    "sims/{seed}/{chrom}.trees",
			path:   "sims/17/chr1.trees",
			want:   Binding{"seed": "17", "chrom": "chr1"},
			wantOK: true,
		},
		{
			name:   "literal only",
			raw:    "results/summary.txt",
			path:   "results/summary.txt",
			want:   Binding{},
			wantOK: true,
		},
		{
			name:   "literal mismatch",
			raw:    "results/summary.txt",
			path:   "results/summary.csv",
			wantOK: false,
		},
		{
			name:   "inline constraint rejects",
			raw:    "sims/{seed,[0-9]+}.trees",
			path:   "sims/abc.trees",
			wantOK: false,
		},
		{
			name:        "rule constraint applies",
			raw:         "sims/{seed}.trees",
			constraints: map[string]string{"seed": `\d+`},
			path:        "sims/12.trees",
			want:        Binding{"seed": "12"},
			wantOK:      true,
		},
		{
			name:   "constraint with braces",
			raw:    `runs/{idx,\d{2}}.log`,
			path:   "runs/07.log",
			want:   Binding{"idx": "07"},
			wantOK: true,
		},
		{
			name:   "repeated wildcard must agree",
			raw:    "{model}/{model}.csv",
			path:   "ooa/ooa.csv",
			want:   Binding{"model": "ooa"},
			wantOK: true,
		},
		{
			name:   "repeated wildcard disagreeing",
			raw:    "{model}/{model}.csv",
			path:   "ooa/zigzag.csv",
			wantOK: false,
		},
		{
			name:   "escaped braces are literal",
			raw:    "raw/{{x}}/{name}.txt",
			path:   "raw/{x}/a.txt",
			want:   Binding{"name": "a"},
			wantOK: true,
		},
		{
			name:   "regex metacharacters in literal",
			raw:    "out/a+b.{ext}",
			path:   "out/a+b.csv",
			want:   Binding{"ext": "csv"},
			wantOK: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tpl, err := Compile(tc.raw, tc.constraints)
			require.NoError(t, err)

			got, ok := tpl.Match(tc.path)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				if diff := cmp.Diff(tc.want, got); diff != "" {
					t.Errorf("binding mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestTemplate_Expand(t *testing.T) {
	tpl := MustCompile("sims/{seed}/{chrom}.trees")

	got, err := tpl.Expand(Binding{"seed": "1", "chrom": "chr2", "unused": "x"})
	require.NoError(t, err)
	assert.Equal(t, "sims/1/chr2.trees", got)

	_, err = tpl.Expand(Binding{"seed": "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"chrom"`)
}

func TestTemplate_ExpandRoundTrip(t *testing.T) {
	tpl := MustCompile("fits/{model}/{seed}_{rep}.json")
	b := Binding{"model": "ooa", "seed": "3", "rep": "0"}

	path, err := tpl.Expand(b)
	require.NoError(t, err)

	got, ok := tpl.Match(path)
	require.True(t, ok)
	assert.True(t, b.Equal(got))
}

func TestTemplate_Wildcards(t *testing.T) {
	tpl := MustCompile("{b}/{a}/{b}.txt")
	assert.Equal(t, []string{"b", "a"}, tpl.Wildcards())
	assert.True(t, tpl.HasWildcards())
	assert.False(t, MustCompile("plain.txt").HasWildcards())
}

func TestTemplate_Partial(t *testing.T) {
	tpl, err := Compile("sims/{seed}/{chrom}.trees", map[string]string{"chrom": "chr[0-9]+"})
	require.NoError(t, err)

	partial, err := tpl.Partial(Binding{"seed": "4"})
	require.NoError(t, err)

	assert.Equal(t, []string{"chrom"}, partial.Wildcards())
	assert.Equal(t, "sims/4/{chrom,chr[0-9]+}.trees", partial.String())

	_, ok := partial.Match("sims/4/chrX.trees")
	assert.False(t, ok, "constraint must survive partial binding")

	path, err := partial.Expand(Binding{"chrom": "chr9"})
	require.NoError(t, err)
	assert.Equal(t, "sims/4/chr9.trees", path)
}

func TestTemplate_PartialEscapesValues(t *testing.T) {
	partial, err := MustCompile("x/{name}/{rest}").Partial(Binding{"name": "{odd}"})
	require.NoError(t, err)

	path, err := partial.Expand(Binding{"rest": "y"})
	require.NoError(t, err)
	assert.Equal(t, "x/{odd}/y", path)
}
