package action

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridflow/internal/pattern"
)

func testInvocation() Invocation {
	return Invocation{
		Task:     "sim[chrom=chr1,seed=7]",
		Inputs:   []string{"/data/map one.txt", "/data/ref.fa"},
		Outputs:  []string{"/out/sim.trees"},
		Bindings: pattern.Binding{"seed": "7", "chrom": "chr1"},
		Threads:  2,
	}
}

func TestFormatText(t *testing.T) {
	testCases := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{name: "all inputs quoted", text: "cat {input}", want: `cat '/data/map one.txt' /data/ref.fa`},
		{name: "indexed output", text: "touch {output[0]}", want: "touch /out/sim.trees"},
		{name: "wildcard by name", text: "sim --seed {seed}", want: "sim --seed 7"},
		{name: "wildcard by namespace", text: "--chrom {wildcards.chrom}", want: "--chrom chr1"},
		{name: "threads", text: "-t {threads}", want: "-t 2"},
		{name: "escaped braces", text: "awk '{{print $1}}'", want: "awk '{print $1}'"},
		{name: "index out of range", text: "{input[5]}", wantErr: true},
		{name: "unknown placeholder", text: "{nope}", wantErr: true},
		{name: "unterminated", text: "{input", wantErr: true},
		{name: "indexed wildcard", text: "{seed[0]}", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := formatText(tc.text, testInvocation(), shellQuote)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "plain/path.txt", shellQuote("plain/path.txt"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, `'it'"'"'s'`, shellQuote("it's"))
	assert.Equal(t, "'a b'", shellQuote("a b"))
}

func TestCommand_Argv(t *testing.T) {
	c := &Command{Line: `concat --label "seed {seed}" {input} -o {output[0]}`}

	argv, err := c.Argv(testInvocation())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"concat", "--label", "seed 7",
		"/data/map one.txt", "/data/ref.fa",
		"-o", "/out/sim.trees",
	}, argv)
}

func TestCommand_ArgvErrors(t *testing.T) {
	_, err := (&Command{Line: "   "}).Argv(testInvocation())
	require.Error(t, err)

	_, err = (&Command{Line: "run {missing}"}).Argv(testInvocation())
	require.Error(t, err)
}

func TestShell_RunsInInvocationDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "pwd.txt")
	inv := Invocation{Outputs: []string{out}, Dir: dir, Threads: 3}

	before, err := os.Getwd()
	require.NoError(t, err)

	diag, err := (&Shell{Script: "pwd > {output}; echo threads=$GRIDFLOW_THREADS"}).Run(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, "threads=3", diag)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, []string{dir, resolved}, strings.TrimSpace(string(data)))

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after, "process working directory must not change")
}

func TestShell_FailureKeepsDiagnostics(t *testing.T) {
	diag, err := (&Shell{Script: "echo boom >&2; exit 3"}).Run(context.Background(), Invocation{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 3")
	assert.Equal(t, "boom", diag)
}

func TestCommand_MissingProgram(t *testing.T) {
	_, err := (&Command{Line: "definitely-not-a-real-program-gridflow"}).Run(context.Background(), Invocation{})
	require.Error(t, err)
}

func TestFunc(t *testing.T) {
	wantErr := errors.New("fit diverged")
	f := Func(func(_ context.Context, inv Invocation) (string, error) {
		return "seed=" + inv.Bindings["seed"], wantErr
	})

	diag, err := f.Run(context.Background(), testInvocation())
	assert.Equal(t, "seed=7", diag)
	assert.ErrorIs(t, err, wantErr)
}

func TestTailBuffer_KeepsTail(t *testing.T) {
	b := &tailBuffer{limit: 4}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	assert.Equal(t, "defg", b.String())
}
