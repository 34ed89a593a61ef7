package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
)

// maxDiagnostics bounds how much process output is kept per task.
const maxDiagnostics = 64 << 10

// waitDelay bounds how long a cancelled process may keep its output open.
const waitDelay = 2 * time.Second

// Shell runs a script through /bin/sh -c. Placeholders are substituted
// with shell-quoted values before the shell sees the script.
type Shell struct {
	Script string
}

// Run implements Action.
func (s *Shell) Run(ctx context.Context, inv Invocation) (string, error) {
	script, err := formatText(s.Script, inv, shellQuote)
	if err != nil {
		return "", fmt.Errorf("formatting shell script: %w", err)
	}
	return runProcess(ctx, inv, []string{"/bin/sh", "-c", script})
}

// Command runs a program directly, without a shell. The command line is
// split into arguments first, so a path containing spaces stays a single
// argument; an argument that is exactly {input} or {output} expands into
// one argument per path.
type Command struct {
	Line string
}

// Run implements Action.
func (c *Command) Run(ctx context.Context, inv Invocation) (string, error) {
	argv, err := c.Argv(inv)
	if err != nil {
		return "", err
	}
	return runProcess(ctx, inv, argv)
}

// Argv returns the argument vector for inv.
func (c *Command) Argv(inv Invocation) ([]string, error) {
	words, err := shlex.Split(c.Line)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}
	if len(words) == 0 {
		return nil, errors.New("empty command")
	}

	argv := make([]string, 0, len(words))
	for _, w := range words {
		switch w {
		case "{input}":
			argv = append(argv, inv.Inputs...)
			continue
		case "{output}":
			argv = append(argv, inv.Outputs...)
			continue
		}
		arg, err := formatText(w, inv, noQuote)
		if err != nil {
			return nil, fmt.Errorf("formatting command argument %q: %w", w, err)
		}
		argv = append(argv, arg)
	}
	return argv, nil
}

func runProcess(ctx context.Context, inv Invocation, argv []string) (string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = inv.Dir
	// Children of a killed shell may hold the output pipes open.
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), "GRIDFLOW_THREADS="+strconv.Itoa(inv.Threads))

	out := &tailBuffer{limit: maxDiagnostics}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	diagnostics := strings.TrimRight(out.String(), "\n")
	if err == nil {
		return diagnostics, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return diagnostics, fmt.Errorf("%s exited with code %d", argv[0], exitErr.ExitCode())
	}
	return diagnostics, fmt.Errorf("starting %s: %w", argv[0], err)
}

// tailBuffer keeps the last limit bytes written to it. Stdout and stderr
// share one buffer, so writes are serialized.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(p)
	b.buf.Write(p)
	if over := b.buf.Len() - b.limit; over > 0 {
		b.buf.Next(over)
	}
	return n, nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
