// Package executor runs a single task: it prepares the output locations,
// invokes the rule's action with retries and a timeout, and verifies that
// every declared output was produced.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/afero"
	"github.com/vk/gridflow/internal/action"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/pattern"
	"github.com/vk/gridflow/internal/report"
	"github.com/vk/gridflow/internal/task"
)

// ActionFailure is the error of a task whose action failed or did not
// produce all of its declared outputs.
type ActionFailure struct {
	Task     string
	Attempts int
	// Missing lists declared outputs absent after the action reported
	// success.
	Missing []string
	Err     error
}

func (e *ActionFailure) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("task %s: action did not produce %s", e.Task, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("task %s failed after %d attempt(s): %v", e.Task, e.Attempts, e.Err)
}

func (e *ActionFailure) Unwrap() error { return e.Err }

var (
	errMissingOutputs = errors.New("declared outputs missing")
	errActionPanic    = errors.New("action panicked")
)

type retryKey struct{}

// WithRetryContext returns a copy of ctx carrying retry. Once retry is done
// no further attempt starts; the attempt already running keeps ctx.
func WithRetryContext(ctx, retry context.Context) context.Context {
	return context.WithValue(ctx, retryKey{}, retry)
}

func retryContext(ctx context.Context) context.Context {
	if retry, ok := ctx.Value(retryKey{}).(context.Context); ok {
		return retry
	}
	return ctx
}

// Result is the outcome of one Execute call.
type Result struct {
	Status      report.Status
	Start       time.Time
	End         time.Time
	Attempts    int
	Diagnostics string
	Err         error
}

// Executor runs tasks against one output root.
type Executor struct {
	root string
	fs   afero.Fs
}

// New returns an Executor for the absolute directory root.
func New(root string) *Executor {
	return &Executor{root: root, fs: afero.NewBasePathFs(afero.NewOsFs(), root)}
}

// Root returns the output root.
func (e *Executor) Root() string {
	return e.root
}

// Execute runs t holding threads units of the budget. Every failure,
// including a panic in an in-process action, is reported through the
// Result.
func (e *Executor) Execute(ctx context.Context, t *task.Task, threads int) Result {
	logger := ctxlog.FromContext(ctx).With("task", t.ID)
	res := Result{Start: time.Now()}

	inv, err := e.prepare(t, threads)
	if err != nil {
		res.Status = report.Failed
		res.Err = &ActionFailure{Task: t.ID, Err: err}
		res.End = time.Now()
		return res
	}

	rule := t.Rule
	retryCtx := retryContext(ctx)
	var lastErr error
	operation := func() error {
		if res.Attempts > 0 && retryCtx.Err() != nil {
			return backoff.Permanent(lastErr)
		}
		res.Attempts++
		if res.Attempts > 1 {
			logger.Info("Retrying task.", "attempt", res.Attempts)
		}

		actx, cancel := ctx, context.CancelFunc(func() {})
		if rule.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, rule.Timeout)
		}
		diag, err := runAction(actx, rule.Action, inv)
		timedOut := errors.Is(actx.Err(), context.DeadlineExceeded)
		cancel()

		res.Diagnostics = diag
		if errors.Is(err, errActionPanic) {
			e.removeOutputs(t)
			lastErr = err
			return backoff.Permanent(err)
		}
		if err != nil {
			if timedOut {
				err = fmt.Errorf("timed out after %s: %w", rule.Timeout, err)
			}
			e.removeOutputs(t)
			lastErr = err
			return err
		}
		if missing := e.missingOutputs(t); len(missing) > 0 {
			e.removeOutputs(t)
			lastErr = &ActionFailure{Task: t.ID, Missing: missing, Err: errMissingOutputs}
			return lastErr
		}
		return nil
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(rule.RetryDelay)
	b = backoff.WithMaxRetries(b, uint64(rule.Retries))
	err = backoff.RetryNotify(operation, backoff.WithContext(b, retryCtx), func(err error, wait time.Duration) {
		logger.Warn("Task attempt failed.", "attempt", res.Attempts, "retry_in", wait, "error", err)
	})
	if err != nil && lastErr != nil && retryCtx.Err() != nil && errors.Is(err, retryCtx.Err()) {
		logger.Warn("Run aborted; no further attempts.", "attempts", res.Attempts)
		err = lastErr
	}

	res.End = time.Now()
	if err != nil {
		var af *ActionFailure
		if errors.As(err, &af) {
			af.Attempts = res.Attempts
		} else {
			err = &ActionFailure{Task: t.ID, Attempts: res.Attempts, Err: err}
		}
		res.Status = report.Failed
		res.Err = err
		return res
	}
	res.Status = report.Succeeded
	return res
}

// prepare creates output directories and the working directory, removes
// stale outputs, and builds the invocation.
func (e *Executor) prepare(t *task.Task, threads int) (action.Invocation, error) {
	for _, out := range t.Outputs {
		if err := e.fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return action.Invocation{}, fmt.Errorf("creating directory for %s: %w", out, err)
		}
		if err := e.fs.RemoveAll(out); err != nil && !os.IsNotExist(err) {
			return action.Invocation{}, fmt.Errorf("removing previous %s: %w", out, err)
		}
	}

	dir := e.root
	if t.Rule.Workdir != "" {
		wd, err := workdir(t)
		if err != nil {
			return action.Invocation{}, err
		}
		if err := e.fs.MkdirAll(wd, 0o755); err != nil {
			return action.Invocation{}, fmt.Errorf("creating workdir %s: %w", wd, err)
		}
		dir = e.abs(wd)
	}

	inv := action.Invocation{
		Task:     t.ID,
		Inputs:   make([]string, len(t.Inputs)),
		Outputs:  make([]string, len(t.Outputs)),
		Bindings: t.Binding.Clone(),
		Threads:  threads,
		Dir:      dir,
	}
	for i, p := range t.Inputs {
		inv.Inputs[i] = e.abs(p)
	}
	for i, p := range t.Outputs {
		inv.Outputs[i] = e.abs(p)
	}
	return inv, nil
}

// runAction runs a, turning a panic into an error wrapping errActionPanic
// with the stack in the diagnostics.
func runAction(ctx context.Context, a action.Action, inv action.Invocation) (diag string, err error) {
	defer func() {
		if p := recover(); p != nil {
			diag = fmt.Sprintf("panic: %v\n%s", p, debug.Stack())
			err = fmt.Errorf("%w: %v", errActionPanic, p)
		}
	}()
	return a.Run(ctx, inv)
}

// workdir substitutes the task's wildcard values into the rule's working
// directory.
func workdir(t *task.Task) (string, error) {
	tmpl, err := pattern.Compile(t.Rule.Workdir, nil)
	if err != nil {
		return "", fmt.Errorf("workdir: %w", err)
	}
	return tmpl.Expand(t.Binding)
}

func (e *Executor) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.root, p)
}

func (e *Executor) missingOutputs(t *task.Task) []string {
	var missing []string
	for _, out := range t.Outputs {
		if ok, err := afero.Exists(e.fs, out); err != nil || !ok {
			missing = append(missing, out)
		}
	}
	return missing
}

func (e *Executor) removeOutputs(t *task.Task) {
	for _, out := range t.Outputs {
		_ = e.fs.RemoveAll(out)
	}
}
