package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/vk/gridflow/internal/sweep"
)

// DefaultRoot is used when neither the pipeline nor the caller sets a root.
const DefaultRoot = "."

// RunConfig is the immutable configuration of one run. It is built once and
// passed explicitly to every component that needs it.
type RunConfig struct {
	Root   string
	Budget int
	Sweeps *sweep.Set
	// Targets are the requested goals as given: paths, path templates or
	// rule names. They are resolved against the rules at run time.
	Targets []string
	Keep    []string
	DryRun  bool
}

// Overrides are caller-supplied values that take precedence over the
// pipeline's settings. Zero values mean "not set".
type Overrides struct {
	Root    string
	Budget  int
	Targets []string
	DryRun  bool
}

// NewRunConfig resolves model against overrides. Without any target the
// pipeline's target blocks are used. The budget defaults to the number of
// CPUs.
func NewRunConfig(model *Model, o Overrides) (RunConfig, error) {
	if model == nil {
		return RunConfig{}, errors.New("nil pipeline model")
	}
	settings := model.Settings
	if settings == nil {
		settings = &Settings{}
	}

	rc := RunConfig{
		Root:    firstNonEmpty(o.Root, settings.Root, DefaultRoot),
		Budget:  settings.Budget,
		Targets: append([]string(nil), o.Targets...),
		Keep:    append([]string(nil), settings.Keep...),
		DryRun:  o.DryRun,
	}
	if o.Budget != 0 {
		rc.Budget = o.Budget
	}
	if rc.Budget == 0 {
		rc.Budget = runtime.NumCPU()
	}
	if rc.Budget < 0 {
		return RunConfig{}, fmt.Errorf("budget must be positive, got %d", rc.Budget)
	}

	root, err := filepath.Abs(rc.Root)
	if err != nil {
		return RunConfig{}, fmt.Errorf("resolving root %q: %w", rc.Root, err)
	}
	rc.Root = root

	if len(rc.Targets) == 0 {
		for _, t := range model.Targets {
			rc.Targets = append(rc.Targets, t.Goals...)
			rc.Targets = append(rc.Targets, t.Rules...)
		}
	}

	names := make([]string, 0, len(model.Sweeps))
	values := make(map[string][]string, len(model.Sweeps))
	for _, s := range model.Sweeps {
		if _, dup := values[s.Name]; dup {
			return RunConfig{}, fmt.Errorf("sweep '%s' is declared more than once", s.Name)
		}
		names = append(names, s.Name)
		values[s.Name] = s.Values
	}
	rc.Sweeps, err = sweep.New(names, values)
	if err != nil {
		return RunConfig{}, err
	}
	return rc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
